package devserver

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const maxTracedBody = 2048

// NewRouter mounts the quiz API. Access logs go to accessLog when it is not
// nil; response bodies are traced at glog -v=4.
func NewRouter(api *API, accessLog io.Writer) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/auth/register", api.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", api.HandleLogin).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(api.requireAuth)
	authed.HandleFunc("/quiz/attempts/history", api.HandleHistory).Methods(http.MethodGet)
	authed.HandleFunc("/quiz/{quiz_id:[0-9]+}/attempt", api.HandleAttempt).Methods(http.MethodGet)
	authed.HandleFunc("/quiz/{quiz_id:[0-9]+}/submit", api.HandleSubmit).Methods(http.MethodPost)
	authed.HandleFunc("/quiz/{quiz_id:[0-9]+}/score", api.HandleScore).Methods(http.MethodGet)
	authed.HandleFunc("/quiz/{quiz_id:[0-9]+}/results", api.HandleResults).Methods(http.MethodGet)
	authed.HandleFunc("/quiz-registration/{quiz_id:[0-9]+}/signup", api.HandleSignup).Methods(http.MethodPost)
	authed.HandleFunc("/quiz-registration/{quiz_id:[0-9]+}/cancel", api.HandleCancelSignup).Methods(http.MethodDelete)
	authed.HandleFunc("/users/quizzes/signups", api.HandleSignups).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
	})

	corsHeaders := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", requestIDHeader})
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "POST", "HEAD", "OPTIONS", "DELETE"})

	var h http.Handler = handlers.CORS(corsHeaders, corsOrigins, corsMethods)(traceBodies(r))
	if accessLog != nil {
		h = handlers.LoggingHandler(accessLog, h)
	}
	return h
}

// traceBodies logs each response status and the head of its body.
func traceBodies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !glog.V(4) {
			next.ServeHTTP(w, r)
			return
		}

		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK, maxLogBytes: maxTracedBody}
		next.ServeHTTP(recorder, r)

		suffix := ""
		if recorder.truncated {
			suffix = "..."
		}
		glog.Infof("%s %s -> %d %dB in %s: %s%s",
			r.Method, r.URL.Path, recorder.statusCode, recorder.bytesWritten, time.Since(started),
			bytes.TrimSpace(recorder.logBody.Bytes()), suffix)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	maxLogBytes  int
	logBody      bytes.Buffer
	truncated    bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if room := s.maxLogBytes - s.logBody.Len(); room > 0 {
		if len(p) > room {
			s.logBody.Write(p[:room])
			s.truncated = true
		} else {
			s.logBody.Write(p)
		}
	} else if len(p) > 0 {
		s.truncated = true
	}

	n, err := s.ResponseWriter.Write(p)
	s.bytesWritten += n
	return n, err
}
