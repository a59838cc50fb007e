package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Quiz not found"})
	case errors.Is(err, ErrNoScore):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Score not found"})
	case errors.Is(err, ErrAlreadyScored):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Quiz already submitted"})
	default:
		glog.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "request failed"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// quizIDParam reads the {quiz_id} path variable, writing a 404 when it is not
// a positive integer.
func quizIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["quiz_id"])
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Quiz not found"})
		return 0, false
	}
	return id, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func toQuestionResponse(q Question) questionResponse {
	return questionResponse{
		ID:        q.ID,
		Statement: q.Statement,
		Option1:   q.Options[0],
		Option2:   q.Options[1],
		Option3:   q.Options[2],
		Option4:   q.Options[3],
		Points:    q.Points,
	}
}

func toScoreResponse(s ScoreRecord) scoreResponse {
	return scoreResponse{
		ID:         s.ID,
		QuizID:     s.QuizID,
		UserID:     s.UserID,
		TotalScore: s.TotalScore,
		Timestamp:  formatTime(s.SubmittedAt),
	}
}

func totalPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}
