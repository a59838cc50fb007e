package quizapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-client/internal/quiz"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

const validAttempt = `{
	"id": 7,
	"name": "Algebra basics",
	"total_questions": 2,
	"date_of_quiz": "2026-03-01T10:00:00",
	"end_time": "2026-03-01T10:30:00Z",
	"questions": [
		{"id": 1, "question_statement": "2+2?", "option1": "3", "option2": "4", "option3": "5", "option4": "6", "points": 2},
		{"id": 2, "question_statement": "3*3?", "option1": "6", "option2": "9", "option3": "12", "option4": "0", "points": 1}
	]
}`

func TestDoJSONReturnsNetworkError(t *testing.T) {
	client := NewHTTPClient("http://example.test", &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial error")
		}),
	})

	err := client.doJSON(context.Background(), http.MethodGet, "/health", nil, nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork wrapper, got %v", err)
	}
}

func TestDoJSONReturnsAPIErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad request payload"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	err := client.doJSON(context.Background(), http.MethodGet, "/anything", nil, nil, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", apiErr.StatusCode, http.StatusBadRequest)
	}
	if apiErr.Message != "bad request payload" {
		t.Fatalf("message = %q, want %q", apiErr.Message, "bad request payload")
	}
}

func TestDoJSONJoinsValidationDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"details":[{"msg":"password too short"},{"msg":"email invalid"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	err := client.doJSON(context.Background(), http.MethodPost, "/auth/register", map[string]string{}, nil, nil)
	if err == nil || err.Error() != "password too short\nemail invalid" {
		t.Fatalf("err = %v, want joined details", err)
	}
}

func TestDoJSONMapsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	err := client.doJSON(context.Background(), http.MethodGet, "/quiz/1/score", nil, nil, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestFetchAttemptSendsTokenAndParsesAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quiz/7/attempt" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(validAttempt))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", server.Client())
	client.SetToken(" tok-123 ")

	attempt, err := client.FetchAttempt(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchAttempt failed: %v", err)
	}
	if attempt.QuizID != 7 || attempt.Name != "Algebra basics" || attempt.TotalQuestions != 2 {
		t.Fatalf("unexpected attempt header: %+v", attempt)
	}
	wantEnd := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	if !attempt.EndTime.Equal(wantEnd) {
		t.Fatalf("end time = %v, want %v", attempt.EndTime, wantEnd)
	}
	if !attempt.DateOfQuiz.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("zone-less date_of_quiz not read as UTC: %v", attempt.DateOfQuiz)
	}
	if len(attempt.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(attempt.Questions))
	}
	first := attempt.Questions[0]
	if first.ID != 1 || first.Options[1] != "4" || first.Points != 2 {
		t.Fatalf("unexpected first question: %+v", first)
	}
}

func TestFetchAttemptMapsStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, ErrNotSignedUp},
		{http.StatusConflict, ErrNotActive},
		{http.StatusUnauthorized, ErrUnauthorized},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		}))

		client := NewHTTPClient(server.URL, server.Client())
		_, err := client.FetchAttempt(context.Background(), 3)
		server.Close()

		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestFetchAttemptRejectsMalformedDocument(t *testing.T) {
	documents := []string{
		`{"name": "x", "end_time": "2026-03-01T10:30:00Z", "questions": []}`,
		`{"name": "x", "questions": [{"id": 1, "question_statement": "q", "option1": "a", "option2": "b", "option3": "c", "option4": "d"}]}`,
		`{"name": "x", "end_time": "tomorrow", "questions": [{"id": 1, "question_statement": "q", "option1": "a", "option2": "b", "option3": "c", "option4": "d"}]}`,
		`{"name": "x", "end_time": "2026-03-01T10:30:00Z", "questions": [{"id": 1, "question_statement": "q", "option1": "a"}]}`,
	}

	for _, document := range documents {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(document))
		}))
		client := NewHTTPClient(server.URL, server.Client())
		_, err := client.FetchAttempt(context.Background(), 1)
		server.Close()

		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("document %s: err = %v, want ErrMalformed", document, err)
		}
	}
}

func TestSubmitAttemptSendsAnswersWithRequestID(t *testing.T) {
	var (
		body      string
		requestID string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/quiz/7/submit" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		requestID = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"message":"Quiz submitted successfully","correct_answers":1,"score":{"id":4,"quiz_id":7,"user_id":2,"total_score":2,"timestamp":"2026-03-01T10:30:00"}}`))
	}))
	defer server.Close()

	selected := 2
	client := NewHTTPClient(server.URL, server.Client())
	result, err := client.SubmitAttempt(context.Background(), 7, []quiz.Submission{
		{QuestionID: 1, SelectedOption: &selected},
		{QuestionID: 2},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}

	if body != `{"answers":[{"question_id":1,"selected_option":2},{"question_id":2}]}` {
		t.Fatalf("body = %s", body)
	}
	if requestID == "" || result.RequestID != requestID {
		t.Fatalf("request id header %q, result %q", requestID, result.RequestID)
	}
	if result.CorrectAnswers != 1 || result.Score.TotalScore != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Score.Timestamp.Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", result.Score.Timestamp)
	}
}

func TestSubmitAttemptServerRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	_, err := client.SubmitAttempt(context.Background(), 7, nil)
	if !errors.Is(err, ErrServerRejected) {
		t.Fatalf("err = %v, want ErrServerRejected", err)
	}
}

func TestGetResultsMapsUserAnswers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"questions":[
			{"id":1,"question_statement":"a","option1":"1","option2":"2","option3":"3","option4":"4","points":1,"user_answer":null,"correct_option":2,"is_correct":false},
			{"id":2,"question_statement":"b","option1":"1","option2":"2","option3":"3","option4":"4","points":3,"user_answer":4,"correct_option":4,"is_correct":true}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	results, err := client.GetResults(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Status() != quiz.ResultUnanswered || results[0].CorrectOption != 2 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Status() != quiz.ResultCorrect || results[1].Points != 3 {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestListSignupsHandlesPlaceholderScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"Upcoming","status":"upcoming","user_score":"?","number_of_correct_answers":"?","total_quiz_score":10,"total_questions":5,"time_duration":"00:30"},
			{"id":2,"name":"Done","status":"completed","user_score":7,"number_of_correct_answers":3,"total_quiz_score":10,"total_questions":5,"time_duration":"01:00"}
		]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	quizzes, err := client.ListSignups(context.Background())
	if err != nil {
		t.Fatalf("ListSignups failed: %v", err)
	}
	if quizzes[0].UserScore != nil || quizzes[0].CorrectAnswers != nil {
		t.Fatalf("placeholder scores should be nil: %+v", quizzes[0])
	}
	if quizzes[1].UserScore == nil || *quizzes[1].UserScore != 7 {
		t.Fatalf("user score not decoded: %+v", quizzes[1])
	}
}

func TestLoginUsesEmailWhenIdentifierHasAt(t *testing.T) {
	var seen loginRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":3,"username":"ana","role":"user"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	result, err := client.Login(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if seen.Email != "ana@example.com" || seen.Username != "" {
		t.Fatalf("login request = %+v", seen)
	}
	if result.User.Username != "ana" || client.Token() != "tok" {
		t.Fatalf("unexpected login result %+v token %q", result, client.Token())
	}
}

func TestLoginBadCredentialsIsNotSessionExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	_, err := client.Login(context.Background(), "ana", "wrong")
	if err == nil || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want plain credentials error", err)
	}
	if !strings.Contains(err.Error(), "Invalid username or password") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseClaims(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "42",
		"role": "admin",
		"exp":  expires.Unix(),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims failed: %v", err)
	}
	if claims.Subject != "42" || claims.Role != "admin" || !claims.ExpiresAt.Equal(expires) {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Expired(expires.Add(-time.Minute)) || !claims.Expired(expires) {
		t.Fatalf("Expired boundary wrong for %+v", claims)
	}

	if _, err := ParseClaims("not-a-token"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseTime(t *testing.T) {
	for _, value := range []string{"2026-03-01T10:20:30Z", "2026-03-01T10:20:30+02:00", "2026-03-01T10:20:30.123456", "2026-03-01"} {
		if _, err := parseTime(value); err != nil {
			t.Fatalf("parseTime(%q) failed: %v", value, err)
		}
	}
	if _, err := parseTime("not-a-time"); err == nil {
		t.Fatalf("expected invalid parse error")
	}
}
