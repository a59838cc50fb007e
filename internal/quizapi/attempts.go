package quizapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"quiz-client/internal/quiz"
)

const RequestIDHeader = "X-Request-ID"

type questionItem struct {
	ID        int    `json:"id"`
	Statement string `json:"question_statement"`
	Option1   string `json:"option1"`
	Option2   string `json:"option2"`
	Option3   string `json:"option3"`
	Option4   string `json:"option4"`
	Points    int    `json:"points"`
}

func (q questionItem) toQuestion() quiz.Question {
	return quiz.Question{
		ID:        q.ID,
		Statement: q.Statement,
		Options:   [quiz.OptionCount]string{q.Option1, q.Option2, q.Option3, q.Option4},
		Points:    q.Points,
	}
}

type attemptResponse struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	TotalQuestions int            `json:"total_questions"`
	DateOfQuiz     string         `json:"date_of_quiz"`
	EndTime        string         `json:"end_time"`
	Questions      []questionItem `json:"questions"`
}

type submitRequest struct {
	Answers []quiz.Submission `json:"answers"`
}

type scoreItem struct {
	ID         int    `json:"id"`
	QuizID     int    `json:"quiz_id"`
	UserID     int    `json:"user_id"`
	TotalScore int    `json:"total_score"`
	Timestamp  string `json:"timestamp"`
}

type submitResponse struct {
	Message        string    `json:"message"`
	CorrectAnswers int       `json:"correct_answers"`
	Score          scoreItem `json:"score"`
}

type scoreSummaryResponse struct {
	QuizName       string `json:"quiz_name"`
	UserScore      int    `json:"user_score"`
	TotalQuizScore int    `json:"total_quiz_score"`
	CorrectAnswers int    `json:"number_of_correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	DateOfQuiz     string `json:"date_of_quiz"`
	TimeDuration   string `json:"time_duration"`
}

type questionResultItem struct {
	questionItem
	UserAnswer    *int `json:"user_answer"`
	CorrectOption int  `json:"correct_option"`
	IsCorrect     bool `json:"is_correct"`
}

type resultsResponse struct {
	Questions []questionResultItem `json:"questions"`
}

type historyItem struct {
	QuizID     int    `json:"quiz_id"`
	QuizName   string `json:"quiz_name"`
	TotalScore int    `json:"total_score"`
	Timestamp  string `json:"timestamp"`
}

var fetchAttemptErrors = map[int]error{
	http.StatusForbidden: ErrNotSignedUp,
	http.StatusConflict:  ErrNotActive,
}

// FetchAttempt starts an attempt and returns its questions and deadline. It
// fails with ErrNotSignedUp, ErrNotActive, ErrNetwork, ErrUnauthorized or
// ErrMalformed.
func (c *HTTPClient) FetchAttempt(ctx context.Context, quizID int) (quiz.Attempt, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, quizPath(quizID, "attempt"), nil, &raw, nil); err != nil {
		return quiz.Attempt{}, classify(err, fetchAttemptErrors, nil)
	}

	if err := validateAttempt(raw); err != nil {
		return quiz.Attempt{}, err
	}

	var payload attemptResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return quiz.Attempt{}, errors.Wrapf(ErrMalformed, "decode attempt: %v", err)
	}

	endTime, err := parseTime(payload.EndTime)
	if err != nil {
		return quiz.Attempt{}, errors.Wrapf(ErrMalformed, "end_time: %v", err)
	}

	attempt := quiz.Attempt{
		QuizID:         quizID,
		Name:           payload.Name,
		TotalQuestions: payload.TotalQuestions,
		DateOfQuiz:     parseOptionalTime(payload.DateOfQuiz),
		EndTime:        endTime,
		Questions:      make([]quiz.Question, 0, len(payload.Questions)),
	}
	for _, item := range payload.Questions {
		attempt.Questions = append(attempt.Questions, item.toQuestion())
	}
	if attempt.TotalQuestions == 0 {
		attempt.TotalQuestions = len(attempt.Questions)
	}
	return attempt, nil
}

// SubmitAttempt delivers the answer records for a quiz. Any non-2xx status
// other than 401 is reported as ErrServerRejected.
func (c *HTTPClient) SubmitAttempt(ctx context.Context, quizID int, answers []quiz.Submission) (quiz.SubmissionResult, error) {
	if answers == nil {
		answers = []quiz.Submission{}
	}

	requestID := uuid.NewString()
	header := http.Header{}
	header.Set(RequestIDHeader, requestID)

	var payload submitResponse
	err := c.doJSON(ctx, http.MethodPost, quizPath(quizID, "submit"), submitRequest{Answers: answers}, &payload, header)
	if err != nil {
		return quiz.SubmissionResult{}, classify(err, nil, ErrServerRejected)
	}
	return quiz.SubmissionResult{
		Message:        payload.Message,
		CorrectAnswers: payload.CorrectAnswers,
		Score: quiz.Score{
			ID:         payload.Score.ID,
			QuizID:     payload.Score.QuizID,
			UserID:     payload.Score.UserID,
			TotalScore: payload.Score.TotalScore,
			Timestamp:  parseOptionalTime(payload.Score.Timestamp),
		},
		RequestID: requestID,
	}, nil
}

func (c *HTTPClient) GetScore(ctx context.Context, quizID int) (quiz.ScoreSummary, error) {
	var payload scoreSummaryResponse
	if err := c.doJSON(ctx, http.MethodGet, quizPath(quizID, "score"), nil, &payload, nil); err != nil {
		return quiz.ScoreSummary{}, err
	}
	return quiz.ScoreSummary{
		QuizName:       payload.QuizName,
		UserScore:      payload.UserScore,
		TotalQuizScore: payload.TotalQuizScore,
		CorrectAnswers: payload.CorrectAnswers,
		TotalQuestions: payload.TotalQuestions,
		DateOfQuiz:     parseOptionalTime(payload.DateOfQuiz),
		TimeDuration:   payload.TimeDuration,
	}, nil
}

// GetResults returns per-question outcomes, including the correct option,
// once an attempt has been submitted.
func (c *HTTPClient) GetResults(ctx context.Context, quizID int) ([]quiz.QuestionResult, error) {
	var payload resultsResponse
	if err := c.doJSON(ctx, http.MethodGet, quizPath(quizID, "results"), nil, &payload, nil); err != nil {
		return nil, err
	}

	results := make([]quiz.QuestionResult, 0, len(payload.Questions))
	for _, item := range payload.Questions {
		question := item.toQuestion()
		result := quiz.QuestionResult{
			ID:            question.ID,
			Statement:     question.Statement,
			Options:       question.Options,
			Points:        question.Points,
			CorrectOption: quiz.Option(item.CorrectOption),
			IsCorrect:     item.IsCorrect,
		}
		if item.UserAnswer != nil {
			result.UserAnswer = quiz.Option(*item.UserAnswer)
		}
		results = append(results, result)
	}
	return results, nil
}

func (c *HTTPClient) GetHistory(ctx context.Context) ([]quiz.HistoryEntry, error) {
	var payload []historyItem
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/attempts/history", nil, &payload, nil); err != nil {
		return nil, err
	}

	entries := make([]quiz.HistoryEntry, 0, len(payload))
	for _, item := range payload {
		entries = append(entries, quiz.HistoryEntry{
			QuizID:     item.QuizID,
			QuizName:   item.QuizName,
			TotalScore: item.TotalScore,
			Timestamp:  parseOptionalTime(item.Timestamp),
		})
	}
	return entries, nil
}

func quizPath(quizID int, action string) string {
	return "/quiz/" + strconv.Itoa(quizID) + "/" + action
}
