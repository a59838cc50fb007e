package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"quiz-client/internal/quiz"
)

type messageResponse struct {
	Message string `json:"message"`
}

// maybeInt decodes a number, null, or the "?" placeholder the server uses for
// quizzes that have not been taken yet.
type maybeInt struct {
	value *int
}

func (m *maybeInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		m.value = nil
		return nil
	}
	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if n, err := strconv.Atoi(text); err == nil {
			m.value = &n
		} else {
			m.value = nil
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	m.value = &n
	return nil
}

type signedUpQuizItem struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	DateOfQuiz     string   `json:"date_of_quiz"`
	TimeDuration   string   `json:"time_duration"`
	ChapterName    string   `json:"chapter_name"`
	SubjectName    string   `json:"subject_name"`
	Status         string   `json:"status"`
	UserScore      maybeInt `json:"user_score"`
	TotalQuizScore int      `json:"total_quiz_score"`
	CorrectAnswers maybeInt `json:"number_of_correct_answers"`
	TotalQuestions int      `json:"total_questions"`
}

func (c *HTTPClient) Signup(ctx context.Context, quizID int) (string, error) {
	var payload messageResponse
	path := "/quiz-registration/" + strconv.Itoa(quizID) + "/signup"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &payload, nil); err != nil {
		return "", err
	}
	return payload.Message, nil
}

func (c *HTTPClient) CancelSignup(ctx context.Context, quizID int) (string, error) {
	var payload messageResponse
	path := "/quiz-registration/" + strconv.Itoa(quizID) + "/cancel"
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &payload, nil); err != nil {
		return "", err
	}
	return payload.Message, nil
}

func (c *HTTPClient) ListSignups(ctx context.Context) ([]quiz.SignedUpQuiz, error) {
	var payload []signedUpQuizItem
	if err := c.doJSON(ctx, http.MethodGet, "/users/quizzes/signups", nil, &payload, nil); err != nil {
		return nil, err
	}

	quizzes := make([]quiz.SignedUpQuiz, 0, len(payload))
	for _, item := range payload {
		quizzes = append(quizzes, quiz.SignedUpQuiz{
			ID:             item.ID,
			Name:           item.Name,
			DateOfQuiz:     parseOptionalTime(item.DateOfQuiz),
			TimeDuration:   item.TimeDuration,
			ChapterName:    item.ChapterName,
			SubjectName:    item.SubjectName,
			Status:         item.Status,
			TotalQuizScore: item.TotalQuizScore,
			TotalQuestions: item.TotalQuestions,
			UserScore:      item.UserScore.value,
			CorrectAnswers: item.CorrectAnswers.value,
		})
	}
	return quizzes, nil
}
