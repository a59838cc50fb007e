package devserver

import (
	"net/http"
	"time"

	"github.com/golang/glog"

	"quiz-client/internal/quiz"
)

const requestIDHeader = "X-Request-ID"

// HandleAttempt hands out the questions of an active quiz to a signed-up
// learner, without correct answers.
func (a *API) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())

	q, err := a.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	signed, err := a.store.IsSignedUp(r.Context(), user.ID, quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !signed {
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "You are not signed up for this quiz"})
		return
	}

	if _, err := a.store.ScoreFor(r.Context(), user.ID, quizID); err == nil {
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Quiz already submitted"})
		return
	}

	now := a.clock.Now()
	if status := q.Status(now); status != quiz.StatusActive {
		message := "Quiz has not started yet"
		if status == quiz.StatusCompleted {
			message = "Quiz is over"
		}
		writeJSON(w, http.StatusConflict, errorResponse{Message: message})
		return
	}

	questions, err := a.store.QuizQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(questions) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "No questions found for this quiz"})
		return
	}

	end, _ := q.EndTime()
	response := attemptResponse{
		ID:             q.ID,
		Name:           q.Name,
		TotalQuestions: len(questions),
		DateOfQuiz:     formatTime(q.DateOfQuiz),
		EndTime:        formatTime(end),
		Questions:      make([]questionResponse, 0, len(questions)),
	}
	for _, question := range questions {
		response.Questions = append(response.Questions, toQuestionResponse(question))
	}

	glog.V(2).Infof("user %d started quiz %d, %s left", user.ID, quizID, end.Sub(now).Truncate(time.Second))
	writeJSON(w, http.StatusOK, response)
}

// HandleSubmit grades and records a learner's answers. Each learner submits a
// quiz once.
func (a *API) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())

	q, err := a.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	signed, err := a.store.IsSignedUp(r.Context(), user.ID, quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !signed {
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "You are not signed up for this quiz"})
		return
	}

	now := a.clock.Now()
	end, err := q.EndTime()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if now.Before(q.DateOfQuiz) {
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Quiz has not started yet"})
		return
	}
	if now.After(end.Add(a.submitGrace)) {
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Quiz is over"})
		return
	}

	var request submitRequest
	if err := decodeJSON(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}
	if request.Answers == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "answers is required"})
		return
	}

	answers := make([]Answer, 0, len(request.Answers))
	for _, item := range request.Answers {
		if item.SelectedOption != nil && !quiz.Option(*item.SelectedOption).Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: quiz.ErrInvalidOption.Error()})
			return
		}
		answers = append(answers, Answer{QuestionID: item.QuestionID, Selected: item.SelectedOption})
	}

	questions, err := a.store.QuizQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	total, correct := Grade(questions, answers)

	score, err := a.store.RecordScore(r.Context(), ScoreRecord{
		QuizID:         quizID,
		UserID:         user.ID,
		TotalScore:     total,
		CorrectAnswers: correct,
		SubmittedAt:    now,
	}, answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	glog.Infof("user %d submitted quiz %d: score=%d correct=%d request=%s", user.ID, quizID, total, correct, r.Header.Get(requestIDHeader))
	writeJSON(w, http.StatusOK, submitResponse{
		Message:        "Quiz submitted successfully",
		CorrectAnswers: correct,
		Score:          toScoreResponse(score),
	})
}

func (a *API) HandleScore(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())

	q, err := a.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	score, err := a.store.ScoreFor(r.Context(), user.ID, quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	questions, err := a.store.QuizQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, scoreSummaryResponse{
		QuizName:       q.Name,
		UserScore:      score.TotalScore,
		TotalQuizScore: totalPoints(questions),
		CorrectAnswers: score.CorrectAnswers,
		TotalQuestions: len(questions),
		DateOfQuiz:     formatTime(q.DateOfQuiz),
		TimeDuration:   q.TimeDuration,
	})
}

// HandleResults returns every question with the learner's answer and the
// correct option. It is only available after submission.
func (a *API) HandleResults(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())

	q, err := a.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	score, err := a.store.ScoreFor(r.Context(), user.ID, quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	questions, err := a.store.QuizQuestions(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	selected, err := a.store.ScoreAnswers(r.Context(), score.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := resultsResponse{
		QuizName:  q.Name,
		Questions: make([]questionResultResponse, 0, len(questions)),
	}
	for _, question := range questions {
		answer := selected[question.ID]
		response.Questions = append(response.Questions, questionResultResponse{
			questionResponse: toQuestionResponse(question),
			UserAnswer:       answer,
			CorrectOption:    question.CorrectOption,
			IsCorrect:        answer != nil && *answer == question.CorrectOption,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (a *API) HandleHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	rows, err := a.store.History(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response := make([]historyResponse, 0, len(rows))
	for _, row := range rows {
		response = append(response, historyResponse{
			ScoreID:    row.Score.ID,
			QuizID:     row.Score.QuizID,
			QuizName:   row.QuizName,
			TotalScore: row.Score.TotalScore,
			Timestamp:  formatTime(row.Score.SubmittedAt),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
