package devserver

import (
	"net/http"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"quiz-client/internal/quiz"
)

func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := decodeJSON(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}

	request.Username = strings.TrimSpace(request.Username)
	request.Email = strings.TrimSpace(request.Email)
	if request.Username == "" || request.Email == "" || request.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "username, email and password are required"})
		return
	}
	if strings.Contains(request.Username, "@") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "username must not contain @"})
		return
	}
	switch request.Role {
	case "", quiz.RoleUser:
	case quiz.RoleAdmin:
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "Admin registration not allowed"})
		return
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "unknown role"})
		return
	}

	hash, err := hashPassword(request.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := a.store.CreateUser(r.Context(), User{
		Username:     request.Username,
		Email:        request.Email,
		FullName:     request.FullName,
		DOB:          request.DOB,
		Role:         quiz.RoleUser,
		PasswordHash: hash,
	})
	if errors.Is(err, ErrUserExists) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Username or email already taken"})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	glog.Infof("registered user %d (%s)", user.ID, user.Username)
	writeJSON(w, http.StatusCreated, registerResponse{
		Message:  "User registered successfully",
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := decodeJSON(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}

	login := request.Username
	if strings.TrimSpace(login) == "" {
		login = request.Email
	}
	if strings.TrimSpace(login) == "" || request.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Email/username and password are required"})
		return
	}

	user, err := a.store.FindUser(r.Context(), login)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		writeServiceError(w, r, err)
		return
	}
	if err != nil || !checkPassword(user.PasswordHash, request.Password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Invalid credentials"})
		return
	}

	token, err := a.tokens.Issue(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		User: userResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	})
}

func (a *API) HandleSignup(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())
	if user.Role == quiz.RoleAdmin {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	q, err := a.store.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	now := a.clock.Now()
	if q.Status(now) == quiz.StatusCompleted {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Date of registration is over"})
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

	if err := a.store.Signup(r.Context(), user.ID, quizID, now); err != nil {
		if errors.Is(err, ErrAlreadySigned) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "User already signed up for this quiz"})
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User signed up for quiz successfully"})
}

// HandleCancelSignup withdraws from a quiz that has not started.
func (a *API) HandleCancelSignup(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user, _ := currentUser(r.Context())
	if user.Role == quiz.RoleAdmin {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

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
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "User is not signed up for this quiz"})
		return
	}

	switch q.Status(a.clock.Now()) {
	case quiz.StatusCompleted:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Past quizzes cannot be cancelled"})
		return
	case quiz.StatusActive:
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Cannot cancel a quiz that is ongoing"})
		return
	}

	if err := a.store.CancelSignup(r.Context(), user.ID, quizID); err != nil {
		if errors.Is(err, ErrNotSignedUp) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "User is not signed up for this quiz"})
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Quiz registration cancelled successfully"})
}

func (a *API) HandleSignups(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	rows, err := a.store.ListSignups(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := a.clock.Now()
	response := make([]signupResponse, 0, len(rows))
	for _, row := range rows {
		item := signupResponse{
			ID:             row.Quiz.ID,
			Name:           row.Quiz.Name,
			DateOfQuiz:     formatTime(row.Quiz.DateOfQuiz),
			TimeDuration:   row.Quiz.TimeDuration,
			Remarks:        row.Quiz.Remarks,
			ChapterName:    row.Quiz.ChapterName,
			SubjectName:    row.Quiz.SubjectName,
			Status:         row.Quiz.Status(now),
			UserScore:      "?",
			TotalQuizScore: row.TotalPoints,
			CorrectAnswers: "?",
			TotalQuestions: row.TotalQuestions,
		}
		if row.Score != nil {
			item.UserScore = row.Score.TotalScore
			item.CorrectAnswers = row.Score.CorrectAnswers
		}
		response = append(response, item)
	}
	writeJSON(w, http.StatusOK, response)
}
