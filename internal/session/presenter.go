package session

import (
	"time"

	"quiz-client/internal/quiz"
)

type Notice int

const (
	NoticeInfo Notice = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (n Notice) String() string {
	switch n {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Destination is where the learner goes once the session is over.
type Destination int

const (
	DestinationQuizzes Destination = iota
	DestinationResults
)

func (d Destination) String() string {
	if d == DestinationResults {
		return "results"
	}
	return "quizzes"
}

// QuestionView is the render state of the question currently shown.
type QuestionView struct {
	QuizName    string
	Index       int
	Total       int
	Question    quiz.Question
	Selected    quiz.Option
	Unanswered  int
	HasPrevious bool
	HasNext     bool
	CanClear    bool
	CanSubmit   bool
	State       State
}

// Presenter receives everything the learner should see. Calls are made
// without the controller lock held, from the caller's goroutine or the
// countdown goroutine.
type Presenter interface {
	ShowAttempt(attempt quiz.Attempt)
	ShowQuestion(view QuestionView)
	ShowTime(remaining time.Duration)
	Notify(kind Notice, message string)
	// ConfirmSubmit asks whether to submit with unanswered questions left.
	ConfirmSubmit(unanswered int) bool
	Redirect(dest Destination, quizID int, after time.Duration)
}

// NopPresenter shows nothing and confirms every submission.
type NopPresenter struct{}

func (NopPresenter) ShowAttempt(quiz.Attempt)                 {}
func (NopPresenter) ShowQuestion(QuestionView)                {}
func (NopPresenter) ShowTime(time.Duration)                   {}
func (NopPresenter) Notify(Notice, string)                    {}
func (NopPresenter) ConfirmSubmit(int) bool                   { return true }
func (NopPresenter) Redirect(Destination, int, time.Duration) {}
