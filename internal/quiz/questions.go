package quiz

import (
	"errors"
	"time"
)

// OptionCount is the number of choices every question carries.
const OptionCount = 4

var (
	ErrInvalidOption   = errors.New("option must be between 1 and 4")
	ErrQuestionIndex   = errors.New("question index out of range")
	ErrAttemptMismatch = errors.New("answers do not match attempt questions")
)

// Option is the 1-based index of a choice. The zero value means unanswered.
type Option int

const Unanswered Option = 0

func (o Option) Valid() bool {
	return o >= 1 && o <= OptionCount
}

type Question struct {
	ID        int
	Statement string
	Options   [OptionCount]string
	Points    int
}

// Attempt is the question set handed out when a learner starts a quiz.
// Correct answers are never part of it.
type Attempt struct {
	QuizID         int
	Name           string
	TotalQuestions int
	DateOfQuiz     time.Time
	EndTime        time.Time
	Questions      []Question
}

// Remaining returns how long is left before the deadline, floored to whole
// seconds and clamped at zero.
func (a Attempt) Remaining(now time.Time) time.Duration {
	left := a.EndTime.Sub(now)
	if left <= 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// Answers holds exactly one selection per question of an attempt, keyed by
// position. Entries start unanswered and only change through Select/Clear.
type Answers struct {
	selected []Option
}

func NewAnswers(questionCount int) *Answers {
	if questionCount < 0 {
		questionCount = 0
	}
	return &Answers{selected: make([]Option, questionCount)}
}

func (a *Answers) Len() int {
	return len(a.selected)
}

func (a *Answers) Get(index int) Option {
	if index < 0 || index >= len(a.selected) {
		return Unanswered
	}
	return a.selected[index]
}

func (a *Answers) Select(index int, option Option) error {
	if index < 0 || index >= len(a.selected) {
		return ErrQuestionIndex
	}
	if !option.Valid() {
		return ErrInvalidOption
	}
	a.selected[index] = option
	return nil
}

func (a *Answers) Clear(index int) error {
	if index < 0 || index >= len(a.selected) {
		return ErrQuestionIndex
	}
	a.selected[index] = Unanswered
	return nil
}

func (a *Answers) UnansweredCount() int {
	count := 0
	for _, option := range a.selected {
		if option == Unanswered {
			count++
		}
	}
	return count
}

// Snapshot copies the current selections.
func (a *Answers) Snapshot() []Option {
	out := make([]Option, len(a.selected))
	copy(out, a.selected)
	return out
}

// Submission is one answer record sent to the server. Unanswered questions
// are sent without selected_option so the server decides how to score them.
type Submission struct {
	QuestionID     int  `json:"question_id"`
	SelectedOption *int `json:"selected_option,omitempty"`
}

func BuildSubmissions(questions []Question, answers *Answers) ([]Submission, error) {
	if answers == nil || answers.Len() != len(questions) {
		return nil, ErrAttemptMismatch
	}

	out := make([]Submission, 0, len(questions))
	for idx, question := range questions {
		item := Submission{QuestionID: question.ID}
		if selected := answers.Get(idx); selected != Unanswered {
			value := int(selected)
			item.SelectedOption = &value
		}
		out = append(out, item)
	}
	return out, nil
}
