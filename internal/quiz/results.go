package quiz

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	StatusUpcoming  = "upcoming"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const (
	ResultUnanswered = "unanswered"
	ResultCorrect    = "correct"
	ResultIncorrect  = "incorrect"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Score struct {
	ID         int       `json:"id"`
	QuizID     int       `json:"quiz_id"`
	UserID     int       `json:"user_id"`
	TotalScore int       `json:"total_score"`
	Timestamp  time.Time `json:"timestamp"`
}

type SubmissionResult struct {
	Message        string `json:"message"`
	CorrectAnswers int    `json:"correct_answers"`
	Score          Score  `json:"score"`
	// RequestID is the client-generated id the submission was sent with.
	RequestID string `json:"-"`
}

type ScoreSummary struct {
	QuizName       string
	UserScore      int
	TotalQuizScore int
	CorrectAnswers int
	TotalQuestions int
	DateOfQuiz     time.Time
	TimeDuration   string
}

// Percent is the user's share of the total score, or zero when the quiz has
// no points.
func (s ScoreSummary) Percent() float64 {
	if s.TotalQuizScore <= 0 {
		return 0
	}
	return float64(s.UserScore) / float64(s.TotalQuizScore) * 100
}

type QuestionResult struct {
	ID            int
	Statement     string
	Options       [OptionCount]string
	Points        int
	UserAnswer    Option
	CorrectOption Option
	IsCorrect     bool
}

func (r QuestionResult) Status() string {
	switch {
	case r.UserAnswer == Unanswered:
		return ResultUnanswered
	case r.IsCorrect:
		return ResultCorrect
	default:
		return ResultIncorrect
	}
}

type SignedUpQuiz struct {
	ID             int
	Name           string
	DateOfQuiz     time.Time
	TimeDuration   string
	ChapterName    string
	SubjectName    string
	Status         string
	TotalQuizScore int
	TotalQuestions int
	// UserScore and CorrectAnswers are nil until the quiz has been taken.
	UserScore      *int
	CorrectAnswers *int
}

type HistoryEntry struct {
	QuizID     int
	QuizName   string
	TotalScore int
	Timestamp  time.Time
}

// ParseDuration reads an "HH:MM" quiz duration.
func ParseDuration(value string) (time.Duration, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: want HH:MM", value)
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid duration %q: bad hours", value)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid duration %q: bad minutes", value)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatDuration renders an "HH:MM" duration as e.g. "1 hour 30 minutes".
func FormatDuration(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	d, err := ParseDuration(value)
	if err != nil {
		return value
	}

	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
