package devserver

import (
	"time"

	"quiz-client/internal/quiz"
)

type User struct {
	ID           int
	Username     string
	Email        string
	FullName     string
	DOB          string
	Role         string
	PasswordHash string
}

type Quiz struct {
	ID           int
	Name         string
	Remarks      string
	ChapterName  string
	SubjectName  string
	DateOfQuiz   time.Time
	TimeDuration string
}

// EndTime is the start of the quiz plus its HH:MM duration.
func (q Quiz) EndTime() (time.Time, error) {
	d, err := quiz.ParseDuration(q.TimeDuration)
	if err != nil {
		return time.Time{}, err
	}
	return q.DateOfQuiz.Add(d), nil
}

// Status places now relative to the quiz window. A quiz with an unreadable
// duration is treated as over once it has started.
func (q Quiz) Status(now time.Time) string {
	if now.Before(q.DateOfQuiz) {
		return quiz.StatusUpcoming
	}
	end, err := q.EndTime()
	if err == nil && now.Before(end) {
		return quiz.StatusActive
	}
	return quiz.StatusCompleted
}

type Question struct {
	ID            int
	QuizID        int
	Statement     string
	Options       [quiz.OptionCount]string
	CorrectOption int
	Points        int
}

// Answer is one stored selection. Selected is nil for skipped questions.
type Answer struct {
	QuestionID int
	Selected   *int
}

type ScoreRecord struct {
	ID             int
	QuizID         int
	UserID         int
	TotalScore     int
	CorrectAnswers int
	SubmittedAt    time.Time
}

// SignupRow is a signed-up quiz joined with its question totals and the
// learner's score, if any.
type SignupRow struct {
	Quiz           Quiz
	TotalQuestions int
	TotalPoints    int
	Score          *ScoreRecord
}

// Grade scores answers against questions: each answered question whose
// selection equals its correct option earns its points. Answers for
// questions outside the quiz are ignored.
func Grade(questions []Question, answers []Answer) (total, correct int) {
	byID := make(map[int]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for _, answer := range answers {
		q, ok := byID[answer.QuestionID]
		if !ok || answer.Selected == nil {
			continue
		}
		if *answer.Selected == q.CorrectOption {
			total += q.Points
			correct++
		}
	}
	return total, correct
}
