package devserver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "dev.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int {
	return &v
}

func TestStoreQuizRoundTripKeepsQuestionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	created, err := store.CreateQuiz(ctx, Quiz{Name: "Q", DateOfQuiz: start, TimeDuration: "00:45"}, []Question{
		{Statement: "first", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 2, Points: 3},
		{Statement: "second", Options: [4]string{"a", "b", "c", "d"}, CorrectOption: 4},
	})
	if err != nil {
		t.Fatalf("CreateQuiz failed: %v", err)
	}

	got, err := store.GetQuiz(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetQuiz failed: %v", err)
	}
	if !got.DateOfQuiz.Equal(start) || got.TimeDuration != "00:45" {
		t.Fatalf("quiz = %+v", got)
	}
	end, err := got.EndTime()
	if err != nil || !end.Equal(start.Add(45*time.Minute)) {
		t.Fatalf("EndTime = (%v, %v)", end, err)
	}

	questions, err := store.QuizQuestions(ctx, created.ID)
	if err != nil {
		t.Fatalf("QuizQuestions failed: %v", err)
	}
	if len(questions) != 2 || questions[0].Statement != "first" || questions[1].Statement != "second" {
		t.Fatalf("questions = %+v", questions)
	}
	if questions[1].Points != 1 {
		t.Fatalf("default points = %d, want 1", questions[1].Points)
	}

	if _, err := store.GetQuiz(ctx, created.ID+100); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("missing quiz err = %v, want ErrQuizNotFound", err)
	}
}

func TestStoreCreateQuizRejectsBadDuration(t *testing.T) {
	store := newTestStore(t)
	_, err := store.CreateQuiz(context.Background(), Quiz{Name: "Q", DateOfQuiz: time.Now(), TimeDuration: "45"}, nil)
	if err == nil {
		t.Fatalf("expected error for duration without colon")
	}
}

func TestStoreUsersAreUnique(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateUser(ctx, User{Username: "alice", Email: "Alice@Example.com", Role: "user", PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := store.CreateUser(ctx, User{Username: "alice", Email: "other@example.com", Role: "user", PasswordHash: "x"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username err = %v, want ErrUserExists", err)
	}

	byEmail, err := store.FindUser(ctx, "ALICE@example.com")
	if err != nil || byEmail.Username != "alice" {
		t.Fatalf("FindUser by email = (%+v, %v)", byEmail, err)
	}
	if _, err := store.FindUser(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("FindUser err = %v, want ErrUserNotFound", err)
	}
}

func TestStoreSignupsAndScores(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	user, err := store.CreateUser(ctx, User{Username: "alice", Email: "a@example.com", Role: "user", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	q, err := store.CreateQuiz(ctx, Quiz{Name: "Q", DateOfQuiz: now, TimeDuration: "00:10"}, []Question{
		{Statement: "one", CorrectOption: 1, Points: 2},
		{Statement: "two", CorrectOption: 2, Points: 1},
	})
	if err != nil {
		t.Fatalf("CreateQuiz failed: %v", err)
	}

	if err := store.Signup(ctx, user.ID, q.ID, now); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if err := store.Signup(ctx, user.ID, q.ID, now); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("second Signup err = %v, want ErrAlreadySigned", err)
	}

	rows, err := store.ListSignups(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSignups failed: %v", err)
	}
	if len(rows) != 1 || rows[0].TotalQuestions != 2 || rows[0].TotalPoints != 3 || rows[0].Score != nil {
		t.Fatalf("signups before score = %+v", rows)
	}

	questions, err := store.QuizQuestions(ctx, q.ID)
	if err != nil {
		t.Fatalf("QuizQuestions failed: %v", err)
	}
	answers := []Answer{
		{QuestionID: questions[0].ID, Selected: intPtr(1)},
		{QuestionID: questions[1].ID},
	}
	score, err := store.RecordScore(ctx, ScoreRecord{QuizID: q.ID, UserID: user.ID, TotalScore: 2, CorrectAnswers: 1, SubmittedAt: now}, answers)
	if err != nil {
		t.Fatalf("RecordScore failed: %v", err)
	}
	if _, err := store.RecordScore(ctx, ScoreRecord{QuizID: q.ID, UserID: user.ID, SubmittedAt: now}, nil); !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("second RecordScore err = %v, want ErrAlreadyScored", err)
	}

	stored, err := store.ScoreAnswers(ctx, score.ID)
	if err != nil {
		t.Fatalf("ScoreAnswers failed: %v", err)
	}
	if got := stored[questions[0].ID]; got == nil || *got != 1 {
		t.Fatalf("answer for first question = %v", got)
	}
	if got, ok := stored[questions[1].ID]; !ok || got != nil {
		t.Fatalf("skipped question = (%v, %v), want (nil, true)", got, ok)
	}

	rows, err = store.ListSignups(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSignups failed: %v", err)
	}
	if rows[0].Score == nil || rows[0].Score.TotalScore != 2 || rows[0].Score.CorrectAnswers != 1 {
		t.Fatalf("signup score = %+v", rows[0].Score)
	}

	history, err := store.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].QuizName != "Q" || !history[0].Score.SubmittedAt.Equal(now) {
		t.Fatalf("history = %+v", history)
	}

	if err := store.CancelSignup(ctx, user.ID, q.ID); err != nil {
		t.Fatalf("CancelSignup failed: %v", err)
	}
	if err := store.CancelSignup(ctx, user.ID, q.ID); !errors.Is(err, ErrNotSignedUp) {
		t.Fatalf("second CancelSignup err = %v, want ErrNotSignedUp", err)
	}
}

func TestGradeCountsOnlyMatchingAnswers(t *testing.T) {
	questions := []Question{
		{ID: 1, CorrectOption: 1, Points: 2},
		{ID: 2, CorrectOption: 3, Points: 1},
		{ID: 3, CorrectOption: 4, Points: 5},
	}
	answers := []Answer{
		{QuestionID: 1, Selected: intPtr(1)},
		{QuestionID: 2, Selected: intPtr(2)},
		{QuestionID: 3},
		{QuestionID: 99, Selected: intPtr(1)},
	}

	total, correct := Grade(questions, answers)
	if total != 2 || correct != 1 {
		t.Fatalf("Grade = (%d, %d), want (2, 1)", total, correct)
	}
}

func TestQuizStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	q := Quiz{DateOfQuiz: start, TimeDuration: "01:00"}

	cases := []struct {
		at   time.Time
		want string
	}{
		{start.Add(-time.Second), "upcoming"},
		{start, "active"},
		{start.Add(59 * time.Minute), "active"},
		{start.Add(time.Hour), "completed"},
	}
	for _, tc := range cases {
		if got := q.Status(tc.at); got != tc.want {
			t.Fatalf("Status(%s) = %s, want %s", tc.at.Format(time.Kitchen), got, tc.want)
		}
	}
}
