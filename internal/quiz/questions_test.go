package quiz

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func sampleQuestions() []Question {
	return []Question{
		{ID: 11, Statement: "2+2?", Options: [OptionCount]string{"3", "4", "5", "6"}, Points: 1},
		{ID: 12, Statement: "Capital of France?", Options: [OptionCount]string{"Rome", "Madrid", "Paris", "Oslo"}, Points: 2},
		{ID: 13, Statement: "Largest planet?", Options: [OptionCount]string{"Mars", "Venus", "Earth", "Jupiter"}, Points: 1},
	}
}

func TestNewAnswersStartsUnanswered(t *testing.T) {
	answers := NewAnswers(3)
	if answers.Len() != 3 {
		t.Fatalf("Len = %d, want 3", answers.Len())
	}
	for idx := 0; idx < answers.Len(); idx++ {
		if got := answers.Get(idx); got != Unanswered {
			t.Fatalf("answer %d = %d, want unanswered", idx, got)
		}
	}
	if answers.UnansweredCount() != 3 {
		t.Fatalf("UnansweredCount = %d, want 3", answers.UnansweredCount())
	}
}

func TestSelectThenClearLeavesOthersUntouched(t *testing.T) {
	answers := NewAnswers(3)
	if err := answers.Select(0, 2); err != nil {
		t.Fatalf("Select(0) failed: %v", err)
	}
	if err := answers.Select(1, 3); err != nil {
		t.Fatalf("Select(1) failed: %v", err)
	}
	if err := answers.Clear(1); err != nil {
		t.Fatalf("Clear(1) failed: %v", err)
	}

	if answers.Len() != 3 {
		t.Fatalf("Len changed to %d", answers.Len())
	}
	if answers.Get(0) != 2 {
		t.Fatalf("answer 0 = %d, want 2", answers.Get(0))
	}
	if answers.Get(1) != Unanswered {
		t.Fatalf("answer 1 = %d, want unanswered", answers.Get(1))
	}
	if answers.Get(2) != Unanswered {
		t.Fatalf("answer 2 = %d, want unanswered", answers.Get(2))
	}
}

func TestSelectRejectsInvalidInput(t *testing.T) {
	answers := NewAnswers(2)
	if err := answers.Select(0, 5); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Select option 5 err = %v, want ErrInvalidOption", err)
	}
	if err := answers.Select(0, Unanswered); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Select unanswered err = %v, want ErrInvalidOption", err)
	}
	if err := answers.Select(2, 1); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("Select index 2 err = %v, want ErrQuestionIndex", err)
	}
	if err := answers.Clear(-1); !errors.Is(err, ErrQuestionIndex) {
		t.Fatalf("Clear index -1 err = %v, want ErrQuestionIndex", err)
	}
	if answers.UnansweredCount() != 2 {
		t.Fatalf("rejected input mutated answers: %v", answers.Snapshot())
	}
}

func TestBuildSubmissionsOmitsUnanswered(t *testing.T) {
	questions := sampleQuestions()
	answers := NewAnswers(len(questions))
	_ = answers.Select(0, 2)
	_ = answers.Select(2, 4)

	submissions, err := BuildSubmissions(questions, answers)
	if err != nil {
		t.Fatalf("BuildSubmissions failed: %v", err)
	}

	encoded, err := json.Marshal(submissions)
	if err != nil {
		t.Fatalf("marshal submissions: %v", err)
	}
	want := `[{"question_id":11,"selected_option":2},{"question_id":12},{"question_id":13,"selected_option":4}]`
	if string(encoded) != want {
		t.Fatalf("payload = %s, want %s", encoded, want)
	}
}

func TestBuildSubmissionsRejectsMismatchedAnswers(t *testing.T) {
	if _, err := BuildSubmissions(sampleQuestions(), NewAnswers(2)); !errors.Is(err, ErrAttemptMismatch) {
		t.Fatalf("err = %v, want ErrAttemptMismatch", err)
	}
}

func TestAttemptRemainingClampsAndFloors(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempt := Attempt{EndTime: now.Add(90*time.Second + 700*time.Millisecond)}
	if got := attempt.Remaining(now); got != 90*time.Second {
		t.Fatalf("Remaining = %v, want 1m30s", got)
	}

	attempt.EndTime = now.Add(-time.Minute)
	if got := attempt.Remaining(now); got != 0 {
		t.Fatalf("Remaining past deadline = %v, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[string]string{
		"01:30": "1 hour 30 minutes",
		"02:00": "2 hours",
		"00:01": "1 minute",
		"00:00": "0 minutes",
		"":      "",
		"junk":  "junk",
	}
	for input, want := range cases {
		if got := FormatDuration(input); got != want {
			t.Fatalf("FormatDuration(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestQuestionResultStatus(t *testing.T) {
	if got := (QuestionResult{}).Status(); got != ResultUnanswered {
		t.Fatalf("status = %q, want unanswered", got)
	}
	if got := (QuestionResult{UserAnswer: 2, CorrectOption: 2, IsCorrect: true}).Status(); got != ResultCorrect {
		t.Fatalf("status = %q, want correct", got)
	}
	if got := (QuestionResult{UserAnswer: 1, CorrectOption: 2}).Status(); got != ResultIncorrect {
		t.Fatalf("status = %q, want incorrect", got)
	}
}
