package cli

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"quiz-client/internal/quiz"
)

func (a *App) runQuizzes(ctx context.Context) error {
	quizzes, err := a.api.ListSignups(ctx)
	if err != nil {
		return err
	}

	if len(quizzes) == 0 {
		fmt.Fprintln(a.out, "You have not signed up for any quizzes.")
		return nil
	}

	fmt.Fprintln(a.out, "Your quizzes:")
	for _, item := range quizzes {
		fmt.Fprintf(a.out, "%d. %s [%s] %s, %s, %d questions",
			item.ID,
			item.Name,
			item.Status,
			formatDate(item.DateOfQuiz),
			orDash(quiz.FormatDuration(item.TimeDuration)),
			item.TotalQuestions,
		)
		if item.UserScore != nil {
			fmt.Fprintf(a.out, ", score %d/%d", *item.UserScore, item.TotalQuizScore)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *App) runRegistration(ctx context.Context, command string, quizID int) error {
	var (
		message string
		err     error
	)
	if command == "signup" {
		message, err = a.api.Signup(ctx, quizID)
	} else {
		message, err = a.api.CancelSignup(ctx, quizID)
	}
	if err != nil {
		return err
	}
	if message == "" {
		message = "Done."
	}
	fmt.Fprintln(a.out, message)
	return nil
}

// runResults fetches the score summary and the per-question breakdown
// concurrently.
func (a *App) runResults(ctx context.Context, quizID int) error {
	var (
		summary quiz.ScoreSummary
		results []quiz.QuestionResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.api.GetScore(gctx, quizID)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = a.api.GetResults(gctx, quizID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	printScoreSummary(a.out, summary)
	if len(results) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	for idx, result := range results {
		printQuestionResult(a.out, idx+1, result)
	}
	return nil
}

func (a *App) runHistory(ctx context.Context) error {
	entries, err := a.api.GetHistory(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No attempts yet.")
		return nil
	}

	now := a.opts.Clock.Now()
	fmt.Fprintln(a.out, "Attempt history:")
	for idx, entry := range entries {
		fmt.Fprintf(a.out, "%d. %s (quiz %d) score=%d submitted %s\n",
			idx+1,
			entry.QuizName,
			entry.QuizID,
			entry.TotalScore,
			formatWhen(entry.Timestamp, now),
		)
	}
	return nil
}

// runReceipts lists submissions this machine made, newest first.
func (a *App) runReceipts(ctx context.Context, limit int) error {
	receipts, err := a.store.ListReceipts(ctx, a.user.Username, limit)
	if err != nil {
		return err
	}

	if len(receipts) == 0 {
		fmt.Fprintln(a.out, "No submissions recorded on this machine.")
		return nil
	}

	now := a.opts.Clock.Now()
	fmt.Fprintln(a.out, "Submissions from this machine:")
	for idx, r := range receipts {
		fmt.Fprintf(a.out, "%d. %s (quiz %d) score=%d correct=%d submitted %s request=%s\n",
			idx+1,
			orDash(r.QuizName),
			r.QuizID,
			r.TotalScore,
			r.CorrectAnswers,
			formatWhen(r.SubmittedAt, now),
			r.RequestID,
		)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "no date"
	}
	return t.Format("2006-01-02 15:04")
}
