package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"quiz-client/internal/quiz"
	"quiz-client/internal/session"
	"quiz-client/internal/store"
	"quiz-client/internal/timer"
)

// runTake runs one attempt. It returns once the attempt is submitted,
// abandoned or could not be loaded.
func (a *App) runTake(ctx context.Context, quizID int) error {
	p := newTerminalPresenter(a.out, a.lines)
	ctrl := session.New(a.api, p, quizID,
		session.WithClock(a.opts.Clock),
		session.WithWarningFraction(a.opts.WarningFraction),
		session.WithRedirectDelays(a.opts.FailureRedirect, a.opts.SuccessRedirect),
	)
	p.abort = ctrl.Done()
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil && ctrl.State() == session.StateFailed {
		if isUnauthorized(err) {
			a.expireSession(ctx)
			return nil
		}
		a.followRedirect(ctx, p)
		return nil
	}

	for {
		select {
		case <-ctrl.Done():
			return a.finishTake(ctx, ctrl, p)
		default:
		}

		fmt.Fprint(a.out, p.promptText())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ctrl.Done():
			fmt.Fprintln(a.out)
			return a.finishTake(ctx, ctrl, p)
		case line, ok := <-a.lines:
			if !ok {
				fmt.Fprintln(a.out)
				fmt.Fprintln(a.out, "Input closed; attempt abandoned.")
				return nil
			}
			if leave := a.handleTakeCommand(ctrl, p, line); leave {
				ctrl.Close()
				fmt.Fprintln(a.out, "Attempt abandoned. Your answers were not submitted.")
				return nil
			}
			if err := ctrl.Err(); isUnauthorized(err) && ctrl.State() == session.StateSubmitFailed {
				ctrl.Close()
				a.expireSession(ctx)
				return nil
			}
		}
	}
}

// handleTakeCommand applies one in-quiz command. It reports true when the
// learner leaves the attempt.
func (a *App) handleTakeCommand(ctrl *session.Controller, p *terminalPresenter, line string) bool {
	line = strings.ToLower(strings.TrimSpace(line))
	switch line {
	case "":
	case "n", "next":
		if !ctrl.Next() {
			fmt.Fprintln(a.out, "Already at the last question.")
		}
	case "p", "prev", "previous":
		if !ctrl.Previous() {
			fmt.Fprintln(a.out, "Already at the first question.")
		}
	case "1", "2", "3", "4":
		option := quiz.Option(line[0] - '0')
		switch err := ctrl.Select(option); {
		case err == nil:
		case errors.Is(err, session.ErrTimeUp):
			fmt.Fprintln(a.out, "Time is up. Type 's' to submit your answers.")
		default:
			fmt.Fprintf(a.out, "cannot select: %v\n", err)
		}
	case "c", "clear":
		if ctrl.View().Selected == quiz.Unanswered {
			fmt.Fprintln(a.out, "No answer selected for this question.")
			break
		}
		switch err := ctrl.Clear(); {
		case err == nil:
		case errors.Is(err, session.ErrTimeUp):
			fmt.Fprintln(a.out, "Time is up. Type 's' to submit your answers.")
		default:
			fmt.Fprintf(a.out, "cannot clear: %v\n", err)
		}
	case "s", "submit":
		switch err := ctrl.Submit(); {
		case err == nil:
		case errors.Is(err, session.ErrSubmitCancelled):
			fmt.Fprintln(a.out, "Submission cancelled. The timer is running again.")
		case errors.Is(err, session.ErrNotInProgress):
			glog.V(2).Infof("submit ignored in state %s", ctrl.State())
		default:
			// The presenter already reported the failure.
			if ctrl.State() == session.StateSubmitFailed {
				fmt.Fprintln(a.out, "Your answers are kept. Type 's' to try again.")
			}
		}
	case "t", "time":
		fmt.Fprintf(a.out, "Time remaining: %s\n", timer.FormatClock(ctrl.Remaining()))
	case "v", "view":
		p.render(ctrl.View(), true)
	case "q", "quit":
		return true
	case "h", "help", "?":
		printTakeHelp(a.out)
	default:
		fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
	}
	return false
}

func (a *App) finishTake(ctx context.Context, ctrl *session.Controller, p *terminalPresenter) error {
	result, ok := ctrl.Result()
	if !ok {
		return nil
	}

	if result.RequestID != "" && a.user != nil {
		receipt := store.Receipt{
			RequestID:      result.RequestID,
			Username:       a.user.Username,
			QuizID:         ctrl.QuizID(),
			QuizName:       p.quizName(),
			TotalScore:     result.Score.TotalScore,
			CorrectAnswers: result.CorrectAnswers,
			SubmittedAt:    result.Score.Timestamp,
		}
		if receipt.SubmittedAt.IsZero() {
			receipt.SubmittedAt = a.opts.Clock.Now()
		}
		if err := a.store.RecordReceipt(ctx, receipt); err != nil {
			glog.Warningf("record receipt for quiz %d: %v", ctrl.QuizID(), err)
		}
	}

	fmt.Fprintf(a.out, "Score: %d (%d correct)\n", result.Score.TotalScore, result.CorrectAnswers)
	if a.followRedirect(ctx, p) == session.DestinationResults {
		return a.runResults(ctx, ctrl.QuizID())
	}
	return nil
}

// followRedirect waits out the redirect delay the session asked for.
func (a *App) followRedirect(ctx context.Context, p *terminalPresenter) session.Destination {
	dest, after := p.redirect()
	if after > 0 {
		select {
		case <-ctx.Done():
		case <-a.opts.Clock.After(after):
		}
	}
	if dest == session.DestinationQuizzes {
		a.report(a.runQuizzes(ctx))
	}
	return dest
}

// terminalPresenter renders a session as plain text. Methods may be called
// from the countdown goroutine; output goes through the app's synchronized
// writer.
type terminalPresenter struct {
	out   io.Writer
	lines <-chan string
	abort <-chan struct{}

	mu           sync.Mutex
	name         string
	remaining    time.Duration
	lastIndex    int
	lastSelected quiz.Option
	shown        bool
	dest         session.Destination
	redirectIn   time.Duration
}

func newTerminalPresenter(out io.Writer, lines <-chan string) *terminalPresenter {
	return &terminalPresenter{out: out, lines: lines, lastIndex: -1}
}

func (p *terminalPresenter) ShowAttempt(attempt quiz.Attempt) {
	p.mu.Lock()
	p.name = attempt.Name
	p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s: %d questions, ends %s\n", attempt.Name, len(attempt.Questions), attempt.EndTime.Local().Format("15:04:05"))
	printTakeHelp(p.out)
}

func (p *terminalPresenter) ShowQuestion(view session.QuestionView) {
	p.render(view, false)
}

// render prints the whole question when it changes (or when forced) and a
// one-line acknowledgement for answer edits.
func (p *terminalPresenter) render(view session.QuestionView, force bool) {
	if view.Total == 0 {
		return
	}

	p.mu.Lock()
	sameQuestion := p.shown && p.lastIndex == view.Index
	previous := p.lastSelected
	p.shown = true
	p.lastIndex = view.Index
	p.lastSelected = view.Selected
	p.mu.Unlock()

	if sameQuestion && !force {
		switch {
		case view.Selected == previous:
		case view.Selected == quiz.Unanswered:
			fmt.Fprintf(p.out, "Answer cleared for question %d.\n", view.Index+1)
		default:
			fmt.Fprintf(p.out, "Question %d: selected %d. %s\n", view.Index+1, view.Selected, view.Question.Options[view.Selected-1])
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nQuestion %d of %d", view.Index+1, view.Total)
	if view.Question.Points > 0 {
		fmt.Fprintf(&b, " (%s)", pointsLabel(view.Question.Points))
	}
	fmt.Fprintf(&b, ", %d unanswered\n%s\n\n", view.Unanswered, view.Question.Statement)
	for i, text := range view.Question.Options {
		marker := " "
		if quiz.Option(i+1) == view.Selected {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %d. %s\n", marker, i+1, text)
	}
	fmt.Fprint(p.out, b.String())
}

func (p *terminalPresenter) ShowTime(remaining time.Duration) {
	p.mu.Lock()
	p.remaining = remaining
	p.mu.Unlock()
}

func (p *terminalPresenter) Notify(kind session.Notice, message string) {
	switch kind {
	case session.NoticeWarning:
		fmt.Fprintf(p.out, "\n!! %s\n", message)
	case session.NoticeError:
		fmt.Fprintf(p.out, "error: %s\n", message)
	default:
		fmt.Fprintln(p.out, message)
	}
}

// ConfirmSubmit reads yes/no from the input. The countdown is paused while
// it waits. If the session ends meanwhile the answer is no.
func (p *terminalPresenter) ConfirmSubmit(unanswered int) bool {
	prompt := fmt.Sprintf("You have %s. Submit anyway? (yes/no): ", pluralize(unanswered, "unanswered question"))
	for {
		fmt.Fprint(p.out, prompt)
		select {
		case <-p.abort:
			fmt.Fprintln(p.out)
			return false
		case line, ok := <-p.lines:
			if !ok {
				return false
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "y", "yes":
				return true
			case "n", "no":
				return false
			default:
				fmt.Fprintln(p.out, "Please answer yes or no.")
			}
		}
	}
}

func (p *terminalPresenter) Redirect(dest session.Destination, _ int, after time.Duration) {
	p.mu.Lock()
	p.dest = dest
	p.redirectIn = after
	p.mu.Unlock()

	if after > 0 {
		fmt.Fprintf(p.out, "Returning to %s in %s...\n", dest, after)
	}
}

func (p *terminalPresenter) redirect() (session.Destination, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dest, p.redirectIn
}

func (p *terminalPresenter) quizName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *terminalPresenter) promptText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("\n[%s] quiz> ", timer.FormatClock(p.remaining))
}
