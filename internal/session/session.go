// Package session drives one learner through one timed quiz attempt.
//
// A Controller owns the attempt, the answer state and the countdown for a
// single attempt. It emits state to a Presenter and never renders anything
// itself. Exactly one submission path (manual or timer expiry) can move the
// controller out of InProgress; the other observes the new state and backs off.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"k8s.io/utils/clock"

	"quiz-client/internal/quiz"
	"quiz-client/internal/timer"
)

const (
	defaultWarningFraction = 0.1
	defaultFailureRedirect = 3 * time.Second
	defaultSuccessRedirect = 2 * time.Second
)

var (
	ErrNotInProgress   = errors.New("quiz is not in progress")
	ErrSubmitCancelled = errors.New("submission cancelled")
	ErrAlreadyLoaded   = errors.New("attempt already loaded")
	ErrEmptyAttempt    = errors.New("quiz has no questions")
	// ErrTimeUp rejects edits once the deadline has passed.
	ErrTimeUp = fmt.Errorf("time is up: %w", ErrNotInProgress)
)

type State int

const (
	StateLoading State = iota
	StateInProgress
	StateConfirming
	StateSubmitting
	StateSubmitted
	StateSubmitFailed
	StateFailed
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in-progress"
	case StateConfirming:
		return "confirming"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateSubmitFailed:
		return "submit-failed"
	case StateFailed:
		return "failed"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session is over.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateFailed || s == StateAbandoned
}

// Client is the remote side of an attempt.
type Client interface {
	FetchAttempt(ctx context.Context, quizID int) (quiz.Attempt, error)
	SubmitAttempt(ctx context.Context, quizID int, answers []quiz.Submission) (quiz.SubmissionResult, error)
}

type Option func(*Controller)

func WithClock(c clock.WithTicker) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithWarningFraction sets the share of the initial time at which a single
// low-time warning is shown. Zero disables it.
func WithWarningFraction(fraction float64) Option {
	return func(ctrl *Controller) {
		if fraction >= 0 && fraction < 1 {
			ctrl.warnFraction = fraction
		}
	}
}

func WithRedirectDelays(onFailure, onSuccess time.Duration) Option {
	return func(ctrl *Controller) {
		if onFailure >= 0 {
			ctrl.failureRedirect = onFailure
		}
		if onSuccess >= 0 {
			ctrl.successRedirect = onSuccess
		}
	}
}

type Controller struct {
	client    Client
	presenter Presenter
	clock     clock.WithTicker
	quizID    int

	warnFraction    float64
	failureRedirect time.Duration
	successRedirect time.Duration

	mu      sync.Mutex
	state   State
	ctx     context.Context
	attempt quiz.Attempt
	answers *quiz.Answers
	current int
	timer   *timer.Timer
	result  quiz.SubmissionResult
	lastErr error
	// forced is set once an expiry submission has failed; retries stay forced.
	forced bool

	done     chan struct{}
	doneOnce sync.Once
}

func New(client Client, presenter Presenter, quizID int, opts ...Option) *Controller {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	c := &Controller{
		client:          client,
		presenter:       presenter,
		clock:           clock.RealClock{},
		quizID:          quizID,
		warnFraction:    defaultWarningFraction,
		failureRedirect: defaultFailureRedirect,
		successRedirect: defaultSuccessRedirect,
		state:           StateLoading,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the attempt and either starts the countdown or, when the
// deadline has already passed, submits immediately without confirmation.
// Fetch failures are terminal.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoading || c.ctx != nil {
		c.mu.Unlock()
		return ErrAlreadyLoaded
	}
	c.ctx = ctx
	c.mu.Unlock()

	attempt, err := c.client.FetchAttempt(ctx, c.quizID)
	if err == nil && len(attempt.Questions) == 0 {
		err = ErrEmptyAttempt
	}
	if err != nil {
		c.failLoad(err)
		return err
	}

	c.mu.Lock()
	if c.state != StateLoading {
		// Closed while the fetch was outstanding.
		c.mu.Unlock()
		return ErrNotInProgress
	}
	c.attempt = attempt
	c.answers = quiz.NewAnswers(len(attempt.Questions))
	c.current = 0

	remaining := attempt.Remaining(c.clock.Now())
	if remaining <= 0 {
		c.setStateLocked(StateSubmitting)
		c.mu.Unlock()

		glog.Infof("quiz %d: deadline %s already passed at load", c.quizID, attempt.EndTime.Format(time.RFC3339))
		c.presenter.ShowAttempt(attempt)
		c.presenter.ShowTime(0)
		c.presenter.Notify(NoticeWarning, "Time Expired!")
		return c.deliver(true)
	}

	opts := []timer.Option{timer.WithClock(c.clock)}
	if c.warnFraction > 0 {
		threshold := time.Duration(float64(remaining) * c.warnFraction)
		opts = append(opts, timer.WithWarning(threshold, c.onWarning))
	}
	t := timer.New(remaining, c.onTick, c.onExpire, opts...)
	c.timer = t
	c.setStateLocked(StateInProgress)
	view := c.viewLocked()
	c.mu.Unlock()

	c.presenter.ShowAttempt(attempt)
	c.presenter.ShowQuestion(view)
	c.presenter.ShowTime(t.Remaining())
	t.Start()
	return nil
}

func (c *Controller) failLoad(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.setStateLocked(StateFailed)
	c.mu.Unlock()

	glog.Errorf("quiz %d: load attempt: %v", c.quizID, err)
	c.presenter.Notify(NoticeError, loadErrorMessage(err))
	c.presenter.Redirect(DestinationQuizzes, c.quizID, c.failureRedirect)
	c.finish()
}

func loadErrorMessage(err error) string {
	if err == nil {
		return "Failed to load quiz"
	}
	return err.Error()
}

// Next moves to the following question. It reports false at the last one.
func (c *Controller) Next() bool {
	return c.move(1)
}

// Previous moves to the preceding question. It reports false at the first one.
func (c *Controller) Previous() bool {
	return c.move(-1)
}

func (c *Controller) move(delta int) bool {
	c.mu.Lock()
	if !c.navigableLocked() {
		c.mu.Unlock()
		return false
	}
	target := c.current + delta
	if target < 0 || target >= len(c.attempt.Questions) {
		c.mu.Unlock()
		return false
	}
	c.current = target
	view := c.viewLocked()
	c.mu.Unlock()

	c.presenter.ShowQuestion(view)
	return true
}

// Select records option for the question currently shown.
func (c *Controller) Select(option quiz.Option) error {
	return c.mutate(func(answers *quiz.Answers, index int) error {
		return answers.Select(index, option)
	})
}

// Clear resets the current question to unanswered.
func (c *Controller) Clear() error {
	return c.mutate(func(answers *quiz.Answers, index int) error {
		return answers.Clear(index)
	})
}

func (c *Controller) mutate(fn func(*quiz.Answers, int) error) error {
	c.mu.Lock()
	if c.state != StateInProgress && c.state != StateSubmitFailed {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if c.overdueLocked() {
		c.mu.Unlock()
		return ErrTimeUp
	}
	if err := fn(c.answers, c.current); err != nil {
		c.mu.Unlock()
		return err
	}
	view := c.viewLocked()
	c.mu.Unlock()

	c.presenter.ShowQuestion(view)
	return nil
}

// Submit is the learner-initiated submission. With unanswered questions the
// presenter is asked to confirm; declining resumes the countdown and returns
// ErrSubmitCancelled. Past the deadline, or after a forced submission failed,
// it retries as a forced submission without asking. It returns
// ErrNotInProgress when another submission already owns the session.
func (c *Controller) Submit() error {
	c.mu.Lock()
	if c.state != StateInProgress && c.state != StateSubmitFailed {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if c.overdueLocked() {
		c.setStateLocked(StateSubmitting)
		c.mu.Unlock()
		return c.deliver(true)
	}

	if unanswered := c.answers.UnansweredCount(); unanswered > 0 {
		previous := c.state
		t := c.timer
		if t != nil {
			// Pause takes only the timer's lock.
			t.Pause()
			if t.Expired() {
				// The countdown finished first and its submission owns the session.
				c.mu.Unlock()
				return ErrNotInProgress
			}
		}
		c.setStateLocked(StateConfirming)
		c.mu.Unlock()

		confirmed := c.presenter.ConfirmSubmit(unanswered)

		c.mu.Lock()
		if c.state != StateConfirming {
			c.mu.Unlock()
			return ErrNotInProgress
		}
		if !confirmed {
			if c.overdueLocked() {
				c.setStateLocked(StateSubmitting)
				c.mu.Unlock()
				c.presenter.Notify(NoticeWarning, "Time is up! Submitting your answers.")
				return c.deliver(true)
			}
			c.setStateLocked(previous)
			c.mu.Unlock()
			if t != nil {
				t.Resume()
			}
			return ErrSubmitCancelled
		}
	}

	c.setStateLocked(StateSubmitting)
	c.mu.Unlock()
	return c.deliver(false)
}

func (c *Controller) onExpire() {
	if err := c.forceSubmit(); err != nil && !errors.Is(err, ErrNotInProgress) {
		glog.Warningf("quiz %d: forced submission failed: %v", c.quizID, err)
	}
}

// forceSubmit is the expiry path. It never asks for confirmation.
func (c *Controller) forceSubmit() error {
	c.mu.Lock()
	if c.state != StateInProgress && c.state != StateConfirming {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	c.setStateLocked(StateSubmitting)
	c.mu.Unlock()

	c.presenter.Notify(NoticeWarning, "Time is up! Submitting your answers.")
	return c.deliver(true)
}

// deliver runs with the state already set to Submitting by the caller.
func (c *Controller) deliver(forced bool) error {
	c.mu.Lock()
	t := c.timer
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}

	c.mu.Lock()
	submissions, err := quiz.BuildSubmissions(c.attempt.Questions, c.answers)
	ctx := c.ctx
	c.mu.Unlock()
	if err != nil {
		return c.submitFailed(err, forced)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	glog.V(2).Infof("quiz %d: submitting %d answers (forced=%t)", c.quizID, len(submissions), forced)
	c.presenter.Notify(NoticeInfo, "Submitting your answers...")

	result, err := c.client.SubmitAttempt(ctx, c.quizID, submissions)
	if err != nil {
		return c.submitFailed(err, forced)
	}

	c.mu.Lock()
	c.result = result
	c.lastErr = nil
	c.attempt = quiz.Attempt{}
	c.answers = nil
	c.current = 0
	c.setStateLocked(StateSubmitted)
	c.mu.Unlock()

	c.presenter.Notify(NoticeSuccess, "Quiz submitted successfully! Redirecting to results...")
	c.presenter.Redirect(DestinationResults, c.quizID, c.successRedirect)
	c.finish()
	return nil
}

func (c *Controller) submitFailed(err error, forced bool) error {
	c.mu.Lock()
	c.lastErr = err
	if forced {
		c.forced = true
	}
	c.setStateLocked(StateSubmitFailed)
	view := c.viewLocked()
	c.mu.Unlock()

	glog.Errorf("quiz %d: submit: %v", c.quizID, err)
	c.presenter.Notify(NoticeError, "Failed to submit quiz: "+err.Error())
	c.presenter.ShowQuestion(view)
	return err
}

// Close abandons the session, as when navigating away. Answers are
// discarded and nothing is submitted. Closing a finished session is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	t := c.timer
	c.attempt = quiz.Attempt{}
	c.answers = nil
	c.setStateLocked(StateAbandoned)
	c.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	c.finish()
}

func (c *Controller) onTick(remaining time.Duration) {
	c.presenter.ShowTime(remaining)
}

func (c *Controller) onWarning(time.Duration) {
	c.presenter.Notify(NoticeWarning, fmt.Sprintf("Less than %.0f%% of time remaining!", c.warnFraction*100))
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) setStateLocked(next State) {
	if c.state != next {
		glog.V(2).Infof("quiz %d: %s -> %s", c.quizID, c.state, next)
	}
	c.state = next
}

// overdueLocked reports whether answers are frozen: a forced submission has
// already failed, or the deadline has passed. Call only while an attempt is
// loaded.
func (c *Controller) overdueLocked() bool {
	return c.forced || c.attempt.Remaining(c.clock.Now()) <= 0
}

func (c *Controller) navigableLocked() bool {
	switch c.state {
	case StateInProgress, StateSubmitting, StateSubmitFailed:
		return len(c.attempt.Questions) > 0
	default:
		return false
	}
}

func (c *Controller) viewLocked() QuestionView {
	total := len(c.attempt.Questions)
	if total == 0 || c.answers == nil {
		return QuestionView{State: c.state}
	}
	selected := c.answers.Get(c.current)
	canSubmit := c.state == StateInProgress || c.state == StateSubmitFailed
	canEdit := canSubmit && !c.overdueLocked()
	return QuestionView{
		QuizName:    c.attempt.Name,
		Index:       c.current,
		Total:       total,
		Question:    c.attempt.Questions[c.current],
		Selected:    selected,
		Unanswered:  c.answers.UnansweredCount(),
		HasPrevious: c.current > 0,
		HasNext:     c.current < total-1,
		CanClear:    canEdit && selected != quiz.Unanswered,
		CanSubmit:   canSubmit,
		State:       c.state,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns what the presenter was last told about the current question.
func (c *Controller) View() QuestionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Answers returns a copy of the current selections, or nil once the session
// data has been discarded.
func (c *Controller) Answers() []quiz.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answers == nil {
		return nil
	}
	return c.answers.Snapshot()
}

// Remaining is the countdown's time left. After a failed submission the
// countdown is stopped, so the deadline is read directly.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	if c.state == StateSubmitFailed {
		defer c.mu.Unlock()
		return c.attempt.Remaining(c.clock.Now())
	}
	t := c.timer
	c.mu.Unlock()
	if t == nil {
		return 0
	}
	return t.Remaining()
}

func (c *Controller) Result() (quiz.SubmissionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.state == StateSubmitted
}

// Err is the most recent load or submit failure.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) QuizID() int {
	return c.quizID
}

// Done is closed when the session reaches a terminal state.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}
