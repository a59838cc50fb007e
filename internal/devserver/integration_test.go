package devserver

import (
	"context"
	"errors"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"quiz-client/internal/quiz"
	"quiz-client/internal/quizapi"
	"quiz-client/internal/session"
)

func loggedInClient(t *testing.T, s *testServer, username, password string) *quizapi.HTTPClient {
	t.Helper()
	client := quizapi.NewHTTPClient(s.url, nil)
	result, err := client.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	claims, err := quizapi.ParseClaims(result.Token)
	if err != nil {
		t.Fatalf("ParseClaims failed: %v", err)
	}
	if claims.Role != result.User.Role || !claims.ExpiresAt.Equal(seedTime.Add(time.Hour)) {
		t.Fatalf("claims = %s, user = %+v", claims, result.User)
	}
	return client
}

func TestClientAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	client := loggedInClient(t, s, "alice", "alice-pass")

	signups, err := client.ListSignups(ctx)
	if err != nil {
		t.Fatalf("ListSignups failed: %v", err)
	}
	if len(signups) != 2 || signups[0].Status != quiz.StatusActive || signups[0].UserScore != nil {
		t.Fatalf("signups = %+v", signups)
	}

	if _, err := client.FetchAttempt(ctx, 2); !errors.Is(err, quizapi.ErrNotActive) {
		t.Fatalf("upcoming FetchAttempt err = %v, want ErrNotActive", err)
	}
	if _, err := client.FetchAttempt(ctx, 3); !errors.Is(err, quizapi.ErrNotSignedUp) {
		t.Fatalf("unsigned FetchAttempt err = %v, want ErrNotSignedUp", err)
	}

	attempt, err := client.FetchAttempt(ctx, 1)
	if err != nil {
		t.Fatalf("FetchAttempt failed: %v", err)
	}
	if got := attempt.Remaining(seedTime); got != 25*time.Minute {
		t.Fatalf("remaining = %s, want 25m", got)
	}

	answers := quiz.NewAnswers(len(attempt.Questions))
	if err := answers.Select(0, 1); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := answers.Select(1, 2); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	submissions, err := quiz.BuildSubmissions(attempt.Questions, answers)
	if err != nil {
		t.Fatalf("BuildSubmissions failed: %v", err)
	}
	result, err := client.SubmitAttempt(ctx, 1, submissions)
	if err != nil {
		t.Fatalf("SubmitAttempt failed: %v", err)
	}
	if result.CorrectAnswers != 2 || result.Score.TotalScore != 3 || !result.Score.Timestamp.Equal(seedTime) {
		t.Fatalf("result = %+v", result)
	}

	if _, err := client.SubmitAttempt(ctx, 1, submissions); !errors.Is(err, quizapi.ErrServerRejected) {
		t.Fatalf("second SubmitAttempt err = %v, want ErrServerRejected", err)
	}

	summary, err := client.GetScore(ctx, 1)
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if summary.UserScore != 3 || summary.TotalQuizScore != 4 || summary.Percent() != 75 {
		t.Fatalf("summary = %+v", summary)
	}

	results, err := client.GetResults(ctx, 1)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 3 || results[2].Status() != quiz.ResultUnanswered || results[0].Status() != quiz.ResultCorrect {
		t.Fatalf("results = %+v", results)
	}

	signups, err = client.ListSignups(ctx)
	if err != nil {
		t.Fatalf("ListSignups failed: %v", err)
	}
	if signups[0].UserScore == nil || *signups[0].UserScore != 3 {
		t.Fatalf("signup score after submit = %+v", signups[0])
	}
}

func TestClientSeesExpiredToken(t *testing.T) {
	s := newTestServer(t)
	client := loggedInClient(t, s, "alice", "alice-pass")

	s.clock.Step(2 * time.Hour)
	if _, err := client.ListSignups(context.Background()); !errors.Is(err, quizapi.ErrUnauthorized) {
		t.Fatalf("ListSignups err = %v, want ErrUnauthorized", err)
	}
}

func TestSessionSubmitsToDevServer(t *testing.T) {
	s := newTestServer(t)
	client := loggedInClient(t, s, "alice", "alice-pass")

	clientClock := testingclock.NewFakeClock(seedTime)
	ctrl := session.New(client, session.NopPresenter{}, 1,
		session.WithClock(clientClock),
		session.WithRedirectDelays(0, 0),
	)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := ctrl.Remaining(); got != 25*time.Minute {
		t.Fatalf("Remaining = %s, want 25m", got)
	}

	for _, option := range []quiz.Option{1, 2, 3} {
		if err := ctrl.Select(option); err != nil {
			t.Fatalf("Select(%d) failed: %v", option, err)
		}
		ctrl.Next()
	}
	if err := ctrl.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, ok := ctrl.Result()
	if !ok || ctrl.State() != session.StateSubmitted {
		t.Fatalf("state = %s, result ok = %v", ctrl.State(), ok)
	}
	if result.CorrectAnswers != 3 || result.Score.TotalScore != 4 || result.RequestID == "" {
		t.Fatalf("result = %+v", result)
	}
}

// The learner's clock may run ahead of the server's. An attempt that is
// already over locally is submitted straight away and still accepted.
func TestSessionExpiredOnLoadStillSubmits(t *testing.T) {
	s := newTestServer(t)
	client := loggedInClient(t, s, "alice", "alice-pass")

	clientClock := testingclock.NewFakeClock(seedTime.Add(26 * time.Minute))
	ctrl := session.New(client, session.NopPresenter{}, 1,
		session.WithClock(clientClock),
		session.WithRedirectDelays(0, 0),
	)
	if err := ctrl.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	select {
	case <-ctrl.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
	}
	result, ok := ctrl.Result()
	if !ok || result.CorrectAnswers != 0 {
		t.Fatalf("result = (%+v, %v), state %s", result, ok, ctrl.State())
	}

	score, err := s.store.ScoreFor(context.Background(), 1, 1)
	if err != nil || score.TotalScore != 0 {
		t.Fatalf("stored score = (%+v, %v)", score, err)
	}
}
