package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	ticks     chan time.Duration
	completed atomic.Int32
	done      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		ticks: make(chan time.Duration, 64),
		done:  make(chan struct{}, 1),
	}
}

func (r *recorder) onTick(remaining time.Duration) {
	r.ticks <- remaining
}

func (r *recorder) onComplete() {
	r.completed.Add(1)
	r.done <- struct{}{}
}

func (r *recorder) nextTick(t *testing.T) time.Duration {
	t.Helper()
	select {
	case remaining := <-r.ticks:
		return remaining
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tick")
		return 0
	}
}

func (r *recorder) expectNoTick(t *testing.T) {
	t.Helper()
	select {
	case remaining := <-r.ticks:
		t.Fatalf("unexpected tick with %v remaining", remaining)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestTimer(d time.Duration, r *recorder) (*Timer, *testingclock.FakeClock) {
	fake := testingclock.NewFakeClock(epoch)
	return New(d, r.onTick, r.onComplete, WithClock(fake)), fake
}

func TestNewReportsInitialDuration(t *testing.T) {
	for _, d := range []time.Duration{0, time.Second, 90 * time.Second, 2 * time.Hour} {
		tm, _ := newTestTimer(d, newRecorder())
		require.Equal(t, d, tm.Remaining())
		require.Equal(t, d, tm.Duration())
	}
}

func TestNewClampsNegativeAndFloorsFractions(t *testing.T) {
	tm, _ := newTestTimer(-5*time.Second, newRecorder())
	require.Equal(t, time.Duration(0), tm.Remaining())

	tm, _ = newTestTimer(4*time.Second+900*time.Millisecond, newRecorder())
	require.Equal(t, 4*time.Second, tm.Remaining())
}

func TestRemainingFollowsWallClock(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(10*time.Second, r)
	tm.Start()
	defer tm.Stop()

	fake.Step(time.Second)
	require.Equal(t, 9*time.Second, r.nextTick(t))

	// One delayed tick after three seconds still reports the true remainder.
	fake.Step(3 * time.Second)
	require.Equal(t, 6*time.Second, r.nextTick(t))
	require.Equal(t, 6*time.Second, tm.Remaining())
}

func TestStartTwiceIsNoop(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(10*time.Second, r)
	tm.Start()
	defer tm.Stop()

	fake.Step(2 * time.Second)
	require.Equal(t, 8*time.Second, r.nextTick(t))

	tm.Start()
	require.Equal(t, 8*time.Second, tm.Remaining())
}

func TestPauseExcludesPausedTime(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(10*time.Second, r)
	tm.Start()
	defer tm.Stop()

	fake.Step(2 * time.Second)
	require.Equal(t, 8*time.Second, r.nextTick(t))

	tm.Pause()
	require.True(t, tm.Paused())
	require.False(t, tm.Running())

	fake.Step(5 * time.Second)
	r.expectNoTick(t)
	require.Equal(t, 8*time.Second, tm.Remaining())

	tm.Resume()
	require.False(t, tm.Paused())
	fake.Step(3 * time.Second)
	require.Equal(t, 5*time.Second, r.nextTick(t))
}

func TestPauseAndResumeNoops(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(10*time.Second, r)

	tm.Pause()
	require.False(t, tm.Paused())

	tm.Start()
	defer tm.Stop()
	tm.Resume()
	require.True(t, tm.Running())

	fake.Step(time.Second)
	require.Equal(t, 9*time.Second, r.nextTick(t))
}

func TestCompleteFiresOnce(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(2*time.Second, r)
	tm.Start()

	fake.Step(time.Second)
	require.Equal(t, time.Second, r.nextTick(t))
	fake.Step(time.Second)
	require.Equal(t, time.Duration(0), r.nextTick(t))

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("onComplete was not called")
	}

	fake.Step(5 * time.Second)
	r.expectNoTick(t)
	tm.Start()
	tm.Stop()
	require.Equal(t, int32(1), r.completed.Load())
	require.False(t, tm.Running())
}

func TestStopSuppressesCompletion(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(2*time.Second, r)
	tm.Start()
	tm.Stop()
	tm.Stop()

	fake.Step(5 * time.Second)
	r.expectNoTick(t)
	require.Equal(t, int32(0), r.completed.Load())

	tm.Start()
	require.False(t, tm.Running())
	tm.Resume()
	require.False(t, tm.Running())
}

func TestResetRestoresDuration(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(5*time.Second, r)
	tm.Start()

	fake.Step(2 * time.Second)
	require.Equal(t, 3*time.Second, r.nextTick(t))
	tm.Pause()

	tm.Reset()
	require.Equal(t, 5*time.Second, tm.Remaining())
	require.False(t, tm.Paused())
	require.False(t, tm.Running())

	fake.Step(10 * time.Second)
	r.expectNoTick(t)
	require.Equal(t, int32(0), r.completed.Load())

	tm.Start()
	defer tm.Stop()
	fake.Step(time.Second)
	require.Equal(t, 4*time.Second, r.nextTick(t))
}

func TestStopDuringFinalTickSuppressesCompletion(t *testing.T) {
	r := newRecorder()
	fake := testingclock.NewFakeClock(epoch)
	var tm *Timer
	tm = New(time.Second, func(remaining time.Duration) {
		if remaining == 0 {
			tm.Stop()
		}
		r.onTick(remaining)
	}, r.onComplete, WithClock(fake))
	tm.Start()

	fake.Step(time.Second)
	require.Equal(t, time.Duration(0), r.nextTick(t))
	select {
	case <-r.done:
		t.Fatalf("onComplete fired after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, int32(0), r.completed.Load())
	require.True(t, tm.Expired())
}

func TestResetAfterStopStaysHalted(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(5*time.Second, r)
	tm.Start()
	fake.Step(2 * time.Second)
	require.Equal(t, 3*time.Second, r.nextTick(t))

	tm.Stop()
	tm.Reset()
	require.Equal(t, 5*time.Second, tm.Remaining())

	tm.Start()
	require.False(t, tm.Running())
	fake.Step(10 * time.Second)
	r.expectNoTick(t)
	require.Equal(t, int32(0), r.completed.Load())
}

func TestZeroDurationNeverTicks(t *testing.T) {
	r := newRecorder()
	tm, fake := newTestTimer(0, r)
	tm.Start()
	require.False(t, tm.Running())

	fake.Step(3 * time.Second)
	r.expectNoTick(t)
	require.Equal(t, int32(0), r.completed.Load())
}

func TestWarningFiresOnceAtThreshold(t *testing.T) {
	r := newRecorder()
	fake := testingclock.NewFakeClock(epoch)
	warnings := make(chan time.Duration, 8)
	tm := New(10*time.Second, r.onTick, r.onComplete,
		WithClock(fake),
		WithWarning(time.Second, func(remaining time.Duration) { warnings <- remaining }),
	)
	tm.Start()
	defer tm.Stop()

	for want := 9; want >= 1; want-- {
		fake.Step(time.Second)
		require.Equal(t, time.Duration(want)*time.Second, r.nextTick(t))
	}

	select {
	case remaining := <-warnings:
		require.Equal(t, time.Second, remaining)
	case <-time.After(2 * time.Second):
		t.Fatalf("warning was not delivered")
	}

	fake.Step(time.Second)
	require.Equal(t, time.Duration(0), r.nextTick(t))
	<-r.done
	require.Len(t, warnings, 0)
}

func TestFormatClock(t *testing.T) {
	require.Equal(t, "00:00", FormatClock(0))
	require.Equal(t, "00:00", FormatClock(-time.Second))
	require.Equal(t, "01:05", FormatClock(65*time.Second))
	require.Equal(t, "59:59", FormatClock(time.Hour-time.Second))
	require.Equal(t, "01:00:00", FormatClock(time.Hour))
	require.Equal(t, "02:03:04", FormatClock(2*time.Hour+3*time.Minute+4*time.Second))
}
