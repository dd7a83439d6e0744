package autonext

import (
	"sync"
	"testing"
	"time"
)

// manualClock hands each countdown goroutine its own ticker channel; tick()
// always targets the most recently created one, so a replaced countdown can
// never steal a tick meant for its successor
type manualClock struct {
	created chan struct{}

	mu  sync.Mutex
	cur *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{created: make(chan struct{}, 8)}
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	c.mu.Lock()
	c.cur = t
	c.mu.Unlock()
	c.created <- struct{}{}
	return t
}

func (c *manualClock) tick() {
	c.mu.Lock()
	t := c.cur
	c.mu.Unlock()
	t.ch <- time.Now()
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// harness collects navigation and tick callbacks on channels so the test can
// wait for each asynchronous effect deterministically
type harness struct {
	clock     *manualClock
	navigated chan string
	ticked    chan int
}

func newHarness(seconds int) (*Scheduler, *harness) {
	h := &harness{
		clock:     newManualClock(),
		navigated: make(chan string, 8),
		ticked:    make(chan int, 8),
	}
	sc := NewScheduler(seconds, h.clock,
		func(lessonID string) { h.navigated <- lessonID },
		func(remaining int, lessonID string) { h.ticked <- remaining },
	)
	return sc, h
}

func (h *harness) awaitArmed(t *testing.T) {
	t.Helper()
	select {
	case <-h.clock.created:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown goroutine did not start")
	}
}

func (h *harness) awaitTick(t *testing.T) int {
	t.Helper()
	select {
	case remaining := <-h.ticked:
		return remaining
	case <-time.After(2 * time.Second):
		t.Fatalf("no tick callback before deadline")
		return 0
	}
}

func (h *harness) awaitNavigate(t *testing.T) string {
	t.Helper()
	select {
	case target := <-h.navigated:
		return target
	case <-time.After(2 * time.Second):
		t.Fatalf("no navigation before deadline")
		return ""
	}
}

func (h *harness) assertNoNavigate(t *testing.T) {
	t.Helper()
	select {
	case target := <-h.navigated:
		t.Fatalf("unexpected navigation to %s", target)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_CountdownRunsFullLength(t *testing.T) {
	sc, h := newHarness(5)

	if !sc.Trigger("l2") {
		t.Fatalf("expected trigger to arm")
	}
	h.awaitArmed(t)
	state := sc.State()
	if state.Phase != PhaseCountdown || state.SecondsRemaining != 5 || state.TargetLessonID != "l2" {
		t.Fatalf("unexpected armed state: %+v", state)
	}

	for _, want := range []int{4, 3, 2, 1} {
		h.clock.tick()
		if got := h.awaitTick(t); got != want {
			t.Fatalf("expected remaining=%d, got %d", want, got)
		}
	}
	h.clock.tick()
	if target := h.awaitNavigate(t); target != "l2" {
		t.Fatalf("expected navigation to l2, got %s", target)
	}
	if state := sc.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle after expiry, got %+v", state)
	}
}

func TestScheduler_EmptyTargetIgnored(t *testing.T) {
	sc, _ := newHarness(5)

	if sc.Trigger("") {
		t.Fatalf("a trigger with no next lesson must be ignored")
	}
	if state := sc.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %+v", state)
	}
}

func TestScheduler_CancelMidCountdown(t *testing.T) {
	sc, h := newHarness(5)
	sc.Trigger("l2")
	h.awaitArmed(t)

	h.clock.tick()
	h.awaitTick(t)
	h.clock.tick()
	h.awaitTick(t)

	sc.Cancel()
	if state := sc.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle after cancel, got %+v", state)
	}
	h.assertNoNavigate(t)
}

func TestScheduler_RetriggerReplacesCountdown(t *testing.T) {
	sc, h := newHarness(5)
	sc.Trigger("l2")
	h.awaitArmed(t)
	h.clock.tick()
	h.awaitTick(t)

	sc.Trigger("l9")
	h.awaitArmed(t)
	state := sc.State()
	if state.TargetLessonID != "l9" || state.SecondsRemaining != 5 {
		t.Fatalf("expected a fresh countdown toward l9, got %+v", state)
	}

	for i := 0; i < 4; i++ {
		h.clock.tick()
		h.awaitTick(t)
	}
	h.clock.tick()
	if target := h.awaitNavigate(t); target != "l9" {
		t.Fatalf("expected navigation to the replacing target, got %s", target)
	}
}

func TestScheduler_GoNowShortCircuits(t *testing.T) {
	sc, h := newHarness(5)
	sc.Trigger("l2")

	sc.GoNow()
	if target := h.awaitNavigate(t); target != "l2" {
		t.Fatalf("expected immediate navigation to l2, got %s", target)
	}
	if state := sc.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle after GoNow, got %+v", state)
	}
}

func TestScheduler_GoNowWhileIdleDoesNothing(t *testing.T) {
	sc, h := newHarness(5)

	sc.GoNow()
	h.assertNoNavigate(t)
	if state := sc.State(); state.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %+v", state)
	}
}

func TestScheduler_ResetClearsPendingCountdown(t *testing.T) {
	sc, h := newHarness(5)
	sc.Trigger("l2")

	sc.Reset()
	if state := sc.State(); state.Phase != PhaseIdle || state.TargetLessonID != "" {
		t.Fatalf("expected cleared state after reset, got %+v", state)
	}
	h.assertNoNavigate(t)
}
