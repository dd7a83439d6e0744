package autonext

import (
	"sync"
	"time"
)

// Phase scheduler state machine phase
type Phase int

// scheduler phases
const (
	PhaseIdle Phase = iota
	PhaseCountdown
)

func (p Phase) String() string {
	if p == PhaseCountdown {
		return "countdown"
	}
	return "idle"
}

// State snapshot of the scheduler
type State struct {
	Phase            Phase  `json:"phase"`
	SecondsRemaining int    `json:"seconds_remaining"`
	TargetLessonID   string `json:"target_lesson_id,omitempty"`
}

// Scheduler the auto-next countdown state machine.
//
// Idle -> Countdown(seconds, target) -> Idle. At most one countdown runs per
// session; arming while one is active replaces it. Ticks decrement
// secondsRemaining by exactly 1; navigation fires on the tick that would
// drop it past the final second, and only then.
type Scheduler struct {
	seconds  int
	clock    Clock
	navigate func(lessonID string)
	onTick   func(remaining int, lessonID string)

	mu    sync.Mutex
	state State
	stop  chan struct{}
}

// NewScheduler create an idle scheduler.
//
// navigate is invoked (outside the scheduler lock) when the countdown
// expires or GoNow is called; onTick is optional and reports each remaining
// value for display.
func NewScheduler(seconds int, clock Clock, navigate func(lessonID string), onTick func(remaining int, lessonID string)) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{
		seconds:  seconds,
		clock:    clock,
		navigate: navigate,
		onTick:   onTick,
		state:    State{Phase: PhaseIdle},
	}
}

// Trigger arm the countdown toward the given lesson.
//
// A trigger with an empty target (no next lesson in the sequence) is
// ignored and the scheduler stays idle.
func (sc *Scheduler) Trigger(nextLessonID string) bool {
	if nextLessonID == "" {
		return false
	}
	sc.mu.Lock()
	sc.stopLocked()
	sc.state = State{
		Phase:            PhaseCountdown,
		SecondsRemaining: sc.seconds,
		TargetLessonID:   nextLessonID,
	}
	stop := make(chan struct{})
	sc.stop = stop
	sc.mu.Unlock()

	go sc.countdownRoutine(stop, nextLessonID)
	return true
}

// Cancel user cancellation, back to idle with no navigation
func (sc *Scheduler) Cancel() {
	sc.mu.Lock()
	sc.stopLocked()
	sc.state = State{Phase: PhaseIdle}
	sc.mu.Unlock()
}

// Reset same as Cancel; called on every lesson open so a pending countdown
// never survives a manual navigation
func (sc *Scheduler) Reset() {
	sc.Cancel()
}

// GoNow short-circuit to immediate navigation
func (sc *Scheduler) GoNow() {
	sc.mu.Lock()
	target := sc.state.TargetLessonID
	active := sc.state.Phase == PhaseCountdown
	sc.stopLocked()
	sc.state = State{Phase: PhaseIdle}
	sc.mu.Unlock()

	if active && target != "" && sc.navigate != nil {
		sc.navigate(target)
	}
}

// State current snapshot
func (sc *Scheduler) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

func (sc *Scheduler) stopLocked() {
	if sc.stop != nil {
		close(sc.stop)
		sc.stop = nil
	}
}

func (sc *Scheduler) countdownRoutine(stop chan struct{}, target string) {
	ticker := sc.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			expired, remaining := sc.applyTick(stop)
			if remaining > 0 && sc.onTick != nil {
				sc.onTick(remaining, target)
			}
			if expired {
				if sc.navigate != nil {
					sc.navigate(target)
				}
				return
			}
			if remaining < 0 {
				// countdown was replaced or cancelled between the
				// tick firing and the lock acquisition
				return
			}
		}
	}
}

// applyTick decrement under the lock; expired reports the idle transition,
// remaining is -1 when this goroutine no longer owns the state
func (sc *Scheduler) applyTick(stop chan struct{}) (expired bool, remaining int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.stop != stop || sc.state.Phase != PhaseCountdown {
		return false, -1
	}
	if sc.state.SecondsRemaining <= 1 {
		// the decrement would pass the final second: expire instead of
		// displaying zero
		sc.stop = nil
		sc.state = State{Phase: PhaseIdle}
		return true, 0
	}
	sc.state.SecondsRemaining--
	return false, sc.state.SecondsRemaining
}
