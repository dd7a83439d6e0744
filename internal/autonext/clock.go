package autonext

import "time"

// Clock ticker factory, swappable in tests
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker minimal ticker surface used by the scheduler
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// RealClock wall-clock implementation
func RealClock() Clock {
	return realClock{}
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
