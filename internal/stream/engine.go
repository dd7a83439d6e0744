package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/coursebay/player-session/internal/domain"
)

// ErrEngineAttached attach called on an engine that already owns the surface
var ErrEngineAttached = errors.New("Engine is already attached")

// Engine drives one resolved stream source on the playback surface.
//
// Attach and Detach are strictly sequenced by the Player: a new engine never
// touches the surface before the previous one has fully released it.
type Engine interface {
	Attach(ctx context.Context) error
	Detach() error
	Pause() error
	Mode() domain.StreamMode
}

// Player owns the playback surface and enforces detach-before-attach.
//
// Two engines attached at once would mean two active playback outputs, which
// is forbidden even transiently during rapid lesson-to-lesson navigation.
type Player struct {
	mu     sync.Mutex
	engine Engine
}

// NewPlayer create an empty player
func NewPlayer() *Player {
	return &Player{}
}

// Swap detach the current engine, then attach the next one.
//
// When next is nil the call degenerates to a plain detach. If attaching the
// new engine fails the surface is left unowned.
func (p *Player) Swap(ctx context.Context, next Engine) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine != nil {
		if err := p.engine.Detach(); err != nil {
			return err
		}
		p.engine = nil
	}
	if next == nil {
		return nil
	}
	if err := next.Attach(ctx); err != nil {
		return err
	}
	p.engine = next
	return nil
}

// Detach release the surface, idempotent
func (p *Player) Detach() error {
	return p.Swap(context.Background(), nil)
}

// Pause forward a pause to the attached engine, no-op when empty
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil {
		return nil
	}
	return p.engine.Pause()
}

// Mode stream mode of the attached engine, zero when empty
func (p *Player) Mode() domain.StreamMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.engine == nil {
		return 0
	}
	return p.engine.Mode()
}

// Attached report whether an engine currently owns the surface
func (p *Player) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine != nil
}
