package stream

import (
	"context"
	"sync"

	"github.com/coursebay/player-session/internal/domain"
)

// EmbedEngine third-party embedded player backend.
//
// The embed frame manages its own buffering and visibility behavior; the
// engine only loads and unloads the frame URL. Lifecycle events (playback
// end) arrive through the session's inbound message channel because the
// resolver enabled the embed player API on the URL.
type EmbedEngine struct {
	surface Surface
	source  *domain.StreamSourceModel

	mu       sync.Mutex
	attached bool
}

var _ Engine = &EmbedEngine{}

// NewEmbedEngine create an embed engine for a resolved embed source
func NewEmbedEngine(surface Surface, source *domain.StreamSourceModel) *EmbedEngine {
	return &EmbedEngine{
		surface: surface,
		source:  source,
	}
}

// Attach implement Engine
func (en *EmbedEngine) Attach(ctx context.Context) error {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.attached {
		return ErrEngineAttached
	}
	if err := en.surface.LoadEmbed(en.source.EmbedURL); err != nil {
		return err
	}
	en.attached = true
	return nil
}

// Detach implement Engine, idempotent
func (en *EmbedEngine) Detach() error {
	en.mu.Lock()
	defer en.mu.Unlock()
	if !en.attached {
		return nil
	}
	en.attached = false
	return en.surface.Unload()
}

// Pause implement Engine. The embedded player pauses itself on tab-hidden,
// the protection layer must not interfere with it.
func (en *EmbedEngine) Pause() error {
	return nil
}

// Mode implement Engine
func (en *EmbedEngine) Mode() domain.StreamMode {
	return domain.StreamModeEmbed
}
