package protection

import (
	"github.com/coursebay/player-session/internal/domain"
)

// Layer best-effort capture deterrents for one playback session.
//
// Attached exactly once when the session mounts and released exactly once on
// teardown, never per lesson. It is explicitly not a security boundary.
type Layer struct {
	watermark *Watermark
}

// NewLayer create the protection layer for a viewer; viewer may be nil when
// identity is unknown, which disables the watermark
func NewLayer(viewer *domain.ViewerModel) *Layer {
	layer := &Layer{}
	if viewer != nil && viewer.Email != "" {
		layer.watermark = NewWatermark(viewer)
	}
	return layer
}

// SuppressKey decide whether a reported key chord must be swallowed
func (pl *Layer) SuppressKey(ch Chord) bool {
	return BlockedChord(ch)
}

// ShouldPause decide whether a hidden/blurred tab pauses playback.
//
// Only the raw media element is paused; the embedded player manages its own
// visibility behavior.
func (pl *Layer) ShouldPause(mode domain.StreamMode, attached bool) bool {
	return attached && mode == domain.StreamModeAdaptive
}

// Watermark the overlay source, nil when viewer identity is unknown
func (pl *Layer) Watermark() *Watermark {
	return pl.watermark
}
