package session

import (
	"sync"

	"github.com/coursebay/player-session/internal/protection"
	"github.com/coursebay/player-session/internal/stream"
)

// PlayerChannel the outbound half of the session's event channel.
//
// It carries both surface commands (attach, detach, pause) and session
// events (countdown ticks, navigation, watermark placements). The websocket
// handler provides the live implementation.
type PlayerChannel interface {
	stream.Surface
	CountdownTick(remaining int, targetLessonID string)
	Navigated(lessonID string)
	WatermarkMoved(p protection.Placement)
	KeySuppressed(ch protection.Chord)
}

// channelMux a nil-safe indirection over the currently attached channel.
//
// The session may open lessons before the socket connects and outlives
// socket reconnects; commands sent while no channel is attached are dropped,
// the client recovers current state from the state endpoint on reconnect.
type channelMux struct {
	mu sync.RWMutex
	ch PlayerChannel
}

var _ stream.Surface = &channelMux{}
var _ PlayerChannel = &channelMux{}

func (m *channelMux) attach(ch PlayerChannel) {
	m.mu.Lock()
	m.ch = ch
	m.mu.Unlock()
}

func (m *channelMux) detach(ch PlayerChannel) {
	m.mu.Lock()
	// a reconnect may already have replaced the channel
	if m.ch == ch {
		m.ch = nil
	}
	m.mu.Unlock()
}

func (m *channelMux) current() PlayerChannel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ch
}

func (m *channelMux) LoadEmbed(url string) error {
	if ch := m.current(); ch != nil {
		return ch.LoadEmbed(url)
	}
	return nil
}

func (m *channelMux) LoadAdaptive(manifestURL string) error {
	if ch := m.current(); ch != nil {
		return ch.LoadAdaptive(manifestURL)
	}
	return nil
}

func (m *channelMux) Unload() error {
	if ch := m.current(); ch != nil {
		return ch.Unload()
	}
	return nil
}

func (m *channelMux) Pause() error {
	if ch := m.current(); ch != nil {
		return ch.Pause()
	}
	return nil
}

func (m *channelMux) CountdownTick(remaining int, targetLessonID string) {
	if ch := m.current(); ch != nil {
		ch.CountdownTick(remaining, targetLessonID)
	}
}

func (m *channelMux) Navigated(lessonID string) {
	if ch := m.current(); ch != nil {
		ch.Navigated(lessonID)
	}
}

func (m *channelMux) WatermarkMoved(p protection.Placement) {
	if ch := m.current(); ch != nil {
		ch.WatermarkMoved(p)
	}
}

func (m *channelMux) KeySuppressed(ch protection.Chord) {
	if cur := m.current(); cur != nil {
		cur.KeySuppressed(ch)
	}
}
