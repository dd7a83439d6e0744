package session

import (
	"encoding/json"
	"strings"

	"github.com/coursebay/player-session/internal/protection"
)

// inbound message kinds
const (
	eventEnded      = "ended"
	eventVisibility = "visibility"
	eventBlur       = "blur"
	eventKeydown    = "keydown"
)

// endedSignals event/type values the embedded players use for playback end.
// The raw media element bridge sends plain "ended".
var endedSignals = map[string]bool{
	"ended":  true,
	"finish": true,
	"end":    true,
}

// PlayerEvent one parsed inbound message from the player bridge
type PlayerEvent struct {
	Kind   string
	Hidden bool
	Chord  protection.Chord
}

type rawPlayerEvent struct {
	Type   string           `json:"type"`
	Event  string           `json:"event"`
	Hidden bool             `json:"hidden"`
	Key    string           `json:"key"`
	Ctrl   bool             `json:"ctrl"`
	Shift  bool             `json:"shift"`
	Alt    bool             `json:"alt"`
	Meta   bool             `json:"meta"`
	Data   *json.RawMessage `json:"data"` // embed players nest payloads here, ignored
}

// ParsePlayerEvent decode an inbound channel message.
//
// The channel is a shared surface for the embed player bridge and our own
// bridge script, so unknown shapes are expected: malformed payloads and
// unrecognized kinds are swallowed (ok=false), never surfaced as errors.
func ParsePlayerEvent(payload []byte) (PlayerEvent, bool) {
	raw := new(rawPlayerEvent)
	if err := json.Unmarshal(payload, raw); err != nil {
		return PlayerEvent{}, false
	}

	kind := raw.Type
	if kind == "" {
		kind = raw.Event
	}
	kind = strings.ToLower(kind)

	switch {
	case endedSignals[kind]:
		return PlayerEvent{Kind: eventEnded}, true
	case kind == eventVisibility:
		return PlayerEvent{Kind: eventVisibility, Hidden: raw.Hidden}, true
	case kind == eventBlur:
		return PlayerEvent{Kind: eventBlur}, true
	case kind == eventKeydown:
		return PlayerEvent{
			Kind: eventKeydown,
			Chord: protection.Chord{
				Key:   raw.Key,
				Ctrl:  raw.Ctrl,
				Shift: raw.Shift,
				Alt:   raw.Alt,
				Meta:  raw.Meta,
			},
		}, true
	}
	return PlayerEvent{}, false
}
