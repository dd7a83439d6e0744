package protection

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coursebay/player-session/internal/domain"
)

// watermark placement bounds, percent of the player region. Keeps the label
// away from the exact edges where it could be cropped out of a capture.
const (
	placementMin = 8.0
	placementMax = 82.0

	watermarkOpacity     = 0.18
	placementTransitionS = 2
	idFragmentLength     = 8
)

// Placement one watermark position pushed to the overlay.
//
// The overlay must never intercept pointer or keyboard input; it is a
// deterrent, not a DRM measure.
type Placement struct {
	Text        string  `json:"text"`
	XPercent    float64 `json:"x_percent"`
	YPercent    float64 `json:"y_percent"`
	Opacity     float64 `json:"opacity"`
	TransitionS int     `json:"transition_s"` // smooth move duration
}

// Watermark pseudo-randomly repositioned identity overlay for one viewer
type Watermark struct {
	text string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWatermark build the overlay source for a viewer: contact identifier
// plus a short id fragment
func NewWatermark(viewer *domain.ViewerModel) *Watermark {
	fragment := viewer.ID
	if len(fragment) > idFragmentLength {
		fragment = fragment[:idFragmentLength]
	}
	return &Watermark{
		text: fmt.Sprintf("%s · %s", viewer.Email, fragment),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextPlacement a fresh position within the bounded region
func (wm *Watermark) NextPlacement() Placement {
	wm.mu.Lock()
	x := placementMin + wm.rng.Float64()*(placementMax-placementMin)
	y := placementMin + wm.rng.Float64()*(placementMax-placementMin)
	wm.mu.Unlock()
	return Placement{
		Text:        wm.text,
		XPercent:    x,
		YPercent:    y,
		Opacity:     watermarkOpacity,
		TransitionS: placementTransitionS,
	}
}

// Text the rendered identity label
func (wm *Watermark) Text() string {
	return wm.text
}
