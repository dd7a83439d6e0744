package domain

// StreamMode playback backend selector
type StreamMode int

// playback backends
const (
	StreamModeEmbed StreamMode = iota + 1
	StreamModeAdaptive
)

func (m StreamMode) String() string {
	switch m {
	case StreamModeEmbed:
		return "embed"
	case StreamModeAdaptive:
		return "adaptive"
	}
	return "unknown"
}

// StreamSourceModel resolved playback source for one lesson.
//
// Exactly one of EmbedURL or ManifestURL is set, selected by Mode.
type StreamSourceModel struct {
	LessonID    string     `json:"lesson_id"`
	Mode        StreamMode `json:"mode"`
	EmbedURL    string     `json:"embed_url,omitempty"`
	ManifestURL string     `json:"manifest_url,omitempty"`
}

// ViewerModel identity of the watching learner, taken from the session token
type ViewerModel struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PlayerCapabilities reported by the browser when the session is created
type PlayerCapabilities struct {
	MediaSource bool `json:"media_source"` // MSE-style adaptive engine available
	NativeHLS   bool `json:"native_hls"`   // media element plays HLS manifests natively
}
