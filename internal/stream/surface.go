package stream

// Surface the single playback output of a session.
//
// Implementations relay commands to the viewer's media element or embed
// frame over the session's event channel. The surface is exclusively owned
// by whichever engine is currently attached; ownership transfers only
// through Player.Swap, never shared.
type Surface interface {
	LoadEmbed(url string) error
	LoadAdaptive(manifestURL string) error
	Unload() error
	Pause() error
}
