package stream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/coursebay/player-session/internal/domain"
	"go.elastic.co/apm"
)

// embedAPIFlag query flag that makes the embedded player post lifecycle
// events to the parent frame, so playback end reaches the session
const embedAPIFlag = "api"

// Resolver picks the playback backend for a lesson.
//
// Every lesson resolves to exactly one of the two modes; the session never
// branches on the mode outside this package.
type Resolver struct {
	repo domain.LessonRepository
	caps domain.PlayerCapabilities
	conn *http.Client
}

// NewResolver create a resolver for one session's capabilities
func NewResolver(repo domain.LessonRepository, caps domain.PlayerCapabilities, conn *http.Client) *Resolver {
	return &Resolver{
		repo: repo,
		caps: caps,
		conn: conn,
	}
}

// Resolve fetch the lesson's stream source and build the matching engine.
//
// Embed sources get the player-API flag appended so the embed emits
// lifecycle events. Adaptive sources require either an MSE-style engine or
// native playback of the manifest format; with neither available the error
// is domain.ErrPlaybackUnsupported, a fatal local condition with no retry.
func (rv *Resolver) Resolve(ctx context.Context, lessonID string, surface Surface) (*domain.StreamSourceModel, Engine, error) {
	apmSpan, _ := apm.StartSpan(ctx, "stream.Resolver.Resolve", "service")
	defer apmSpan.End()

	source, err := rv.repo.GetStreamSource(ctx, lessonID)
	if err != nil {
		return nil, nil, err
	}

	switch source.Mode {
	case domain.StreamModeEmbed:
		source.EmbedURL = enableEmbedAPI(source.EmbedURL)
		return source, NewEmbedEngine(surface, source), nil
	case domain.StreamModeAdaptive:
		if !rv.caps.MediaSource && !(rv.caps.NativeHLS && IsHLSManifest(source.ManifestURL)) {
			return nil, nil, domain.ErrPlaybackUnsupported
		}
		return source, NewAdaptiveEngine(surface, source, rv.conn), nil
	}
	return nil, nil, domain.ErrPlaybackUnsupported
}

func enableEmbedAPI(embedURL string) string {
	parsed, err := url.Parse(embedURL)
	if err != nil {
		// hand the URL through untouched, the embed will still play
		// without lifecycle events
		return embedURL
	}
	query := parsed.Query()
	query.Set(embedAPIFlag, "1")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
