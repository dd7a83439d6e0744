package stream

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coursebay/player-session/internal/domain"
)

const (
	// scratch buffers mirroring the client engine's segment queue depth
	segmentBufferCount = 4
	segmentBufferSize  = 512 * 1024

	manifestRefreshInterval = 30 * time.Second

	maxManifestBytes = 2 * 1024 * 1024
)

// AdaptiveEngine adaptive-bitrate backend for direct manifest playback.
//
// Attach validates the manifest upstream, allocates the segment scratch
// buffers and starts the manifest refresh worker; the surface then gets the
// manifest URL for the raw media element. Detach must run to completion
// before any other engine touches the surface: the worker goroutine is
// joined and the buffers released, otherwise decoder resources leak across
// lesson navigations.
type AdaptiveEngine struct {
	surface Surface
	source  *domain.StreamSourceModel
	conn    *http.Client

	mu       sync.Mutex
	attached bool
	buffers  [][]byte
	stop     chan struct{}
	done     sync.WaitGroup
}

var _ Engine = &AdaptiveEngine{}

// NewAdaptiveEngine create an adaptive engine for a resolved manifest source
func NewAdaptiveEngine(surface Surface, source *domain.StreamSourceModel, conn *http.Client) *AdaptiveEngine {
	if conn == nil {
		conn = http.DefaultClient
	}
	return &AdaptiveEngine{
		surface: surface,
		source:  source,
		conn:    conn,
	}
}

// Attach implement Engine
func (en *AdaptiveEngine) Attach(ctx context.Context) error {
	en.mu.Lock()
	defer en.mu.Unlock()
	if en.attached {
		return ErrEngineAttached
	}

	if err := en.probeManifest(ctx); err != nil {
		return err
	}

	en.buffers = make([][]byte, segmentBufferCount)
	for i := range en.buffers {
		en.buffers[i] = make([]byte, 0, segmentBufferSize)
	}
	en.stop = make(chan struct{})
	en.done.Add(1)
	go en.refreshRoutine(en.stop)

	if err := en.surface.LoadAdaptive(en.source.ManifestURL); err != nil {
		en.releaseLocked()
		return err
	}
	en.attached = true
	return nil
}

// Detach implement Engine, idempotent.
//
// Blocks until the refresh worker has exited and the buffers are freed.
func (en *AdaptiveEngine) Detach() error {
	en.mu.Lock()
	defer en.mu.Unlock()
	if !en.attached {
		return nil
	}
	en.attached = false
	en.releaseLocked()
	return en.surface.Unload()
}

// Pause implement Engine, forwarded to the raw media element
func (en *AdaptiveEngine) Pause() error {
	en.mu.Lock()
	attached := en.attached
	en.mu.Unlock()
	if !attached {
		return nil
	}
	return en.surface.Pause()
}

// Mode implement Engine
func (en *AdaptiveEngine) Mode() domain.StreamMode {
	return domain.StreamModeAdaptive
}

func (en *AdaptiveEngine) releaseLocked() {
	if en.stop != nil {
		close(en.stop)
		en.done.Wait()
		en.stop = nil
	}
	en.buffers = nil
}

// probeManifest fetch the manifest once to confirm it exists and looks like
// an adaptive playlist before handing it to the media element
func (en *AdaptiveEngine) probeManifest(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, en.source.ManifestURL, nil)
	if err != nil {
		return err
	}
	res, err := en.conn.Do(req)
	if err != nil {
		return fmt.Errorf("stream: fetch manifest: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("stream: manifest request returned %d", res.StatusCode)
	}
	body, err := ioutil.ReadAll(io.LimitReader(res.Body, maxManifestBytes))
	if err != nil {
		return fmt.Errorf("stream: read manifest: %w", err)
	}
	if !looksLikeManifest(en.source.ManifestURL, string(body)) {
		return fmt.Errorf("stream: %s does not look like an adaptive manifest", en.source.ManifestURL)
	}
	return nil
}

// refreshRoutine keep the manifest warm while attached, so live-edge updates
// and upstream expiry are noticed server-side
func (en *AdaptiveEngine) refreshRoutine(stop chan struct{}) {
	defer en.done.Done()
	ticker := time.NewTicker(manifestRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			en.probeManifest(ctx)
			cancel()
		}
	}
}

// IsHLSManifest report whether the URL names an HLS playlist
func IsHLSManifest(manifestURL string) bool {
	trimmed := manifestURL
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".m3u8")
}

func looksLikeManifest(manifestURL, body string) bool {
	if strings.HasPrefix(body, "#EXTM3U") {
		return true
	}
	if strings.Contains(body, "<MPD") {
		return true
	}
	// some CDNs serve playlists with a BOM or leading whitespace
	trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	if strings.HasPrefix(trimmed, "#EXTM3U") || strings.HasPrefix(trimmed, "<?xml") {
		return true
	}
	return IsHLSManifest(manifestURL)
}
