package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/coursebay/player-session/internal/domain"
)

type fakeLessonRepo struct {
	source *domain.StreamSourceModel
	err    error
}

func (f *fakeLessonRepo) GetLesson(ctx context.Context, lessonID string) (*domain.LessonModel, error) {
	return &domain.LessonModel{ID: lessonID}, nil
}

func (f *fakeLessonRepo) GetStreamSource(ctx context.Context, lessonID string) (*domain.StreamSourceModel, error) {
	return f.source, f.err
}

func TestResolve_EmbedGetsPlayerAPIFlag(t *testing.T) {
	repo := &fakeLessonRepo{source: embedSource("l1", "https://embed.example.com/v/123?color=red")}
	rv := NewResolver(repo, domain.PlayerCapabilities{}, nil)

	source, engine, err := rv.Resolve(context.Background(), "l1", &recordingSurface{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if engine.Mode() != domain.StreamModeEmbed {
		t.Fatalf("expected embed engine, got %s", engine.Mode())
	}
	parsed, err := url.Parse(source.EmbedURL)
	if err != nil {
		t.Fatalf("embed URL no longer parses: %s", err)
	}
	if parsed.Query().Get("api") != "1" {
		t.Fatalf("player API flag missing: %s", source.EmbedURL)
	}
	if parsed.Query().Get("color") != "red" {
		t.Fatalf("existing query parameters dropped: %s", source.EmbedURL)
	}
}

func TestResolve_AdaptiveRequiresLocalPlaybackPath(t *testing.T) {
	repo := &fakeLessonRepo{source: &domain.StreamSourceModel{
		LessonID:    "l1",
		Mode:        domain.StreamModeAdaptive,
		ManifestURL: "https://cdn.example.com/v/master.m3u8",
	}}

	cases := []struct {
		name string
		caps domain.PlayerCapabilities
		ok   bool
	}{
		{"no capabilities", domain.PlayerCapabilities{}, false},
		{"media source engine", domain.PlayerCapabilities{MediaSource: true}, true},
		{"native hls on hls manifest", domain.PlayerCapabilities{NativeHLS: true}, true},
	}
	for _, tc := range cases {
		rv := NewResolver(repo, tc.caps, nil)
		_, engine, err := rv.Resolve(context.Background(), "l1", &recordingSurface{})
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: unexpected error: %s", tc.name, err)
			}
			if engine.Mode() != domain.StreamModeAdaptive {
				t.Fatalf("%s: expected adaptive engine", tc.name)
			}
			continue
		}
		if err != domain.ErrPlaybackUnsupported {
			t.Fatalf("%s: expected ErrPlaybackUnsupported, got %v", tc.name, err)
		}
	}
}

func TestResolve_NativeHLSCannotPlayDashManifest(t *testing.T) {
	repo := &fakeLessonRepo{source: &domain.StreamSourceModel{
		LessonID:    "l1",
		Mode:        domain.StreamModeAdaptive,
		ManifestURL: "https://cdn.example.com/v/master.mpd",
	}}
	rv := NewResolver(repo, domain.PlayerCapabilities{NativeHLS: true}, nil)

	if _, _, err := rv.Resolve(context.Background(), "l1", &recordingSurface{}); err != domain.ErrPlaybackUnsupported {
		t.Fatalf("expected ErrPlaybackUnsupported for DASH without MSE, got %v", err)
	}
}

func TestResolve_SourceErrorPassedThrough(t *testing.T) {
	repo := &fakeLessonRepo{err: domain.ErrStreamNotReady}
	rv := NewResolver(repo, domain.PlayerCapabilities{MediaSource: true}, nil)

	if _, _, err := rv.Resolve(context.Background(), "l1", &recordingSurface{}); err != domain.ErrStreamNotReady {
		t.Fatalf("expected ErrStreamNotReady, got %v", err)
	}
}

func TestIsHLSManifest(t *testing.T) {
	cases := map[string]bool{
		"https://cdn/x/master.m3u8":           true,
		"https://cdn/x/MASTER.M3U8":           true,
		"https://cdn/x/master.m3u8?token=abc": true,
		"https://cdn/x/master.mpd":            false,
		"https://cdn/x/clip.mp4":              false,
	}
	for in, want := range cases {
		if got := IsHLSManifest(in); got != want {
			t.Fatalf("IsHLSManifest(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAdaptiveEngine_AttachProbesManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n")
	}))
	defer srv.Close()

	surface := &recordingSurface{}
	source := &domain.StreamSourceModel{LessonID: "l1", Mode: domain.StreamModeAdaptive, ManifestURL: srv.URL + "/master.m3u8"}
	engine := NewAdaptiveEngine(surface, source, srv.Client())

	if err := engine.Attach(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer engine.Detach()

	history := surface.history()
	if len(history) != 1 || history[0] != "adaptive:"+source.ManifestURL {
		t.Fatalf("unexpected surface ops: %v", history)
	}
}

func TestAdaptiveEngine_AttachRejectsNonManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a playlist</html>")
	}))
	defer srv.Close()

	source := &domain.StreamSourceModel{LessonID: "l1", Mode: domain.StreamModeAdaptive, ManifestURL: srv.URL + "/master"}
	engine := NewAdaptiveEngine(&recordingSurface{}, source, srv.Client())

	if err := engine.Attach(context.Background()); err == nil {
		t.Fatalf("expected attach to reject a non-manifest response")
	}
}

func TestAdaptiveEngine_DetachReleasesWorker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n")
	}))
	defer srv.Close()

	surface := &recordingSurface{}
	source := &domain.StreamSourceModel{LessonID: "l1", Mode: domain.StreamModeAdaptive, ManifestURL: srv.URL + "/master.m3u8"}
	engine := NewAdaptiveEngine(surface, source, srv.Client())

	if err := engine.Attach(context.Background()); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := engine.Detach(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := engine.Detach(); err != nil {
		t.Fatalf("second detach must be a no-op, got %s", err)
	}
	// the surface must be reusable by a fresh attach after a full release
	if err := engine.Attach(context.Background()); err != nil {
		t.Fatalf("re-attach after detach failed: %s", err)
	}
	engine.Detach()
}
