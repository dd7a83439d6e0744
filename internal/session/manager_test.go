package session

import (
	"context"
	"testing"
	"time"

	"github.com/coursebay/player-session/internal/domain"
	"github.com/coursebay/player-session/internal/infrastructure/uuid"
	"github.com/coursebay/player-session/internal/upstream"
	"go.uber.org/zap"
)

func newTestManager(cfg ManagerConfig) *Manager {
	api := upstream.NewClient("http://lms.invalid", time.Second)
	return NewManager(api, nil, uuid.NewNanoIDGenerator(16), cfg, zap.NewNop())
}

func TestManagerCreate_RegistersSession(t *testing.T) {
	m := newTestManager(ManagerConfig{CountdownSeconds: 5})
	defer m.Shutdown()

	viewer := &domain.ViewerModel{ID: "v1", Email: "learner@example.com"}
	sess, err := m.Create(viewer, "token", "c1", domain.PlayerCapabilities{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if sess.ID() == "" || sess.CourseID() != "c1" {
		t.Fatalf("unexpected session: id=%q course=%q", sess.ID(), sess.CourseID())
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", m.Len())
	}

	got, err := m.Get(sess.ID(), "v1")
	if err != nil || got != sess {
		t.Fatalf("lookup failed: %v", err)
	}
}

func TestManagerGet_EnforcesOwnership(t *testing.T) {
	m := newTestManager(ManagerConfig{CountdownSeconds: 5})
	defer m.Shutdown()

	sess, err := m.Create(&domain.ViewerModel{ID: "v1"}, "token", "c1", domain.PlayerCapabilities{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if _, err := m.Get(sess.ID(), "intruder"); err != domain.ErrNoSuchSession {
		t.Fatalf("expected ErrNoSuchSession for a foreign viewer, got %v", err)
	}
	if _, err := m.Get("missing", "v1"); err != domain.ErrNoSuchSession {
		t.Fatalf("expected ErrNoSuchSession for an unknown id, got %v", err)
	}
}

func TestManagerClose_RemovesAndTearsDown(t *testing.T) {
	m := newTestManager(ManagerConfig{CountdownSeconds: 5})
	defer m.Shutdown()

	sess, err := m.Create(&domain.ViewerModel{ID: "v1"}, "token", "c1", domain.PlayerCapabilities{})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := m.Close(sess.ID(), "v1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", m.Len())
	}
	if err := m.Close(sess.ID(), "v1"); err != domain.ErrNoSuchSession {
		t.Fatalf("expected ErrNoSuchSession on double close, got %v", err)
	}
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	m := newTestManager(ManagerConfig{CountdownSeconds: 5, IdleTimeout: 40 * time.Millisecond})
	defer m.Shutdown()

	if _, err := m.Create(&domain.ViewerModel{ID: "v1"}, "token", "c1", domain.PlayerCapabilities{}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Len() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("idle session was not evicted")
}

func TestManagerShutdown_ClosesEverything(t *testing.T) {
	m := newTestManager(ManagerConfig{CountdownSeconds: 5})
	sessions := make([]*Session, 0, 3)
	for i := 0; i < 3; i++ {
		sess, err := m.Create(&domain.ViewerModel{ID: "v1"}, "token", "c1", domain.PlayerCapabilities{})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		sessions = append(sessions, sess)
	}

	m.Shutdown()
	if m.Len() != 0 {
		t.Fatalf("expected empty registry after shutdown, got %d", m.Len())
	}
	for _, sess := range sessions {
		if err := sess.OpenLesson(context.Background(), "l1"); err != domain.ErrNoSuchSession {
			t.Fatalf("expected closed session, got %v", err)
		}
	}
}
