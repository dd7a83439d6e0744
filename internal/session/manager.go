package session

import (
	"time"

	"github.com/coursebay/player-session/internal/autonext"
	"github.com/coursebay/player-session/internal/course"
	"github.com/coursebay/player-session/internal/domain"
	"github.com/coursebay/player-session/internal/infrastructure/driver"
	"github.com/coursebay/player-session/internal/infrastructure/uuid"
	"github.com/coursebay/player-session/internal/upstream"
	"go.uber.org/zap"

	"sync"
)

// ManagerConfig manager-level tunables
type ManagerConfig struct {
	CountdownSeconds  int
	WatermarkInterval time.Duration
	StructureCacheTTL time.Duration
	IdleTimeout       time.Duration
	Clock             autonext.Clock
}

// Manager registry of live playback sessions.
//
// Session state is entirely in-memory and rebuilt per page load; the only
// cross-session storage is the course structure cache in the kv store.
type Manager struct {
	api    *upstream.Client
	kv     driver.KeyValueDB
	idGen  uuid.Generator
	cfg    ManagerConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager create a session manager and start its idle sweep
func NewManager(api *upstream.Client, kv driver.KeyValueDB, idGen uuid.Generator, cfg ManagerConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		api:      api,
		kv:       kv,
		idGen:    idGen,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		go m.sweepRoutine()
	}
	return m
}

// Create open a new playback session for a viewer on a course.
//
// The upstream client is scoped to the viewer token so enrollment checks run
// against the watching learner.
func (m *Manager) Create(viewer *domain.ViewerModel, viewerToken, courseID string, caps domain.PlayerCapabilities) (*Session, error) {
	id, err := m.idGen.Generate()
	if err != nil {
		return nil, err
	}

	api := m.api.ForViewer(viewerToken)
	structure := course.NewStructureUseCase(api, m.kv, m.cfg.StructureCacheTTL)
	sess := New(
		id, courseID, viewer, caps,
		api, api, api, structure,
		&Config{
			CountdownSeconds:  m.cfg.CountdownSeconds,
			WatermarkInterval: m.cfg.WatermarkInterval,
			Clock:             m.cfg.Clock,
		},
		m.logger,
	)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	m.logger.Info("Playback session created",
		zap.String("session.id", id),
		zap.String("course.id", courseID),
		zap.String("viewer.id", viewer.ID),
	)
	return sess, nil
}

// Get look a session up, enforcing viewer ownership
func (m *Manager) Get(id, viewerID string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || sess.Viewer().ID != viewerID {
		return nil, domain.ErrNoSuchSession
	}
	return sess, nil
}

// Close tear a session down and drop it from the registry
func (m *Manager) Close(id, viewerID string) error {
	sess, err := m.Get(id, viewerID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	sess.Close()
	return nil
}

// Len number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown close every session and stop the sweep
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

func (m *Manager) sweepRoutine() {
	ticker := time.NewTicker(m.cfg.IdleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)
	var expired []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()
	for _, sess := range expired {
		m.logger.Info("Evicting idle playback session", zap.String("session.id", sess.ID()))
		sess.Close()
	}
}
