package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coursebay/player-session/internal/autonext"
	"github.com/coursebay/player-session/internal/completion"
	"github.com/coursebay/player-session/internal/domain"
	"github.com/coursebay/player-session/internal/progress"
	"github.com/coursebay/player-session/internal/protection"
	"github.com/coursebay/player-session/internal/stream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// failure classifications surfaced to the client
const (
	FailureNone        = ""
	FailureNotEnrolled = "not_enrolled"
	FailureNotFound    = "not_found"
	FailureNotReady    = "not_ready"
	FailureUnsupported = "unsupported"
	FailureGeneric     = "error"
)

// Config per-session tunables
type Config struct {
	CountdownSeconds  int
	WatermarkInterval time.Duration
	Clock             autonext.Clock
	StreamProbe       *http.Client // manifest probe transport, defaulted when nil
}

// Session the playback and progress-tracking session of one viewer on one
// course.
//
// It owns the current lesson id; every async result carries the lesson id it
// was issued for and is discarded when a newer navigation has superseded it.
// State mutation runs under one mutex, matching the cooperative
// single-ownership model of the browser player it drives.
type Session struct {
	id       string
	courseID string
	viewer   *domain.ViewerModel
	logger   *zap.Logger

	lessons    domain.LessonRepository
	structure  domain.StructureUseCase
	set        *completion.Set
	tracker    *completion.Tracker
	aggregator *progress.Aggregator
	resolver   *stream.Resolver
	player     *stream.Player
	scheduler  *autonext.Scheduler
	guard      *protection.Layer
	channel    *channelMux

	watermarkStop chan struct{}
	closeOnce     sync.Once

	mu               sync.Mutex
	closed           bool
	lastActive       time.Time
	currentLessonID  string
	lesson           *domain.LessonModel
	lessonFailure    string
	redirectToCourse bool
	source           *domain.StreamSourceModel
	streamFailure    string
}

// New assemble a session. The protection layer, the player and the event
// channel live exactly as long as the session: global listeners are
// registered once here and released once in Close, never per lesson.
func New(
	id, courseID string,
	viewer *domain.ViewerModel,
	caps domain.PlayerCapabilities,
	lessons domain.LessonRepository,
	completions domain.CompletionRepository,
	progresses domain.ProgressRepository,
	structure domain.StructureUseCase,
	cfg *Config,
	logger *zap.Logger,
) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = autonext.RealClock()
	}
	s := &Session{
		id:         id,
		courseID:   courseID,
		viewer:     viewer,
		logger:     logger.With(zap.String("session.id", id), zap.String("course.id", courseID)),
		lessons:    lessons,
		structure:  structure,
		set:        completion.NewSet(courseID, completions),
		tracker:    completion.NewTracker(courseID, completions),
		aggregator: progress.NewAggregator(courseID, progresses),
		player:     stream.NewPlayer(),
		guard:      protection.NewLayer(viewer),
		channel:    &channelMux{},
		lastActive: time.Now(),
	}
	s.resolver = stream.NewResolver(lessons, caps, cfg.StreamProbe)
	s.scheduler = autonext.NewScheduler(cfg.CountdownSeconds, clock, s.navigateTo, s.channel.CountdownTick)

	if cfg.WatermarkInterval > 0 && s.guard.Watermark() != nil {
		s.watermarkStop = make(chan struct{})
		go s.watermarkRoutine(clock, cfg.WatermarkInterval, s.watermarkStop)
	}
	return s
}

// ID session identifier
func (s *Session) ID() string { return s.id }

// CourseID course this session plays
func (s *Session) CourseID() string { return s.courseID }

// Viewer owning viewer identity
func (s *Session) Viewer() *domain.ViewerModel { return s.viewer }

// OpenLesson navigate the session to a lesson.
//
// Any state still arriving for a previously requested lesson id is discarded
// when it lands, not aborted in flight. The auto-next countdown is reset
// unconditionally and the previous engine is detached before anything new
// can attach. The parallel loads use an all-settled strategy: one failing
// fetch never blocks the others from rendering.
func (s *Session) OpenLesson(ctx context.Context, lessonID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrNoSuchSession
	}
	s.lastActive = time.Now()
	s.currentLessonID = lessonID
	s.lesson = nil
	s.lessonFailure = FailureNone
	s.redirectToCourse = false
	s.source = nil
	s.streamFailure = FailureNone
	s.mu.Unlock()

	// a pending countdown never survives a navigation
	s.scheduler.Reset()
	if err := s.player.Detach(); err != nil {
		s.logger.Warn("Failed to detach previous engine", zap.Error(err))
	}

	var g errgroup.Group
	g.Go(func() error {
		s.loadLesson(ctx, lessonID)
		return nil
	})
	g.Go(func() error {
		if err := s.set.Refresh(ctx); err != nil {
			s.logger.Warn("Failed to refresh completion set", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := s.aggregator.Refresh(ctx); err != nil {
			s.logger.Warn("Failed to refresh progress", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		s.resolveStream(ctx, lessonID)
		return nil
	})
	g.Wait()
	return nil
}

func (s *Session) loadLesson(ctx context.Context, lessonID string) {
	lesson, err := s.lessons.GetLesson(ctx, lessonID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.currentLessonID != lessonID {
		// superseded navigation, drop the result
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotEnrolled):
			s.lessonFailure = FailureNotEnrolled
			s.redirectToCourse = true
		case errors.Is(err, domain.ErrLessonNotFound):
			s.lessonFailure = FailureNotFound
		default:
			s.lessonFailure = FailureGeneric
			s.logger.Error("Failed to load lesson", zap.String("lesson.id", lessonID), zap.Error(err))
		}
		return
	}
	s.lesson = lesson
}

func (s *Session) resolveStream(ctx context.Context, lessonID string) {
	source, engine, err := s.resolver.Resolve(ctx, lessonID, s.channel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.currentLessonID != lessonID {
		// a stale resolution must neither attach a player nor alter
		// displayed state
		return
	}
	if err != nil {
		s.streamFailure = classifyStreamFailure(err)
		if s.streamFailure == FailureGeneric {
			s.logger.Error("Failed to resolve stream", zap.String("lesson.id", lessonID), zap.Error(err))
		}
		return
	}
	// the player serializes detach-before-attach; holding the session
	// lock keeps the staleness check and the attach atomic
	if err := s.player.Swap(ctx, engine); err != nil {
		s.streamFailure = FailureGeneric
		s.logger.Error("Failed to attach engine", zap.String("lesson.id", lessonID), zap.Error(err))
		return
	}
	s.source = source
}

func classifyStreamFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotEnrolled):
		return FailureNotEnrolled
	case errors.Is(err, domain.ErrStreamNotReady):
		return FailureNotReady
	case errors.Is(err, domain.ErrPlaybackUnsupported):
		return FailureUnsupported
	}
	return FailureGeneric
}

// HandlePlaybackEnded playback finished on either backend: fire the
// completion tracker, then arm auto-next toward the following lesson.
func (s *Session) HandlePlaybackEnded(ctx context.Context) {
	s.mu.Lock()
	lessonID := s.currentLessonID
	closed := s.closed
	s.lastActive = time.Now()
	s.mu.Unlock()
	if closed || lessonID == "" {
		return
	}

	s.completeAndRefresh(ctx, lessonID)
	s.armAutoNext(ctx, lessonID)
}

// MarkComplete the manual "mark as complete" action for the displayed lesson
func (s *Session) MarkComplete(ctx context.Context) error {
	s.mu.Lock()
	lessonID := s.currentLessonID
	closed := s.closed
	s.lastActive = time.Now()
	s.mu.Unlock()
	if closed {
		return domain.ErrNoSuchSession
	}
	if lessonID == "" {
		return domain.ErrLessonNotFound
	}
	return s.completeAndRefresh(ctx, lessonID)
}

// completeAndRefresh run the tracker and fold the outcome back into session
// state. Display state is only ever updated from a confirmed receipt; on
// failure both the completion set and the progress snapshot are re-fetched
// so the UI settles back to authoritative truth.
func (s *Session) completeAndRefresh(ctx context.Context, lessonID string) error {
	receipt, fired, err := s.tracker.MarkComplete(ctx, lessonID)
	if !fired {
		// an identical call is already in flight, ignore rather than queue
		return nil
	}
	if err != nil {
		s.logger.Warn("Completion call failed, reconciling", zap.String("lesson.id", lessonID), zap.Error(err))
		if rerr := s.set.Refresh(ctx); rerr != nil {
			s.logger.Warn("Reconciliation: completion set refresh failed", zap.Error(rerr))
		}
		if rerr := s.aggregator.Refresh(ctx); rerr != nil {
			s.logger.Warn("Reconciliation: progress refresh failed", zap.Error(rerr))
		}
		return err
	}

	s.set.ApplyReceipt(receipt)
	if receipt.Progress != nil {
		s.aggregator.Apply(receipt.Progress)
	} else if rerr := s.aggregator.Refresh(ctx); rerr != nil {
		s.logger.Warn("Progress refresh after completion failed", zap.Error(rerr))
	}

	s.mu.Lock()
	if !s.closed && s.currentLessonID == lessonID && s.lesson != nil {
		s.lesson.Completed = receipt.Completed
		s.lesson.CompletedAt = receipt.CompletedAt
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) armAutoNext(ctx context.Context, lessonID string) {
	neighbors, err := s.structure.GetNeighbors(ctx, s.courseID, lessonID)
	if err != nil {
		s.logger.Warn("Failed to look up next lesson", zap.String("lesson.id", lessonID), zap.Error(err))
		return
	}
	if neighbors.Next == nil {
		// last lesson of the course, the trigger is ignored
		return
	}

	s.mu.Lock()
	stale := s.closed || s.currentLessonID != lessonID
	s.mu.Unlock()
	if stale {
		return
	}
	s.scheduler.Trigger(neighbors.Next.ID)
}

// navigateTo countdown expiry or "go now": announce then re-enter OpenLesson
func (s *Session) navigateTo(lessonID string) {
	s.channel.Navigated(lessonID)
	if err := s.OpenLesson(context.Background(), lessonID); err != nil {
		s.logger.Warn("Auto-next navigation failed", zap.String("lesson.id", lessonID), zap.Error(err))
	}
}

// CancelAutoNext user cancelled the countdown
func (s *Session) CancelAutoNext() {
	s.Touch()
	s.scheduler.Cancel()
}

// GoNext short-circuit the countdown to immediate navigation
func (s *Session) GoNext() {
	s.Touch()
	s.scheduler.GoNow()
}

// AutoNext current scheduler snapshot
func (s *Session) AutoNext() autonext.State {
	return s.scheduler.State()
}

// HandleVisibility tab visibility changed on the client
func (s *Session) HandleVisibility(hidden bool) {
	s.Touch()
	if !hidden {
		return
	}
	s.pauseIfProtected()
}

// HandleBlur the window lost focus
func (s *Session) HandleBlur() {
	s.Touch()
	s.pauseIfProtected()
}

func (s *Session) pauseIfProtected() {
	if s.guard.ShouldPause(s.player.Mode(), s.player.Attached()) {
		if err := s.player.Pause(); err != nil {
			s.logger.Warn("Failed to pause on hidden tab", zap.Error(err))
		}
	}
}

// HandleKey evaluate a key chord against the capture blocklist; reports
// whether the client must suppress it
func (s *Session) HandleKey(ch protection.Chord) bool {
	if !s.guard.SuppressKey(ch) {
		return false
	}
	s.channel.KeySuppressed(ch)
	return true
}

// HandleRawMessage dispatch one inbound channel payload. Malformed or
// unknown payloads are swallowed.
func (s *Session) HandleRawMessage(ctx context.Context, payload []byte) {
	event, ok := ParsePlayerEvent(payload)
	if !ok {
		return
	}
	switch event.Kind {
	case eventEnded:
		s.HandlePlaybackEnded(ctx)
	case eventVisibility:
		s.HandleVisibility(event.Hidden)
	case eventBlur:
		s.HandleBlur()
	case eventKeydown:
		s.HandleKey(event.Chord)
	}
}

// AttachChannel connect the live websocket channel
func (s *Session) AttachChannel(ch PlayerChannel) {
	s.Touch()
	s.channel.attach(ch)
}

// DetachChannel disconnect a channel; no-op when a reconnect replaced it
func (s *Session) DetachChannel(ch PlayerChannel) {
	s.channel.detach(ch)
}

func (s *Session) watermarkRoutine(clock autonext.Clock, interval time.Duration, stop chan struct{}) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			// only while a stream is actively attached
			if !s.player.Attached() {
				continue
			}
			wm := s.guard.Watermark()
			if wm == nil {
				continue
			}
			s.channel.WatermarkMoved(wm.NextPlacement())
		}
	}
}

// Touch record viewer activity for idle eviction
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive most recent viewer activity
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close tear the session down: countdown cancelled, watermark loop stopped,
// engine detached, channel released. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.scheduler.Cancel()
		if s.watermarkStop != nil {
			close(s.watermarkStop)
		}
		if err := s.player.Detach(); err != nil {
			s.logger.Warn("Failed to detach engine on close", zap.Error(err))
		}
		s.channel.attach(nil)
		s.logger.Info("Playback session closed")
	})
}
