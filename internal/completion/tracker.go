package completion

import (
	"context"
	"sync"

	"github.com/coursebay/player-session/internal/domain"
	"go.elastic.co/apm"
)

// Tracker the single mutating operation of the playback session.
//
// MarkComplete serves both the manual "mark as complete" action and the
// automatic playback-end trigger. While a call for a lesson is in flight,
// further triggers for that lesson are ignored rather than queued: the
// server call is idempotent anyway, and queuing would only produce redundant
// requests.
type Tracker struct {
	courseID string
	repo     domain.CompletionRepository

	mu   sync.Mutex
	busy map[string]bool
}

// NewTracker create a tracker bound to one course
func NewTracker(courseID string, repo domain.CompletionRepository) *Tracker {
	return &Tracker{
		courseID: courseID,
		repo:     repo,
		busy:     make(map[string]bool),
	}
}

// MarkComplete fire the idempotent completion call for a lesson.
//
// fired is false when the trigger was suppressed by an in-flight call for
// the same lesson. The receipt is the only legitimate source for updating
// the displayed completed flag, timestamp and progress; on error the caller
// must reconcile by re-fetching the completion set and progress snapshot
// instead of guessing a state.
func (t *Tracker) MarkComplete(ctx context.Context, lessonID string) (receipt *domain.CompletionReceipt, fired bool, err error) {
	t.mu.Lock()
	if t.busy[lessonID] {
		t.mu.Unlock()
		return nil, false, nil
	}
	t.busy[lessonID] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.busy, lessonID)
		t.mu.Unlock()
	}()

	apmSpan, _ := apm.StartSpan(ctx, "completion.Tracker.MarkComplete", "service")
	defer apmSpan.End()

	receipt, err = t.repo.MarkLessonComplete(ctx, t.courseID, lessonID)
	if err != nil {
		return nil, true, err
	}
	return receipt, true, nil
}

// Busy report whether a call for the lesson is currently outstanding
func (t *Tracker) Busy(lessonID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy[lessonID]
}
