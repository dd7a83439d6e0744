package progress

import (
	"context"
	"sync"

	"github.com/coursebay/player-session/internal/domain"
	"go.elastic.co/apm"
)

// Aggregator holds the course-level ProgressModel for one course.
//
// The snapshot is always server-sourced: it is never recomputed locally from
// the completion set, the two are allowed to be fetched independently
// without forcing artificial consistency.
type Aggregator struct {
	courseID string
	repo     domain.ProgressRepository

	mu      sync.RWMutex
	current *domain.ProgressModel
}

// NewAggregator create an aggregator bound to one course
func NewAggregator(courseID string, repo domain.ProgressRepository) *Aggregator {
	return &Aggregator{
		courseID: courseID,
		repo:     repo,
	}
}

// Refresh replace the held snapshot with upstream truth.
//
// Invoked after the initial lesson load and after every completion mutation,
// successful or reconciling.
func (ag *Aggregator) Refresh(ctx context.Context) error {
	apmSpan, _ := apm.StartSpan(ctx, "progress.Aggregator.Refresh", "service")
	defer apmSpan.End()

	snapshot, err := ag.repo.GetCourseProgress(ctx, ag.courseID)
	if err != nil {
		return err
	}
	ag.mu.Lock()
	ag.current = snapshot
	ag.mu.Unlock()
	return nil
}

// Apply fold the snapshot embedded in a confirmed completion receipt
func (ag *Aggregator) Apply(snapshot *domain.ProgressModel) {
	if snapshot == nil {
		return
	}
	ag.mu.Lock()
	ag.current = snapshot
	ag.mu.Unlock()
}

// Current the held snapshot, nil before the first successful refresh
func (ag *Aggregator) Current() *domain.ProgressModel {
	ag.mu.RLock()
	defer ag.mu.RUnlock()
	return ag.current
}
