package completion

import (
	"context"
	"sort"
	"sync"

	"github.com/coursebay/player-session/internal/domain"
	"go.elastic.co/apm"
)

// Set server-confirmed completed lesson ids for one course.
//
// Membership changes only through Refresh (bulk server truth) or
// ApplyReceipt (a confirmed own write). There is deliberately no way to
// toggle an id locally: guessed completion states caused visible
// flash-and-rollback defects, so the set never runs ahead of the server.
type Set struct {
	courseID string
	repo     domain.CompletionRepository

	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet create an empty completion set bound to one course
func NewSet(courseID string, repo domain.CompletionRepository) *Set {
	return &Set{
		courseID: courseID,
		repo:     repo,
		ids:      make(map[string]struct{}),
	}
}

// Refresh replace the held set with the bulk id list from upstream.
//
// Called on every lesson navigation and after every tracker mutation, which
// also reconciles completions made in another tab or session.
func (s *Set) Refresh(ctx context.Context) error {
	apmSpan, _ := apm.StartSpan(ctx, "completion.Set.Refresh", "service")
	defer apmSpan.End()

	ids, err := s.repo.GetCompletedLessonIDs(ctx, s.courseID)
	if err != nil {
		return err
	}
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
	return nil
}

// ApplyReceipt fold a confirmed mark-complete response into the set
func (s *Set) ApplyReceipt(receipt *domain.CompletionReceipt) {
	if receipt == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if receipt.CompletedLessonIDs != nil {
		next := make(map[string]struct{}, len(receipt.CompletedLessonIDs))
		for _, id := range receipt.CompletedLessonIDs {
			next[id] = struct{}{}
		}
		s.ids = next
		return
	}
	if receipt.Completed {
		s.ids[receipt.LessonID] = struct{}{}
	}
}

// Contains report whether the lesson is known complete
func (s *Set) Contains(lessonID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[lessonID]
	return ok
}

// Len number of completed lessons currently held
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs sorted snapshot of the held ids, for rendering sidebar checkmarks
func (s *Set) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
