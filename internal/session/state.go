package session

import (
	"context"

	"github.com/coursebay/player-session/internal/autonext"
	"github.com/coursebay/player-session/internal/domain"
)

// ViewState the single final rendering of session state for one navigation
type ViewState struct {
	SessionID          string                     `json:"session_id"`
	CourseID           string                     `json:"course_id"`
	LessonID           string                     `json:"lesson_id,omitempty"`
	Lesson             *domain.LessonModel        `json:"lesson,omitempty"`
	LessonFailure      string                     `json:"lesson_failure,omitempty"`
	RedirectToCourse   bool                       `json:"redirect_to_course,omitempty"`
	Source             *domain.StreamSourceModel  `json:"source,omitempty"`
	StreamFailure      string                     `json:"stream_failure,omitempty"`
	Previous           *domain.LessonModel        `json:"previous,omitempty"`
	Next               *domain.LessonModel        `json:"next,omitempty"`
	CompletedLessonIDs []string                   `json:"completed_lesson_ids"`
	Progress           *domain.ProgressModel      `json:"progress,omitempty"`
	AutoNext           autonext.State             `json:"auto_next"`
	Watermark          string                     `json:"watermark,omitempty"`
	Structure          *domain.CourseStructure    `json:"structure,omitempty"`
}

// State assemble the current view of the session.
//
// The completed flag of the displayed lesson is seeded from the completion
// set, which covers completions confirmed in another tab or session.
func (s *Session) State(ctx context.Context) *ViewState {
	s.mu.Lock()
	view := &ViewState{
		SessionID:        s.id,
		CourseID:         s.courseID,
		LessonID:         s.currentLessonID,
		LessonFailure:    s.lessonFailure,
		RedirectToCourse: s.redirectToCourse,
		Source:           s.source,
		StreamFailure:    s.streamFailure,
	}
	if s.lesson != nil {
		copied := *s.lesson
		view.Lesson = &copied
	}
	lessonID := s.currentLessonID
	s.mu.Unlock()

	if view.Lesson != nil && !view.Lesson.Completed && s.set.Contains(view.Lesson.ID) {
		view.Lesson.Completed = true
	}
	view.CompletedLessonIDs = s.set.IDs()
	view.Progress = s.aggregator.Current()
	view.AutoNext = s.scheduler.State()
	if wm := s.guard.Watermark(); wm != nil {
		view.Watermark = wm.Text()
	}

	if structure, err := s.structure.GetStructure(ctx, s.courseID); err == nil {
		view.Structure = structure
	}
	if lessonID != "" {
		if neighbors, err := s.structure.GetNeighbors(ctx, s.courseID, lessonID); err == nil {
			view.Previous = neighbors.Previous
			view.Next = neighbors.Next
		}
	}
	return view
}
