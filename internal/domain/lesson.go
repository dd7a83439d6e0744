package domain

import (
	"context"
	"time"
)

type LessonModel struct {
	ID            string     `json:"id"`
	SectionID     string     `json:"section_id"`
	CourseID      string     `json:"course_id"`
	Title         string     `json:"title"`
	Duration      int        `json:"duration"` // seconds
	Index         int        `json:"index"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	AttachmentURL string     `json:"attachment_url,omitempty"` // exposed verbatim for direct download
}

type SectionModel struct {
	ID       string         `json:"id"`
	CourseID string         `json:"course_id"`
	Title    string         `json:"title"`
	Index    int            `json:"index"`
	Lessons  []*LessonModel `json:"lessons"`
}

// CourseStructure ordered sections with their ordered lessons, immutable once fetched
type CourseStructure struct {
	CourseID string          `json:"course_id"`
	Sections []*SectionModel `json:"sections"`
}

// Neighbors linear previous/next position of a lesson in the flattened sequence
type Neighbors struct {
	Previous *LessonModel `json:"previous"`
	Next     *LessonModel `json:"next"`
}

type LessonRepository interface {
	GetLesson(ctx context.Context, lessonID string) (*LessonModel, error)
	GetStreamSource(ctx context.Context, lessonID string) (*StreamSourceModel, error)
}

type StructureRepository interface {
	GetSections(ctx context.Context, courseID string) ([]*SectionModel, error)
	GetSectionLessons(ctx context.Context, sectionID string) ([]*LessonModel, error)
}

type StructureUseCase interface {
	GetStructure(ctx context.Context, courseID string) (*CourseStructure, error)
	GetSequence(ctx context.Context, courseID string) ([]*LessonModel, error)
	GetNeighbors(ctx context.Context, courseID, lessonID string) (*Neighbors, error)
}
