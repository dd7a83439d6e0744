package domain

import (
	"context"
	"time"
)

// ProgressModel course-level completion snapshot, always server-sourced
type ProgressModel struct {
	TotalLessons     int `json:"total_lessons"`
	CompletedLessons int `json:"completed_lessons"`
	Percentage       int `json:"percentage"`
}

// Normalize clamp the snapshot into a consistent shape.
//
// Percentage is the completed/total ratio rounded to the nearest whole
// percent, stays within 0..100, and reads exactly 100 only when every
// lesson of a non-empty course is complete, regardless of what the
// upstream reported.
func (p *ProgressModel) Normalize() {
	if p.TotalLessons < 0 {
		p.TotalLessons = 0
	}
	if p.CompletedLessons < 0 {
		p.CompletedLessons = 0
	}
	if p.CompletedLessons > p.TotalLessons {
		p.CompletedLessons = p.TotalLessons
	}
	switch {
	case p.TotalLessons == 0:
		p.Percentage = 0
	case p.CompletedLessons == p.TotalLessons:
		p.Percentage = 100
	default:
		p.Percentage = (p.CompletedLessons*100 + p.TotalLessons/2) / p.TotalLessons
		if p.Percentage > 99 {
			p.Percentage = 99
		}
	}
}

// CompletionReceipt confirmed server state returned by the mark-complete call
type CompletionReceipt struct {
	LessonID           string         `json:"lesson_id"`
	Completed          bool           `json:"completed"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	Progress           *ProgressModel `json:"progress,omitempty"`
	CompletedLessonIDs []string       `json:"completed_lesson_ids,omitempty"`
}

type ProgressRepository interface {
	GetCourseProgress(ctx context.Context, courseID string) (*ProgressModel, error)
}

type CompletionRepository interface {
	GetCompletedLessonIDs(ctx context.Context, courseID string) ([]string, error)
	MarkLessonComplete(ctx context.Context, courseID, lessonID string) (*CompletionReceipt, error)
}
