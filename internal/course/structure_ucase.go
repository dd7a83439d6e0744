package course

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/coursebay/player-session/internal/domain"
	"github.com/coursebay/player-session/internal/infrastructure/driver"
	"go.elastic.co/apm"
	"golang.org/x/sync/errgroup"
)

// StructureUseCaseImpl serves course structures: ordered sections with their
// ordered lessons, plus the flattened lesson sequence derived from them.
//
// A structure is fetched at most once per use case instance and held in
// memory for the lifetime of the owning session. The kv store is a second
// tier shared across playback sessions, so concurrent viewers of the same
// course reuse one upstream fetch; it is best effort, a kv outage falls
// back to upstream and never invalidates the in-memory snapshot.
type StructureUseCaseImpl struct {
	StructureRepository domain.StructureRepository
	KVStore             driver.KeyValueDB
	CacheTTL            time.Duration

	mu   sync.Mutex
	memo *domain.CourseStructure
}

var _ domain.StructureUseCase = &StructureUseCaseImpl{}

// NewStructureUseCase ...
func NewStructureUseCase(
	StructureRepository domain.StructureRepository,
	KVStore driver.KeyValueDB,
	CacheTTL time.Duration,
) *StructureUseCaseImpl {
	return &StructureUseCaseImpl{
		StructureRepository: StructureRepository,
		KVStore:             KVStore,
		CacheTTL:            CacheTTL,
	}
}

// GetStructure fetch ordered sections and their lessons for a course.
//
// Section lesson lists are fetched independently; a section whose lesson
// fetch fails is kept with an empty lesson list instead of failing the whole
// structure.
func (su *StructureUseCaseImpl) GetStructure(ctx context.Context, courseID string) (*domain.CourseStructure, error) {
	apmSpan, _ := apm.StartSpan(ctx, "StructureUseCaseImpl.GetStructure", "service")
	defer apmSpan.End()

	su.mu.Lock()
	defer su.mu.Unlock()
	if su.memo != nil && su.memo.CourseID == courseID {
		return su.memo, nil
	}
	if cached := su.fromCache(courseID); cached != nil {
		su.memo = cached
		return cached, nil
	}

	sections, err := su.StructureRepository.GetSections(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Index < sections[j].Index
	})
	eg, egCtx := errgroup.WithContext(ctx)
	for _, section := range sections {
		section := section
		eg.Go(func() error {
			lessons, err := su.StructureRepository.GetSectionLessons(egCtx, section.ID)
			if err != nil {
				// tolerate a partial structure, the sidebar renders the
				// section header with no lessons
				section.Lessons = []*domain.LessonModel{}
				return nil
			}
			sort.SliceStable(lessons, func(i, j int) bool {
				return lessons[i].Index < lessons[j].Index
			})
			for _, lesson := range lessons {
				if lesson.SectionID == "" {
					lesson.SectionID = section.ID
				}
				if lesson.CourseID == "" {
					lesson.CourseID = courseID
				}
			}
			section.Lessons = lessons
			return nil
		})
	}
	eg.Wait()

	structure := &domain.CourseStructure{
		CourseID: courseID,
		Sections: sections,
	}
	su.memo = structure
	su.toCache(courseID, structure)
	return structure, nil
}

// GetSequence flatten the structure into section-order then lesson-order
func (su *StructureUseCaseImpl) GetSequence(ctx context.Context, courseID string) ([]*domain.LessonModel, error) {
	structure, err := su.GetStructure(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return Flatten(structure), nil
}

// GetNeighbors locate the previous and next lesson by linear position
func (su *StructureUseCaseImpl) GetNeighbors(ctx context.Context, courseID, lessonID string) (*domain.Neighbors, error) {
	sequence, err := su.GetSequence(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return Neighbors(sequence, lessonID), nil
}

func (su *StructureUseCaseImpl) fromCache(courseID string) *domain.CourseStructure {
	if su.KVStore == nil {
		return nil
	}
	raw, err := su.KVStore.Get(structureCacheKey(courseID))
	if err != nil {
		return nil
	}
	structure := new(domain.CourseStructure)
	if err := json.Unmarshal([]byte(raw), structure); err != nil {
		return nil
	}
	return structure
}

func (su *StructureUseCaseImpl) toCache(courseID string, structure *domain.CourseStructure) {
	if su.KVStore == nil || su.CacheTTL <= 0 {
		return
	}
	encoded, err := json.Marshal(structure)
	if err != nil {
		return
	}
	su.KVStore.SetEX(structureCacheKey(courseID), string(encoded), su.CacheTTL)
}

func structureCacheKey(courseID string) string {
	return "course:structure:" + courseID
}

// Flatten concatenate each section's lessons in section-order then
// lesson-order. The result is derived, never stored; it is recomputed only
// when the structure itself is re-fetched.
func Flatten(structure *domain.CourseStructure) []*domain.LessonModel {
	var sequence []*domain.LessonModel
	for _, section := range structure.Sections {
		sequence = append(sequence, section.Lessons...)
	}
	return sequence
}

// Neighbors previous/next lesson of lessonID by linear position, nil ends
func Neighbors(sequence []*domain.LessonModel, lessonID string) *domain.Neighbors {
	neighbors := new(domain.Neighbors)
	for i, lesson := range sequence {
		if lesson.ID != lessonID {
			continue
		}
		if i > 0 {
			neighbors.Previous = sequence[i-1]
		}
		if i < len(sequence)-1 {
			neighbors.Next = sequence[i+1]
		}
		break
	}
	return neighbors
}
