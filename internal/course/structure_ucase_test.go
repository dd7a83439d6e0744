package course

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursebay/player-session/internal/domain"
)

type fakeStructureRepo struct {
	sections       []*domain.SectionModel
	sectionLessons map[string][]*domain.LessonModel
	failSections   map[string]error

	sectionCalls int
}

func (f *fakeStructureRepo) GetSections(ctx context.Context, courseID string) ([]*domain.SectionModel, error) {
	f.sectionCalls++
	out := make([]*domain.SectionModel, len(f.sections))
	for i, s := range f.sections {
		copied := *s
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeStructureRepo) GetSectionLessons(ctx context.Context, sectionID string) ([]*domain.LessonModel, error) {
	if err := f.failSections[sectionID]; err != nil {
		return nil, err
	}
	return f.sectionLessons[sectionID], nil
}

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) SetEX(key, value string, expiration time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Get(key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", errors.New("no such key")
	}
	return v, nil
}

func (f *fakeKV) Exists(key string) (bool, error) {
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeKV) Del(key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Ping() error { return nil }

func lesson(id string, index int) *domain.LessonModel {
	return &domain.LessonModel{ID: id, Index: index, Title: "Lesson " + id}
}

func twoSectionRepo() *fakeStructureRepo {
	return &fakeStructureRepo{
		sections: []*domain.SectionModel{
			{ID: "s2", Index: 2, Title: "Advanced"},
			{ID: "s1", Index: 1, Title: "Basics"},
		},
		sectionLessons: map[string][]*domain.LessonModel{
			"s1": {lesson("l2", 2), lesson("l1", 1)},
			"s2": {lesson("l3", 1), lesson("l4", 2)},
		},
	}
}

func TestGetStructure_OrdersSectionsAndLessons(t *testing.T) {
	su := NewStructureUseCase(twoSectionRepo(), nil, 0)

	structure, err := su.GetStructure(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(structure.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(structure.Sections))
	}
	if structure.Sections[0].ID != "s1" || structure.Sections[1].ID != "s2" {
		t.Fatalf("sections not ordered by index: %s, %s", structure.Sections[0].ID, structure.Sections[1].ID)
	}
	first := structure.Sections[0].Lessons
	if first[0].ID != "l1" || first[1].ID != "l2" {
		t.Fatalf("lessons not ordered by index: %s, %s", first[0].ID, first[1].ID)
	}
}

func TestGetStructure_SeedsLessonOwnership(t *testing.T) {
	su := NewStructureUseCase(twoSectionRepo(), nil, 0)

	structure, err := su.GetStructure(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got := structure.Sections[0].Lessons[0]
	if got.SectionID != "s1" || got.CourseID != "c1" {
		t.Fatalf("ownership not seeded: section=%q course=%q", got.SectionID, got.CourseID)
	}
}

func TestGetStructure_SectionLessonFailureKeepsSection(t *testing.T) {
	repo := twoSectionRepo()
	repo.failSections = map[string]error{"s1": errors.New("upstream down")}
	su := NewStructureUseCase(repo, nil, 0)

	structure, err := su.GetStructure(context.Background(), "c1")
	if err != nil {
		t.Fatalf("expected partial structure, got error: %s", err)
	}
	if len(structure.Sections) != 2 {
		t.Fatalf("expected both sections, got %d", len(structure.Sections))
	}
	if len(structure.Sections[0].Lessons) != 0 {
		t.Fatalf("expected empty lesson list for failed section, got %d", len(structure.Sections[0].Lessons))
	}
	if len(structure.Sections[1].Lessons) != 2 {
		t.Fatalf("expected the healthy section intact, got %d lessons", len(structure.Sections[1].Lessons))
	}
}

func TestGetStructure_SecondCallServedFromCache(t *testing.T) {
	repo := twoSectionRepo()
	su := NewStructureUseCase(repo, newFakeKV(), 10*time.Minute)

	if _, err := su.GetStructure(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if _, err := su.GetStructure(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if repo.sectionCalls != 1 {
		t.Fatalf("expected 1 upstream fetch, got %d", repo.sectionCalls)
	}
}

func TestGetStructure_MemoSurvivesCacheLoss(t *testing.T) {
	repo := twoSectionRepo()
	kv := newFakeKV()
	su := NewStructureUseCase(repo, kv, 10*time.Minute)

	if _, err := su.GetStructure(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	kv.data = map[string]string{}
	if _, err := su.GetStructure(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	neighbors, err := su.GetNeighbors(context.Background(), "c1", "l2")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if neighbors.Next == nil || neighbors.Next.ID != "l3" {
		t.Fatalf("expected next=l3, got %+v", neighbors.Next)
	}
	if repo.sectionCalls != 1 {
		t.Fatalf("expected the in-memory snapshot to serve after kv loss, got %d upstream fetches", repo.sectionCalls)
	}
}

func TestGetSequence_FlattensSectionOrder(t *testing.T) {
	su := NewStructureUseCase(twoSectionRepo(), nil, 0)

	sequence, err := su.GetSequence(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := []string{"l1", "l2", "l3", "l4"}
	if len(sequence) != len(want) {
		t.Fatalf("expected %d lessons, got %d", len(want), len(sequence))
	}
	for i, id := range want {
		if sequence[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sequence[i].ID)
		}
	}
}

func TestNeighbors_MiddleOfSequence(t *testing.T) {
	sequence := []*domain.LessonModel{lesson("a", 1), lesson("b", 2), lesson("c", 3)}

	n := Neighbors(sequence, "b")
	if n.Previous == nil || n.Previous.ID != "a" {
		t.Fatalf("expected previous=a, got %+v", n.Previous)
	}
	if n.Next == nil || n.Next.ID != "c" {
		t.Fatalf("expected next=c, got %+v", n.Next)
	}
}

func TestNeighbors_SequenceEnds(t *testing.T) {
	sequence := []*domain.LessonModel{lesson("a", 1), lesson("b", 2)}

	first := Neighbors(sequence, "a")
	if first.Previous != nil {
		t.Fatalf("expected nil previous at sequence start, got %+v", first.Previous)
	}
	last := Neighbors(sequence, "b")
	if last.Next != nil {
		t.Fatalf("expected nil next at sequence end, got %+v", last.Next)
	}
}

func TestNeighbors_UnknownLesson(t *testing.T) {
	sequence := []*domain.LessonModel{lesson("a", 1)}

	n := Neighbors(sequence, "zz")
	if n.Previous != nil || n.Next != nil {
		t.Fatalf("expected empty neighbors for unknown lesson, got %+v", n)
	}
}
