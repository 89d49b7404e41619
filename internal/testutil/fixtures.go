package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/pedago/internal/model"
)

// ChapterBuilder assembles chapter definitions for tests.
type ChapterBuilder struct {
	def model.ChapterDefinition
}

// Chapter starts an active chapter at version "1" with no content.
func Chapter(id string) *ChapterBuilder {
	return &ChapterBuilder{def: model.ChapterDefinition{
		ID:       id,
		Title:    "Chapitre " + id,
		Version:  "1",
		IsActive: true,
	}}
}

// Version sets the version stamp.
func (b *ChapterBuilder) Version(v string) *ChapterBuilder {
	b.def.Version = v
	return b
}

// Inactive clears the active flag.
func (b *ChapterBuilder) Inactive() *ChapterBuilder {
	b.def.IsActive = false
	return b
}

// Questions adds single-choice questions with options "a", "b", "c" and
// correct answer "a".
func (b *ChapterBuilder) Questions(ids ...string) *ChapterBuilder {
	for _, id := range ids {
		b.def.Quiz = append(b.def.Quiz, model.Question{
			ID:            id,
			Type:          model.QuestionMCQ,
			Prompt:        "Question " + id,
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: "a",
		})
	}
	return b
}

// Ordering adds an ordering question whose correct order is steps.
func (b *ChapterBuilder) Ordering(id string, steps ...string) *ChapterBuilder {
	b.def.Quiz = append(b.def.Quiz, model.Question{
		ID:           id,
		Type:         model.QuestionOrdering,
		Steps:        steps,
		CorrectOrder: steps,
	})
	return b
}

// Exercises adds exercises.
func (b *ChapterBuilder) Exercises(ids ...string) *ChapterBuilder {
	for _, id := range ids {
		b.def.Exercises = append(b.def.Exercises, model.Exercise{ID: id, Title: "Exercice " + id})
	}
	return b
}

// Videos adds videos.
func (b *ChapterBuilder) Videos(ids ...string) *ChapterBuilder {
	for _, id := range ids {
		b.def.Videos = append(b.def.Videos, model.Video{ID: id, Title: "Vidéo " + id})
	}
	return b
}

// Lesson attaches a lesson with the given shape.
func (b *ChapterBuilder) Lesson(sections, paragraphs int) *ChapterBuilder {
	b.def.Lesson = &model.Lesson{Title: "Cours", Sections: sections, Paragraphs: paragraphs}
	return b
}

// Sessions adds session dates.
func (b *ChapterBuilder) Sessions(at ...time.Time) *ChapterBuilder {
	b.def.SessionDates = append(b.def.SessionDates, at...)
	return b
}

// Build returns a fresh copy of the definition.
func (b *ChapterBuilder) Build() *model.ChapterDefinition {
	def := b.def
	return &def
}

// Catalog builds a catalog of classID in the order given.
func Catalog(classID string, defs ...*model.ChapterDefinition) *model.Catalog {
	cat := &model.Catalog{
		ClassID:  classID,
		Order:    make([]string, 0, len(defs)),
		Chapters: make(map[string]*model.ChapterDefinition, len(defs)),
	}
	for _, def := range defs {
		if _, dup := cat.Chapters[def.ID]; dup {
			panic(fmt.Sprintf("testutil.Catalog: duplicate chapter %q", def.ID))
		}
		def.Class = classID
		cat.Order = append(cat.Order, def.ID)
		cat.Chapters[def.ID] = def
	}
	return cat
}

// StaticLoader serves a fixed catalog, or Err when set.
type StaticLoader struct {
	Catalog *model.Catalog
	Err     error
	Calls   int
}

// Load implements catalog.Loader.
func (l *StaticLoader) Load(_ context.Context, classID string) (*model.Catalog, error) {
	l.Calls++
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Catalog == nil || l.Catalog.ClassID != classID {
		return nil, fmt.Errorf("no catalog for class %q", classID)
	}
	return l.Catalog, nil
}
