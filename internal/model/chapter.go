package model

import "time"

// QuestionType distinguishes quiz question kinds.
type QuestionType string

const (
	// QuestionMCQ is a single-choice question answered with one option.
	QuestionMCQ QuestionType = "mcq"
	// QuestionOrdering is answered with an ordered list of steps.
	QuestionOrdering QuestionType = "ordering"
)

// Question is a single quiz question. ID is stable across versions unless
// the question was deliberately replaced.
type Question struct {
	ID            string       `json:"id" yaml:"id" validate:"required"`
	Type          QuestionType `json:"type" yaml:"type" validate:"omitempty,oneof=mcq ordering"`
	Prompt        string       `json:"prompt" yaml:"prompt"`
	Options       []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Steps         []string     `json:"steps,omitempty" yaml:"steps,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	CorrectOrder  []string     `json:"correct_order,omitempty" yaml:"correct_order,omitempty"`
	Hint          string       `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// IsOrdering reports whether the question expects an ordered answer.
func (q Question) IsOrdering() bool {
	return q.Type == QuestionOrdering
}

// Exercise is a take-home exercise the student self-evaluates.
type Exercise struct {
	ID        string `json:"id" yaml:"id" validate:"required"`
	Title     string `json:"title" yaml:"title"`
	Statement string `json:"statement,omitempty" yaml:"statement,omitempty"`
}

// Video is an optional video resource of a chapter.
type Video struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Lesson describes the optional lesson resource. The content itself is
// opaque to the progress engine; only its shape matters.
type Lesson struct {
	Title      string `json:"title" yaml:"title"`
	Sections   int    `json:"sections" yaml:"sections" validate:"min=0"`
	Paragraphs int    `json:"paragraphs" yaml:"paragraphs" validate:"min=0"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
}

// ChapterDefinition is the externally supplied content of a chapter.
// Version is an opaque stamp: any change means the content changed.
type ChapterDefinition struct {
	ID           string      `json:"id" yaml:"id" validate:"required"`
	Class        string      `json:"class,omitempty" yaml:"class,omitempty"`
	Title        string      `json:"title" yaml:"title"`
	Version      string      `json:"version" yaml:"version" validate:"required"`
	IsActive     bool        `json:"is_active" yaml:"is_active"`
	Quiz         []Question  `json:"quiz" yaml:"quiz" validate:"dive"`
	Exercises    []Exercise  `json:"exercises" yaml:"exercises" validate:"dive"`
	Lesson       *Lesson     `json:"lesson,omitempty" yaml:"lesson,omitempty"`
	Videos       []Video     `json:"videos,omitempty" yaml:"videos,omitempty" validate:"dive"`
	SessionDates []time.Time `json:"session_dates,omitempty" yaml:"session_dates,omitempty"`
}

// HasLesson reports whether the lesson component applies to this chapter.
func (d *ChapterDefinition) HasLesson() bool {
	return d != nil && d.Lesson != nil
}

// HasVideos reports whether the video component applies to this chapter.
func (d *ChapterDefinition) HasVideos() bool {
	return d != nil && len(d.Videos) > 0
}

// HasExercises reports whether the chapter has at least one exercise.
func (d *ChapterDefinition) HasExercises() bool {
	return d != nil && len(d.Exercises) > 0
}

// QuestionIDs returns the set of question ids of the definition.
func (d *ChapterDefinition) QuestionIDs() map[string]bool {
	ids := make(map[string]bool, len(d.Quiz))
	for _, q := range d.Quiz {
		ids[q.ID] = true
	}
	return ids
}

// ExerciseIDs returns the set of exercise ids of the definition.
func (d *ChapterDefinition) ExerciseIDs() map[string]bool {
	ids := make(map[string]bool, len(d.Exercises))
	for _, ex := range d.Exercises {
		ids[ex.ID] = true
	}
	return ids
}

// VideoIDs returns the set of video ids of the definition.
func (d *ChapterDefinition) VideoIDs() map[string]bool {
	ids := make(map[string]bool, len(d.Videos))
	for _, v := range d.Videos {
		ids[v.ID] = true
	}
	return ids
}

// Question looks up a question by id.
func (d *ChapterDefinition) Question(id string) (Question, bool) {
	for _, q := range d.Quiz {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Catalog is the output contract of the catalog loader: chapter
// definitions keyed by id plus the explicit class ordering.
type Catalog struct {
	ClassID  string                        `json:"class_id"`
	Order    []string                      `json:"order"`
	Chapters map[string]*ChapterDefinition `json:"chapters"`
}

// Ordered returns the definitions following Order. Ids listed in Order but
// missing from Chapters are skipped.
func (c *Catalog) Ordered() []*ChapterDefinition {
	if c == nil {
		return nil
	}
	out := make([]*ChapterDefinition, 0, len(c.Order))
	for _, id := range c.Order {
		if def, ok := c.Chapters[id]; ok {
			out = append(out, def)
		}
	}
	return out
}

// Versions returns the version stamp of every chapter in the catalog.
func (c *Catalog) Versions() VersionMap {
	vm := make(VersionMap, len(c.Chapters))
	for id, def := range c.Chapters {
		vm[id] = def.Version
	}
	return vm
}
