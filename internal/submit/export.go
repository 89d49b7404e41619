package submit

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pedago/internal/ident"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/status"
)

// Document is the export document sent to the sink.
type Document struct {
	ID           string `json:"id"`
	Student      string `json:"student"`
	ClassID      string `json:"class_id"`
	ChapterID    string `json:"chapter_id"`
	ChapterTitle string `json:"chapter_title"`
	Version      string `json:"version"`
	SubmittedAt  int64  `json:"submitted_at"`

	Quiz              QuizExport       `json:"quiz"`
	Exercises         []ExerciseExport `json:"exercises"`
	ExercisesDuration int              `json:"exercises_duration"`
	VideosDuration    int              `json:"videos_duration"`
	ProgressPercent   int              `json:"progress_percent"`

	// ContentHash identifies the submitted work independently of ID and
	// time; the sink uses it as an idempotency key.
	ContentHash string `json:"content_hash"`
}

// QuizExport is the quiz part of the export.
type QuizExport struct {
	Score     int            `json:"score"`
	Total     int            `json:"total"`
	Duration  int            `json:"duration"`
	HintsUsed int            `json:"hints_used"`
	Answers   []AnswerExport `json:"answers"`
}

// AnswerExport is one answer translated to indices into the question's own
// option or step list. Unknown values map to -1.
type AnswerExport struct {
	QuestionID string `json:"question_id"`
	Index      *int   `json:"index,omitempty"`
	Order      []int  `json:"order,omitempty"`
}

// ExerciseExport is the feedback of one exercise.
type ExerciseExport struct {
	ExerciseID string         `json:"exercise_id"`
	Feedback   model.Feedback `json:"feedback"`
}

// Export assembles the export document of a chapter under id. Answers and
// exercises follow the definition's order; unanswered questions are omitted.
func Export(id string, profile model.Profile, def *model.ChapterDefinition, p *model.ChapterProgress, now time.Time) (*Document, error) {
	doc := &Document{
		ID:                id,
		Student:           profile.Name,
		ClassID:           profile.ClassID,
		ChapterID:         def.ID,
		ChapterTitle:      def.Title,
		Version:           def.Version,
		SubmittedAt:       now.UnixMilli(),
		Exercises:         []ExerciseExport{},
		ExercisesDuration: p.ExercisesDuration,
		ProgressPercent:   status.OverallProgressPercent(def, p),
		Quiz: QuizExport{
			Score:     p.Quiz.Score,
			Total:     len(def.Quiz),
			Duration:  p.Quiz.Duration,
			HintsUsed: p.Quiz.HintsUsed,
			Answers:   []AnswerExport{},
		},
	}
	if p.Videos != nil {
		doc.VideosDuration = p.Videos.Duration
	}

	for _, q := range def.Quiz {
		a, ok := p.Quiz.Answers[q.ID]
		if !ok || a.IsZero() {
			continue
		}
		doc.Quiz.Answers = append(doc.Quiz.Answers, exportAnswer(q, a))
	}
	for _, ex := range def.Exercises {
		if fb, ok := p.ExercisesFeedback[ex.ID]; ok {
			doc.Exercises = append(doc.Exercises, ExerciseExport{ExerciseID: ex.ID, Feedback: fb})
		}
	}

	hash, err := ident.ContentHash(ident.DomainExport, doc.hashInput())
	if err != nil {
		return nil, err
	}
	doc.ContentHash = hash
	return doc, nil
}

func exportAnswer(q model.Question, a model.Answer) AnswerExport {
	out := AnswerExport{QuestionID: q.ID}
	if a.IsOrder() {
		out.Order = make([]int, len(a.Order))
		for i, step := range a.Order {
			out.Order[i] = indexOf(q.Steps, step)
		}
		return out
	}
	idx := indexOf(q.Options, a.Choice)
	out.Index = &idx
	return out
}

// indexOf matches on NFC-normalized, trimmed text.
func indexOf(candidates []string, value string) int {
	want := normalize(value)
	return slices.IndexFunc(candidates, func(c string) bool {
		return normalize(c) == want
	})
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// hashInput is the canonical view of the submitted work.
func (d *Document) hashInput() map[string]any {
	answers := make([]any, len(d.Quiz.Answers))
	for i, a := range d.Quiz.Answers {
		entry := map[string]any{"question_id": a.QuestionID}
		if a.Index != nil {
			entry["index"] = int64(*a.Index)
		}
		if a.Order != nil {
			order := make([]any, len(a.Order))
			for j, v := range a.Order {
				order[j] = int64(v)
			}
			entry["order"] = order
		}
		answers[i] = entry
	}
	feedback := make(map[string]string, len(d.Exercises))
	for _, ex := range d.Exercises {
		feedback[ex.ExerciseID] = string(ex.Feedback)
	}
	return map[string]any{
		"student":    d.Student,
		"class_id":   d.ClassID,
		"chapter_id": d.ChapterID,
		"version":    d.Version,
		"score":      int64(d.Quiz.Score),
		"answers":    answers,
		"exercises":  feedback,
	}
}
