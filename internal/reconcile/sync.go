package reconcile

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/pedago/internal/ident"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/status"
)

// ErrNoCatalog is returned when Sync is called without a catalog.
var ErrNoCatalog = errors.New("reconcile: catalog is required")

// Input is everything a reconciliation pass depends on.
type Input struct {
	Versions model.VersionMap
	Progress model.ProgressStore
	Catalog  *model.Catalog

	// ActiveChapterID is the chapter the student started last.
	ActiveChapterID string
	// ViewChapterID is the chapter currently displayed, if any.
	ViewChapterID string

	Now time.Time
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	Progress model.ProgressStore
	Versions model.VersionMap
	Order    []string
	Events   []Event

	Added   []string
	Updated []string
	Removed []string

	// ActiveChapterID is cleared when the active chapter left the catalog.
	ActiveChapterID string

	// Redirect is set when the displayed chapter no longer exists; the
	// caller must fall back to the dashboard.
	Redirect bool
}

// Notifications returns the notifications carried by the events, in
// emission order.
func (r *Result) Notifications() []model.Notification {
	out := make([]model.Notification, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Notification)
	}
	return out
}

// Sync reconciles stored progress against a fetched catalog.
func Sync(in Input) (*Result, error) {
	if in.Catalog == nil {
		return nil, ErrNoCatalog
	}

	res := &Result{
		Progress:        in.Progress.Clone(),
		Versions:        in.Catalog.Versions(),
		Order:           chapterOrder(in.Catalog),
		ActiveChapterID: in.ActiveChapterID,
	}
	ts := in.Now.UnixMilli()

	for _, id := range res.Order {
		def := in.Catalog.Chapters[id]
		if def == nil {
			return nil, fmt.Errorf("reconcile: chapter %q listed without definition", id)
		}

		p, exists := res.Progress[id]
		if !exists {
			p = model.NewChapterProgress(def)
			res.Progress[id] = p
			res.Added = append(res.Added, id)
		} else if p.Status == "" {
			p.Status = status.InitialStatus(def, p, id == in.ActiveChapterID)
		}

		oldVersion, seen := in.Versions[id]
		switch {
		case !seen:
			if def.IsActive && !p.IsStarted() {
				res.Events = append(res.Events, newChapterEvent(def, ts))
			}
		case oldVersion != def.Version:
			res.Updated = append(res.Updated, id)
			res.Events = append(res.Events, applyContentUpdate(def, p, ts)...)
		}
	}

	for id := range in.Progress {
		if _, ok := in.Catalog.Chapters[id]; !ok {
			res.Removed = append(res.Removed, id)
		}
	}
	for id := range in.Versions {
		if _, ok := in.Catalog.Chapters[id]; !ok && in.Progress[id] == nil {
			res.Removed = append(res.Removed, id)
		}
	}
	slices.Sort(res.Removed)

	if res.ActiveChapterID != "" && in.Catalog.Chapters[res.ActiveChapterID] == nil {
		res.ActiveChapterID = ""
	}
	if in.ViewChapterID != "" && in.Catalog.Chapters[in.ViewChapterID] == nil {
		res.Redirect = true
	}

	return res, nil
}

// chapterOrder returns the explicit ordering followed by any chapter that
// the manifest omitted, sorted by id.
func chapterOrder(c *model.Catalog) []string {
	order := make([]string, 0, len(c.Chapters))
	listed := make(map[string]bool, len(c.Order))
	for _, id := range c.Order {
		if listed[id] {
			continue
		}
		listed[id] = true
		order = append(order, id)
	}
	var extra []string
	for id := range c.Chapters {
		if !listed[id] {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}

// applyContentUpdate invalidates the parts of p that no longer match def
// and returns the events of the update, content-updated first.
func applyContentUpdate(def *model.ChapterDefinition, p *model.ChapterProgress, ts int64) []Event {
	events := []Event{contentUpdatedEvent(def, ts)}

	questions := def.QuestionIDs()
	for qid := range p.Quiz.Answers {
		if !questions[qid] {
			delete(p.Quiz.Answers, qid)
		}
	}
	exercises := def.ExerciseIDs()
	for eid := range p.ExercisesFeedback {
		if !exercises[eid] {
			delete(p.ExercisesFeedback, eid)
		}
	}
	refreshVideos(def, p)

	answered, firstMissing := answeredCount(def, p)
	p.Quiz.AllAnswered = answered == len(def.Quiz)

	// A submitted quiz reopens only when it gained unanswered questions.
	if p.Quiz.IsSubmitted && answered < len(def.Quiz) {
		p.Quiz.IsSubmitted = false
		p.Quiz.CurrentQuestionIndex = firstMissing
		events = append(events, quizIncompleteEvent(def, len(def.Quiz)-answered, ts))
	} else if p.Quiz.CurrentQuestionIndex >= len(def.Quiz) {
		p.Quiz.CurrentQuestionIndex = max(len(def.Quiz)-1, 0)
	}

	if p.IsWorkSubmitted {
		p.IsWorkSubmitted = false
		p.HasUpdate = true
		events = append(events, resubmitEvent(def, ts))
	}
	return events
}

// answeredCount counts answered questions of def and returns the index of
// the first unanswered one (0 when all are answered).
func answeredCount(def *model.ChapterDefinition, p *model.ChapterProgress) (int, int) {
	answered, firstMissing := 0, -1
	for i, q := range def.Quiz {
		if a, ok := p.Quiz.Answers[q.ID]; ok && !a.IsZero() {
			answered++
			continue
		}
		if firstMissing < 0 {
			firstMissing = i
		}
	}
	if firstMissing < 0 {
		firstMissing = 0
	}
	return answered, firstMissing
}

// refreshVideos aligns the video sub-record with the definition's videos.
func refreshVideos(def *model.ChapterDefinition, p *model.ChapterProgress) {
	if !def.HasVideos() {
		return
	}
	if p.Videos == nil {
		p.Videos = &model.VideoProgress{Watched: map[string]bool{}}
	}
	valid := def.VideoIDs()
	for vid := range p.Videos.Watched {
		if !valid[vid] {
			delete(p.Videos.Watched, vid)
		}
	}
	all := true
	for _, v := range def.Videos {
		if !p.Videos.Watched[v.ID] {
			all = false
			break
		}
	}
	p.Videos.AllWatched = all
}

// versionKey keeps ids readable when a stamp is empty.
func versionKey(def *model.ChapterDefinition) string {
	if def.Version == "" {
		return "v0"
	}
	return def.Version
}

func newChapterEvent(def *model.ChapterDefinition, ts int64) Event {
	return Event{
		Kind:      EventNewChapter,
		ChapterID: def.ID,
		Version:   def.Version,
		Notification: model.Notification{
			ID:        ident.Key("new-chapter", def.ID, versionKey(def)),
			Type:      model.NotifyInfo,
			Title:     "Nouveau chapitre disponible",
			Message:   fmt.Sprintf("Le chapitre <strong>%s</strong> est maintenant disponible.", title(def)),
			Timestamp: ts,
		},
	}
}

func contentUpdatedEvent(def *model.ChapterDefinition, ts int64) Event {
	return Event{
		Kind:      EventContentUpdated,
		ChapterID: def.ID,
		Version:   def.Version,
		Notification: model.Notification{
			ID:        ident.Key("content-updated", def.ID, versionKey(def)),
			Type:      model.NotifyInfo,
			Title:     "Contenu mis à jour",
			Message:   fmt.Sprintf("Le chapitre <strong>%s</strong> a été mis à jour.", title(def)),
			Timestamp: ts,
		},
	}
}

func quizIncompleteEvent(def *model.ChapterDefinition, added int, ts int64) Event {
	return Event{
		Kind:      EventQuizIncomplete,
		ChapterID: def.ID,
		Version:   def.Version,
		Added:     added,
		Notification: model.Notification{
			ID:    ident.Key("quiz-incomplete", def.ID, versionKey(def)),
			Type:  model.NotifyWarning,
			Title: "Quiz à compléter",
			Message: fmt.Sprintf("Le quiz du chapitre <strong>%s</strong> contient %s. Complétez-le avant de le soumettre à nouveau.",
				title(def), NewQuestionsLabel(added)),
			Timestamp: ts,
		},
	}
}

func resubmitEvent(def *model.ChapterDefinition, ts int64) Event {
	return Event{
		Kind:      EventResubmit,
		ChapterID: def.ID,
		Version:   def.Version,
		Notification: model.Notification{
			ID:        ident.Key("resubmit", def.ID, versionKey(def)),
			Type:      model.NotifyWarning,
			Title:     "Nouvelle soumission requise",
			Message:   fmt.Sprintf("Le chapitre <strong>%s</strong> a changé depuis votre envoi. Veuillez soumettre à nouveau votre travail.", title(def)),
			Timestamp: ts,
		},
	}
}

// NewQuestionsLabel renders "1 nouvelle question" / "N nouvelles questions".
func NewQuestionsLabel(n int) string {
	if n == 1 {
		return "1 nouvelle question"
	}
	return fmt.Sprintf("%d nouvelles questions", n)
}

func title(def *model.ChapterDefinition) string {
	if def.Title != "" {
		return def.Title
	}
	return def.ID
}
