package notify

import (
	"fmt"
	"time"

	"github.com/roach88/pedago/internal/ident"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/status"
)

// DefaultLookahead is the session reminder window.
const DefaultLookahead = 3 * time.Hour

// Priority offsets added to the generation time. Higher shows first.
const (
	priorityWelcome int64 = iota
	priorityNudge
	priorityMilestone
	priorityAllQuizzes
	priorityQuizFeedback
	prioritySession
	priorityPending
)

// Score thresholds for quiz feedback, in percent.
const (
	encourageBelow = 50
	congratsFrom   = 80
)

// maxMilestone caps completion milestones.
const maxMilestone = 3

// Input is the state notifications are derived from.
type Input struct {
	Profile  model.Profile
	Catalog  *model.Catalog
	Progress model.ProgressStore
	Pending  []model.PendingSubmission
	Now      time.Time
}

// Generator synthesizes notifications from state. It holds no state of its
// own; the same input always yields the same notifications.
type Generator struct {
	Lookahead time.Duration
}

// NewGenerator creates a generator with the default lookahead.
func NewGenerator() *Generator {
	return &Generator{Lookahead: DefaultLookahead}
}

// Generate returns every notification the state currently warrants.
// Nothing is generated without a profile or a catalog.
func (g *Generator) Generate(in Input) []model.Notification {
	if in.Profile.IsZero() || in.Catalog == nil {
		return nil
	}
	ts := in.Now.UnixMilli()
	defs := in.Catalog.Ordered()

	var out []model.Notification
	out = append(out, pendingSubmissions(in, ts)...)
	out = append(out, g.sessionReminders(defs, in.Now)...)
	out = append(out, quizFeedback(defs, in.Progress, ts)...)
	out = append(out, allQuizzesDone(defs, in.Progress, ts)...)
	out = append(out, milestones(defs, in.Progress, ts)...)
	out = append(out, nudges(defs, in.Progress, ts)...)
	out = append(out, welcome(in.Profile, in.Now))
	return out
}

func pendingSubmissions(in Input, ts int64) []model.Notification {
	var out []model.Notification
	for _, ps := range in.Pending {
		name := ps.ChapterID
		if def := in.Catalog.Chapters[ps.ChapterID]; def != nil && def.Title != "" {
			name = def.Title
		}
		out = append(out, model.Notification{
			ID:        ident.Key("pending-submission", ps.Key),
			Type:      model.NotifyUrgent,
			Title:     "Envoi en attente",
			Message:   fmt.Sprintf("Votre travail du chapitre <strong>%s</strong> n'a pas pu être envoyé. Réessayez l'envoi.", name),
			Timestamp: ts + priorityPending,
		})
	}
	return out
}

func (g *Generator) sessionReminders(defs []*model.ChapterDefinition, now time.Time) []model.Notification {
	lookahead := g.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	horizon := now.Add(lookahead)

	var out []model.Notification
	for _, def := range defs {
		if !def.IsActive {
			continue
		}
		for _, at := range def.SessionDates {
			if at.Before(now) || at.After(horizon) {
				continue
			}
			out = append(out, model.Notification{
				ID:    ident.Key("session", def.ID, ident.Millis(at)),
				Type:  model.NotifyUrgent,
				Title: "Séance imminente",
				Message: fmt.Sprintf("La séance du chapitre <strong>%s</strong> commence à %s.",
					titleOf(def), at.Format("15:04")),
				Timestamp: now.UnixMilli() + prioritySession,
			})
		}
	}
	return out
}

func quizFeedback(defs []*model.ChapterDefinition, progress model.ProgressStore, ts int64) []model.Notification {
	var out []model.Notification
	for _, def := range defs {
		p := progress[def.ID]
		if p == nil || !p.Quiz.IsSubmitted || p.IsWorkSubmitted || len(def.Quiz) == 0 {
			continue
		}
		pct := p.Quiz.Score * 100 / len(def.Quiz)
		switch {
		case pct < encourageBelow:
			out = append(out, model.Notification{
				ID:        ident.Key("quiz-encourage", def.ID),
				Type:      model.NotifyInfo,
				Title:     "Courage !",
				Message:   fmt.Sprintf("Quiz <strong>%s</strong> : %d%%. Relisez le cours et refaites les exercices.", titleOf(def), pct),
				Timestamp: ts + priorityQuizFeedback,
			})
		case pct >= congratsFrom:
			out = append(out, model.Notification{
				ID:        ident.Key("quiz-congrats", def.ID),
				Type:      model.NotifySuccess,
				Title:     "Bravo !",
				Message:   fmt.Sprintf("Quiz <strong>%s</strong> : %d%%. Excellent travail.", titleOf(def), pct),
				Timestamp: ts + priorityQuizFeedback,
			})
		}
	}
	return out
}

// allQuizzesDone fires once every active, unfinalized chapter has a
// submitted quiz.
func allQuizzesDone(defs []*model.ChapterDefinition, progress model.ProgressStore, ts int64) []model.Notification {
	open := 0
	for _, def := range defs {
		if !def.IsActive {
			continue
		}
		p := progress[def.ID]
		if p != nil && p.IsWorkSubmitted {
			continue
		}
		if p == nil || !p.Quiz.IsSubmitted {
			return nil
		}
		open++
	}
	if open == 0 {
		return nil
	}
	return []model.Notification{{
		ID:        ident.Key("all-quizzes-done"),
		Type:      model.NotifySuccess,
		Title:     "Tous les quiz sont faits",
		Message:   "Vous avez soumis tous vos quiz. Pensez à envoyer votre travail.",
		Timestamp: ts + priorityAllQuizzes,
	}}
}

func milestones(defs []*model.ChapterDefinition, progress model.ProgressStore, ts int64) []model.Notification {
	done := 0
	for _, def := range defs {
		if p := progress[def.ID]; p != nil && p.IsWorkSubmitted {
			done++
		}
	}
	if done == 0 {
		return nil
	}
	n := min(done, maxMilestone)
	return []model.Notification{{
		ID:        ident.Key("milestone", fmt.Sprint(n)),
		Type:      model.NotifySuccess,
		Title:     "Nouvelle étape franchie",
		Message:   milestoneMessage(n),
		Timestamp: ts + priorityMilestone,
	}}
}

func milestoneMessage(n int) string {
	if n == 1 {
		return "Vous avez terminé votre premier chapitre !"
	}
	if n == maxMilestone {
		return fmt.Sprintf("Déjà %d chapitres terminés ou plus, continuez ainsi !", n)
	}
	return fmt.Sprintf("Déjà %d chapitres terminés !", n)
}

func nudges(defs []*model.ChapterDefinition, progress model.ProgressStore, ts int64) []model.Notification {
	var out []model.Notification
	for _, def := range defs {
		if !def.IsActive {
			continue
		}
		p := progress[def.ID]
		if p != nil && p.IsWorkSubmitted {
			continue
		}
		switch {
		case p == nil || !p.IsStarted():
			out = append(out, model.Notification{
				ID:        ident.Key("pending", def.ID),
				Type:      model.NotifyInfo,
				Title:     "Chapitre à commencer",
				Message:   fmt.Sprintf("Le chapitre <strong>%s</strong> vous attend.", titleOf(def)),
				Timestamp: ts + priorityNudge,
			})
		case !status.QuizComplete(p):
			out = append(out, model.Notification{
				ID:        ident.Key("incomplete", def.ID, "quiz"),
				Type:      model.NotifyWarning,
				Title:     "Chapitre en cours",
				Message:   fmt.Sprintf("Terminez le quiz du chapitre <strong>%s</strong>.", titleOf(def)),
				Timestamp: ts + priorityNudge,
			})
		case !status.ExercisesComplete(def, p):
			out = append(out, model.Notification{
				ID:        ident.Key("incomplete", def.ID, "exercises"),
				Type:      model.NotifyWarning,
				Title:     "Chapitre en cours",
				Message:   fmt.Sprintf("Évaluez les exercices du chapitre <strong>%s</strong>.", titleOf(def)),
				Timestamp: ts + priorityNudge,
			})
		}
	}
	return out
}

// welcome is keyed by the calendar day so it appears at most once a day.
func welcome(profile model.Profile, now time.Time) model.Notification {
	day := ident.StartOfDay(now)
	return model.Notification{
		ID:        ident.Key("welcome", ident.Millis(day)),
		Type:      model.NotifyInfo,
		Title:     "Bienvenue",
		Message:   fmt.Sprintf("Bonjour <strong>%s</strong>, bonne séance de travail !", profile.Name),
		Timestamp: day.UnixMilli() + priorityWelcome,
	}
}

func titleOf(def *model.ChapterDefinition) string {
	if def.Title != "" {
		return def.Title
	}
	return def.ID
}
