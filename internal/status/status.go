// Package status derives chapter completion and lifecycle status.
//
// Every function here is pure and read-only over a (definition, progress)
// pair. A component is "applicable" when the definition carries it: the
// quiz and the exercises always apply, the lesson and the videos only when
// the definition has them. Absent resources impose no constraint.
package status

import (
	"math"
	"strings"

	"github.com/roach88/pedago/internal/model"
)

// QuizComplete reports whether the quiz was submitted.
func QuizComplete(p *model.ChapterProgress) bool {
	return p != nil && p.Quiz.IsSubmitted
}

// ExercisesComplete reports whether every exercise of def has feedback.
func ExercisesComplete(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if !def.HasExercises() {
		return true
	}
	if p == nil {
		return false
	}
	for _, ex := range def.Exercises {
		if _, ok := p.ExercisesFeedback[ex.ID]; !ok {
			return false
		}
	}
	return true
}

// LessonComplete reports whether the lesson is done. A chapter without a
// lesson is trivially complete on this component. Once a lesson record
// exists, a lesson counting no paragraphs is complete.
func LessonComplete(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if !def.HasLesson() {
		return true
	}
	if p == nil || p.Lesson == nil {
		return false
	}
	l := p.Lesson
	if l.ChecklistPercentage >= 100 {
		return true
	}
	return l.CompletedParagraphs >= l.TotalParagraphs
}

// VideosComplete reports whether every video was watched.
func VideosComplete(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if !def.HasVideos() {
		return true
	}
	return p != nil && p.Videos != nil && p.Videos.AllWatched
}

// IsComplete is the conjunction of every applicable component.
func IsComplete(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if def == nil || p == nil {
		return false
	}
	return QuizComplete(p) &&
		ExercisesComplete(def, p) &&
		LessonComplete(def, p) &&
		VideosComplete(def, p)
}

// QuizPercent is 100 once submitted, answered/total otherwise.
func QuizPercent(def *model.ChapterDefinition, p *model.ChapterProgress) float64 {
	if p == nil {
		return 0
	}
	if p.Quiz.IsSubmitted {
		return 100
	}
	total := len(def.Quiz)
	if total == 0 {
		return 0
	}
	answered := 0
	for _, q := range def.Quiz {
		if a, ok := p.Quiz.Answers[q.ID]; ok && !a.IsZero() {
			answered++
		}
	}
	return float64(answered) * 100 / float64(total)
}

// ExercisesPercent is 100 for a chapter without exercises.
func ExercisesPercent(def *model.ChapterDefinition, p *model.ChapterProgress) float64 {
	total := len(def.Exercises)
	if total == 0 {
		return 100
	}
	if p == nil {
		return 0
	}
	done := 0
	for _, ex := range def.Exercises {
		if _, ok := p.ExercisesFeedback[ex.ID]; ok {
			done++
		}
	}
	return float64(done) * 100 / float64(total)
}

// LessonPercent reports the best of checklist and paragraph progress.
func LessonPercent(def *model.ChapterDefinition, p *model.ChapterProgress) float64 {
	if LessonComplete(def, p) {
		return 100
	}
	if p == nil || p.Lesson == nil {
		return 0
	}
	l := p.Lesson
	pct := float64(l.ChecklistPercentage)
	if l.TotalParagraphs > 0 {
		pct = math.Max(pct, float64(l.CompletedParagraphs)*100/float64(l.TotalParagraphs))
	}
	return pct
}

// VideosPercent reports the share of the definition's videos watched.
func VideosPercent(def *model.ChapterDefinition, p *model.ChapterProgress) float64 {
	total := len(def.Videos)
	if total == 0 {
		return 100
	}
	if p == nil || p.Videos == nil {
		return 0
	}
	if p.Videos.AllWatched {
		return 100
	}
	watched := 0
	for _, v := range def.Videos {
		if p.Videos.Watched[v.ID] {
			watched++
		}
	}
	return float64(watched) * 100 / float64(total)
}

// OverallProgressPercent is the unweighted mean of the applicable
// components, clamped to [0,100] and rounded to the nearest integer.
func OverallProgressPercent(def *model.ChapterDefinition, p *model.ChapterProgress) int {
	if def == nil {
		return 0
	}
	parts := []float64{QuizPercent(def, p), ExercisesPercent(def, p)}
	if def.HasLesson() {
		parts = append(parts, LessonPercent(def, p))
	}
	if def.HasVideos() {
		parts = append(parts, VideosPercent(def, p))
	}
	var sum float64
	for _, v := range parts {
		sum += v
	}
	mean := sum / float64(len(parts))
	return int(math.Round(math.Min(100, math.Max(0, mean))))
}

// InitialStatus derives a status for a record that has none stored yet.
// It must never be used to overwrite an existing status.
func InitialStatus(def *model.ChapterDefinition, p *model.ChapterProgress, isActive bool) model.Status {
	if p != nil && p.IsWorkSubmitted && IsComplete(def, p) {
		return model.StatusDone
	}
	if isActive {
		return model.StatusInProgress
	}
	return model.StatusUpcoming
}

// IsOutdated reports whether a recorded submission no longer matches the
// current content version.
func IsOutdated(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if def == nil || p == nil || !p.IsWorkSubmitted && p.SubmittedVersion == "" {
		return false
	}
	return p.HasUpdate || p.SubmittedVersion != def.Version
}

// CanSubmitWork gates work submission: the quiz is submitted, every
// exercise is evaluated, and the chapter was either never submitted or its
// submission is stale. Lesson and videos are advisory only.
func CanSubmitWork(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if def == nil || p == nil {
		return false
	}
	if !QuizComplete(p) || !ExercisesComplete(def, p) {
		return false
	}
	return !p.IsWorkSubmitted || IsOutdated(def, p)
}

// Summary is a read model of one chapter for dashboards.
type Summary struct {
	ChapterID     string       `json:"chapter_id"`
	Title         string       `json:"title"`
	Version       string       `json:"version"`
	IsActive      bool         `json:"is_active"`
	Status        model.Status `json:"status"`
	Percent       int          `json:"percent"`
	Complete      bool         `json:"complete"`
	CanSubmit     bool         `json:"can_submit"`
	Outdated      bool         `json:"outdated"`
	WorkSubmitted bool         `json:"work_submitted"`
}

// Summarize computes the read model of a chapter.
func Summarize(def *model.ChapterDefinition, p *model.ChapterProgress) Summary {
	s := Summary{
		ChapterID: def.ID,
		Title:     def.Title,
		Version:   def.Version,
		IsActive:  def.IsActive,
		Status:    model.StatusUpcoming,
		Percent:   OverallProgressPercent(def, p),
		Complete:  IsComplete(def, p),
		CanSubmit: CanSubmitWork(def, p),
		Outdated:  IsOutdated(def, p),
	}
	if p != nil {
		if p.Status != "" {
			s.Status = p.Status
		}
		s.WorkSubmitted = p.IsWorkSubmitted
	}
	return s
}

// QuizScore counts the correct answers. Questions without a reference
// answer never score.
func QuizScore(def *model.ChapterDefinition, p *model.ChapterProgress) int {
	if def == nil || p == nil {
		return 0
	}
	score := 0
	for _, q := range def.Quiz {
		a, ok := p.Quiz.Answers[q.ID]
		if !ok || a.IsZero() {
			continue
		}
		if q.IsOrdering() {
			if len(q.CorrectOrder) > 0 && a.Equal(model.Ordered(q.CorrectOrder...)) {
				score++
			}
			continue
		}
		if q.CorrectAnswer != "" && strings.TrimSpace(a.Choice) == strings.TrimSpace(q.CorrectAnswer) {
			score++
		}
	}
	return score
}
