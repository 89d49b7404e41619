package model

import (
	"fmt"
	"maps"
)

// Status is the lifecycle status of a chapter for the student.
type Status string

const (
	StatusUpcoming   Status = "a-venir"
	StatusInProgress Status = "en-cours"
	StatusDone       Status = "acheve"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Feedback is the student's self-assessed difficulty for an exercise.
type Feedback string

const (
	FeedbackEasy     Feedback = "facile"
	FeedbackMedium   Feedback = "moyen"
	FeedbackHard     Feedback = "difficile"
	FeedbackVeryHard Feedback = "tres-difficile"
)

// ParseFeedback validates a feedback value.
func ParseFeedback(s string) (Feedback, error) {
	switch f := Feedback(s); f {
	case FeedbackEasy, FeedbackMedium, FeedbackHard, FeedbackVeryHard:
		return f, nil
	}
	return "", fmt.Errorf("unknown feedback %q", s)
}

// QuizProgress holds the quiz state of a chapter.
type QuizProgress struct {
	Answers              map[string]Answer `json:"answers"`
	IsSubmitted          bool              `json:"is_submitted"`
	Score                int               `json:"score"`
	AllAnswered          bool              `json:"all_answered"`
	CurrentQuestionIndex int               `json:"current_question_index"`
	Duration             int               `json:"duration"`
	HintsUsed            int               `json:"hints_used"`
}

// AnsweredCount returns the number of non-empty answers.
func (q QuizProgress) AnsweredCount() int {
	n := 0
	for _, a := range q.Answers {
		if !a.IsZero() {
			n++
		}
	}
	return n
}

// VideoProgress holds watched flags for the chapter's videos.
type VideoProgress struct {
	Watched    map[string]bool `json:"watched"`
	AllWatched bool            `json:"all_watched"`
	Duration   int             `json:"duration"`
}

// LessonProgress holds reading progress for the chapter's lesson.
type LessonProgress struct {
	IsRead              bool `json:"is_read"`
	ScrollProgress      int  `json:"scroll_progress"`
	CompletedParagraphs int  `json:"completed_paragraphs"`
	TotalParagraphs     int  `json:"total_paragraphs"`
	CompletedSections   int  `json:"completed_sections"`
	TotalSections       int  `json:"total_sections"`
	ChecklistPercentage int  `json:"checklist_percentage"`
}

// ChapterProgress is the persisted per-chapter student state.
type ChapterProgress struct {
	Quiz              QuizProgress        `json:"quiz"`
	ExercisesFeedback map[string]Feedback `json:"exercises_feedback"`
	ExercisesDuration int                 `json:"exercises_duration"`
	Videos            *VideoProgress      `json:"videos,omitempty"`
	Lesson            *LessonProgress     `json:"lesson,omitempty"`
	IsWorkSubmitted   bool                `json:"is_work_submitted"`
	SubmittedVersion  string              `json:"submitted_version,omitempty"`
	HasUpdate         bool                `json:"has_update"`
	Status            Status              `json:"status,omitempty"`
}

// NewChapterProgress returns the zeroed progress record for a chapter seen
// for the first time. The videos sub-record exists only when the
// definition has videos.
func NewChapterProgress(def *ChapterDefinition) *ChapterProgress {
	p := &ChapterProgress{
		Quiz:              QuizProgress{Answers: map[string]Answer{}},
		ExercisesFeedback: map[string]Feedback{},
		Status:            StatusUpcoming,
	}
	if def.HasVideos() {
		p.Videos = &VideoProgress{Watched: map[string]bool{}}
	}
	return p
}

// IsStarted reports whether the student did anything gradable.
func (p *ChapterProgress) IsStarted() bool {
	return p.Quiz.AnsweredCount() > 0 || len(p.ExercisesFeedback) > 0 || p.Quiz.IsSubmitted || p.IsWorkSubmitted
}

// Clone returns a deep copy of the progress record.
func (p *ChapterProgress) Clone() *ChapterProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.Quiz.Answers = make(map[string]Answer, len(p.Quiz.Answers))
	for id, a := range p.Quiz.Answers {
		c.Quiz.Answers[id] = a.Clone()
	}
	c.ExercisesFeedback = maps.Clone(p.ExercisesFeedback)
	if c.ExercisesFeedback == nil {
		c.ExercisesFeedback = map[string]Feedback{}
	}
	if p.Videos != nil {
		v := *p.Videos
		v.Watched = maps.Clone(p.Videos.Watched)
		if v.Watched == nil {
			v.Watched = map[string]bool{}
		}
		c.Videos = &v
	}
	if p.Lesson != nil {
		l := *p.Lesson
		c.Lesson = &l
	}
	return &c
}

// ensureMaps replaces nil maps decoded from older blobs.
func (p *ChapterProgress) ensureMaps() {
	if p.Quiz.Answers == nil {
		p.Quiz.Answers = map[string]Answer{}
	}
	if p.ExercisesFeedback == nil {
		p.ExercisesFeedback = map[string]Feedback{}
	}
	if p.Videos != nil && p.Videos.Watched == nil {
		p.Videos.Watched = map[string]bool{}
	}
}

// ProgressStore maps chapter ids to progress records.
type ProgressStore map[string]*ChapterProgress

// Clone returns a deep copy of the store.
func (s ProgressStore) Clone() ProgressStore {
	out := make(ProgressStore, len(s))
	for id, p := range s {
		out[id] = p.Clone()
	}
	return out
}

// VersionMap maps chapter ids to the last observed version stamp.
type VersionMap map[string]string

// Clone returns a copy of the version map.
func (v VersionMap) Clone() VersionMap {
	out := maps.Clone(v)
	if out == nil {
		out = VersionMap{}
	}
	return out
}
