package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/reconcile"
	"github.com/roach88/pedago/internal/status"
)

// Action is a state transition processed by the Run loop.
//
// apply mutates a private copy of the state; the engine installs the copy
// only when apply succeeds, so a rejected action changes nothing.
type Action interface {
	Name() string
	apply(st *model.AppState, env *env) error
}

// env is what an action may read besides the state. An action may replace
// the catalog.
type env struct {
	catalog *model.Catalog
	now     time.Time
}

// chapter resolves a chapter and its progress record, creating the record
// if the chapter was never synced into the store.
func (v *env) chapter(st *model.AppState, id string) (*model.ChapterDefinition, *model.ChapterProgress, error) {
	if st.Profile.IsZero() {
		return nil, nil, ErrNotLoggedIn
	}
	if v.catalog == nil {
		return nil, nil, ErrNoCatalog
	}
	def := v.catalog.Chapters[id]
	if def == nil {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownChapter, id)
	}
	p := st.Progress[id]
	if p == nil {
		p = model.NewChapterProgress(def)
		st.Progress[id] = p
	}
	return def, p, nil
}

// Login sets the student profile. Logging in as someone else, or into
// another class, starts from a clean state.
type Login struct {
	Student string
	ClassID string
}

func (Login) Name() string { return "login" }

func (a Login) apply(st *model.AppState, v *env) error {
	profile := model.Profile{Name: strings.TrimSpace(a.Student), ClassID: strings.TrimSpace(a.ClassID)}
	if profile.Name == "" || profile.ClassID == "" {
		return ErrInvalidProfile
	}
	if !st.Profile.IsZero() && st.Profile != profile {
		*st = *model.NewAppState()
		v.catalog = nil
	}
	if v.catalog != nil && v.catalog.ClassID != profile.ClassID {
		v.catalog = nil
	}
	st.Profile = profile
	st.View = model.View{Name: model.ViewDashboard}
	return nil
}

// Logout forgets the student and every piece of progress.
type Logout struct{}

func (Logout) Name() string { return "logout" }

func (Logout) apply(st *model.AppState, v *env) error {
	*st = *model.NewAppState()
	v.catalog = nil
	return nil
}

// StartChapter makes a chapter the active one. The previously active
// chapter falls back to a-venir unless it is already acheve.
type StartChapter struct {
	ChapterID string
}

func (StartChapter) Name() string { return "start-chapter" }

func (a StartChapter) apply(st *model.AppState, v *env) error {
	_, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if prev := st.ActiveChapterID; prev != "" && prev != a.ChapterID {
		if pp := st.Progress[prev]; pp != nil && pp.Status == model.StatusInProgress {
			pp.Status = model.StatusUpcoming
		}
	}
	if p.Status != model.StatusDone {
		p.Status = model.StatusInProgress
	}
	st.ActiveChapterID = a.ChapterID
	st.View = model.View{Name: model.ViewChapter, ChapterID: a.ChapterID}
	return nil
}

// OpenDashboard navigates back to the dashboard.
type OpenDashboard struct{}

func (OpenDashboard) Name() string { return "open-dashboard" }

func (OpenDashboard) apply(st *model.AppState, _ *env) error {
	if st.Profile.IsZero() {
		return ErrNotLoggedIn
	}
	st.View = model.View{Name: model.ViewDashboard}
	return nil
}

// AnswerQuestion records an answer. A zero answer clears it.
type AnswerQuestion struct {
	ChapterID  string
	QuestionID string
	Answer     model.Answer
}

func (AnswerQuestion) Name() string { return "answer-question" }

func (a AnswerQuestion) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if p.Quiz.IsSubmitted {
		return ErrQuizSubmitted
	}
	idx := questionIndex(def, a.QuestionID)
	if idx < 0 {
		return fmt.Errorf("%w %q", ErrUnknownQuestion, a.QuestionID)
	}

	if a.Answer.IsZero() {
		delete(p.Quiz.Answers, a.QuestionID)
	} else {
		if def.Quiz[idx].IsOrdering() != a.Answer.IsOrder() {
			return fmt.Errorf("%w: question %q", ErrInvalidAnswer, a.QuestionID)
		}
		p.Quiz.Answers[a.QuestionID] = a.Answer.Clone()
	}

	p.Quiz.AllAnswered = allAnswered(def, p)
	p.Quiz.CurrentQuestionIndex = min(idx+1, max(len(def.Quiz)-1, 0))
	return nil
}

// SubmitQuiz scores and locks the quiz.
type SubmitQuiz struct {
	ChapterID string
}

func (SubmitQuiz) Name() string { return "submit-quiz" }

func (a SubmitQuiz) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if p.Quiz.IsSubmitted {
		return ErrQuizSubmitted
	}
	if len(def.Quiz) > 0 && !allAnswered(def, p) {
		return ErrQuizIncomplete
	}
	p.Quiz.AllAnswered = true
	p.Quiz.IsSubmitted = true
	p.Quiz.Score = status.QuizScore(def, p)
	return nil
}

// UseHint counts a revealed hint.
type UseHint struct {
	ChapterID string
}

func (UseHint) Name() string { return "use-hint" }

func (a UseHint) apply(st *model.AppState, v *env) error {
	_, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	p.Quiz.HintsUsed++
	return nil
}

// Part names a timed part of a chapter.
type Part string

const (
	PartQuiz      Part = "quiz"
	PartExercises Part = "exercises"
	PartVideos    Part = "videos"
)

// AddDuration accumulates time spent on a part, in seconds.
type AddDuration struct {
	ChapterID string
	Part      Part
	Seconds   int
}

func (AddDuration) Name() string { return "add-duration" }

func (a AddDuration) apply(st *model.AppState, v *env) error {
	if a.Seconds <= 0 {
		return ErrInvalidDuration
	}
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	switch a.Part {
	case PartQuiz:
		p.Quiz.Duration += a.Seconds
	case PartExercises:
		p.ExercisesDuration += a.Seconds
	case PartVideos:
		if !def.HasVideos() {
			return fmt.Errorf("%w: videos", ErrNotApplicable)
		}
		ensureVideos(p).Duration += a.Seconds
	default:
		return fmt.Errorf("unknown part %q", a.Part)
	}
	return nil
}

// SetExerciseFeedback records the student's difficulty rating.
type SetExerciseFeedback struct {
	ChapterID  string
	ExerciseID string
	Feedback   model.Feedback
}

func (SetExerciseFeedback) Name() string { return "set-exercise-feedback" }

func (a SetExerciseFeedback) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if !def.ExerciseIDs()[a.ExerciseID] {
		return fmt.Errorf("%w %q", ErrUnknownExercise, a.ExerciseID)
	}
	fb, err := model.ParseFeedback(string(a.Feedback))
	if err != nil {
		return err
	}
	p.ExercisesFeedback[a.ExerciseID] = fb
	return nil
}

// MarkVideoWatched flags a video as watched.
type MarkVideoWatched struct {
	ChapterID string
	VideoID   string
}

func (MarkVideoWatched) Name() string { return "mark-video-watched" }

func (a MarkVideoWatched) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if !def.VideoIDs()[a.VideoID] {
		return fmt.Errorf("%w %q", ErrUnknownVideo, a.VideoID)
	}
	vp := ensureVideos(p)
	vp.Watched[a.VideoID] = true
	vp.AllWatched = true
	for _, video := range def.Videos {
		if !vp.Watched[video.ID] {
			vp.AllWatched = false
			break
		}
	}
	return nil
}

// UpdateLesson replaces the lesson reading progress. Zero totals default
// to the lesson's own shape; values are clamped to their ranges.
type UpdateLesson struct {
	ChapterID           string
	IsRead              bool
	ScrollProgress      int
	CompletedParagraphs int
	TotalParagraphs     int
	CompletedSections   int
	TotalSections       int
	ChecklistPercentage int
}

func (UpdateLesson) Name() string { return "update-lesson" }

func (a UpdateLesson) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	if !def.HasLesson() {
		return fmt.Errorf("%w: lesson", ErrNotApplicable)
	}
	l := model.LessonProgress{
		TotalParagraphs:     a.TotalParagraphs,
		TotalSections:       a.TotalSections,
		ScrollProgress:      clamp(a.ScrollProgress, 0, 100),
		ChecklistPercentage: clamp(a.ChecklistPercentage, 0, 100),
	}
	if l.TotalParagraphs <= 0 {
		l.TotalParagraphs = def.Lesson.Paragraphs
	}
	if l.TotalSections <= 0 {
		l.TotalSections = def.Lesson.Sections
	}
	l.CompletedParagraphs = clamp(a.CompletedParagraphs, 0, l.TotalParagraphs)
	l.CompletedSections = clamp(a.CompletedSections, 0, l.TotalSections)
	l.IsRead = a.IsRead || (p.Lesson != nil && p.Lesson.IsRead) || l.ChecklistPercentage >= 100
	p.Lesson = &l
	return nil
}

// MarkWorkSubmitted records a delivered submission of Version. The chapter
// becomes acheve when every applicable component is complete.
type MarkWorkSubmitted struct {
	ChapterID string
	Version   string
}

func (MarkWorkSubmitted) Name() string { return "mark-work-submitted" }

func (a MarkWorkSubmitted) apply(st *model.AppState, v *env) error {
	def, p, err := v.chapter(st, a.ChapterID)
	if err != nil {
		return err
	}
	p.IsWorkSubmitted = true
	p.SubmittedVersion = a.Version
	if p.SubmittedVersion == "" {
		p.SubmittedVersion = def.Version
	}
	p.HasUpdate = false
	if status.IsComplete(def, p) {
		p.Status = model.StatusDone
	}
	return nil
}

// ApplySync reconciles the state against a freshly fetched catalog and
// installs the result. Result is filled in once the action was applied.
type ApplySync struct {
	Catalog *model.Catalog
	Result  *reconcile.Result
}

func (*ApplySync) Name() string { return "apply-sync" }

func (a *ApplySync) apply(st *model.AppState, v *env) error {
	if st.Profile.IsZero() {
		return ErrNotLoggedIn
	}
	if a.Catalog == nil {
		return ErrNoCatalog
	}
	if a.Catalog.ClassID != "" && a.Catalog.ClassID != st.Profile.ClassID {
		return fmt.Errorf("%w: %q", ErrStaleCatalog, a.Catalog.ClassID)
	}

	viewChapter := ""
	if st.View.Name == model.ViewChapter {
		viewChapter = st.View.ChapterID
	}
	res, err := reconcile.Sync(reconcile.Input{
		Versions:        st.Versions,
		Progress:        st.Progress,
		Catalog:         a.Catalog,
		ActiveChapterID: st.ActiveChapterID,
		ViewChapterID:   viewChapter,
		Now:             v.now,
	})
	if err != nil {
		return err
	}

	st.Progress = res.Progress
	st.Versions = res.Versions
	st.ChapterOrder = res.Order
	st.ActiveChapterID = res.ActiveChapterID
	if res.Redirect {
		st.View = model.View{Name: model.ViewDashboard}
	}
	v.catalog = a.Catalog
	a.Result = res
	return nil
}

func questionIndex(def *model.ChapterDefinition, id string) int {
	for i, q := range def.Quiz {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func allAnswered(def *model.ChapterDefinition, p *model.ChapterProgress) bool {
	if len(def.Quiz) == 0 {
		return false
	}
	for _, q := range def.Quiz {
		if a, ok := p.Quiz.Answers[q.ID]; !ok || a.IsZero() {
			return false
		}
	}
	return true
}

func ensureVideos(p *model.ChapterProgress) *model.VideoProgress {
	if p.Videos == nil {
		p.Videos = &model.VideoProgress{Watched: map[string]bool{}}
	}
	return p.Videos
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
