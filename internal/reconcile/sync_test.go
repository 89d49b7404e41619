package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/testutil"
)

func submittedProgress(def *model.ChapterDefinition) *model.ChapterProgress {
	p := model.NewChapterProgress(def)
	for _, q := range def.Quiz {
		p.Quiz.Answers[q.ID] = model.Choice("a")
	}
	p.Quiz.AllAnswered = true
	p.Quiz.IsSubmitted = true
	p.Quiz.Score = len(def.Quiz)
	p.Quiz.CurrentQuestionIndex = len(def.Quiz) - 1
	p.IsWorkSubmitted = true
	p.SubmittedVersion = def.Version
	p.Status = model.StatusDone
	return p
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestSyncFirstSeen(t *testing.T) {
	cat := testutil.Catalog("tcs",
		testutil.Chapter("C1").Questions("q1").Build(),
		testutil.Chapter("C2").Questions("q1").Inactive().Build(),
		testutil.Chapter("C3").Videos("v1").Build(),
	)

	res, err := Sync(Input{Versions: model.VersionMap{}, Progress: model.ProgressStore{}, Catalog: cat, Now: testutil.Epoch})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1", "C2", "C3"}, res.Added)
	assert.Equal(t, []string{"C1", "C2", "C3"}, res.Order)
	assert.Equal(t, model.VersionMap{"C1": "1", "C2": "1", "C3": "1"}, res.Versions)
	assert.Equal(t, []EventKind{EventNewChapter, EventNewChapter}, kinds(res.Events), "inactive chapters are not announced")

	n := res.Events[0].Notification
	assert.Equal(t, "new-chapter:C1:1", n.ID)
	assert.Equal(t, model.NotifyInfo, n.Type)
	assert.Equal(t, testutil.Epoch.UnixMilli(), n.Timestamp)
	assert.Contains(t, n.Message, "<strong>Chapitre C1</strong>")

	assert.Equal(t, model.StatusUpcoming, res.Progress["C1"].Status)
	assert.Nil(t, res.Progress["C1"].Videos)
	require.NotNil(t, res.Progress["C3"].Videos)
	assert.Empty(t, res.Progress["C3"].Videos.Watched)
}

func TestSyncQuestionAddedAfterSubmission(t *testing.T) {
	v1 := testutil.Chapter("C1").Version("1").Questions("q1", "q2").Build()
	v2 := testutil.Catalog("tcs", testutil.Chapter("C1").Version("2").Questions("q1", "q2", "q3").Build())
	progress := model.ProgressStore{"C1": submittedProgress(v1)}

	res, err := Sync(Input{
		Versions: model.VersionMap{"C1": "1"},
		Progress: progress,
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C1"}, res.Updated)
	assert.Equal(t, []EventKind{EventContentUpdated, EventQuizIncomplete, EventResubmit}, kinds(res.Events))
	assert.Equal(t, 1, res.Events[1].Added)
	assert.Contains(t, res.Events[1].Notification.Message, "1 nouvelle question.")

	ids := make([]string, 0, len(res.Events))
	for _, n := range res.Notifications() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"content-updated:C1:2", "quiz-incomplete:C1:2", "resubmit:C1:2"}, ids)

	p := res.Progress["C1"]
	assert.Equal(t, map[string]model.Answer{"q1": model.Choice("a"), "q2": model.Choice("a")}, p.Quiz.Answers)
	assert.False(t, p.Quiz.AllAnswered)
	assert.False(t, p.Quiz.IsSubmitted)
	assert.Equal(t, 2, p.Quiz.CurrentQuestionIndex)
	assert.False(t, p.IsWorkSubmitted)
	assert.True(t, p.HasUpdate)
	assert.Equal(t, "1", p.SubmittedVersion)
	assert.Equal(t, model.StatusDone, p.Status)
	assert.Equal(t, "2", res.Versions["C1"])

	// The input is never mutated.
	assert.True(t, progress["C1"].Quiz.IsSubmitted)
	assert.True(t, progress["C1"].IsWorkSubmitted)
}

func TestSyncIsIdempotent(t *testing.T) {
	v1 := testutil.Chapter("C1").Version("1").Questions("q1", "q2").Build()
	v2 := testutil.Catalog("tcs", testutil.Chapter("C1").Version("2").Questions("q1", "q2", "q3").Build())

	first, err := Sync(Input{
		Versions: model.VersionMap{"C1": "1"},
		Progress: model.ProgressStore{"C1": submittedProgress(v1)},
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)

	second, err := Sync(Input{
		Versions: first.Versions,
		Progress: first.Progress,
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)

	assert.Empty(t, second.Events)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Updated)
	assert.Equal(t, first.Progress, second.Progress)
	assert.Equal(t, first.Versions, second.Versions)
}

func TestSyncInvalidatesRemovedContent(t *testing.T) {
	v1 := testutil.Chapter("C1").Questions("q1", "q2").Exercises("e1", "e2").Videos("v1", "v2").Build()
	p := model.NewChapterProgress(v1)
	p.Quiz.Answers["q1"] = model.Choice("a")
	p.Quiz.Answers["q2"] = model.Choice("b")
	p.Quiz.AllAnswered = true
	p.Quiz.CurrentQuestionIndex = 1
	p.ExercisesFeedback["e1"] = model.FeedbackEasy
	p.ExercisesFeedback["e2"] = model.FeedbackHard
	p.Videos.Watched["v1"] = true

	v2 := testutil.Catalog("tcs", testutil.Chapter("C1").Version("2").Questions("q1").Exercises("e1").Videos("v1").Build())
	res, err := Sync(Input{
		Versions: model.VersionMap{"C1": "1"},
		Progress: model.ProgressStore{"C1": p},
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)

	got := res.Progress["C1"]
	assert.Equal(t, map[string]model.Answer{"q1": model.Choice("a")}, got.Quiz.Answers)
	assert.True(t, got.Quiz.AllAnswered)
	assert.Equal(t, 0, got.Quiz.CurrentQuestionIndex, "index clamped into the new quiz")
	assert.Equal(t, map[string]model.Feedback{"e1": model.FeedbackEasy}, got.ExercisesFeedback)
	assert.True(t, got.Videos.AllWatched, "only remaining video was watched")
	assert.Equal(t, []EventKind{EventContentUpdated}, kinds(res.Events), "unsubmitted work raises no resubmit")
}

func TestSyncVideosAppearOnUpdate(t *testing.T) {
	v1 := testutil.Chapter("C1").Questions("q1").Build()
	p := model.NewChapterProgress(v1)
	require.Nil(t, p.Videos)

	v2 := testutil.Catalog("tcs", testutil.Chapter("C1").Version("2").Questions("q1").Videos("v1").Build())
	res, err := Sync(Input{
		Versions: model.VersionMap{"C1": "1"},
		Progress: model.ProgressStore{"C1": p},
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Progress["C1"].Videos)
	assert.False(t, res.Progress["C1"].Videos.AllWatched)
}

func TestSyncQuizlessChapterStaysSubmitted(t *testing.T) {
	v1 := testutil.Chapter("C1").Exercises("e1").Build()
	p := model.NewChapterProgress(v1)
	p.Quiz.IsSubmitted = true
	p.Quiz.AllAnswered = true
	p.ExercisesFeedback["e1"] = model.FeedbackEasy
	p.IsWorkSubmitted = true
	p.SubmittedVersion = "1"

	v2 := testutil.Catalog("tcs", testutil.Chapter("C1").Version("2").Exercises("e1", "e2").Build())
	res, err := Sync(Input{
		Versions: model.VersionMap{"C1": "1"},
		Progress: model.ProgressStore{"C1": p},
		Catalog:  v2,
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)

	got := res.Progress["C1"]
	assert.True(t, got.Quiz.IsSubmitted, "no question was added")
	assert.True(t, got.Quiz.AllAnswered)
	assert.Equal(t, 0, got.Quiz.CurrentQuestionIndex)
	assert.True(t, got.HasUpdate)
	assert.Equal(t, []EventKind{EventContentUpdated, EventResubmit}, kinds(res.Events))
}

func TestSyncRemovedChapters(t *testing.T) {
	c1 := testutil.Chapter("C1").Questions("q1").Build()
	c2 := testutil.Chapter("C2").Questions("q1").Build()
	progress := model.ProgressStore{"C1": model.NewChapterProgress(c1), "C2": model.NewChapterProgress(c2)}
	progress["C2"].Quiz.Answers["q1"] = model.Choice("a")

	res, err := Sync(Input{
		Versions:        model.VersionMap{"C1": "1", "C2": "1", "C3": "1"},
		Progress:        progress,
		Catalog:         testutil.Catalog("tcs", c1),
		ActiveChapterID: "C2",
		ViewChapterID:   "C2",
		Now:             testutil.Epoch,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C2", "C3"}, res.Removed)
	assert.Equal(t, model.VersionMap{"C1": "1"}, res.Versions)
	assert.Contains(t, res.Progress, "C2", "progress survives removal")
	assert.Empty(t, res.ActiveChapterID)
	assert.True(t, res.Redirect)
	assert.Empty(t, res.Events)
}

func TestSyncKeepsViewOfExistingChapter(t *testing.T) {
	c1 := testutil.Chapter("C1").Questions("q1").Build()
	res, err := Sync(Input{
		Versions:        model.VersionMap{"C1": "1"},
		Progress:        model.ProgressStore{"C1": model.NewChapterProgress(c1)},
		Catalog:         testutil.Catalog("tcs", c1),
		ActiveChapterID: "C1",
		ViewChapterID:   "C1",
		Now:             testutil.Epoch,
	})
	require.NoError(t, err)
	assert.False(t, res.Redirect)
	assert.Equal(t, "C1", res.ActiveChapterID)
}

func TestSyncStatusIsNeverDowngraded(t *testing.T) {
	def := testutil.Chapter("C1").Questions("q1").Build()
	done := submittedProgress(def)

	legacy := submittedProgress(def)
	legacy.Status = ""

	active := model.NewChapterProgress(def)
	active.Status = ""

	cat := testutil.Catalog("tcs", def,
		testutil.Chapter("C2").Questions("q1").Build(),
		testutil.Chapter("C3").Questions("q1").Build(),
	)
	res, err := Sync(Input{
		Versions:        model.VersionMap{"C1": "1", "C2": "1", "C3": "1"},
		Progress:        model.ProgressStore{"C1": done, "C2": legacy, "C3": active},
		Catalog:         cat,
		ActiveChapterID: "C3",
		Now:             testutil.Epoch,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusDone, res.Progress["C1"].Status)
	assert.Equal(t, model.StatusDone, res.Progress["C2"].Status, "derived for a record without status")
	assert.Equal(t, model.StatusInProgress, res.Progress["C3"].Status)
}

func TestSyncStartedChapterIsNotAnnouncedAsNew(t *testing.T) {
	def := testutil.Chapter("C1").Questions("q1").Build()
	p := model.NewChapterProgress(def)
	p.Quiz.Answers["q1"] = model.Choice("a")

	res, err := Sync(Input{
		Versions: model.VersionMap{},
		Progress: model.ProgressStore{"C1": p},
		Catalog:  testutil.Catalog("tcs", def),
		Now:      testutil.Epoch,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Added)
}

func TestSyncOrderAppendsUnlistedChapters(t *testing.T) {
	cat := testutil.Catalog("tcs", testutil.Chapter("C2").Build(), testutil.Chapter("C1").Build())
	cat.Chapters["A0"] = testutil.Chapter("A0").Build()
	cat.Order = append(cat.Order, "C2")

	res, err := Sync(Input{Catalog: cat, Now: testutil.Epoch})
	require.NoError(t, err)
	assert.Equal(t, []string{"C2", "C1", "A0"}, res.Order)
}

func TestSyncRequiresCatalog(t *testing.T) {
	_, err := Sync(Input{})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestNewQuestionsLabel(t *testing.T) {
	assert.Equal(t, "1 nouvelle question", NewQuestionsLabel(1))
	assert.Equal(t, "3 nouvelles questions", NewQuestionsLabel(3))
}
