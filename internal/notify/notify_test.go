package notify

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pedago/internal/model"
)

var baseTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type memKV struct {
	data map[string]string
	gets int
	puts int
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key, value string) error {
	m.puts++
	m.data[key] = value
	return nil
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func chapter(id string, active bool, questions, exercises int) *model.ChapterDefinition {
	def := &model.ChapterDefinition{ID: id, Title: "Chapitre " + id, Version: "1", IsActive: active}
	for i := range questions {
		def.Quiz = append(def.Quiz, model.Question{ID: "q" + string(rune('1'+i))})
	}
	for i := range exercises {
		def.Exercises = append(def.Exercises, model.Exercise{ID: "e" + string(rune('1'+i))})
	}
	return def
}

func catalogOf(defs ...*model.ChapterDefinition) *model.Catalog {
	cat := &model.Catalog{ClassID: "tcs", Chapters: map[string]*model.ChapterDefinition{}}
	for _, d := range defs {
		cat.Order = append(cat.Order, d.ID)
		cat.Chapters[d.ID] = d
	}
	return cat
}

func ids(ns []model.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	sort.Strings(out)
	return out
}

var student = model.Profile{Name: "Amina", ClassID: "tcs"}

func TestGenerate_Rules(t *testing.T) {
	c1 := chapter("C1", true, 2, 1)
	c1.SessionDates = []time.Time{baseTime.Add(time.Hour), baseTime.Add(5 * time.Hour), baseTime.Add(-time.Hour)}
	c2 := chapter("C2", true, 2, 1)
	c3 := chapter("C3", true, 2, 1)
	c4 := chapter("C4", false, 2, 1)
	c4.SessionDates = []time.Time{baseTime.Add(time.Hour)}

	progress := model.ProgressStore{
		"C1": model.NewChapterProgress(c1),
		"C2": model.NewChapterProgress(c2),
		"C3": model.NewChapterProgress(c3),
	}
	progress["C2"].Quiz.Answers["q1"] = model.Choice("a")
	progress["C3"].Quiz.IsSubmitted = true
	progress["C3"].Quiz.Score = 2

	got := NewGenerator().Generate(Input{
		Profile:  student,
		Catalog:  catalogOf(c1, c2, c3, c4),
		Progress: progress,
		Pending:  []model.PendingSubmission{{Key: "pending_submission_1_C9", ChapterID: "C9"}},
		Now:      baseTime,
	})

	assert.Equal(t, []string{
		"incomplete:C2:quiz",
		"incomplete:C3:exercises",
		"pending-submission:pending_submission_1_C9",
		"pending:C1",
		"quiz-congrats:C3",
		"session:C1:" + ms(baseTime.Add(time.Hour)),
		"welcome:" + ms(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)),
	}, ids(got))
}

func ms(t time.Time) string {
	return itoa(t.UnixMilli())
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestGenerate_NothingWithoutProfile(t *testing.T) {
	got := NewGenerator().Generate(Input{Catalog: catalogOf(chapter("C1", true, 1, 0)), Now: baseTime})
	assert.Empty(t, got)
}

func TestGenerate_QuizFeedbackThresholds(t *testing.T) {
	tests := []struct {
		name   string
		score  int
		wantID string
	}{
		{"encourage below half", 2, "quiz-encourage:C1"},
		{"silent in between", 3, ""},
		{"congrats from eighty percent", 4, "quiz-congrats:C1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := chapter("C1", true, 5, 0)
			p := model.NewChapterProgress(def)
			p.Quiz.IsSubmitted = true
			p.Quiz.Score = tt.score

			got := quizFeedback([]*model.ChapterDefinition{def}, model.ProgressStore{"C1": p}, 0)
			if tt.wantID == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantID, got[0].ID)
		})
	}
}

func TestGenerate_QuizFeedbackSkipsFinalized(t *testing.T) {
	def := chapter("C1", true, 2, 0)
	p := model.NewChapterProgress(def)
	p.Quiz.IsSubmitted = true
	p.IsWorkSubmitted = true

	assert.Empty(t, quizFeedback([]*model.ChapterDefinition{def}, model.ProgressStore{"C1": p}, 0))
}

func TestGenerate_AllQuizzesDone(t *testing.T) {
	c1, c2, c3 := chapter("C1", true, 1, 0), chapter("C2", true, 1, 0), chapter("C3", false, 1, 0)
	progress := model.ProgressStore{
		"C1": model.NewChapterProgress(c1),
		"C2": model.NewChapterProgress(c2),
	}
	progress["C1"].Quiz.IsSubmitted = true
	defs := []*model.ChapterDefinition{c1, c2, c3}

	assert.Empty(t, allQuizzesDone(defs, progress, 0))

	progress["C2"].IsWorkSubmitted = true
	got := allQuizzesDone(defs, progress, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "all-quizzes-done", got[0].ID)

	progress["C1"].IsWorkSubmitted = true
	assert.Empty(t, allQuizzesDone(defs, progress, 0), "nothing left open")
}

func TestGenerate_MilestonesCapped(t *testing.T) {
	var defs []*model.ChapterDefinition
	progress := model.ProgressStore{}
	for _, id := range []string{"C1", "C2", "C3", "C4", "C5"} {
		def := chapter(id, true, 1, 0)
		defs = append(defs, def)
		progress[id] = model.NewChapterProgress(def)
	}
	assert.Empty(t, milestones(defs, progress, 0))

	want := []string{"milestone:1", "milestone:2", "milestone:3", "milestone:3", "milestone:3"}
	for i, def := range defs {
		progress[def.ID].IsWorkSubmitted = true
		got := milestones(defs, progress, 0)
		require.Len(t, got, 1)
		assert.Equal(t, want[i], got[0].ID)
	}
}

func TestGenerate_WelcomeOncePerDay(t *testing.T) {
	morning := welcome(student, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	evening := welcome(student, time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC))
	tomorrow := welcome(student, time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC))

	assert.Equal(t, morning.ID, evening.ID)
	assert.NotEqual(t, morning.ID, tomorrow.ID)
	assert.Contains(t, morning.Message, "Amina")
}

func TestNotifier_RefreshIsIdempotent(t *testing.T) {
	kv := newMemKV()
	clock := &testClock{t: baseTime}
	n := NewNotifier(NewLog(kv, WithNow(clock.Now)), nil)

	c1 := chapter("C1", true, 2, 1)
	in := Input{
		Profile:  student,
		Catalog:  catalogOf(c1),
		Progress: model.ProgressStore{"C1": model.NewChapterProgress(c1)},
		Now:      baseTime,
	}

	first, err := n.Refresh(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	blob := kv.data[LogKey]
	puts := kv.puts

	clock.Advance(10 * time.Minute)
	in.Now = clock.Now()
	second, err := n.Refresh(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, blob, kv.data[LogKey])
	assert.Equal(t, puts, kv.puts, "no write when nothing is new")
	assert.Equal(t, first, second)
}

func TestNotifier_RefreshSortedNewestFirst(t *testing.T) {
	kv := newMemKV()
	n := NewNotifier(NewLog(kv, WithNow(func() time.Time { return baseTime })), nil)
	c1 := chapter("C1", true, 2, 1)
	p := model.NewChapterProgress(c1)
	p.Quiz.IsSubmitted = true
	p.Quiz.Score = 2

	got, err := n.Refresh(context.Background(), Input{
		Profile:  student,
		Catalog:  catalogOf(c1),
		Progress: model.ProgressStore{"C1": p},
		Now:      baseTime,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Timestamp, got[i].Timestamp)
	}
	assert.Equal(t, "quiz-congrats:C1", got[0].ID)
	assert.Equal(t, "welcome:"+itoa(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli()), got[len(got)-1].ID)
}

func TestLog_MergeKeepsExistingEntries(t *testing.T) {
	kv := newMemKV()
	l := NewLog(kv, WithNow(func() time.Time { return baseTime }))
	ctx := context.Background()

	added, err := l.Merge(ctx, []model.Notification{{ID: "a", Title: "first", Timestamp: baseTime.UnixMilli()}})
	require.NoError(t, err)
	assert.Len(t, added, 1)

	added, err = l.Merge(ctx, []model.Notification{
		{ID: "a", Title: "rewritten", Timestamp: baseTime.UnixMilli()},
		{ID: "b", Timestamp: baseTime.UnixMilli()},
		{ID: "b", Timestamp: baseTime.UnixMilli()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(added))

	got, err := l.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	for _, n := range got {
		if n.ID == "a" {
			assert.Equal(t, "first", n.Title)
		}
	}
}

func TestLog_ExpiryOnReadOnly(t *testing.T) {
	kv := newMemKV()
	clock := &testClock{t: baseTime}
	l := NewLog(kv, WithNow(clock.Now), WithCacheTTL(0))
	ctx := context.Background()

	old := model.Notification{ID: "old", Timestamp: baseTime.Add(-8 * 24 * time.Hour).UnixMilli()}
	fresh := model.Notification{ID: "fresh", Timestamp: baseTime.Add(-time.Hour).UnixMilli()}
	_, err := l.Merge(ctx, []model.Notification{old, fresh})
	require.NoError(t, err)

	got, err := l.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(got))

	added, err := l.Merge(ctx, []model.Notification{old})
	require.NoError(t, err)
	assert.Empty(t, added, "expired ids stay known to the log")
	assert.Contains(t, kv.data[LogKey], `"old"`)
}

func TestLog_ReadCache(t *testing.T) {
	kv := newMemKV()
	clock := &testClock{t: baseTime}
	l := NewLog(kv, WithNow(clock.Now), WithCacheTTL(time.Minute))
	ctx := context.Background()

	_, err := l.Merge(ctx, []model.Notification{{ID: "a", Timestamp: baseTime.UnixMilli()}})
	require.NoError(t, err)
	kv.gets, l.parses = 0, 0

	_, err = l.Read(ctx)
	require.NoError(t, err)
	_, err = l.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, kv.gets, "second read served from cache")
	assert.Equal(t, 1, l.parses)

	clock.Advance(2 * time.Minute)
	_, err = l.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, kv.gets)
	assert.Equal(t, 1, l.parses, "unchanged blob is not parsed again")

	kv.data[LogKey] = `[{"id":"z","timestamp":` + itoa(clock.Now().UnixMilli()) + `}]`
	l.Invalidate()
	got, err := l.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, ids(got))
	assert.Equal(t, 2, l.parses)
}

func TestLog_CorruptBlobReadsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.data[LogKey] = "{not json"
	l := NewLog(kv, WithNow(func() time.Time { return baseTime }))

	got, err := l.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	added, err := l.Merge(context.Background(), []model.Notification{{ID: "a", Timestamp: baseTime.UnixMilli()}})
	require.NoError(t, err)
	assert.Len(t, added, 1)
}
