package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Answer
	}{
		{"choice", `"3/4"`, Choice("3/4")},
		{"order", `["s3","s1","s2"]`, Ordered("s3", "s1", "s2")},
		{"empty_order", `[]`, Ordered()},
		{"null", `null`, Answer{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Answer
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := json.Marshal(map[string]Answer{"q1": Choice("a")})
	require.NoError(t, err)

	var bad Answer
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestAnswerKinds(t *testing.T) {
	assert.True(t, Answer{}.IsZero())
	assert.True(t, Ordered().IsZero())
	assert.True(t, Ordered().IsOrder())
	assert.False(t, Choice("a").IsOrder())

	assert.False(t, Choice("a").Equal(Ordered("a")), "a choice never equals an ordering")
	assert.True(t, Ordered("x", "y").Equal(Ordered("x", "y")))
	assert.False(t, Ordered("x", "y").Equal(Ordered("y", "x")))

	orig := Ordered("x", "y")
	clone := orig.Clone()
	clone.Order[0] = "z"
	assert.Equal(t, "x", orig.Order[0])
}

func TestParseFeedback(t *testing.T) {
	for _, s := range []string{"facile", "moyen", "difficile", "tres-difficile"} {
		f, err := ParseFeedback(s)
		require.NoError(t, err, s)
		assert.Equal(t, Feedback(s), f)
	}

	_, err := ParseFeedback("Facile")
	assert.Error(t, err)
}

func TestNewChapterProgress(t *testing.T) {
	p := NewChapterProgress(&ChapterDefinition{ID: "C1"})
	assert.Equal(t, StatusUpcoming, p.Status)
	assert.NotNil(t, p.Quiz.Answers)
	assert.NotNil(t, p.ExercisesFeedback)
	assert.Nil(t, p.Videos, "no videos sub-record without videos")
	assert.False(t, p.IsStarted())

	withVideos := NewChapterProgress(&ChapterDefinition{ID: "C2", Videos: []Video{{ID: "v1"}}})
	require.NotNil(t, withVideos.Videos)
	assert.NotNil(t, withVideos.Videos.Watched)
}

func TestChapterProgressCloneIsDeep(t *testing.T) {
	p := NewChapterProgress(&ChapterDefinition{ID: "C1", Videos: []Video{{ID: "v1"}}})
	p.Quiz.Answers["q1"] = Ordered("a", "b")
	p.ExercisesFeedback["e1"] = FeedbackEasy
	p.Lesson = &LessonProgress{ScrollProgress: 40}

	c := p.Clone()
	c.Quiz.Answers["q1"].Order[0] = "z"
	c.ExercisesFeedback["e1"] = FeedbackHard
	c.Videos.Watched["v1"] = true
	c.Lesson.ScrollProgress = 90

	assert.Equal(t, "a", p.Quiz.Answers["q1"].Order[0])
	assert.Equal(t, FeedbackEasy, p.ExercisesFeedback["e1"])
	assert.False(t, p.Videos.Watched["v1"])
	assert.Equal(t, 40, p.Lesson.ScrollProgress)
	assert.True(t, p.IsStarted())
}

func TestAppStateNormalize(t *testing.T) {
	var st AppState
	require.NoError(t, json.Unmarshal([]byte(`{
		"profile": {"name": "Amina", "class_id": "tcs"},
		"progress": {"C1": {"status": "bogus"}, "C2": null}
	}`), &st))

	st.Normalize()
	assert.Equal(t, ViewDashboard, st.View.Name)
	assert.NotNil(t, st.ChapterOrder)
	assert.NotNil(t, st.Versions)
	require.Contains(t, st.Progress, "C1")
	assert.NotContains(t, st.Progress, "C2")
	assert.Empty(t, st.Progress["C1"].Status, "unknown status is cleared")
	assert.NotNil(t, st.Progress["C1"].Quiz.Answers)

	fresh := NewAppState()
	fresh.Normalize()
	assert.Equal(t, ViewLogin, fresh.View.Name)
}

func TestSortNotifications(t *testing.T) {
	ns := []Notification{
		{ID: "b", Timestamp: 10},
		{ID: "c", Timestamp: 30},
		{ID: "a", Timestamp: 10},
	}
	SortNotifications(ns)
	assert.Equal(t, []string{"c", "a", "b"}, []string{ns[0].ID, ns[1].ID, ns[2].ID})
}
