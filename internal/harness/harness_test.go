package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pedago/internal/model"
)

func oneChapterCatalog() map[string]CatalogSpec {
	return map[string]CatalogSpec{
		"v1": {
			Class: "tcs",
			Chapters: []model.ChapterDefinition{{
				ID:       "C1",
				Title:    "Les fractions",
				Version:  "1",
				IsActive: true,
				Quiz: []model.Question{
					{ID: "q1", Type: model.QuestionMCQ, Options: []string{"a", "b"}, CorrectAnswer: "a"},
					{ID: "q2", Type: model.QuestionOrdering, Steps: []string{"x", "y", "z"}, CorrectOrder: []string{"z", "x", "y"}},
				},
			}},
		},
	}
}

func loggedIn() []FlowStep {
	return []FlowStep{
		{Invoke: "login", Args: map[string]interface{}{"student": "Amina", "class": "tcs"}},
		{Invoke: "publish", Args: map[string]interface{}{"catalog": "v1"}},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Catalogs:    oneChapterCatalog(),
		Setup:       loggedIn(),
		Flow:        []FlowStep{{Invoke: "sync"}},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Action: "sync"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, CaseOK, ev.Case)
	assert.Equal(t, []string{"C1"}, ev.Result["added"])
	assert.Equal(t, []interface{}{"new_chapter:C1"}, ev.Result["events"])
}

func TestRun_QuizWithOrderingAnswer(t *testing.T) {
	scenario := &Scenario{
		Name:        "ordering",
		Description: "Answers an ordering question and submits the quiz",
		Catalogs:    oneChapterCatalog(),
		Setup:       append(loggedIn(), FlowStep{Invoke: "sync"}),
		Flow: []FlowStep{
			{Invoke: "answer", Args: map[string]interface{}{"chapter": "C1", "question": "q1", "choice": "b"}},
			{Invoke: "answer", Args: map[string]interface{}{"chapter": "C1", "question": "q2", "order": []interface{}{"z", "x", "y"}}},
			{Invoke: "submit-quiz", Args: map[string]interface{}{"chapter": "C1"}, Expect: &ExpectClause{Case: CaseOK}},
		},
		Assertions: []Assertion{
			{
				Type:   AssertFinalState,
				Table:  TableProgress,
				Where:  map[string]interface{}{"chapter": "C1"},
				Expect: map[string]interface{}{"quiz.score": 1, "quiz.is_submitted": true},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_WithErrorExpect(t *testing.T) {
	scenario := &Scenario{
		Name:        "error_expect",
		Description: "Submitting an unanswered quiz is rejected",
		Catalogs:    oneChapterCatalog(),
		Setup:       append(loggedIn(), FlowStep{Invoke: "sync"}),
		Flow: []FlowStep{
			{
				Invoke: "submit-quiz",
				Args:   map[string]interface{}{"chapter": "C1"},
				Expect: &ExpectClause{Case: CaseError, Error: "unanswered"},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "submit-quiz", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, CaseError, result.Trace[0].Case)
	assert.Equal(t, "submit-quiz: quiz has unanswered questions", result.Trace[0].Error)
	assert.Nil(t, result.Trace[0].Result)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_mismatch",
		Description: "A step that succeeds against an error expectation",
		Catalogs:    oneChapterCatalog(),
		Setup:       loggedIn(),
		Flow: []FlowStep{
			{Invoke: "sync", Expect: &ExpectClause{Case: CaseError}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceContains, Action: "sync"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error, got ok")
}

func TestRun_ErrorTextMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "error_text_mismatch",
		Description: "The error does not mention the expected text",
		Catalogs:    oneChapterCatalog(),
		Setup:       []FlowStep{{Invoke: "login", Args: map[string]interface{}{"student": "Amina", "class": "tcs"}}},
		Flow: []FlowStep{
			{Invoke: "sync", Expect: &ExpectClause{Case: CaseError, Error: "timeout"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "sync", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `does not mention "timeout"`)
	assert.Equal(t, "CATALOG_UNAVAILABLE", result.Trace[0].Error)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "setup_failure",
		Description: "Setup sync without a published catalog",
		Catalogs:    oneChapterCatalog(),
		Setup: []FlowStep{
			{Invoke: "login", Args: map[string]interface{}{"student": "Amina", "class": "tcs"}},
			{Invoke: "sync"},
		},
		Flow:       []FlowStep{{Invoke: "dashboard"}},
		Assertions: []Assertion{{Type: AssertTraceContains, Action: "dashboard"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 1 (sync)")
}

func TestRun_InvalidScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "invalid",
		Description: "Unknown step",
		Flow:        []FlowStep{{Invoke: "teleport"}},
		Assertions:  []Assertion{{Type: AssertTraceContains, Action: "teleport"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown step "teleport"`)
}

func TestRun_FinalStateFailureReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "final_state_failure",
		Description: "Expects a status the chapter does not have",
		Catalogs:    oneChapterCatalog(),
		Setup:       loggedIn(),
		Flow:        []FlowStep{{Invoke: "sync"}},
		Assertions: []Assertion{
			{
				Type:   AssertFinalState,
				Table:  TableProgress,
				Where:  map[string]interface{}{"chapter": "C1"},
				Expect: map[string]interface{}{"status": "acheve"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "progress.status = acheve")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "deterministic",
		Description: "Same scenario, same trace",
		Catalogs:    oneChapterCatalog(),
		Setup:       append(loggedIn(), FlowStep{Invoke: "sync"}),
		Flow: []FlowStep{
			{Invoke: "answer", Args: map[string]interface{}{"chapter": "C1", "question": "q1", "choice": "a"}},
			{Invoke: "answer", Args: map[string]interface{}{"chapter": "C1", "question": "q2", "order": []interface{}{"x", "y", "z"}}},
			{Invoke: "submit-quiz", Args: map[string]interface{}{"chapter": "C1"}},
			{Invoke: "submit", Args: map[string]interface{}{"chapter": "C1"}},
			{Invoke: "notifications"},
		},
		Assertions: []Assertion{{Type: AssertTraceCount, Action: "submit", Count: 1}},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// Each run starts from an empty store and a fresh id sequence.
	assert.Equal(t, "doc-0001", first.Trace[3].Result["document"])
	assert.Equal(t, "doc-0001", second.Trace[3].Result["document"])
}

func TestRun_FinalStateCapture(t *testing.T) {
	scenario := &Scenario{
		Name:        "capture",
		Description: "Final state exposes session, progress and notifications",
		Catalogs:    oneChapterCatalog(),
		Setup:       loggedIn(),
		Flow: []FlowStep{
			{Invoke: "sync"},
			{Invoke: "start", Args: map[string]interface{}{"chapter": "C1"}},
		},
		Assertions: []Assertion{
			{
				Type:  AssertFinalState,
				Table: TableState,
				Expect: map[string]interface{}{
					"student":           "Amina",
					"view":              "chapter",
					"view_chapter":      "C1",
					"active_chapter_id": "C1",
					"chapter_order":     []interface{}{"C1"},
				},
			},
			{
				Type:   AssertFinalState,
				Table:  TableProgress,
				Where:  map[string]interface{}{"chapter": "C1"},
				Expect: map[string]interface{}{"status": "en-cours", "videos": nil},
			},
			{
				Type:   AssertFinalState,
				Table:  TableNotifications,
				Where:  map[string]interface{}{"id": "new-chapter:C1:1"},
				Expect: map[string]interface{}{"type": "info"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}
