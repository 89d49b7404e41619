package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_CanonicalForm(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Seq: 1, Invoke: "sync", Case: CaseOK, Result: map[string]interface{}{
		"added":      []string{"C1"},
		"redirected": false,
	}})
	result.AddTrace(TraceEvent{Seq: 2, Invoke: "submit", Args: map[string]interface{}{"chapter": "C1"}, Case: CaseError, Error: "DELIVERY_FAILED: k"})

	got, err := Snapshot("canonical", result)
	require.NoError(t, err)

	want := `{"scenario_name":"canonical","trace":[` +
		`{"case":"ok","invoke":"sync","result":{"added":["C1"],"redirected":false},"seq":1},` +
		`{"args":{"chapter":"C1"},"case":"error","error":"DELIVERY_FAILED: k","invoke":"submit","seq":2}]}`
	assert.Equal(t, want, string(got))
}

func TestSnapshot_Deterministic(t *testing.T) {
	build := func() *Result {
		r := NewResult()
		r.AddTrace(TraceEvent{Seq: 1, Invoke: "lesson", Case: CaseOK, Args: map[string]interface{}{
			"chapter": "C1", "scroll": 80, "read": true, "paragraphs": 3,
		}})
		return r
	}

	first, err := Snapshot("det", build())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Snapshot("det", build())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestSnapshot_RejectsFloats(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Seq: 1, Invoke: "duration", Case: CaseOK, Args: map[string]interface{}{"seconds": 1.5}})

	_, err := Snapshot("floats", result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/catalog_outage.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
