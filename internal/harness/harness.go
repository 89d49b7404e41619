package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/notify"
	"github.com/roach88/pedago/internal/store"
	"github.com/roach88/pedago/internal/submit"
	"github.com/roach88/pedago/internal/testutil"
)

// Harness drives a real engine through a scenario.
// Every run gets a fresh in-memory store, a fixed clock starting at
// testutil.Epoch and sequential document ids, so the same scenario always
// produces the same trace.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *engine.Engine
	clock    *testutil.FixedClock
	loader   *testutil.StaticLoader
	sink     *switchSink
	seq      int64
}

// switchSink accepts documents unless the network is down.
type switchSink struct {
	down      bool
	delivered []string
}

func (s *switchSink) Deliver(_ context.Context, doc *submit.Document) error {
	if s.down {
		return errors.New("submission endpoint unreachable")
	}
	s.delivered = append(s.delivered, doc.ID)
	return nil
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Create fresh in-memory database and start the engine
// 2. Execute setup steps (must succeed)
// 3. Execute flow steps with expect validation
// 4. Capture final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	clock := testutil.NewFixedClock(testutil.Epoch)
	st, err := store.Open(":memory:", store.WithNow(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    clock,
		loader:   &testutil.StaticLoader{Err: errors.New("no catalog published")},
		sink:     &switchSink{},
	}
	pipeline := submit.NewPipeline(st, h.sink, submit.Options{
		MaxAttempts:    2,
		AttemptTimeout: time.Second,
		InitialBackoff: time.Millisecond,
	}, submit.WithNow(clock.Now), submit.WithIDGenerator(submit.NewSequenceGenerator("doc")))
	h.engine = engine.New(st, h.loader, engine.WithClock(clock), engine.WithPipeline(pipeline))

	ctx := context.Background()
	if err := h.engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load engine: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.engine.Run(ctx)
	}()
	defer func() {
		h.engine.Stop()
		<-done
	}()

	for i, step := range scenario.Setup {
		if _, err := steps[step.Invoke](ctx, h, step.Args); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Invoke, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		h.seq++
		out, err := steps[step.Invoke](ctx, h, step.Args)
		ev := TraceEvent{Seq: h.seq, Invoke: step.Invoke, Args: step.Args, Case: CaseOK, Result: out}
		if err != nil {
			ev.Case = CaseError
			ev.Error = errorText(err)
			ev.Result = nil
		}
		result.AddTrace(ev)
		if msg := checkExpect(i, step, err); msg != "" {
			result.AddError(msg)
		}
	}

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// errorText keeps typed failures short; their wrapped causes depend on
// retry internals.
func errorText(err error) string {
	var de *submit.DeliveryError
	if errors.As(err, &de) {
		return fmt.Sprintf("%s: %s", de.Code, de.Key)
	}
	var se *engine.SyncError
	if errors.As(err, &se) {
		return string(se.Code)
	}
	return err.Error()
}

func checkExpect(i int, step FlowStep, err error) string {
	if step.Expect == nil {
		return ""
	}
	switch step.Expect.Case {
	case CaseOK:
		if err != nil {
			return fmt.Sprintf("flow[%d] %s: expected ok, got error: %v", i, step.Invoke, err)
		}
	case CaseError:
		if err == nil {
			return fmt.Sprintf("flow[%d] %s: expected error, got ok", i, step.Invoke)
		}
		if step.Expect.Error != "" && !containsText(err, step.Expect.Error) {
			return fmt.Sprintf("flow[%d] %s: error %q does not mention %q", i, step.Invoke, err, step.Expect.Error)
		}
	}
	return ""
}

func containsText(err error, text string) bool {
	return strings.Contains(err.Error(), text)
}

// captureState flattens the final state into plain records.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	snap, err := h.engine.Snapshot(ctx)
	if err != nil {
		return err
	}

	state, err := plain(map[string]any{
		"student":           snap.State.Profile.Name,
		"class":             snap.State.Profile.ClassID,
		"view":              string(snap.State.View.Name),
		"view_chapter":      snap.State.View.ChapterID,
		"active_chapter_id": snap.State.ActiveChapterID,
		"chapter_order":     snap.State.ChapterOrder,
		"versions":          snap.State.Versions,
	})
	if err != nil {
		return err
	}
	result.State[TableState] = map[string]map[string]interface{}{"": state}

	progress := make(map[string]map[string]interface{}, len(snap.State.Progress))
	for id, p := range snap.State.Progress {
		rec, err := plain(p)
		if err != nil {
			return fmt.Errorf("progress %s: %w", id, err)
		}
		progress[id] = rec
	}
	result.State[TableProgress] = progress

	entries, err := notify.NewLog(h.store, notify.WithNow(h.clock.Now), notify.WithCacheTTL(0)).Read(ctx)
	if err != nil {
		return err
	}
	notes := make(map[string]map[string]interface{}, len(entries))
	for _, n := range entries {
		rec, err := plain(n)
		if err != nil {
			return fmt.Errorf("notification %s: %w", n.ID, err)
		}
		notes[n.ID] = rec
	}
	result.State[TableNotifications] = notes
	return nil
}

// plain converts v to the generic shape YAML scenario values decode to,
// so expectations compare with reflect.DeepEqual. JSON is valid YAML.
func plain(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pendingKeys lists pending submission keys in creation order.
func (h *Harness) pendingKeys(ctx context.Context) ([]string, error) {
	pending, err := h.engine.Pending(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(pending))
	for _, p := range pending {
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// answerArg builds an answer from "choice" or "order"; neither clears.
func answerArg(args map[string]interface{}) (model.Answer, error) {
	if c, ok := args["choice"]; ok {
		s, ok := c.(string)
		if !ok {
			return model.Answer{}, fmt.Errorf("choice must be a string")
		}
		return model.Choice(s), nil
	}
	if o, ok := args["order"]; ok {
		list, ok := o.([]interface{})
		if !ok {
			return model.Answer{}, fmt.Errorf("order must be a list")
		}
		steps := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return model.Answer{}, fmt.Errorf("order items must be strings")
			}
			steps = append(steps, s)
		}
		return model.Ordered(steps...), nil
	}
	return model.Answer{}, nil
}
