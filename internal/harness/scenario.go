package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pedago/internal/catalog"
	"github.com/roach88/pedago/internal/model"
)

// Scenario is a scripted student session replayed against a real engine.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalogs holds named catalog revisions. A publish step makes one of
	// them the catalog the next sync fetches.
	Catalogs map[string]CatalogSpec `yaml:"catalogs"`

	// Setup steps run before the flow and must succeed. They are not
	// traced.
	Setup []FlowStep `yaml:"setup,omitempty"`

	// Flow contains the traced steps.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// CatalogSpec is one revision of a class's chapters, listed in order.
type CatalogSpec struct {
	Class    string                    `yaml:"class"`
	Chapters []model.ChapterDefinition `yaml:"chapters"`
}

// FlowStep represents a step in the test flow.
type FlowStep struct {
	// Invoke names the step (login, sync, answer, submit...).
	Invoke string `yaml:"invoke"`

	// Args contains the step arguments.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is "ok" or "error".
	Case string `yaml:"case"`

	// Error is a substring the error message must contain.
	Error string `yaml:"error,omitempty"`
}

// Step outcome cases.
const (
	CaseOK    = "ok"
	CaseError = "error"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step with these args ran
	// - "trace_order": steps ran in this order
	// - "trace_count": a step ran exactly N times
	// - "final_state": a final record has these fields
	Type string `yaml:"type"`

	// Action is the step name (used by trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected step arguments (used by trace_contains).
	// Subset match - only specified fields are validated.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Table is the final state table (used by final_state): state,
	// progress or notifications.
	Table string `yaml:"table,omitempty"`

	// Where selects the record (used by final_state).
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected step order (used by trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Final state tables.
const (
	TableState         = "state"
	TableProgress      = "progress"
	TableNotifications = "notifications"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// catalog builds the named revision.
func (s *Scenario) catalog(name string) (*model.Catalog, error) {
	rev, ok := s.Catalogs[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q", name)
	}
	cat := &model.Catalog{
		ClassID:  rev.Class,
		Order:    make([]string, 0, len(rev.Chapters)),
		Chapters: make(map[string]*model.ChapterDefinition, len(rev.Chapters)),
	}
	for i := range rev.Chapters {
		def := rev.Chapters[i]
		def.Class = rev.Class
		cat.Order = append(cat.Order, def.ID)
		cat.Chapters[def.ID] = &def
	}
	return cat, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for name, rev := range s.Catalogs {
		if rev.Class == "" {
			return fmt.Errorf("catalogs.%s: class is required", name)
		}
		seen := make(map[string]bool, len(rev.Chapters))
		for i := range rev.Chapters {
			def := &rev.Chapters[i]
			if seen[def.ID] {
				return fmt.Errorf("catalogs.%s: chapter %q listed twice", name, def.ID)
			}
			seen[def.ID] = true
			if err := catalog.Validate(def); err != nil {
				return fmt.Errorf("catalogs.%s: %w", name, err)
			}
		}
	}

	for i, step := range s.Setup {
		if err := s.validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := s.validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func (s *Scenario) validateStep(where string, step FlowStep) error {
	if step.Invoke == "" {
		return fmt.Errorf("%s: invoke is required", where)
	}
	if _, ok := steps[step.Invoke]; !ok {
		return fmt.Errorf("%s: unknown step %q", where, step.Invoke)
	}
	if step.Invoke == "publish" {
		name, _ := step.Args["catalog"].(string)
		if _, ok := s.Catalogs[name]; !ok {
			return fmt.Errorf("%s: publish references unknown catalog %q", where, name)
		}
	}
	if step.Expect != nil {
		switch step.Expect.Case {
		case CaseOK, CaseError:
		case "":
			return fmt.Errorf("%s.expect: case is required", where)
		default:
			return fmt.Errorf("%s.expect: case must be %q or %q", where, CaseOK, CaseError)
		}
		if step.Expect.Error != "" && step.Expect.Case != CaseError {
			return fmt.Errorf("%s.expect: error requires case %q", where, CaseError)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		switch a.Table {
		case TableState:
		case TableProgress:
			if _, ok := a.Where["chapter"]; !ok {
				return fmt.Errorf("assertions[%d]: progress requires where.chapter", index)
			}
		case TableNotifications:
			if _, ok := a.Where["id"]; !ok {
				return fmt.Errorf("assertions[%d]: notifications requires where.id", index)
			}
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
