package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/testutil"
)

// Scenario defines a scripted browsing session.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scripts are installed, in order, before the first step.
	Scripts []ScriptSpec `yaml:"scripts,omitempty"`

	// DevtoolsSource is injected on the first devtools open after a
	// navigation. Empty leaves devtools unavailable.
	DevtoolsSource string `yaml:"devtools_source,omitempty"`

	// Delivery overrides the transport limits, to exercise chunking with
	// short scripts.
	Delivery *DeliveryLimits `yaml:"delivery,omitempty"`

	// Steps is the session, run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScriptSpec describes a userscript by its metadata and body.
type ScriptSpec struct {
	Name      string   `yaml:"name"`
	Namespace string   `yaml:"namespace"`
	Match     []string `yaml:"match"`
	Exclude   []string `yaml:"exclude,omitempty"`
	Grant     []string `yaml:"grant,omitempty"`
	Body      string   `yaml:"body"`
}

// Source renders s as userscript source.
func (s ScriptSpec) Source() string {
	return testutil.UserscriptSource{
		Name:      s.Name,
		Namespace: s.Namespace,
		Match:     s.Match,
		Exclude:   s.Exclude,
		Grant:     s.Grant,
		Body:      s.Body,
	}.String()
}

// DeliveryLimits mirrors delivery.WithLimits.
type DeliveryLimits struct {
	MaxLength int `yaml:"max_length"`
	Margin    int `yaml:"margin"`
	ChunkSize int `yaml:"chunk_size"`
}

// Step is one event in the session. Exactly one of Navigate, Control and
// Devtools is set.
type Step struct {
	// Navigate is a page load of this URL.
	Navigate string `yaml:"navigate,omitempty"`

	// Control is a control request from the page.
	Control *ControlStep `yaml:"control,omitempty"`

	// Devtools is "open" or "fixFont".
	Devtools string `yaml:"devtools,omitempty"`

	// Expect is checked against the step's trace event when present.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ControlStep is a control request. Script, when set, is rendered as the
// payload.
type ControlStep struct {
	Action  string      `yaml:"action"`
	Payload string      `yaml:"payload,omitempty"`
	Script  *ScriptSpec `yaml:"script,omitempty"`
}

// payload returns the request payload.
func (c *ControlStep) payload() string {
	if c.Script != nil {
		return c.Script.Source()
	}
	return c.Payload
}

// Expect specifies what a step should produce. Nil lists are not checked;
// an explicit empty list asserts that nothing happened.
type Expect struct {
	Injected []string `yaml:"injected"`
	Console  []string `yaml:"console"`
	Error    string   `yaml:"error,omitempty"`
}

// Assertion validates the final trace or store.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stored": the store holds exactly IDs, in order
	// - "injected_count": Script was injected exactly Count times
	// - "console_contains": some step logged Message
	Type string `yaml:"type"`

	// IDs is the expected store content (used by stored).
	IDs []string `yaml:"ids,omitempty"`

	// Script is the script id (used by injected_count).
	Script string `yaml:"script,omitempty"`

	// Count is the expected number of injections (used by injected_count).
	Count int `yaml:"count,omitempty"`

	// Message is a console line such as "log: hi" (used by console_contains).
	Message string `yaml:"message,omitempty"`
}

// Assertion type constants.
const (
	AssertStored          = "stored"
	AssertInjectedCount   = "injected_count"
	AssertConsoleContains = "console_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, sc := range s.Scripts {
		if sc.Name == "" {
			return fmt.Errorf("scripts[%d]: name is required", i)
		}
		if len(sc.Match) == 0 {
			return fmt.Errorf("scripts[%d]: match is required", i)
		}
	}

	if d := s.Delivery; d != nil {
		if d.MaxLength <= 0 || d.ChunkSize <= 0 || d.Margin < 0 {
			return fmt.Errorf("delivery: max_length and chunk_size must be positive")
		}
		if d.Margin >= d.MaxLength {
			return fmt.Errorf("delivery: margin must be smaller than max_length")
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	set := 0
	if step.Navigate != "" {
		set++
	}
	if step.Control != nil {
		set++
	}
	if step.Devtools != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of navigate, control, devtools is required", index)
	}

	if step.Control != nil {
		if step.Control.Action == "" {
			return fmt.Errorf("steps[%d]: control action is required", index)
		}
		if step.Control.Script != nil && step.Control.Payload != "" {
			return fmt.Errorf("steps[%d]: control takes payload or script, not both", index)
		}
	}

	switch step.Devtools {
	case "", engine.DevtoolsOpen, engine.DevtoolsFixFont:
	default:
		return fmt.Errorf("steps[%d]: unknown devtools action %q", index, step.Devtools)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStored:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for stored (use [] for an empty store)", index)
		}
	case AssertInjectedCount:
		if a.Script == "" {
			return fmt.Errorf("assertions[%d]: script is required for injected_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for injected_count", index)
		}
	case AssertConsoleContains:
		if a.Message == "" {
			return fmt.Errorf("assertions[%d]: message is required for console_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
