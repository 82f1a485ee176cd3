package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a trace in the golden file format:
//
//	scenario: name
//	[1] control installScript
//	[2] navigate https://example.com/
//	    injected: test:hello
//	    console: log: hi
//
// Each event lists injected ids on one line, then its error code, then one
// line per console entry. The final store content closes the snapshot,
// or "(none)" when the store is empty.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "[%d] %s %s\n", ev.Seq, ev.Kind, ev.Target)
		if len(ev.Injected) > 0 {
			fmt.Fprintf(&b, "    injected: %s\n", strings.Join(ev.Injected, ", "))
		}
		if ev.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", ev.Error)
		}
		for _, line := range ev.Console {
			fmt.Fprintf(&b, "    console: %s\n", line)
		}
	}
	if len(result.Stored) == 0 {
		b.WriteString("stored: (none)\n")
	} else {
		fmt.Fprintf(&b, "stored: %s\n", strings.Join(result.Stored, ", "))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against the golden file for
// scenarioName without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
