package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Kind, ev.Target)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertStored:
			err = assertStored(result, a)
		case AssertInjectedCount:
			err = assertInjectedCount(result.Trace, a)
		case AssertConsoleContains:
			err = assertConsoleContains(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertStored checks the final store content and order.
func assertStored(result *Result, a Assertion) error {
	if slices.Equal(result.Stored, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertStored,
		Expected: fmt.Sprintf("%q", a.IDs),
		Actual:   fmt.Sprintf("%q", result.Stored),
	}
}

// assertInjectedCount checks how many navigations injected a script.
func assertInjectedCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == KindNavigate && slices.Contains(ev.Injected, a.Script) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertInjectedCount,
		Expected: fmt.Sprintf("%d injections of %s", a.Count, a.Script),
		Actual:   fmt.Sprintf("%d injections", count),
		Trace:    trace,
	}
}

// assertConsoleContains checks that some step logged the message.
func assertConsoleContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if slices.Contains(ev.Console, a.Message) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertConsoleContains,
		Expected: fmt.Sprintf("console line %q", a.Message),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}
