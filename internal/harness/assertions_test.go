package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	r := NewResult()
	r.addTrace(TraceEvent{Kind: KindControl, Target: "installScript"})
	r.addTrace(TraceEvent{Kind: KindNavigate, Target: "https://a.test/", Injected: []string{"t:a"}, Console: []string{"log: a"}})
	r.addTrace(TraceEvent{Kind: KindNavigate, Target: "https://b.test/"})
	r.addTrace(TraceEvent{Kind: KindNavigate, Target: "https://a.test/", Injected: []string{"t:a"}, Console: []string{"log: a"}})
	r.Stored = []string{"t:a", "t:b"}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStored, IDs: []string{"t:a", "t:b"}},
		{Type: AssertInjectedCount, Script: "t:a", Count: 2},
		{Type: AssertInjectedCount, Script: "t:b", Count: 0},
		{Type: AssertConsoleContains, Message: "log: a"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertStored, IDs: []string{"t:b", "t:a"}},
		{Type: AssertInjectedCount, Script: "t:a", Count: 1},
		{Type: AssertConsoleContains, Message: "log: b"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 4)

	assert.Contains(t, errs[0], "Assertion failed: stored")
	assert.Contains(t, errs[0], `Expected: ["t:b" "t:a"]`)
	assert.NotContains(t, errs[0], "Full trace")

	assert.Contains(t, errs[1], "Expected: 1 injections of t:a")
	assert.Contains(t, errs[1], "Actual: 2 injections")
	assert.Contains(t, errs[1], "[3] navigate https://b.test/")

	assert.Contains(t, errs[2], `console line "log: b"`)
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}

func TestInjectedCount_IgnoresControlEvents(t *testing.T) {
	r := NewResult()
	r.addTrace(TraceEvent{Kind: KindControl, Target: "getIds", Injected: []string{"t:a"}})

	err := assertInjectedCount(r.Trace, Assertion{Script: "t:a", Count: 0})
	assert.NoError(t, err)
}
