// Package harness runs scripted browsing sessions against the injection
// engine and checks what the page saw.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	scripts:
//	  - name: hello
//	    namespace: test
//	    match: ["https://example.com/*"]
//	    body: console.log('hi')
//	steps:
//	  - navigate: https://example.com/
//	    expect:
//	      injected: ["test:hello"]
//	      console: ["log: hi"]
//	  - control:
//	      action: getIds
//	    expect:
//	      console: ["log: test:hello"]
//	  - devtools: open
//	    expect:
//	      error: DEVTOOLS_UNAVAILABLE
//	assertions:
//	  - type: stored
//	    ids: ["test:hello"]
//
// Scripts are installed through the installScript control action before the
// first step, so they show up in the trace like any other control request.
//
// # Assertion Types
//
//   - stored: the final store holds exactly ids, in insertion order
//   - injected_count: script was injected exactly count times
//   - console_contains: some step logged message
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store and a goja VM
// standing in for the page. Chunked deliveries draw accumulator names from a
// testutil.Sequence, so traces are identical across runs and can be
// compared with golden files (see RunWithGolden).
package harness
