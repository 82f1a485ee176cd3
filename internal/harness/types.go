package harness

// Trace event kinds.
const (
	KindNavigate = "navigate"
	KindControl  = "control"
	KindDevtools = "devtools"
)

// TraceEvent records one step and what the page observed while it ran.
type TraceEvent struct {
	Seq      int      `json:"seq"`
	Kind     string   `json:"kind"`             // "navigate", "control" or "devtools"
	Target   string   `json:"target"`           // URL, control action or devtools action
	Injected []string `json:"injected,omitempty"`
	Error    string   `json:"error,omitempty"` // control error code or DEVTOOLS_UNAVAILABLE
	Console  []string `json:"console,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every step in order, including the initial installs.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stored lists the script ids left in the store, in insertion order.
	Stored []string `json:"stored"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Stored: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends ev with the next sequence number and returns it.
func (r *Result) addTrace(ev TraceEvent) TraceEvent {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
	return ev
}
