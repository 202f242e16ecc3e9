package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq        int      `json:"seq"`
	Kind       string   `json:"kind"` // "query" or "calc"
	Expression string   `json:"expression"`
	Halos      []string `json:"halos"`
	Values     []any    `json:"values,omitempty"`
	Written    int      `json:"written,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
