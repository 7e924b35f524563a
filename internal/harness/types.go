package harness

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Errors holds one message per failed expect clause.
	Errors []string `json:"errors,omitempty"`

	// Report is the replay the clauses were checked against.
	Report Report `json:"report"`
}

// NewResult creates a passing result for report.
func NewResult(report Report) *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Report: report,
	}
}

// AddError records a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
