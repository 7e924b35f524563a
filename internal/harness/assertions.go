package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/collab/internal/conflict"
)

// AssertionError describes one failed expect clause.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Codes    []conflict.Code
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Codes) > 0 {
		fmt.Fprintf(&buf, "\nEnvelopes:\n")
		for i, c := range e.Codes {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
		}
	}
	return buf.String()
}

// Assertion type names used in AssertionError.Type.
const (
	AssertFinalState = "final_state"
	AssertStateHash  = "state_hash"
	AssertStats      = "stats"
	AssertCodes      = "codes"
)

// RunScenario verifies the scenario replays deterministically and then
// evaluates every expect clause against the report. A determinism failure
// is returned as an error; clause mismatches are collected in the Result.
//
// Clauses run in a fixed order: final_state, state_hash, stats, codes.
// All of them are evaluated, so Result.Errors lists every mismatch rather
// than stopping at the first.
//
// Parameters:
//   - s: a scenario from LoadScenario or ParseScenario
//
// Returns a Result whose Pass is true only when every clause matched.
func RunScenario(s *Scenario) (*Result, error) {
	report, err := VerifyDeterminism(s.Initial, s.Events)
	if err != nil {
		return nil, err
	}

	result := NewResult(report)
	for _, check := range []func(Expect, Report) error{
		assertFinalState,
		assertStateHash,
		assertStats,
		assertCodes,
	} {
		if err := check(s.Expect, report); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

func assertFinalState(exp Expect, r Report) error {
	if exp.FinalState == nil || *exp.FinalState == r.FinalState {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%+v", *exp.FinalState),
		Actual:   fmt.Sprintf("%+v", r.FinalState),
		Codes:    r.Codes(),
	}
}

func assertStateHash(exp Expect, r Report) error {
	if exp.StateHash == "" || exp.StateHash == r.StateHash {
		return nil
	}
	return &AssertionError{
		Type:     AssertStateHash,
		Expected: exp.StateHash,
		Actual:   r.StateHash,
	}
}

func assertStats(exp Expect, r Report) error {
	if exp.Stats == nil || *exp.Stats == r.Stats {
		return nil
	}
	return &AssertionError{
		Type:     AssertStats,
		Expected: formatStats(*exp.Stats),
		Actual:   formatStats(r.Stats),
		Codes:    r.Codes(),
	}
}

// assertCodes compares envelope codes in order. A nil list skips the check;
// an explicit empty list requires that nothing was rejected.
func assertCodes(exp Expect, r Report) error {
	if exp.Codes == nil {
		return nil
	}
	actual := r.Codes()
	if slices.Equal(exp.Codes, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCodes,
		Expected: fmt.Sprintf("%v", exp.Codes),
		Actual:   fmt.Sprintf("%v", actual),
	}
}

func formatStats(s Stats) string {
	return fmt.Sprintf("applied=%d rejected=%d noop=%d", s.AppliedCount, s.RejectedCount, s.NoopCount)
}
