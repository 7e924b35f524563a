package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir is where golden snapshots live, relative to the test's package.
const GoldenDir = "testdata/golden"

// AssertGolden compares the canonical JSON of report against
// testdata/golden/{name}.golden. Use it when a report is already at hand and
// the scenario should not be replayed again.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files hold canonical JSON with no trailing newline. Editing them by
// hand almost always breaks the byte comparison; regenerate instead.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - name: golden file name (without extension)
//   - report: the report to snapshot
//
// Test failure (via goldie) occurs if the report doesn't match the file.
func AssertGolden(t *testing.T, name string, report Report) {
	t.Helper()

	data, err := report.Serialize()
	if err != nil {
		t.Fatalf("serialize report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(data))
}

// RunWithGolden runs a scenario and compares its report against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The scenario's expect clauses are still evaluated; every failed clause is
// reported with t.Error before the golden comparison, so one run shows both.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - s: the scenario to execute
//
// Returns the scenario result. A determinism violation fails the test
// immediately via t.Fatalf.
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := RunScenario(s)
	if err != nil {
		t.Fatalf("run scenario %s: %v", s.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	AssertGolden(t, s.Name, result.Report)
	return result
}
