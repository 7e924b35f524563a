package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/merge"
)

//go:embed scenario.cue
var scenarioSchema string

// Scenario is a replay test case: an optional initial state, the events to
// merge, and what the replay is expected to produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the starting state. Nil means DefaultInitialState.
	Initial *merge.State `yaml:"initial,omitempty"`

	// Events are merged in order.
	Events []merge.RemoteEvent `yaml:"events"`

	// Expect holds the checks RunScenario evaluates.
	Expect Expect `yaml:"expect,omitempty"`
}

// Expect lists optional expectations on a Report. Nil or empty clauses are
// skipped.
type Expect struct {
	FinalState *merge.State    `yaml:"final_state,omitempty"`
	StateHash  string          `yaml:"state_hash,omitempty"`
	Stats      *Stats          `yaml:"stats,omitempty"`
	Codes      []conflict.Code `yaml:"codes,omitempty"`
}

// SchemaError reports a scenario document that does not satisfy the CUE
// schema.
type SchemaError struct {
	Path    string
	Message string
	Pos     string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	b.WriteString(e.Message)
	if e.Pos != "" {
		fmt.Fprintf(&b, " (%s)", e.Pos)
	}
	return b.String()
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func scenarioDefinition() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(scenarioSchema, cue.Filename("scenario.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile scenario schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Scenario"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// LoadScenario reads, validates and decodes a scenario YAML file.
//
// Validation happens in two passes: the raw YAML is unified with the
// embedded #Scenario CUE definition, and only a document that satisfies it
// is decoded into Scenario with unknown fields rejected. Errors are prefixed
// with path.
//
// Parameters:
//   - path: scenario file, usually under testdata/scenarios
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario validates data against the scenario schema and decodes it.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario unifies the decoded YAML with #Scenario and requires a
// concrete result.
func validateScenario(raw any) error {
	ctx, def, err := scenarioDefinition()
	if err != nil {
		return err
	}
	if raw == nil {
		return &SchemaError{Message: "scenario document is empty"}
	}

	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry with position
// information.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{
		Path:    strings.Join(first.Path(), "."),
		Message: first.Error(),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		se.Pos = positions[0].String()
	}
	return se
}
