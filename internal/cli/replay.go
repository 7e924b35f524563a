package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/harness"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Scenario  string
	GoldenDir string
	Update    bool
}

// ReplayOutput is the replay command's result payload.
type ReplayOutput struct {
	Scenario      string         `json:"scenario"`
	Pass          bool           `json:"pass"`
	Deterministic bool           `json:"deterministic"`
	Errors        []string       `json:"errors,omitempty"`
	Golden        string         `json:"golden,omitempty"`
	Report        harness.Report `json:"report"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a merge scenario and verify determinism",
		Long: `Run a scenario's remote events through the optimistic merge policy twice,
verify both runs produce identical reports, and check the scenario's
expectations.

With --golden the canonical report is also compared against
<dir>/<scenario name>.golden; --update rewrites that file instead.

Exit codes:
  0 - Deterministic and every expectation matched
  1 - Non-deterministic replay, failed expectation or golden mismatch
  2 - Command error (unreadable or invalid scenario)

Examples:
  collab replay --scenario ./scenarios/stale_redelivery.yaml
  collab replay --scenario ./scenarios/stale_redelivery.yaml --golden ./golden
  collab replay --scenario ./scenarios/stale_redelivery.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "path to a scenario YAML file (required)")
	_ = cmd.MarkFlagRequired("scenario")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden report files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite the golden file instead of comparing")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	log := opts.logger()

	s, err := harness.LoadScenario(opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	log.Debug("scenario loaded", "name", s.Name, "events", len(s.Events))

	result, err := harness.RunScenario(s)
	if err != nil {
		_ = out.Failure(err)
		if conflict.IsCode(err, conflict.CodeDeterminismViolation) {
			return WrapExitError(ExitFailure, "replay is not deterministic", err)
		}
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	output := ReplayOutput{
		Scenario:      s.Name,
		Pass:          result.Pass,
		Deterministic: true,
		Errors:        result.Errors,
		Report:        result.Report,
	}

	if opts.GoldenDir != "" {
		path, err := checkGolden(opts.GoldenDir, s.Name, result.Report, opts.Update)
		output.Golden = path
		switch {
		case errors.Is(err, errGoldenMismatch):
			output.Pass = false
			output.Errors = append(output.Errors, fmt.Sprintf("report differs from %s", path))
		case err != nil:
			return WrapExitError(ExitCommandError, "golden comparison failed", err)
		}
	}

	log.Info("scenario replayed",
		"name", s.Name,
		"pass", output.Pass,
		"applied", result.Report.Stats.AppliedCount,
		"rejected", result.Report.Stats.RejectedCount,
		"noop", result.Report.Stats.NoopCount)

	if err := out.Success(output, formatReplayText(output)); err != nil {
		return err
	}
	if !output.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Name))
	}
	return nil
}

var errGoldenMismatch = errors.New("golden mismatch")

// checkGolden compares the canonical report with dir/name.golden, or writes
// it when update is set.
func checkGolden(dir, name string, report harness.Report, update bool) (string, error) {
	path := filepath.Join(dir, name+".golden")
	data, err := report.Serialize()
	if err != nil {
		return path, err
	}

	if update {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return path, fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			return path, fmt.Errorf("write golden file: %w", err)
		}
		return path, nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return path, fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, []byte(data)) {
		return path, errGoldenMismatch
	}
	return path, nil
}

func formatReplayText(o ReplayOutput) string {
	var b strings.Builder
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	r := o.Report
	fmt.Fprintf(&b, "Scenario: %s\n", o.Scenario)
	fmt.Fprintf(&b, "Final state: version=%d content=%q last_op_id=%q\n",
		r.FinalState.Version, r.FinalState.Content, r.FinalState.LastOpID)
	fmt.Fprintf(&b, "State hash: %s\n", r.StateHash)
	fmt.Fprintf(&b, "Stats: applied=%d rejected=%d noop=%d\n",
		r.Stats.AppliedCount, r.Stats.RejectedCount, r.Stats.NoopCount)
	if len(r.Envelopes) > 0 {
		b.WriteString("Envelopes:\n")
		for i, env := range r.Envelopes {
			b.WriteString(yellow.Sprintf("  [%d] %s %s: %s", i+1, env.Code, env.Details.OpID, env.Reason))
			b.WriteByte('\n')
		}
	}
	if o.Golden != "" {
		fmt.Fprintf(&b, "Golden: %s\n", o.Golden)
	}
	for _, e := range o.Errors {
		b.WriteString(red.Sprintf("FAIL: %s", strings.TrimSpace(e)))
		b.WriteByte('\n')
	}
	if o.Pass {
		b.WriteString(green.Sprint("PASS"))
	} else {
		b.WriteString(red.Sprint("FAIL"))
	}
	return b.String()
}
