package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/collab/internal/conflict"
	"github.com/roach88/collab/internal/eventlog"
	"github.com/roach88/collab/internal/harness"
	"github.com/roach88/collab/internal/pipeline"
	"github.com/roach88/collab/internal/store"
)

// JournalOptions holds flags shared by the journal subcommands.
type JournalOptions struct {
	*RootOptions
	Database string
	DocID    string
}

// NewJournalCommand creates the journal command group.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Move event logs between files and the SQLite journal",
		Long: `Import serialized event logs into the SQLite journal, export them back,
and verify or inspect what the journal holds.

The database defaults to the "database" key of collab.toml.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: database from config)")
	cmd.PersistentFlags().StringVar(&opts.DocID, "doc", "", "document ID")

	cmd.AddCommand(newJournalImportCommand(opts))
	cmd.AddCommand(newJournalExportCommand(opts))
	cmd.AddCommand(newJournalVerifyCommand(opts))
	cmd.AddCommand(newJournalListCommand(opts))
	cmd.AddCommand(newJournalRecordCommand(opts))
	cmd.AddCommand(newJournalRejectionsCommand(opts))

	return cmd
}

func (o *JournalOptions) open() (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.settings().Database
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	o.logger().Debug("journal opened", "path", path)
	return st, nil
}

func (o *JournalOptions) requireDoc() error {
	if o.DocID == "" {
		return NewExitError(ExitCommandError, "--doc is required")
	}
	return nil
}

// ImportOutput reports a journal import.
type ImportOutput struct {
	DocID   string `json:"doc_id"`
	Entries int    `json:"entries"`
	Written int    `json:"written"`
	Head    string `json:"head"`
}

func newJournalImportCommand(opts *JournalOptions) *cobra.Command {
	var logPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append a serialized log's new entries to the journal",
		Long: `Parse a serialized event log and journal every entry not yet stored for
the document. The journaled entries must be a prefix of the log.

Examples:
  collab journal import --db ./collab.db --doc chapter-1 --log ./chapter-1.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireDoc(); err != nil {
				return err
			}
			out := opts.formatter(cmd)

			data, err := os.ReadFile(logPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read log", err)
			}
			l, err := eventlog.Parse(data)
			if err != nil {
				_ = out.Failure(err)
				return WrapExitError(ExitFailure, "log is invalid", err)
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			written, err := st.SaveLog(context.Background(), opts.DocID, l)
			if err != nil {
				_ = out.Failure(err)
				if conflict.IsCode(err, conflict.CodeJournalDiverged) {
					return WrapExitError(ExitFailure, "journal diverged", err)
				}
				return WrapExitError(ExitCommandError, "failed to save log", err)
			}

			result := ImportOutput{DocID: opts.DocID, Entries: l.Len(), Written: written, Head: l.Head()}
			return out.Success(result,
				fmt.Sprintf("Imported %d of %d entries into %s (head %s)", written, l.Len(), opts.DocID, displayHash(l.Head())))
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "path to a serialized event log (required)")
	_ = cmd.MarkFlagRequired("log")
	return cmd
}

func newJournalExportCommand(opts *JournalOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the journaled log as canonical JSON",
		Long: `Load a document's journaled log and write its canonical serialization to
--out, or to stdout when --out is omitted.

Examples:
  collab journal export --db ./collab.db --doc chapter-1 --out ./chapter-1.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireDoc(); err != nil {
				return err
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			l, err := st.LoadLog(context.Background(), opts.DocID)
			if err != nil {
				_ = opts.formatter(cmd).Failure(err)
				return WrapExitError(ExitFailure, "failed to load log", err)
			}

			data := l.Serialize()
			if outPath == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), data)
				return err
			}
			if err := os.WriteFile(outPath, []byte(data), 0644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write log", err)
			}
			opts.formatter(cmd).VerboseLog("wrote %d entries to %s", l.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newJournalVerifyCommand(opts *JournalOptions) *cobra.Command {
	var initialHash string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay the journaled log's hash chain",
		Long: `Load a document's journaled log and replay its hash chain from the
initial state hash.

Exit codes:
  0 - The chain is unbroken
  1 - The chain is broken
  2 - Command error

Examples:
  collab journal verify --db ./collab.db --doc chapter-1 --initial-hash 6f6f2847...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireDoc(); err != nil {
				return err
			}
			out := opts.formatter(cmd)

			if initialHash == "" {
				initialHash = opts.settings().InitialStateHash
			}
			if initialHash == "" {
				return NewExitError(ExitCommandError, "--initial-hash is required when the config has no initial_state_hash")
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			l, err := st.LoadLog(context.Background(), opts.DocID)
			if err != nil {
				_ = out.Failure(err)
				return WrapExitError(ExitFailure, "failed to load log", err)
			}
			res, err := eventlog.Replay(l, initialHash)
			if err != nil {
				_ = out.Failure(err)
				return WrapExitError(ExitFailure, "hash chain is broken", err)
			}

			result := VerifyOutput{Log: opts.DocID, SchemaVersion: l.SchemaVersion(), ReplayResult: res}
			return out.Success(result, formatVerifyText(result))
		},
	}

	cmd.Flags().StringVar(&initialHash, "initial-hash", "", "hash of the state before the first entry (default: initial_state_hash from config)")
	return cmd
}

func newJournalListCommand(opts *JournalOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List journaled documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			docs, err := st.ListDocuments(context.Background())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list documents", err)
			}
			text := "No documents journaled."
			if len(docs) > 0 {
				text = strings.Join(docs, "\n")
			}
			return opts.formatter(cmd).Success(docs, text)
		},
	}
}

// RecordOutput reports the rejections journaled from one scenario replay.
type RecordOutput struct {
	DocID    string        `json:"doc_id"`
	BatchID  string        `json:"batch_id"`
	Recorded int           `json:"recorded"`
	Stats    harness.Stats `json:"stats"`
}

func newJournalRecordCommand(opts *JournalOptions) *cobra.Command {
	var (
		scenarioPath string
		batchID      string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Replay a scenario and journal its conflict envelopes as rejections",
		Long: `Merge a scenario's remote events in order and journal every rejected
event under one batch ID. The batch ID defaults to the scenario name.
Recording the same batch again writes nothing new.

Examples:
  collab journal record --db ./collab.db --doc chapter-1 --scenario ./redelivery.yaml
  collab journal record --doc chapter-1 --scenario ./redelivery.yaml --batch sync-42`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireDoc(); err != nil {
				return err
			}
			out := opts.formatter(cmd)

			scenario, err := harness.LoadScenario(scenarioPath)
			if err != nil {
				_ = out.Failure(err)
				return WrapExitError(ExitCommandError, "failed to load scenario", err)
			}
			if batchID == "" {
				batchID = scenario.Name
			}

			report := harness.RunReplay(scenario.Initial, scenario.Events)
			rejections := make([]pipeline.Rejection, len(report.Envelopes))
			for i, env := range report.Envelopes {
				rejections[i] = rejectionFromEnvelope(env)
			}

			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RecordRejections(context.Background(), opts.DocID, batchID, rejections); err != nil {
				return WrapExitError(ExitCommandError, "failed to record rejections", err)
			}
			opts.logger().Debug("rejections recorded", "doc", opts.DocID, "batch", batchID, "count", len(rejections))

			result := RecordOutput{DocID: opts.DocID, BatchID: batchID, Recorded: len(rejections), Stats: report.Stats}
			return out.Success(result,
				fmt.Sprintf("Recorded %d rejections for %s in batch %s (applied %d, noop %d)",
					len(rejections), opts.DocID, batchID, report.Stats.AppliedCount, report.Stats.NoopCount))
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to scenario YAML file (required)")
	cmd.Flags().StringVar(&batchID, "batch", "", "batch ID (default: scenario name)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

// rejectionFromEnvelope maps a merge conflict onto the journal's rejection
// row. Merge events carry no event ID.
func rejectionFromEnvelope(env conflict.Envelope) pipeline.Rejection {
	return pipeline.Rejection{
		Code:      env.Code,
		OpID:      env.Details.OpID,
		CommandID: env.Details.CommandID,
		Reason:    env.Reason,
		Details: map[string]any{
			"op":        env.Op,
			"author_id": env.Details.AuthorID,
			"ts":        env.Details.TS,
		},
	}
}

func newJournalRejectionsCommand(opts *JournalOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rejections",
		Short:         "List journaled batch rejections for a document",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireDoc(); err != nil {
				return err
			}
			st, err := opts.open()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.ListRejections(context.Background(), opts.DocID)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list rejections", err)
			}

			var b strings.Builder
			if len(records) == 0 {
				b.WriteString("No rejections journaled.")
			}
			for i, r := range records {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "%s[%d] %s event=%s op=%s: %s", r.BatchID, r.Position, r.Code, r.EventID, r.OpID, r.Reason)
			}
			return opts.formatter(cmd).Success(records, b.String())
		},
	}
}

// displayHash shortens a hash for text output.
func displayHash(h string) string {
	if h == "" {
		return "(empty)"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
