package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/collab/internal/config"
)

// InitOutput reports the configuration file written by init.
type InitOutput struct {
	Path             string `json:"path"`
	Database         string `json:"database"`
	Format           string `json:"format"`
	SchemaVersion    string `json:"schema_version"`
	InitialStateHash string `json:"initial_state_hash,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		database    string
		initialHash string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a collab.toml with the default settings",
		Long: `Write a configuration file holding the defaults every other command
falls back to. The file is written to --config, or ./collab.toml when
--config is omitted. An existing file is only replaced with --force.

Examples:
  collab init
  collab init --database ./journal.db --initial-hash 6f6f2847...
  collab --config ./ci/collab.toml init --force`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// init creates the file the other commands load, so it starts
		// from the defaults instead of reading it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.apply(cmd, config.Default())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if path == "" {
				path = config.DefaultFile
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return NewExitError(ExitCommandError,
						fmt.Sprintf("%s already exists (use --force to overwrite)", path))
				} else if !errors.Is(err, fs.ErrNotExist) {
					return WrapExitError(ExitCommandError, "failed to check config", err)
				}
			}

			cfg := config.Default()
			if database != "" {
				cfg.Database = database
			}
			if cmd.Flags().Changed("format") {
				cfg.Format = rootOpts.Format
			}
			cfg.InitialStateHash = initialHash
			if err := cfg.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid settings", err)
			}
			if err := cfg.Save(path); err != nil {
				return WrapExitError(ExitCommandError, "failed to write config", err)
			}
			rootOpts.logger().Debug("config written", "path", cfg.Path())

			result := InitOutput{
				Path:             cfg.Path(),
				Database:         cfg.Database,
				Format:           cfg.Format,
				SchemaVersion:    cfg.SchemaVersion,
				InitialStateHash: cfg.InitialStateHash,
			}
			return rootOpts.formatter(cmd).Success(result, fmt.Sprintf("Wrote %s", cfg.Path()))
		},
	}

	cmd.Flags().StringVar(&database, "database", "", "SQLite journal path (default "+config.DefaultDatabase+")")
	cmd.Flags().StringVar(&initialHash, "initial-hash", "", "initial state hash used by verify commands")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
