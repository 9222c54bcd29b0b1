// Package cli wires the hexlens commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"hexlens/internal/config"
	"hexlens/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format     string // "text" | "json" | "yaml"
	ConfigPath string
	Debug      bool

	// Config is loaded before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command. Given a file argument it opens the
// interactive viewer.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	view := newViewOptions(opts)

	cmd := &cobra.Command{
		Use:   "hexlens [file]",
		Short: "Inspect and patch binary files",
		Long: `hexlens is a terminal hex viewer and editor with a scalar decoder,
byte statistics and in-place editing.

Examples:
  hexlens data.db
  hexlens dump data.db --offset 0x1000 --length 64
  hexlens stats data.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runView(view, cmd, args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/hexlens/hexlens.toml)")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "write debug logs")
	view.bindFlags(cmd)

	cmd.AddCommand(NewViewCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return run(NewRootCommand(), os.Args[1:], os.Stderr)
}

func run(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// setup validates the global flags, loads the config and starts logging.
func (o *RootOptions) setup() error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.LoadFile(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg

	level := logger.ParseLevel(cfg.Log.Level)
	if o.Debug {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.Options{
		Enabled: cfg.Log.Enabled || o.Debug,
		Dir:     cfg.Log.Dir,
		Level:   level,
	}); err != nil {
		// Logging is optional; carry on without it.
		fmt.Fprintf(os.Stderr, "Warning: could not initialize logging: %v\n", err)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
