package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"hexlens/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal <file>",
		Short: "List the edits committed to a file",
		Long: `List the edits committed to a file from the viewer, oldest first.
The journal records what changed; it is not an undo history.

Examples:
  hexlens journal data.db
  hexlens journal data.db --db ./state.db --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the state database (default from config)")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command, path string) error {
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Store.Path
	}
	if dbPath == "" {
		dbPath = store.DefaultPath()
	}

	// The file may be gone; its id is still its absolute path.
	abs, err := filepath.Abs(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid path", err)
	}
	id := filepath.Clean(abs)

	kv, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer kv.Close()

	entries, err := store.NewJournal(kv, 0).Entries(cmd.Context(), id)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}

	return write(cmd.OutOrStdout(), opts.Format, entries, func(w io.Writer) error {
		if len(entries) == 0 {
			fmt.Fprintf(w, "no edits recorded for %s\n", id)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  0x%08X  %-9s %s -> %s\n",
				e.Time.Local().Format("2006-01-02 15:04:05"), e.Offset, e.Kind, e.Old, e.New)
		}
		return nil
	})
}
