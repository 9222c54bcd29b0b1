package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hexlens/internal/editor"
	"hexlens/internal/source"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	From  string
	Limit int
}

// FoundMatch is one match in machine-readable output.
type FoundMatch struct {
	Offset        uint64 `json:"offset" yaml:"offset"`
	ContextOffset uint64 `json:"context_offset" yaml:"context_offset"`
	Context       string `json:"context" yaml:"context"`
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <file> <hex-pattern>",
		Short: "Find every occurrence of a hex pattern",
		Long: `Find occurrences of a byte pattern given as hex digits. Spaces
between bytes are optional.

Examples:
  hexlens find data.db "53 51 4C 69 74 65"
  hexlens find data.db 0d0a --limit 10 --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "0", "offset to start searching at (decimal or 0x hex)")
	cmd.Flags().IntVar(&opts.Limit, "limit", source.DefaultFindLimit, "maximum number of matches")

	return cmd
}

func runFind(opts *FindOptions, cmd *cobra.Command, path, pattern string) error {
	needle, err := source.ParsePattern(pattern)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pattern", err)
	}
	from, err := editor.ParseOffset(opts.From)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --from", err)
	}
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--limit must be positive")
	}

	src, id, err := openFile(path)
	if err != nil {
		return err
	}
	matches, err := source.Find(cmd.Context(), src, id, needle, from, opts.Limit)
	if err != nil {
		return exitFor("search failed", err)
	}

	out := make([]FoundMatch, len(matches))
	for i, m := range matches {
		out[i] = FoundMatch{
			Offset:        m.Offset,
			ContextOffset: m.ContextOffset,
			Context:       hex.EncodeToString(m.Context),
		}
	}

	return write(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		if len(matches) == 0 {
			fmt.Fprintln(w, "no matches")
			return nil
		}
		for _, m := range matches {
			fmt.Fprintf(w, "0x%08X  %s\n", m.Offset, strings.ToUpper(hex.EncodeToString(m.Context)))
		}
		if len(matches) == opts.Limit {
			fmt.Fprintf(w, "(stopped after %d matches)\n", opts.Limit)
		}
		return nil
	})
}
