package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hexlens/internal/source"
)

// InfoOutput is the info command's result.
type InfoOutput struct {
	File           string `json:"file" yaml:"file"`
	source.Digests `yaml:",inline"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Report the size and digests of a file",
		Long: `Report a file's size with its MD5, SHA-1 and SHA-256 digests.

Example:
  hexlens info data.db
  hexlens info data.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, cmd *cobra.Command, path string) error {
	src, id, err := openFile(path)
	if err != nil {
		return err
	}
	d, err := source.Hashes(cmd.Context(), src, id)
	if err != nil {
		return exitFor("hashing failed", err)
	}
	out := InfoOutput{File: id, Digests: d}

	return write(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		fmt.Fprintf(w, "File:    %s\n", out.File)
		fmt.Fprintf(w, "Size:    %s\n", humanSize(d.Length))
		fmt.Fprintf(w, "MD5:     %s\n", d.MD5)
		fmt.Fprintf(w, "SHA-1:   %s\n", d.SHA1)
		fmt.Fprintf(w, "SHA-256: %s\n", d.SHA256)
		return nil
	})
}

func humanSize(n uint64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	default:
		return fmt.Sprintf("%.1f MB (%d bytes)", float64(n)/(1024*1024), n)
	}
}
