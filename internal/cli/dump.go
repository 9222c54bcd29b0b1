package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hexlens/internal/editor"
	"hexlens/internal/hexgrid"
)

// rangeFlags are the --offset and --length flags shared by dump and decode.
type rangeFlags struct {
	Offset string
	Length uint32
}

func (r *rangeFlags) bind(cmd *cobra.Command, defLength uint32) {
	cmd.Flags().StringVar(&r.Offset, "offset", "0", "start offset (decimal or 0x hex)")
	cmd.Flags().Uint32Var(&r.Length, "length", defLength, "number of bytes")
}

// read returns the bytes the flags select from path.
func (r *rangeFlags) read(ctx context.Context, path string) (uint64, []byte, error) {
	offset, err := editor.ParseOffset(r.Offset)
	if err != nil {
		return 0, nil, WrapExitError(ExitCommandError, "invalid --offset", err)
	}
	if r.Length == 0 {
		return 0, nil, NewExitError(ExitCommandError, "--length must be positive")
	}

	src, id, err := openFile(path)
	if err != nil {
		return 0, nil, err
	}
	data, err := src.Read(ctx, id, offset, r.Length)
	if err != nil {
		return 0, nil, exitFor("read failed", err)
	}
	return offset, data, nil
}

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	rangeFlags
}

// DumpRow is one row of machine-readable dump output.
type DumpRow struct {
	Offset uint64 `json:"offset" yaml:"offset"`
	Hex    string `json:"hex" yaml:"hex"`
	ASCII  string `json:"ascii" yaml:"ascii"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print a hex dump of a byte range",
		Long: `Print rows of 16 bytes with their offset, hex and ASCII lanes.

Examples:
  hexlens dump data.db
  hexlens dump data.db --offset 0x1000 --length 64`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd, args[0])
		},
	}
	opts.bind(cmd, hexgrid.DefaultPageLength)

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command, path string) error {
	offset, data, err := opts.read(cmd.Context(), path)
	if err != nil {
		return err
	}
	rows := hexgrid.Partition(offset, data)

	out := make([]DumpRow, len(rows))
	for i, r := range rows {
		out[i] = DumpRow{Offset: r.Offset, Hex: r.Hex(), ASCII: r.ASCII()}
	}

	return write(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		if len(rows) == 0 {
			fmt.Fprintf(w, "no data at offset 0x%X\n", offset)
			return nil
		}
		_, err := io.WriteString(w, hexgrid.Format(rows))
		return err
	})
}
