package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hexlens/internal/decode"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	rangeFlags
}

// DecodedValue is one interpretation in machine-readable output.
type DecodedValue struct {
	Label string `json:"label" yaml:"label"`
	Width int    `json:"width,omitempty" yaml:"width,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DecodeOutput is the decode command's machine-readable result.
type DecodeOutput struct {
	Offset uint64         `json:"offset" yaml:"offset"`
	Length int            `json:"length" yaml:"length"`
	Values []DecodedValue `json:"values" yaml:"values"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Interpret a byte range as integers, floats, timestamps and text",
		Long: `Interpret a byte range under every integer, float, timestamp and
text encoding its length allows.

Examples:
  hexlens decode data.db --offset 16 --length 4
  hexlens decode data.db --offset 0x60 --length 16 --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, cmd, args[0])
		},
	}
	opts.bind(cmd, 16)

	return cmd
}

func runDecode(opts *DecodeOptions, cmd *cobra.Command, path string) error {
	offset, data, err := opts.read(cmd.Context(), path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("no data at offset 0x%X", offset))
	}

	table := decode.Decode(data)
	out := DecodeOutput{Offset: offset, Length: table.Length}
	for _, v := range table.Values {
		dv := DecodedValue{Label: v.Label, Width: v.Width}
		if v.Err != nil {
			dv.Error = v.Err.Error()
		} else {
			dv.Value = v.String()
		}
		out.Values = append(out.Values, dv)
	}

	return write(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		fmt.Fprintf(w, "%d bytes at 0x%08X: % X\n\n", len(data), offset, data)
		for _, v := range table.Values {
			fmt.Fprintf(w, "  %-14s %s\n", v.Label, v.String())
		}
		return nil
	})
}
