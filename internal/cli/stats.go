package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hexlens/internal/stats"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	BlockSize uint32
}

// StatsOutput wraps a statistics result with the chunks that failed.
type StatsOutput struct {
	stats.Result `yaml:",inline"`
	Failures     []string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Compute the byte histogram and Shannon entropy",
		Long: `Compute the byte histogram, overall entropy and per-block entropy
of a file. The file is split into at most 10 equal blocks and every byte
is counted.

Examples:
  hexlens stats data.db
  hexlens stats data.db --block-size 4096 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd, args[0])
		},
	}

	cmd.Flags().Uint32Var(&opts.BlockSize, "block-size", 0, "block size in bytes (default from config)")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command, path string) error {
	blockSize := opts.Config.Engine.BlockSize
	if cmd.Flags().Changed("block-size") {
		if opts.BlockSize == 0 {
			return NewExitError(ExitCommandError, "--block-size must be positive")
		}
		blockSize = opts.BlockSize
	}

	src, id, err := openFile(path)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	total, err := fileLength(ctx, src, id)
	if err != nil {
		return err
	}

	res, err := stats.NewEngine().Compute(ctx, src, id, total, blockSize)
	if err != nil {
		return exitFor("statistics failed", err)
	}

	out := StatsOutput{Result: res}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}

	if err := write(cmd.OutOrStdout(), opts.Format, out, func(w io.Writer) error {
		return writeStatsText(w, total, res)
	}); err != nil {
		return err
	}

	if len(res.Failures) > 0 && res.Bytes == 0 {
		return NewExitError(ExitFailure, "no block could be read")
	}
	return nil
}

func writeStatsText(w io.Writer, total uint64, res stats.Result) error {
	fmt.Fprintf(w, "File:       %s\n", res.FileID)
	fmt.Fprintf(w, "Size:       %d bytes\n", total)
	fmt.Fprintf(w, "Block size: %d bytes\n", res.BlockSize)
	fmt.Fprintf(w, "Read:       %d bytes in %d blocks\n", res.Bytes, len(res.Blocks))
	if res.Bytes == 0 {
		fmt.Fprintln(w, "Entropy:    n/a")
	} else {
		fmt.Fprintf(w, "Entropy:    %.4f bits/byte\n", res.Overall)
	}

	if len(res.Blocks) > 0 {
		fmt.Fprintln(w, "\nBlocks:")
		for _, b := range res.Blocks {
			bar := strings.Repeat("#", int(b.Bits*4+0.5))
			fmt.Fprintf(w, "  %08X  %6.3f  %s\n", b.Offset, b.Bits, bar)
		}
	}

	if len(res.Histogram) > 0 {
		fmt.Fprintln(w, "\nMost frequent bytes:")
		for _, b := range topBuckets(res.Histogram, 8) {
			fmt.Fprintf(w, "  %02X  %d\n", b.Value, b.Frequency)
		}
	}

	for _, f := range res.Failures {
		fmt.Fprintf(w, "failed: %v\n", f)
	}
	return nil
}

// topBuckets returns the n most frequent non-zero buckets, most frequent first.
func topBuckets(hist []stats.Bucket, n int) []stats.Bucket {
	top := make([]stats.Bucket, 0, n)
	for _, b := range hist {
		if b.Frequency == 0 {
			continue
		}
		i := len(top)
		for i > 0 && top[i-1].Frequency < b.Frequency {
			i--
		}
		if i >= n {
			continue
		}
		top = append(top, stats.Bucket{})
		copy(top[i+1:], top[i:])
		top[i] = b
		if len(top) > n {
			top = top[:n]
		}
	}
	return top
}
