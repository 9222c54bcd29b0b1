package cli

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"hexlens/internal/config"
	"hexlens/internal/editor"
	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/store"
)

// ViewOptions holds flags for the interactive viewer.
type ViewOptions struct {
	*RootOptions
	Offset    string
	Length    uint32
	BlockSize uint32
}

func newViewOptions(root *RootOptions) *ViewOptions {
	return &ViewOptions{RootOptions: root}
}

func (o *ViewOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Offset, "offset", "0", "start offset (decimal or 0x hex)")
	cmd.Flags().Uint32Var(&o.Length, "length", 0, "page length in bytes, a multiple of 16 (default from config)")
	cmd.Flags().Uint32Var(&o.BlockSize, "block-size", 0, "statistics block size in bytes (default from config)")
}

// runProgram runs the TUI. Tests replace it.
var runProgram = func(m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newViewOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Open a file in the interactive viewer",
		Long: `Open a file in the interactive hex viewer.

Examples:
  hexlens view data.db
  hexlens view data.db --offset 0x400 --length 512`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(opts, cmd, args[0])
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

func runView(opts *ViewOptions, cmd *cobra.Command, path string) error {
	cfg := *opts.Config
	if cmd.Flags().Changed("length") {
		cfg.Engine.PageLength = opts.Length
	}
	if cmd.Flags().Changed("block-size") {
		cfg.Engine.BlockSize = opts.BlockSize
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	offset, err := editor.ParseOffset(opts.Offset)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --offset", err)
	}

	src, id, err := openFile(path)
	if err != nil {
		return err
	}

	kv := openStore(&cfg)
	if kv != nil {
		defer kv.Close()
	}

	m, err := editor.NewModel(editor.Options{
		Source: src,
		FileID: id,
		Name:   filepath.Base(path),
		Offset: offset,
		Config: &cfg,
		Store:  kv,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start viewer", err)
	}

	logger.Info("viewer started", "file", id, "offset", offset)
	if err := runProgram(m); err != nil {
		return WrapExitError(ExitFailure, "viewer failed", err)
	}
	return nil
}

// openFile registers path with a FileSource.
func openFile(path string) (*source.FileSource, string, error) {
	src := source.NewFileSource()
	id, err := src.Register(path)
	if err != nil {
		return nil, "", exitFor(fmt.Sprintf("cannot open %s", path), err)
	}
	return src, id, nil
}

// fileLength returns the length of fileID.
func fileLength(ctx context.Context, src source.ByteSource, id string) (uint64, error) {
	n, err := src.Length(ctx, id)
	if err != nil {
		return 0, exitFor("cannot read file length", err)
	}
	return n, nil
}

// openStore opens the state store named by cfg. A store that cannot be opened
// is logged and skipped; the viewer works without one.
func openStore(cfg *config.Config) store.KV {
	if !cfg.Store.Enabled {
		return nil
	}
	path := cfg.Store.Path
	if path == "" {
		path = store.DefaultPath()
	}
	kv, err := store.Open(path)
	if err != nil {
		logger.Warn("state store unavailable", "path", path, "error", err)
		return nil
	}
	return kv
}
