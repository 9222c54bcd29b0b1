// Package editor is the interactive hex viewer and editor.
package editor

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"hexlens/internal/config"
	"hexlens/internal/edit"
	"hexlens/internal/hexgrid"
	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/stats"
	"hexlens/internal/store"
)

type View int

const (
	ViewMain View = iota
	ViewHelp
	ViewStats
	ViewFind
	ViewGoto
)

// Options configures a Model.
type Options struct {
	Source source.ByteSource
	FileID string
	Name   string // display name, defaults to FileID
	Offset uint64
	Config *config.Config

	// Store persists bookmarks, history and the edit journal. It may be nil.
	Store store.KV
}

type Model struct {
	src     source.ByteSource
	fileID  string
	name    string
	fileLen uint64
	lenOK   bool

	grid    *hexgrid.Grid
	tracker *hexgrid.Tracker
	proto   *edit.Protocol
	stats   *stats.Engine

	bookmarks *store.Bookmarks
	history   *store.History
	marks     map[uint64]bool

	config *config.Config
	styles *config.Styles
	keys   KeyMap
	view   View
	width  int
	height int

	cursor uint64
	start  uint64

	// Statistics view state
	blockSize uint32
	statsRes  *stats.Result
	statsBusy bool
	// statistics requested before the file length arrived
	statsWaiting bool

	// Find dialog state
	findInput string
	pattern   []byte
	matches   []source.Match
	matchIdx  int
	findBusy  bool

	// Goto dialog state
	gotoInput string

	// Error/status message
	statusMsg string
	statusErr bool

	copyFn func(string) error
}

// Messages carrying the results of commands back to Update.
type (
	gridLoadedMsg struct{ res hexgrid.LoadResult }
	lengthMsg     struct {
		n   uint64
		err error
	}
	statsMsg  struct{ res stats.Result }
	commitMsg struct{ res edit.CommitResult }
	findMsg   struct {
		pattern []byte
		from    uint64
		matches []source.Match
		err     error
	}
)

func NewModel(opts Options) (*Model, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("no byte source")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	name := opts.Name
	if name == "" {
		name = opts.FileID
	}

	st := stats.NewEngine()
	g := hexgrid.New(cfg.Engine.PageLength)
	tr := hexgrid.NewTracker(g)

	m := &Model{
		src:       source.WithTimeout(opts.Source, cfg.Engine.Timeout()),
		fileID:    opts.FileID,
		name:      name,
		grid:      g,
		tracker:   tr,
		stats:     st,
		marks:     make(map[uint64]bool),
		config:    cfg,
		styles:    config.NewStyles(&cfg.Theme),
		keys:      DefaultKeyMap(),
		view:      ViewMain,
		start:     opts.Offset,
		cursor:    opts.Offset,
		blockSize: cfg.Engine.BlockSize,
		copyFn:    clipboard.WriteAll,
	}

	editOpts := edit.Options{Stats: st}
	if opts.Store != nil {
		m.bookmarks = store.NewBookmarks(opts.Store)
		m.history = store.NewHistory(opts.Store, cfg.Engine.HistoryLimit)
		editOpts.Journal = store.NewJournal(opts.Store, 0)
		m.loadMarks()
	}
	m.proto = edit.New(g, tr, editOpts)

	return m, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.lengthCmd(), m.goTo(m.start))
}

// Cursor returns the offset under the cursor.
func (m *Model) Cursor() uint64 { return m.cursor }

// Grid exposes the grid for inspection.
func (m *Model) Grid() *hexgrid.Grid { return m.grid }

// Protocol exposes the edit state machine.
func (m *Model) Protocol() *edit.Protocol { return m.proto }

func (m *Model) setStatus(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.statusMsg = err.Error()
	m.statusErr = true
}

func (m *Model) lengthCmd() tea.Cmd {
	src, id := m.src, m.fileID
	return func() tea.Msg {
		n, err := src.Length(context.Background(), id)
		return lengthMsg{n: n, err: err}
	}
}

func (m *Model) loadCmd(req hexgrid.LoadRequest) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		return gridLoadedMsg{res: hexgrid.Fetch(context.Background(), src, req)}
	}
}

func (m *Model) statsCmd(job stats.Job) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		return statsMsg{res: stats.Run(context.Background(), src, job)}
	}
}

func (m *Model) commitCmd(req edit.CommitRequest) tea.Cmd {
	src := m.src
	return func() tea.Msg {
		return commitMsg{res: edit.Execute(context.Background(), src, req)}
	}
}

func (m *Model) findCmd(pattern []byte, from uint64) tea.Cmd {
	src, id := m.src, m.fileID
	return func() tea.Msg {
		matches, err := source.Find(context.Background(), src, id, pattern, 0, source.DefaultFindLimit)
		return findMsg{pattern: pattern, from: from, matches: matches, err: err}
	}
}

// goTo loads the page containing offset, starting at its row, and moves the
// cursor there once it arrives.
func (m *Model) goTo(offset uint64) tea.Cmd {
	if m.lenOK && m.fileLen > 0 && offset >= m.fileLen {
		offset = m.fileLen - 1
	}
	req, err := m.grid.Begin(m.fileID, offset-offset%hexgrid.Width, m.grid.PageLength())
	if err != nil {
		m.setError(err)
		return nil
	}
	m.cursor = offset
	return m.loadCmd(req)
}

// jump is goTo plus a history entry.
func (m *Model) jump(offset uint64) tea.Cmd {
	if m.history != nil {
		if err := m.history.Push(context.Background(), m.fileID, offset); err != nil {
			logger.Warn("history push failed", "error", err)
		}
	}
	return m.goTo(offset)
}

func (m *Model) clampCursor() {
	loaded := m.grid.Loaded()
	if loaded.Length == 0 {
		return
	}
	if m.cursor < loaded.Offset {
		m.cursor = loaded.Offset
	}
	if last := loaded.End() - 1; m.cursor > last {
		m.cursor = last
	}
}

func (m *Model) loadMarks() {
	if m.bookmarks == nil {
		return
	}
	list, err := m.bookmarks.List(context.Background(), m.fileID)
	if err != nil {
		logger.Warn("loading bookmarks failed", "error", err)
		return
	}
	m.marks = make(map[uint64]bool, len(list))
	for _, b := range list {
		m.marks[b.Offset] = true
	}
}

// decoderBytes returns the frozen selection, or up to 16 bytes from the
// cursor.
func (m *Model) decoderBytes() []byte {
	if b := m.tracker.Bytes(); len(b) > 0 {
		return b
	}
	loaded := m.grid.Loaded()
	if !loaded.Contains(m.cursor) {
		return nil
	}
	end := m.cursor + 15
	if last := loaded.End() - 1; end > last {
		end = last
	}
	return m.grid.Slice(m.cursor, end)
}
