package edit

import (
	"context"
	"fmt"

	"hexlens/internal/hexgrid"
	"hexlens/internal/logger"
	"hexlens/internal/source"
	"hexlens/internal/types"
)

// Invalidator drops cached results derived from a file's contents.
type Invalidator interface {
	Invalidate(fileID string)
}

// Journal records edits that were written successfully.
type Journal interface {
	Record(e PendingEdit) error
}

// Options wires optional collaborators into a Protocol.
type Options struct {
	Stats   Invalidator
	Journal Journal
}

// Protocol is the edit state machine. It is not safe for concurrent use; all
// methods are meant to be called from the event loop that owns the grid.
type Protocol struct {
	grid    *hexgrid.Grid
	tracker *hexgrid.Tracker
	opts    Options

	state State
	seq   uint64
}

func New(grid *hexgrid.Grid, tracker *hexgrid.Tracker, opts Options) *Protocol {
	return &Protocol{grid: grid, tracker: tracker, opts: opts, state: Viewing{}}
}

// State returns the current state.
func (p *Protocol) State() State { return p.state }

func (p *Protocol) committing() bool {
	_, ok := p.state.(Committing)
	return ok
}

func refuse(op string, s State) error {
	return types.New(types.ErrKindState, fmt.Sprintf("%s not allowed while %s", op, s.Name()))
}

// EditMode reports whether edit gestures are accepted.
func (p *Protocol) EditMode() bool { return p.tracker.EditMode() }

// SetEditMode toggles edit mode. Turning it on clears the selection; turning
// it off abandons any uncommitted input.
func (p *Protocol) SetEditMode(on bool) error {
	if p.committing() {
		return refuse("toggling edit mode", p.state)
	}
	p.tracker.SetEditMode(on)
	if !on {
		p.state = Viewing{}
	}
	return nil
}

// Select starts editing the target at offset. Row kinds snap to the row's
// first offset. Any input or pending edit for another target is discarded.
func (p *Protocol) Select(kind Kind, offset uint64) error {
	if !p.tracker.EditMode() {
		return types.New(types.ErrKindState, "edit mode is off")
	}
	if p.committing() {
		return refuse("select", p.state)
	}
	row, ok := p.grid.RowAt(offset)
	if !ok {
		return types.New(types.ErrKindOffsetOutOfRange, fmt.Sprintf("offset 0x%X is not loaded", offset))
	}
	if kind.MultiByte() {
		offset = row.Offset
	}
	p.state = Editing{Kind: kind, Target: offset, Input: seed(kind, row, offset)}
	return nil
}

// SetInput replaces the input buffer.
func (p *Protocol) SetInput(input string) error {
	ed, ok := p.state.(Editing)
	if !ok {
		return refuse("input", p.state)
	}
	ed.Input = input
	p.state = ed
	return nil
}

// Submit validates the input. On success the edit moves to
// PendingConfirmation; on failure the state stays Editing and the validation
// error is returned for display.
func (p *Protocol) Submit() (PendingEdit, error) {
	ed, ok := p.state.(Editing)
	if !ok {
		return PendingEdit{}, refuse("submit", p.state)
	}
	row, ok := p.grid.RowAt(ed.Target)
	if !ok {
		return PendingEdit{}, types.New(types.ErrKindOffsetOutOfRange, fmt.Sprintf("offset 0x%X is no longer loaded", ed.Target))
	}

	var data []byte
	switch ed.Kind {
	case KindCell:
		b, err := ParseCell(ed.Input)
		if err != nil {
			return PendingEdit{}, err
		}
		data = []byte{b}
	case KindAsciiChar:
		b, err := ParseChar(ed.Input)
		if err != nil {
			return PendingEdit{}, err
		}
		data = []byte{b}
	case KindRow:
		b, err := ParseRow(ed.Input, len(row.Cells))
		if err != nil {
			return PendingEdit{}, err
		}
		data = b
	case KindAsciiRow:
		b, err := ParseASCIIRow(ed.Input, len(row.Cells))
		if err != nil {
			return PendingEdit{}, err
		}
		data = b
	}

	pe := PendingEdit{
		FileID: p.grid.FileID(),
		Kind:   ed.Kind,
		Target: ed.Target,
		Bytes:  data,
		Old:    p.grid.Slice(ed.Target, ed.Target+uint64(len(data))-1),
	}
	pc := PendingConfirmation{Edit: pe, Acked: !ed.Kind.MultiByte()}
	if ed.Kind.MultiByte() {
		pc.Warning = fmt.Sprintf("this overwrites %d bytes at 0x%08X", len(data), pe.Target)
		if ed.Kind == KindAsciiRow {
			pc.Warning += "; the row past the input is filled with spaces"
		}
	}
	p.state = pc
	return pe, nil
}

// Acknowledge accepts the multi-byte warning of the pending edit.
func (p *Protocol) Acknowledge() error {
	pc, ok := p.state.(PendingConfirmation)
	if !ok {
		return refuse("acknowledge", p.state)
	}
	pc.Acked = true
	p.state = pc
	return nil
}

// Cancel drops the pending edit.
func (p *Protocol) Cancel() error {
	if _, ok := p.state.(PendingConfirmation); !ok {
		return refuse("cancel", p.state)
	}
	p.state = Viewing{}
	return nil
}

// Escape abandons editing or a pending edit. It is a no-op while viewing.
func (p *Protocol) Escape() error {
	switch p.state.(type) {
	case Committing:
		return refuse("escape", p.state)
	case Editing, PendingConfirmation:
		p.state = Viewing{}
	}
	return nil
}

// Tab moves a Cell or AsciiChar edit to the next offset, reseeding the input.
// It does nothing at the end of the loaded range.
func (p *Protocol) Tab() error {
	ed, ok := p.state.(Editing)
	if !ok || ed.Kind.MultiByte() {
		return refuse("tab", p.state)
	}
	next := ed.Target + 1
	row, ok := p.grid.RowAt(next)
	if !ok {
		return nil
	}
	p.state = Editing{Kind: ed.Kind, Target: next, Input: seed(ed.Kind, row, next)}
	return nil
}

// CommitRequest is the immutable description of one write and the reload
// that follows it.
type CommitRequest struct {
	Seq    uint64
	Edit   PendingEdit
	Reload hexgrid.LoadRequest
}

// CommitResult is the outcome of Execute.
type CommitResult struct {
	CommitRequest
	Err    error
	Reload hexgrid.LoadResult
}

// Confirm moves the pending edit to Committing and returns the request to
// execute. Multi-byte edits must be acknowledged first.
func (p *Protocol) Confirm() (CommitRequest, error) {
	pc, ok := p.state.(PendingConfirmation)
	if !ok {
		return CommitRequest{}, refuse("confirm", p.state)
	}
	if !pc.Acked {
		return CommitRequest{}, types.New(types.ErrKindState, "multi-byte edit not acknowledged")
	}
	reload, err := p.grid.Reload()
	if err != nil {
		return CommitRequest{}, err
	}
	p.seq++
	p.state = Committing{Edit: pc.Edit}
	return CommitRequest{Seq: p.seq, Edit: pc.Edit, Reload: reload}, nil
}

// Execute writes the edit and, if that succeeds, reads back the grid's range.
// It touches no Protocol state and may run off the event loop.
func Execute(ctx context.Context, src source.ByteSource, req CommitRequest) CommitResult {
	res := CommitResult{CommitRequest: req}
	if err := src.Write(ctx, req.Edit.FileID, req.Edit.Target, req.Edit.Bytes); err != nil {
		res.Err = err
		return res
	}
	res.Reload = hexgrid.Fetch(ctx, src, req.Reload)
	return res
}

// Finish applies the outcome of Execute and returns to Viewing. A failed
// write leaves the grid as it was.
func (p *Protocol) Finish(res CommitResult) error {
	c, ok := p.state.(Committing)
	if !ok || res.Seq != p.seq {
		return refuse("finish", p.state)
	}
	p.state = Viewing{}
	e := c.Edit

	if res.Err != nil {
		logger.Warn("edit commit failed", "file", e.FileID, "offset", e.Target, "kind", e.Kind.String(), "error", res.Err)
		return res.Err
	}
	logger.Info("edit committed", "file", e.FileID, "offset", e.Target, "kind", e.Kind.String(), "bytes", len(e.Bytes))

	if p.opts.Stats != nil {
		p.opts.Stats.Invalidate(e.FileID)
	}
	if p.opts.Journal != nil {
		if err := p.opts.Journal.Record(e); err != nil {
			logger.Warn("journal record failed", "file", e.FileID, "error", err)
		}
	}

	if _, err := p.grid.Apply(res.Reload); err != nil && types.KindOf(err) != types.ErrKindStale {
		return fmt.Errorf("reload after edit: %w", err)
	}
	return nil
}

// Commit confirms and writes the pending edit synchronously.
func (p *Protocol) Commit(ctx context.Context, src source.ByteSource) error {
	req, err := p.Confirm()
	if err != nil {
		return err
	}
	return p.Finish(Execute(ctx, src, req))
}
