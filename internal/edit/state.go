// Package edit stages and commits byte-level edits against the rows shown by
// a hexgrid.Grid.
package edit

import "fmt"

// Kind is the granularity of an edit.
type Kind int

const (
	KindCell      Kind = iota // one byte as two hex digits
	KindAsciiChar             // one byte as a character
	KindRow                   // a row as hex tokens
	KindAsciiRow              // a row as text, space padded
)

func (k Kind) String() string {
	switch k {
	case KindCell:
		return "cell"
	case KindAsciiChar:
		return "ascii"
	case KindRow:
		return "row"
	case KindAsciiRow:
		return "ascii-row"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MultiByte reports whether the kind replaces a whole row.
func (k Kind) MultiByte() bool { return k == KindRow || k == KindAsciiRow }

// PendingEdit is a validated replacement waiting to be written.
type PendingEdit struct {
	FileID string
	Kind   Kind
	Target uint64
	Bytes  []byte

	// Old holds the bytes shown in the grid when the edit was staged.
	Old []byte
}

// End returns the first offset past the edit.
func (e PendingEdit) End() uint64 { return e.Target + uint64(len(e.Bytes)) }

// State is one of Viewing, Editing, PendingConfirmation or Committing.
type State interface {
	Name() string
	state()
}

// Viewing is the idle state.
type Viewing struct{}

// Editing collects input for one target.
type Editing struct {
	Kind   Kind
	Target uint64
	Input  string
}

// PendingConfirmation holds a validated edit until the user confirms it.
// Multi-byte edits carry a Warning that must be acknowledged first.
type PendingConfirmation struct {
	Edit    PendingEdit
	Warning string
	Acked   bool
}

// Committing is entered on Confirm and left when the write completes.
type Committing struct {
	Edit PendingEdit
}

func (Viewing) Name() string             { return "viewing" }
func (Editing) Name() string             { return "editing" }
func (PendingConfirmation) Name() string { return "confirm" }
func (Committing) Name() string          { return "committing" }

func (Viewing) state()             {}
func (Editing) state()             {}
func (PendingConfirmation) state() {}
func (Committing) state()          {}
