package hexgrid

// Selection is an inclusive byte interval with Start <= End.
type Selection struct {
	Start uint64
	End   uint64
}

// Len returns the number of selected bytes.
func (s Selection) Len() uint64 { return s.End - s.Start + 1 }

// Contains reports whether offset is selected.
func (s Selection) Contains(offset uint64) bool {
	return offset >= s.Start && offset <= s.End
}

// Tracker builds a single selection from pointer gestures: Begin on press,
// Extend on motion, End on release. The selection refers to cells by offset
// only, so it survives a grid reload as long as it stays inside the loaded
// range.
type Tracker struct {
	grid *Grid

	anchor   uint64
	sel      Selection
	active   bool
	dragging bool
	editMode bool
}

func NewTracker(g *Grid) *Tracker {
	return &Tracker{grid: g}
}

// Begin anchors a new selection at offset. It is ignored in edit mode or
// outside the loaded range.
func (t *Tracker) Begin(offset uint64) bool {
	if t.editMode || !t.grid.Loaded().Contains(offset) {
		return false
	}
	t.anchor = offset
	t.sel = Selection{Start: offset, End: offset}
	t.active = true
	t.dragging = true
	return true
}

// Extend moves the free end of a selection being dragged.
func (t *Tracker) Extend(offset uint64) bool {
	if !t.dragging {
		return false
	}
	return t.Adjust(offset)
}

// Adjust moves the free end of the current selection whether or not it is
// being dragged. Offsets outside the loaded range are clamped into it.
func (t *Tracker) Adjust(offset uint64) bool {
	loaded := t.grid.Loaded()
	if t.editMode || !t.active || loaded.Length == 0 {
		return false
	}
	if offset < loaded.Offset {
		offset = loaded.Offset
	}
	if last := loaded.End() - 1; offset > last {
		offset = last
	}
	if offset < t.anchor {
		t.sel = Selection{Start: offset, End: t.anchor}
	} else {
		t.sel = Selection{Start: t.anchor, End: offset}
	}
	return true
}

// End freezes the selection for downstream consumers. It does not clear it.
func (t *Tracker) End() {
	t.dragging = false
}

// Current returns the selection if one exists and lies inside the loaded range.
func (t *Tracker) Current() (Selection, bool) {
	if !t.active {
		return Selection{}, false
	}
	loaded := t.grid.Loaded()
	if !loaded.Contains(t.sel.Start) || !loaded.Contains(t.sel.End) {
		return Selection{}, false
	}
	return t.sel, true
}

// Frozen returns the current selection once the gesture has ended.
func (t *Tracker) Frozen() (Selection, bool) {
	if t.dragging {
		return Selection{}, false
	}
	return t.Current()
}

// Anchor returns the offset the selection was started from.
func (t *Tracker) Anchor() (uint64, bool) { return t.anchor, t.active }

// Dragging reports whether a gesture is in progress.
func (t *Tracker) Dragging() bool { return t.dragging }

// Bytes returns the bytes of the frozen selection.
func (t *Tracker) Bytes() []byte {
	sel, ok := t.Frozen()
	if !ok {
		return nil
	}
	return t.grid.Slice(sel.Start, sel.End)
}

func (t *Tracker) Clear() {
	t.active = false
	t.dragging = false
	t.sel = Selection{}
}

// SetEditMode toggles edit mode. Turning it on clears the selection; range
// selection and editing are mutually exclusive.
func (t *Tracker) SetEditMode(on bool) {
	if on {
		t.Clear()
	}
	t.editMode = on
}

func (t *Tracker) EditMode() bool { return t.editMode }
