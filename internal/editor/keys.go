package editor

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the main view shortcuts. Dialogs and edit input read raw
// keys instead.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Selection
	SelectUp    key.Binding
	SelectDown  key.Binding
	SelectLeft  key.Binding
	SelectRight key.Binding
	Copy        key.Binding

	// Editing
	EditMode     key.Binding
	EditCell     key.Binding
	EditChar     key.Binding
	EditRow      key.Binding
	EditASCIIRow key.Binding

	// Commands
	Find           key.Binding
	NextMatch      key.Binding
	Goto           key.Binding
	Stats          key.Binding
	ToggleBookmark key.Binding
	NextBookmark   key.Binding
	Help           key.Binding
	Quit           key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "row up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "row down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "byte left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "byte right"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "previous page"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "next page"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "start of row"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "end of row"),
		),

		SelectUp: key.NewBinding(
			key.WithKeys("shift+up"),
			key.WithHelp("shift+↑", "extend selection"),
		),
		SelectDown: key.NewBinding(
			key.WithKeys("shift+down"),
			key.WithHelp("shift+↓", "extend selection"),
		),
		SelectLeft: key.NewBinding(
			key.WithKeys("shift+left"),
			key.WithHelp("shift+←", "extend selection"),
		),
		SelectRight: key.NewBinding(
			key.WithKeys("shift+right"),
			key.WithHelp("shift+→", "extend selection"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y", "ctrl+c"),
			key.WithHelp("y", "copy selection as hex"),
		),

		EditMode: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle edit mode"),
		),
		EditCell: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit byte (hex)"),
		),
		EditChar: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "edit byte (text)"),
		),
		EditRow: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "edit row (hex)"),
		),
		EditASCIIRow: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "edit row (text)"),
		),

		Find: key.NewBinding(
			key.WithKeys("f", "/"),
			key.WithHelp("f", "find hex pattern"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		Goto: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goto offset"),
		),
		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "histogram and entropy"),
		),
		ToggleBookmark: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle bookmark"),
		),
		NextBookmark: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "next bookmark"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "f1"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// helpSections groups bindings for the help screen.
func (k KeyMap) helpSections() []struct {
	title    string
	bindings []key.Binding
} {
	return []struct {
		title    string
		bindings []key.Binding
	}{
		{"NAVIGATION", []key.Binding{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown, k.Home, k.End, k.Goto}},
		{"SELECTION", []key.Binding{k.SelectUp, k.SelectDown, k.SelectLeft, k.SelectRight, k.Copy}},
		{"EDITING", []key.Binding{k.EditMode, k.EditCell, k.EditChar, k.EditRow, k.EditASCIIRow}},
		{"OTHER", []key.Binding{k.Find, k.NextMatch, k.Stats, k.ToggleBookmark, k.NextBookmark, k.Help, k.Quit}},
	}
}
