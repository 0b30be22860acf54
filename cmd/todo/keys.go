package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the list-mode key bindings.
type keyMap struct {
	Quit      key.Binding
	Up        key.Binding
	Down      key.Binding
	New       key.Binding
	Toggle    key.Binding
	Remove    key.Binding
	ClearDone key.Binding
	Import    key.Binding
	Reset     key.Binding

	// Input mode
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		New: key.NewBinding(
			key.WithKeys("a", "n"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x", "toggle"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		ClearDone: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear done"),
		),
		Import: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "import"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
		),
	}
}

// help renders the short help line for list mode.
func (k keyMap) help() []key.Binding {
	return []key.Binding{k.New, k.Toggle, k.Remove, k.ClearDone, k.Import, k.Reset, k.Quit}
}
