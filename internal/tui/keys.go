package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start           key.Binding
	Stuck           key.Binding
	Next            key.Binding
	Hint            key.Binding
	InstructionHint key.Binding
	Restart         key.Binding
	Reset           key.Binding
	LearnMore       key.Binding
	Quit            key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "start tutorial"),
		),
		Stuck: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "help! I am stuck"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next step"),
		),
		Hint: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "I am stuck"),
		),
		InstructionHint: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "explain instructions"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart tutorial"),
		),
		Reset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "new problem"),
		),
		LearnMore: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "learn more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// bindings are the keys of one screen; they implement help.KeyMap.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding  { return b }
func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }
