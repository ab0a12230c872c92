package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds the dashboard controls.
type KeyMap struct {
	Quit   key.Binding
	Pause  key.Binding
	Clear  key.Binding
	Errors key.Binding
	Up     key.Binding
	Down   key.Binding
}

func bind(help string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], help))
}

// DefaultKeyMap pauses the quote feed with p and scrolls it with the arrows
// or vim keys.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:   bind("quit", "q", "ctrl+c"),
		Pause:  bind("pause quote feed", "p"),
		Clear:  bind("clear quotes", "c"),
		Errors: bind("dismiss errors", "e"),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "older quotes")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "newer quotes")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.Clear, k.Errors}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Pause, k.Clear, k.Errors, k.Quit},
	}
}
