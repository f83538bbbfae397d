package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Input     key.Binding
	Submit    key.Binding
	Cancel    key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Up        key.Binding
	Down      key.Binding
	Next      key.Binding
	All       key.Binding
	Active    key.Binding
	Completed key.Binding
	SignOut   key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Input:     key.NewBinding(key.WithKeys("a", "i"), key.WithHelp("a", "add")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filter")),
		All:       key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "all")),
		Active:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "active")),
		Completed: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "completed")),
		SignOut:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sign out")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Input, k.Toggle, k.Delete, k.Next, k.SignOut, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Input, k.Submit, k.Cancel},
		{k.Up, k.Down, k.Toggle, k.Delete},
		{k.Next, k.All, k.Active, k.Completed},
		{k.SignOut, k.Quit},
	}
}
