package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Report     key.Binding
	NewSession key.Binding
	Skip       key.Binding
	Mute       key.Binding
	Calibrate  key.Binding
	Copy       key.Binding
	Close      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Report:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "report")),
		NewSession: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new session")),
		Skip:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip reset")),
		Mute:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "voice on/off")),
		Calibrate:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calibrate")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy report")),
		Close:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Report, k.Skip, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Report, k.Copy, k.Close},
		{k.NewSession, k.Skip, k.Calibrate},
		{k.Mute, k.Help, k.Quit},
	}
}
