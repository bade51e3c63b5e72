package historyui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Open     key.Binding
	Copy     key.Binding
	Filter   key.Binding
	Wider    key.Binding
	Narrower key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next:     key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→", "next")),
		Prev:     key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←", "prev")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open report")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Wider:    key.NewBinding(key.WithKeys("=", "+"), key.WithHelp("=", "smoother")),
		Narrower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "sharper")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// pageHelp narrows the help line to the keys that act on the current page.
type pageHelp struct {
	keys keyMap
	page page
}

func (h pageHelp) ShortHelp() []key.Binding {
	k := h.keys
	switch h.page {
	case pageSessions:
		return []key.Binding{k.Prev, k.Next, k.Open, k.Filter, k.Quit}
	case pageReport:
		return []key.Binding{k.Prev, k.Next, k.Copy, k.Top, k.Filter, k.Quit}
	default:
		return []key.Binding{k.Prev, k.Next, k.Narrower, k.Wider, k.Filter, k.Quit}
	}
}

func (h pageHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}
