package historyui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neurocursor/internal/model"
)

const (
	fieldSince = iota
	fieldLast
	fieldWindow
)

const dateLayout = "2006-01-02"

// filterForm edits the history filter and the trend window.
type filterForm struct {
	inputs []textinput.Model
	focus  int
	err    string
}

func newFilterForm(filter model.HistoryFilter, window int) *filterForm {
	f := &filterForm{inputs: []textinput.Model{
		formInput("Since (YYYY-MM-DD): "),
		formInput("Last N sessions: "),
		formInput("Trend window: "),
	}}
	if filter.Since != nil {
		f.inputs[fieldSince].SetValue(filter.Since.Format(dateLayout))
	}
	if filter.Last > 0 {
		f.inputs[fieldLast].SetValue(strconv.Itoa(filter.Last))
	}
	f.inputs[fieldWindow].SetValue(strconv.Itoa(window))
	return f
}

func formInput(prompt string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Cursor.SetMode(cursor.CursorBlink)
	return in
}

// focusField moves focus, wrapping at both ends.
func (f *filterForm) focusField(i int) tea.Cmd {
	n := len(f.inputs)
	f.focus = (i%n + n) % n
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
			continue
		}
		f.inputs[j].Blur()
	}
	return cmd
}

func (f *filterForm) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		return f.focusField(f.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return f.focusField(f.focus - 1)
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *filterForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = max(10, width-lipgloss.Width(f.inputs[i].Prompt)-2)
	}
}

// parse validates the fields. Empty fields mean no bound and the default window.
func (f *filterForm) parse() (model.HistoryFilter, int, error) {
	var filter model.HistoryFilter
	if v := strings.TrimSpace(f.inputs[fieldSince].Value()); v != "" {
		since, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return filter, 0, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		filter.Since = &since
	}
	if v := strings.TrimSpace(f.inputs[fieldLast].Value()); v != "" {
		last, err := strconv.Atoi(v)
		if err != nil || last < 0 {
			return filter, 0, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		filter.Last = last
	}
	window := defaultWindow
	if v := strings.TrimSpace(f.inputs[fieldWindow].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, 0, fmt.Errorf("invalid trend window (use integer >= 1)")
		}
		window = n
	}
	return filter, window, nil
}

func (f *filterForm) view() string {
	lines := []string{titleStyle.Render("Filter history")}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
