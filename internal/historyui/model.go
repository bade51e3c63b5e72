// Package historyui provides the Bubble Tea browser for archived session reports.
package historyui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/neurocursor/internal/model"
)

type page int

const (
	pageOverview page = iota
	pageSessions
	pageReport
	pageCount
)

var pageTitles = [pageCount]string{"Overview", "Sessions", "Report"}

const (
	defaultWindow = 5
	fallbackWidth = 80
	headerHeight  = 2
)

// Lister loads archived reports.
type Lister interface {
	ListReports(ctx context.Context, filter model.HistoryFilter) ([]model.ArchivedReport, error)
}

// Config holds the initial filter and trend smoothing window.
type Config struct {
	Filter model.HistoryFilter
	Window int
	// Copy writes a report to the clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

// Model implements the Bubble Tea history browser.
type Model struct {
	lister Lister
	filter model.HistoryFilter
	window int
	copy   func(string) error

	keys keyMap
	help help.Model

	reports  []model.ArchivedReport
	loadErr  error
	notice   string
	selected int

	page     page
	overview viewport.Model
	detail   viewport.Model
	sessions table.Model

	// form is non-nil while the filter is being edited.
	form *filterForm

	width  int
	height int
}

// NewModel constructs a history browser and loads the first page of reports.
func NewModel(lister Lister, cfg Config) *Model {
	window := cfg.Window
	if window < 1 {
		window = defaultWindow
	}
	copyFn := cfg.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	m := &Model{
		lister:   lister,
		filter:   cfg.Filter,
		window:   window,
		copy:     copyFn,
		keys:     newKeyMap(),
		help:     help.New(),
		selected: -1,
		overview: viewport.New(0, 0),
		detail:   viewport.New(0, 0),
	}
	m.sessions = newSessionTable(nil, fallbackWidth, 1)
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if m.form != nil {
			return m, m.updateForm(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.turnPage(1)
		return tea.ClearScreen
	case key.Matches(msg, m.keys.Prev):
		m.turnPage(-1)
		return tea.ClearScreen
	case key.Matches(msg, m.keys.Filter):
		m.form = newFilterForm(m.filter, m.window)
		m.form.setWidth(m.width)
		return m.form.focusField(fieldSince)
	case key.Matches(msg, m.keys.Wider):
		m.window = nextWindow(m.window)
		m.renderOverview()
	case key.Matches(msg, m.keys.Narrower):
		m.window = prevWindow(m.window)
		m.renderOverview()
	case key.Matches(msg, m.keys.Open) && m.page == pageSessions:
		if len(m.reports) > 0 {
			m.selectReport(m.sessions.Cursor())
			m.setPage(pageReport)
			return tea.ClearScreen
		}
	case key.Matches(msg, m.keys.Copy) && m.page == pageReport:
		m.copySelected()
	case key.Matches(msg, m.keys.Top):
		m.jump(true)
	case key.Matches(msg, m.keys.Bottom):
		m.jump(false)
	default:
		return m.forward(msg)
	}
	return nil
}

func (m *Model) updateForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		m.form = nil
		return nil
	case tea.KeyEnter:
		filter, window, err := m.form.parse()
		if err != nil {
			m.form.err = err.Error()
			return nil
		}
		m.form = nil
		m.filter = filter
		m.window = window
		m.reload()
		m.resize()
		return nil
	}
	return m.form.update(msg)
}

// forward hands unbound keys to the component of the current page.
func (m *Model) forward(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.page {
	case pageSessions:
		m.sessions, cmd = m.sessions.Update(msg)
	case pageReport:
		m.detail, cmd = m.detail.Update(msg)
	default:
		m.overview, cmd = m.overview.Update(msg)
	}
	return cmd
}

func (m *Model) jump(top bool) {
	switch m.page {
	case pageSessions:
		if top {
			m.sessions.GotoTop()
		} else {
			m.sessions.GotoBottom()
		}
	case pageReport:
		if top {
			m.detail.GotoTop()
		} else {
			m.detail.GotoBottom()
		}
	default:
		if top {
			m.overview.GotoTop()
		} else {
			m.overview.GotoBottom()
		}
	}
}

func (m *Model) turnPage(delta int) {
	m.setPage(page((int(m.page) + delta + int(pageCount)) % int(pageCount)))
}

func (m *Model) setPage(p page) {
	m.page = p
	if p == pageSessions {
		m.sessions.Focus()
	} else {
		m.sessions.Blur()
	}
}

func (m *Model) copySelected() {
	if m.selected < 0 || m.selected >= len(m.reports) {
		return
	}
	if err := m.copy(m.reports[m.selected].Summary); err != nil {
		m.notice = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.notice = "Report copied to clipboard"
}

// reload queries the lister with the current filter and selects the newest report.
func (m *Model) reload() {
	reports, err := m.lister.ListReports(context.Background(), m.filter)
	m.loadErr = err
	if err != nil {
		m.reports = nil
		m.selected = -1
		m.sessions = newSessionTable(nil, m.bodyWidth(), m.bodyHeight())
		m.overview.SetContent("Failed to load history.")
		m.detail.SetContent("Failed to load history.")
		return
	}
	m.reports = reports
	m.sessions = newSessionTable(reports, m.bodyWidth(), m.bodyHeight())
	m.setPage(m.page)
	m.selectReport(len(reports) - 1)
	m.renderOverview()
}

func (m *Model) selectReport(idx int) {
	if idx < 0 || idx >= len(m.reports) {
		m.selected = -1
		m.detail.SetContent(emptyText)
		return
	}
	m.selected = idx
	m.detail.SetContent(reportView(m.reports[idx]))
	m.detail.GotoTop()
}

func (m *Model) renderOverview() {
	if m.loadErr != nil {
		return
	}
	m.overview.SetContent(overviewView(m.reports, m.window, m.bodyWidth()))
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := m.bodyHeight()
	m.overview.Width, m.overview.Height = m.width, h
	m.detail.Width, m.detail.Height = m.width, h
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(max(1, h-1))
	m.help.Width = m.width
	if m.form != nil {
		m.form.setWidth(m.width)
	}
}

func (m *Model) bodyWidth() int {
	if m.width <= 0 {
		return fallbackWidth
	}
	return m.width
}

func (m *Model) footerHeight() int {
	if m.form == nil && (m.loadErr != nil || m.notice != "") {
		return 2
	}
	return 1
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-headerHeight-m.footerHeight())
}

// nextWindow steps the smoothing window up to the next multiple of five.
func nextWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

// prevWindow steps down to the previous multiple of five, bottoming out at 1.
func prevWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return n / 5 * 5
}
