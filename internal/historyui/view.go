package historyui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/stats"
)

const (
	emptyText  = "No sessions found."
	plotHeight = 10
)

var (
	accent = lipgloss.Color("#C89A3A")
	muted  = lipgloss.Color("#6E6E6E")

	activeTabStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(muted)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle        = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)

	profileStyles = map[model.Profile]lipgloss.Style{
		model.ProfileBalanced:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5FB36B")).Bold(true),
		model.ProfileModerate:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		model.ProfileHighStrain: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	return strings.Join([]string{
		frame(m.headerView(), m.width, headerHeight),
		frame(m.bodyView(), m.width, m.bodyHeight()),
		frame(m.footerView(), m.width, m.footerHeight()),
	}, "\n")
}

func (m *Model) headerView() string {
	tabs := make([]string, len(pageTitles))
	for i, title := range pageTitles {
		if page(i) == m.page {
			tabs[i] = activeTabStyle.Render(title)
		} else {
			tabs[i] = inactiveTabStyle.Render(title)
		}
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format(dateLayout)
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	settings := fmt.Sprintf("since %s · last %s · window %d · %d sessions", since, last, m.window, len(m.reports))
	return strings.Join(tabs, mutedStyle.Render("  │  ")) + "\n" + mutedStyle.Render(clip(settings, m.width))
}

func (m *Model) bodyView() string {
	if m.form != nil {
		return m.form.view()
	}
	switch m.page {
	case pageSessions:
		if len(m.reports) == 0 {
			return emptyText
		}
		return m.sessions.View()
	case pageReport:
		return m.detail.View()
	default:
		return m.overview.View()
	}
}

func (m *Model) footerView() string {
	if m.form != nil {
		return mutedStyle.Render("tab: next field  enter: apply  esc: cancel")
	}
	line := m.help.View(pageHelp{keys: m.keys, page: m.page})
	switch {
	case m.loadErr != nil:
		return line + "\n" + errorStyle.Render(m.loadErr.Error())
	case m.notice != "":
		return line + "\n" + mutedStyle.Render(m.notice)
	default:
		return line
	}
}

func overviewView(reports []model.ArchivedReport, window, width int) string {
	if len(reports) == 0 {
		return emptyText
	}
	parts := []string{summaryCards(reports, width), profileMix(reports)}
	var buf bytes.Buffer
	if err := stats.RenderHistoryTrend(&buf, reports, window, width, plotHeight, true); err != nil {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("Failed to render trend: %v", err)))
	} else if buf.Len() > 0 {
		parts = append(parts, strings.TrimRight(buf.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func summaryCards(reports []model.ArchivedReport, width int) string {
	var scoreSum, focusSum, minutes float64
	best, events := 0, 0
	for _, r := range reports {
		scoreSum += float64(r.Score)
		focusSum += r.AverageFocus
		minutes += float64(r.DurationMs) / 60000.0
		events += r.MicroStressEvents
		best = max(best, r.Score)
	}
	n := float64(len(reports))
	cards := []string{
		card("Sessions", strconv.Itoa(len(reports))),
		card("Avg Score", fmt.Sprintf("%.1f", scoreSum/n)),
		card("Best Score", strconv.Itoa(best)),
		card("Avg Focus", fmt.Sprintf("%.1f%%", focusSum/n)),
		card("Total Time", fmt.Sprintf("%.1f min", minutes)),
		card("Micro-stress", strconv.Itoa(events)),
	}
	if width < 80 {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...),
	)
}

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

// profileMix counts sessions per wellbeing profile.
func profileMix(reports []model.ArchivedReport) string {
	counts := make(map[model.Profile]int)
	for _, r := range reports {
		counts[r.Profile]++
	}
	parts := []string{cardLabelStyle.Render("Profiles:")}
	for _, p := range []model.Profile{model.ProfileBalanced, model.ProfileModerate, model.ProfileHighStrain} {
		parts = append(parts, profileStyles[p].Render(fmt.Sprintf("%s %d", p, counts[p])))
	}
	return strings.Join(parts, "  ")
}

func reportView(r model.ArchivedReport) string {
	header := mutedStyle.Render(fmt.Sprintf("Session %s  %s → %s",
		r.ID,
		r.StartedAt.Local().Format("2006-01-02 15:04"),
		r.EndedAt.Local().Format("15:04"),
	))
	profile := profileStyles[r.Profile].Render(fmt.Sprintf("%s (%d/100)", r.Profile.Label(), r.Score))
	return header + "\n" + profile + "\n\n" + r.Summary
}

var sessionColumnWidths = []int{16, 11, 5, 7, 8, 6, 5}

func newSessionTable(reports []model.ArchivedReport, width, height int) table.Model {
	headers, cells := stats.HistoryRows(reports)
	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		columns[i] = table.Column{Title: h, Width: max(sessionColumnWidths[i], len(h))}
	}
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c)
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#4A4A4A"))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#3A3020")).
		Bold(true)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
		table.WithStyles(styles),
	)
	t.SetWidth(width)
	if len(rows) > 0 {
		t.SetCursor(len(rows) - 1)
	}
	return t
}

// frame pads every line to width and the block to exactly height lines.
func frame(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		if pad := width - lipgloss.Width(line); pad > 0 {
			lines[i] = line + strings.Repeat(" ", pad)
		}
	}
	return strings.Join(lines, "\n")
}

// clip shortens s to width runes, marking the cut with an ellipsis.
func clip(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
