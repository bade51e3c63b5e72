// Package tui provides the Bubble Tea focus dashboard.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/session"
	statsPkg "github.com/verte-zerg/neurocursor/internal/stats"
)

const (
	trailSize      = 50
	noticeLifetime = 4 * time.Second
	barWidth       = 30
	settleEpsilon  = 0.05
	maxCountdown   = 99*60 + 59
)

// Engine is the part of the session engine the dashboard drives.
type Engine interface {
	State(now time.Time) session.State
	Advance(now time.Time)
	SkipReset(now time.Time) bool
	StartNewSession(ctx context.Context, now time.Time) string
	Report(now time.Time) model.WellbeingReport
	RequestCalibration(ctx context.Context, now time.Time)
	ToggleMute(now time.Time) bool
}

// Options configures the dashboard.
type Options struct {
	Relay *Relay
	Clock func() time.Time
	// Copy writes the report to the clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

type tickMsg struct{ at time.Time }

type frameMsg struct{}

type copiedMsg struct{ err error }

// Model implements the Bubble Tea dashboard.
type Model struct {
	engine Engine
	relay  *Relay
	clock  func() time.Time
	copy   func(string) error

	keys      keyMap
	help      help.Model
	shieldBar progress.Model
	chargeBar progress.Model

	spring    harmonica.Spring
	focusPos  float64
	focusVel  float64
	animating bool
	primed    bool

	state       session.State
	focusTrail  []float64
	stressTrail []float64

	width  int
	height int

	showReport bool
	report     model.WellbeingReport
	notice     string
	noticeAt   time.Time
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	badgeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#1E1E1E")).Background(lipgloss.Color("#C89A3A")).Padding(0, 1)
	strainStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#FF4D4F")).Bold(true).Padding(0, 1)
	lineStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB3D5")).Italic(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	plainStyle     = lipgloss.NewStyle()
	tipTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tipBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	tipBulletStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E")).Padding(0, 1)
	zenStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#5FB3A1")).Padding(1, 4).Align(lipgloss.Center)
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C89A3A")).Padding(1, 2)
)

// NewModel constructs the dashboard for engine.
func NewModel(engine Engine, opts Options) *Model {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	m := &Model{
		engine:    engine,
		relay:     opts.Relay,
		clock:     clock,
		copy:      copyFn,
		keys:      newKeyMap(),
		help:      help.New(),
		shieldBar: progress.New(progress.WithGradient("#FF4D4F", "#5FB3A1"), progress.WithoutPercentage(), progress.WithWidth(barWidth)),
		chargeBar: progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage(), progress.WithWidth(barWidth)),
		spring:    harmonica.NewSpring(harmonica.FPS(30), 6.0, 1.0),
	}
	m.refresh(clock())
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.relay.wait())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(now time.Time) tea.Msg { return tickMsg{at: now} })
}

func frameCmd() tea.Cmd {
	return tea.Tick(time.Second/30, func(time.Time) tea.Msg { return frameMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeBars()
		return m, nil
	case tickMsg:
		m.engine.Advance(msg.at)
		m.refresh(msg.at)
		m.expireNotice(msg.at)
		return m, tea.Batch(tickCmd(), m.animate())
	case frameMsg:
		return m, m.stepFocus()
	case EventMsg:
		now := m.clock()
		m.handleEvent(session.Event(msg), now)
		m.refresh(now)
		return m, tea.Batch(m.relay.wait(), m.animate())
	case copiedMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Copy failed: %v", msg.err), m.clock())
		} else {
			m.setNotice("Report copied to clipboard", m.clock())
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := m.clock()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Close):
		m.showReport = false
	case key.Matches(msg, m.keys.Report):
		m.showReport = !m.showReport
		if m.showReport {
			m.report = m.engine.Report(now)
		}
	case key.Matches(msg, m.keys.Copy):
		summary := m.engine.Report(now).FormattedSummary
		copyFn := m.copy
		return m, func() tea.Msg { return copiedMsg{err: copyFn(summary)} }
	case key.Matches(msg, m.keys.NewSession):
		engine := m.engine
		return m, func() tea.Msg {
			engine.StartNewSession(context.Background(), now)
			return nil
		}
	case key.Matches(msg, m.keys.Calibrate):
		engine := m.engine
		return m, func() tea.Msg {
			engine.RequestCalibration(context.Background(), now)
			return nil
		}
	case key.Matches(msg, m.keys.Skip):
		if !m.engine.SkipReset(now) {
			m.setNotice("No guided reset running", now)
		}
	case key.Matches(msg, m.keys.Mute):
		m.engine.ToggleMute(now)
	default:
		return m, nil
	}
	m.refresh(now)
	return m, nil
}

func (m *Model) handleEvent(ev session.Event, now time.Time) {
	switch ev.Kind {
	case session.EventSample:
		m.focusTrail = appendTrail(m.focusTrail, ev.Scores.FocusScore)
		m.stressTrail = appendTrail(m.stressTrail, ev.Scores.StressScore)
	case session.EventSessionStarted:
		if ev.Archived != nil {
			m.setNotice(fmt.Sprintf("New session started; archived previous (score %d, %s)", ev.Archived.Score, ev.Archived.Profile), now)
		} else {
			m.setNotice("New session started", now)
		}
		if m.showReport {
			m.report = m.engine.Report(now)
		}
	case session.EventResetEnded:
		if ev.Skipped {
			m.setNotice("Guided reset skipped", now)
		} else {
			m.setNotice("Guided reset complete", now)
		}
	case session.EventCalibrationFinished:
		m.setNotice("Calibration complete", now)
	case session.EventVoiceChanged:
		if ev.Muted {
			m.setNotice("Voice muted", now)
		} else {
			m.setNotice("Voice on", now)
		}
	}
}

func appendTrail(trail []float64, v float64) []float64 {
	trail = append(trail, v)
	if len(trail) > trailSize {
		trail = append(trail[:0], trail[len(trail)-trailSize:]...)
	}
	return trail
}

func (m *Model) refresh(now time.Time) {
	m.state = m.engine.State(now)
	// Snap to the first real reading instead of animating from the placeholder.
	if !m.primed {
		m.focusPos = m.state.Scores.FocusScore
		m.focusVel = 0
		m.primed = m.state.HasSample
	}
}

func (m *Model) animate() tea.Cmd {
	if m.animating || settled(m.focusPos, m.focusVel, m.state.Scores.FocusScore) {
		return nil
	}
	m.animating = true
	return frameCmd()
}

func (m *Model) stepFocus() tea.Cmd {
	target := m.state.Scores.FocusScore
	m.focusPos, m.focusVel = m.spring.Update(m.focusPos, m.focusVel, target)
	if settled(m.focusPos, m.focusVel, target) {
		m.focusPos = target
		m.focusVel = 0
		m.animating = false
		return nil
	}
	return frameCmd()
}

func settled(pos, vel, target float64) bool {
	return math.Abs(pos-target) < settleEpsilon && math.Abs(vel) < settleEpsilon
}

func (m *Model) setNotice(text string, now time.Time) {
	m.notice = text
	m.noticeAt = now
}

func (m *Model) expireNotice(now time.Time) {
	if m.notice != "" && now.Sub(m.noticeAt) >= noticeLifetime {
		m.notice = ""
	}
}

func (m *Model) resizeBars() {
	w := barWidth
	if m.width > 0 && m.width/2 < w {
		w = m.width / 2
	}
	if w < 10 {
		w = 10
	}
	m.shieldBar.Width = w
	m.chargeBar.Width = w
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch {
	case m.showReport:
		body = m.renderReport()
	case m.state.Reset.Active:
		body = m.renderZen()
	default:
		body = m.renderDashboard()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return body + "\n" + footer
	}
	footerHeight := lipgloss.Height(footer)
	if m.height <= footerHeight+1 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	main := lipgloss.Place(m.width, m.height-footerHeight, lipgloss.Center, lipgloss.Center, body)
	return main + "\n" + lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Bottom, footer)
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 72
	}
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = m.width
	}
	return w
}

func (m *Model) renderDashboard() string {
	sections := []string{m.renderHeader()}
	if banner := m.renderBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections,
		m.renderGauges(),
		m.renderTrend(),
		m.renderSession(),
		m.renderTip(),
	)
	if m.state.LastLine != "" {
		sections = append(sections, lineStyle.Render(fmt.Sprintf("%q", m.state.LastLine)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	segments := []string{
		titleStyle.Render("NEUROCURSOR"),
		labelStyle.Render("session ") + valueStyle.Render(shortID(m.state.SessionID)),
		labelStyle.Render("elapsed ") + valueStyle.Render(formatElapsed(m.state.Duration)),
	}
	if m.state.Idle {
		segments = append(segments, badgeStyle.Render("IDLE"))
	}
	if m.state.Muted {
		segments = append(segments, badgeStyle.Render("MUTED"))
	}
	if label := m.state.CalibrationLabel(); label != "" {
		segments = append(segments, badgeStyle.Render(label))
	} else if m.state.CoachActive {
		segments = append(segments, labelStyle.Render("coach active"))
	}
	return strings.Join(segments, "  ")
}

func (m *Model) renderBanner() string {
	if !m.state.Strained() {
		return ""
	}
	return strainStyle.Render("HIGH STRAIN DETECTED • slow down and breathe")
}

func (m *Model) renderGauges() string {
	focus := fmt.Sprintf("%s %s  %s",
		labelStyle.Render("Focus "),
		valueStyle.Render(fmt.Sprintf("%3.0f", m.focusPos)),
		m.state.Descriptor,
	)
	stress := fmt.Sprintf("%s %s  %s",
		labelStyle.Render("Stress"),
		valueStyle.Render(fmt.Sprintf("%3.0f", m.state.Scores.StressScore)),
		m.state.StrainLabel,
	)
	shield := fmt.Sprintf("%s %s %s",
		labelStyle.Render("Shield"),
		m.shieldBar.ViewAs(m.state.Shield/100),
		valueStyle.Render(fmt.Sprintf("%3.0f HP", m.state.Shield)),
	)
	charge := fmt.Sprintf("%s %s %s  %s",
		labelStyle.Render("Charge"),
		m.chargeBar.ViewAs(m.state.Charge),
		valueStyle.Render(fmt.Sprintf("%3.0f%%", m.state.Charge*100)),
		labelStyle.Render("Next recommended reset in "+formatCountdown(m.state.SecondsToBreak)),
	)
	return strings.Join([]string{focus, stress, shield, charge}, "\n")
}

func (m *Model) renderTrend() string {
	if len(m.focusTrail) == 0 {
		return labelStyle.Render("Waiting for telemetry...")
	}
	return strings.Join([]string{
		labelStyle.Render("Focus  ") + statsPkg.Sparkline(m.focusTrail),
		labelStyle.Render("Stress ") + statsPkg.Sparkline(m.stressTrail),
	}, "\n")
}

func (m *Model) renderSession() string {
	stats := m.state.Stats
	return footerStyle.Render(fmt.Sprintf("Micro-stress %d  High load %s  Avg focus %.0f%%  Samples %d",
		stats.MicroStressEvents,
		statsPkg.HighLoadLabel(stats.HighLoadDuration.Minutes()),
		stats.AverageFocus,
		stats.SampleCount,
	))
}

func (m *Model) renderTip() string {
	width := m.contentWidth() - 4
	text := wrapStyledRunes(buildTipRunes(m.state.Tip), width)
	if m.state.Tip.Action != "" {
		text += "\n" + labelStyle.Render("Try: ") + wrapText(m.state.Tip.Action, width-5)
	}
	return cardStyle.Width(m.contentWidth()).Render(text)
}

func (m *Model) renderZen() string {
	now := m.clock()
	cue := "Breathe in"
	if phase := int(now.Sub(m.state.Reset.StartedAt)/(4*time.Second)) % 2; phase == 1 {
		cue = "Breathe out"
	}
	lines := []string{
		titleStyle.Render("GUIDED RESET"),
		"",
		valueStyle.Render(formatCountdown(float64(m.state.Reset.Remaining))),
		"",
		cue,
		"",
		labelStyle.Render("Look away from the screen and relax your hand."),
		labelStyle.Render("press s to skip"),
	}
	return zenStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderReport() string {
	text := m.report.FormattedSummary + "\n\n" + labelStyle.Render("y copy  r/esc close")
	return modalStyle.Render(text)
}

func (m *Model) renderFooter() string {
	lines := []string{}
	if m.notice != "" {
		lines = append(lines, footerStyle.Render(m.notice))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, mnt, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

// formatCountdown renders seconds as m:ss, or --:-- when there is no finite estimate.
func formatCountdown(seconds float64) string {
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) || seconds < 0 {
		return "--:--"
	}
	if seconds > maxCountdown {
		seconds = maxCountdown
	}
	s := int(math.Ceil(seconds))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
