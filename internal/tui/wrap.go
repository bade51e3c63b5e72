package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/neurocursor/internal/coach"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledText styles every rune of text, rendering spaces unstyled so the
// wrapper can break on them.
func buildStyledText(text string, style lipgloss.Style) []styledRune {
	out := make([]styledRune, 0, len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		if r == ' ' {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
			continue
		}
		out = append(out, styledRune{
			s:     style.Render(string(r)),
			width: runewidth.RuneWidth(r),
		})
	}
	return out
}

// buildTipRunes lays out a tip card as "Title • body" followed by the action.
func buildTipRunes(tip coach.Tip) []styledRune {
	out := buildStyledText(tip.Title, tipTitleStyle)
	if tip.Body != "" {
		out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		out = append(out, styledRune{s: tipBulletStyle.Render("•"), width: runewidth.RuneWidth('•')})
		out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		out = append(out, buildStyledText(tip.Body, tipBodyStyle)...)
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		// A space never starts a wrapped line.
		if item.isSpace && len(line) == 0 && out.Len() > 0 {
			i++
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

// wrapText wraps unstyled text to width display cells.
func wrapText(text string, width int) string {
	return wrapStyledRunes(buildStyledText(text, plainStyle), width)
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
