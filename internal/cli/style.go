package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// textStyles renders headings and tables for text output. Colour is dropped
// automatically when w is not a terminal.
type textStyles struct {
	renderer *lipgloss.Renderer
	heading  lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	border   lipgloss.Style
	ok       lipgloss.Style
	muted    lipgloss.Style
}

func newTextStyles(w io.Writer, noColor bool) *textStyles {
	r := lipgloss.NewRenderer(w)
	s := &textStyles{
		renderer: r,
		heading:  r.NewStyle().Bold(true),
		header:   r.NewStyle().Bold(true).Padding(0, 1),
		cell:     r.NewStyle().Padding(0, 1),
		border:   r.NewStyle(),
		ok:       r.NewStyle(),
		muted:    r.NewStyle(),
	}
	if !noColor {
		s.heading = s.heading.Foreground(lipgloss.Color("#5B8DEF"))
		s.header = s.header.Foreground(lipgloss.Color("#F7B801"))
		s.border = s.border.Foreground(lipgloss.Color("#888888"))
		s.ok = s.ok.Foreground(lipgloss.Color("#4CAF50")).Bold(true)
		s.muted = s.muted.Foreground(lipgloss.Color("#999999"))
	}
	return s
}

// table renders rows under headers with a normal border.
func (s *textStyles) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return s.cell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
