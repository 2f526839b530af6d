package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Green     = lipgloss.Color("#22C55E")
	Red       = lipgloss.Color("#EF4444")
	Amber     = lipgloss.Color("#F59E0B")
	Blue      = lipgloss.Color("#3B82F6")
	White     = lipgloss.Color("#FFFFFF")
	LightGray = lipgloss.Color("#9CA3AF")
)

// Output is where all ui functions write. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

// DebugEnabled toggles Debug output.
var DebugEnabled bool

func symbol(color lipgloss.Color, s string) string {
	return lipgloss.NewStyle().Foreground(color).Render(s)
}

func Info(format string, a ...any) {
	fmt.Fprintf(Output, "%s %s\n", symbol(Blue, "●"), fmt.Sprintf(format, a...))
}

func Success(format string, a ...any) {
	fmt.Fprintf(Output, "%s %s\n", symbol(Green, "✔"), fmt.Sprintf(format, a...))
}

func Warn(format string, a ...any) {
	fmt.Fprintf(Output, "%s %s\n", symbol(Amber, "!"), fmt.Sprintf(format, a...))
}

func Error(format string, a ...any) {
	fmt.Fprintf(Output, "%s %s\n", symbol(Red, "✘"), fmt.Sprintf(format, a...))
}

func Debug(format string, a ...any) {
	if !DebugEnabled {
		return
	}
	fmt.Fprintf(Output, "%s %s\n", symbol(LightGray, "·"), lipgloss.NewStyle().Foreground(LightGray).Render(fmt.Sprintf(format, a...)))
}

func Basic(format string, a ...any) {
	fmt.Fprintf(Output, "%s\n", fmt.Sprintf(format, a...))
}

// Section prints a bold heading followed by indented lines.
func Section(heading string, lines []string) {
	fmt.Fprintln(Output, lipgloss.NewStyle().Bold(true).Render(heading))
	for _, line := range lines {
		for _, l := range strings.Split(line, "\n") {
			fmt.Fprintf(Output, "  %s\n", l)
		}
	}
}

// Table prints rows aligned under headers.
func Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(LightGray)
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerStyle.Render(pad(h, widths[i]))
	}
	fmt.Fprintln(Output, strings.Join(cells, "  "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if i < len(widths) {
				c = pad(c, widths[i])
			}
			cells[i] = c
		}
		fmt.Fprintln(Output, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// PrefixedUI prefixes every message, used when output for several environments interleaves.
type PrefixedUI struct {
	Prefix string
}

func (p *PrefixedUI) Info(format string, a ...any) {
	Info("%s%s", p.Prefix, fmt.Sprintf(format, a...))
}

func (p *PrefixedUI) Success(format string, a ...any) {
	Success("%s%s", p.Prefix, fmt.Sprintf(format, a...))
}

func (p *PrefixedUI) Warn(format string, a ...any) {
	Warn("%s%s", p.Prefix, fmt.Sprintf(format, a...))
}

func (p *PrefixedUI) Error(format string, a ...any) {
	Error("%s%s", p.Prefix, fmt.Sprintf(format, a...))
}
