package tree

import (
	"strings"

	"github.com/fatih/color"
)

// Render prepares tree output for a terminal. Blank lines are dropped. When
// styled, the header is bold, lines mentioning True are green and lines
// mentioning False are red.
func Render(output string, styled bool) string {
	lines := strings.FieldsFunc(output, func(r rune) bool { return r == '\r' || r == '\n' })
	if !styled {
		return strings.Join(lines, "\n")
	}

	header := color.New(color.Bold)
	ready := color.New(color.FgGreen)
	notReady := color.New(color.FgRed)
	for _, c := range []*color.Color{header, ready, notReady} {
		c.EnableColor()
	}

	for i, line := range lines {
		switch {
		case strings.Contains(line, "True"):
			lines[i] = ready.Sprint(line)
		case strings.Contains(line, "False"):
			lines[i] = notReady.Sprint(line)
		case i == 0:
			lines[i] = header.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}
