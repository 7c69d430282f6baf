package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTableAddRowPadsAndTruncates(t *testing.T) {
	table := NewTable([]string{"Name", "Age"}, false)

	table.AddRow("Bob")
	table.AddRow("Charlie", "25", "Extra")

	if len(table.rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.rows))
	}
	if len(table.rows[0]) != 2 || table.rows[0][1] != "" {
		t.Errorf("Expected padded row, got %q", table.rows[0])
	}
	if len(table.rows[1]) != 2 {
		t.Errorf("Expected row truncated to 2 columns, got %d", len(table.rows[1]))
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable([]string{"TOOL", "VERSION", "STATUS"}, false)
	table.AddRow("kubectl-tree", "v0.4.0", "missing")
	table.AddRow("x", "v1", "installed")

	want := "TOOL          VERSION  STATUS\n" +
		"kubectl-tree  v0.4.0   missing\n" +
		"x             v1       installed\n"
	if got := table.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestTableRenderEmptyHeaders(t *testing.T) {
	if got := NewTable(nil, false).Render(); got != "" {
		t.Errorf("Expected empty output, got %q", got)
	}
}

func TestTableWrapsColumn(t *testing.T) {
	table := NewTable([]string{"KEY", "VALUE"}, false)
	table.SetColumnMaxWidth(1, 10)
	table.AddRow("path", "alpha beta gamma delta")

	lines := strings.Split(strings.TrimSuffix(table.Render(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header and 3 wrapped lines, got %d:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[1] != "path  alpha beta" {
		t.Errorf("Unexpected first row line %q", lines[1])
	}
	if strings.TrimSpace(lines[3]) != "delta" {
		t.Errorf("Unexpected last row line %q", lines[3])
	}
}

func TestTableStyledWidthIgnoresEscapes(t *testing.T) {
	table := NewTable([]string{"A", "B"}, true)
	table.AddRow(table.style(okStyle, "ok"), "x")

	lines := strings.Split(strings.TrimSuffix(table.Render(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[1], "  x") || lipgloss.Width(lines[1]) != 5 {
		t.Errorf("Unexpected row %q", lines[1])
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "short", 10, []string{"short"}},
		{"words", "one two three", 7, []string{"one two", "three"}},
		{"long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"zero width", "anything", 0, []string{"anything"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
