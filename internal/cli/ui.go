package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// statusOut receives status lines so that stdout carries only results.
var statusOut io.Writer = os.Stderr

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, styleIconError.Render(iconError)+" "+msg)
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printStats prints query statistics on a single line.
func printStats(rootRows, nodes, bytes int, cached bool) {
	var parts []string
	if !cached {
		parts = append(parts, fmt.Sprintf("%d root rows", rootRows))
	}
	if nodes > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes", nodes))
	}
	parts = append(parts, fmt.Sprintf("%d bytes", bytes))

	status := iconFresh
	statusStyle := styleComputed
	if cached {
		status = iconCached
		statusStyle = styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Fprintln(statusOut, line)
}

// =============================================================================
// Tables
// =============================================================================

// renderResult writes the JSON result data as tables. A graph result
// ([rootRows, [childRows...]]) renders the root followed by one table per
// child; a list of rows renders one table; anything else is written as JSON.
func renderResult(w io.Writer, data []byte, titles []string) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if root, nodes, ok := splitGraph(v); ok {
		sections := append([][]map[string]any{root}, nodes...)
		for i, rows := range sections {
			title := fmt.Sprintf("node %d", i-1)
			if i < len(titles) {
				title = titles[i]
			}
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, StyleTitle.Render(title))
			fmt.Fprintln(w, rowTable(rows))
		}
		return nil
	}
	if rows, ok := asRows(v); ok {
		fmt.Fprintln(w, rowTable(rows))
		return nil
	}
	_, err := fmt.Fprintln(w, string(data))
	return err
}

func splitGraph(v any) ([]map[string]any, [][]map[string]any, bool) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return nil, nil, false
	}
	root, ok := asRows(pair[0])
	if !ok {
		return nil, nil, false
	}
	list, ok := pair[1].([]any)
	if !ok {
		return nil, nil, false
	}
	nodes := make([][]map[string]any, 0, len(list))
	for _, item := range list {
		rows, ok := asRows(item)
		if !ok {
			return nil, nil, false
		}
		nodes = append(nodes, rows)
	}
	return root, nodes, true
}

func asRows(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

// rowTable renders rows with one column per attribute, sorted by name.
func rowTable(rows []map[string]any) string {
	if len(rows) == 0 {
		return StyleDim.Render("(no rows)")
	}
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !slices.Contains(cols, k) {
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(cols))
		for j, col := range cols {
			if v, ok := row[col]; ok && v != nil {
				cells[i][j] = formatCell(v)
			}
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(cols...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Render()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any, []any:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
