package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

const (
	tableGap       = 2
	maxColumnWidth = 48
)

// writeTable prints rows as left-aligned columns. Cells wider than
// maxColumnWidth are cut with an ellipsis.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	columns := len(headers)
	for _, row := range rows {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return nil
	}

	cell := func(row []string, i int) string {
		if i >= len(row) {
			return ""
		}
		value := strings.ReplaceAll(row[i], "\n", " ")
		if runewidth.StringWidth(value) > maxColumnWidth {
			value = truncate.StringWithTail(value, maxColumnWidth, "…")
		}
		return value
	}

	widths := make([]int, columns)
	measure := func(row []string) {
		for i := range widths {
			widths[i] = max(widths[i], runewidth.StringWidth(cell(row, i)))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	w := bufio.NewWriter(out)
	line := func(row []string) {
		var b strings.Builder
		for i := range widths {
			value := cell(row, i)
			b.WriteString(value)
			if i < columns-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(value)+tableGap))
			}
		}
		w.WriteString(strings.TrimRight(b.String(), " "))
		w.WriteByte('\n')
	}
	if len(headers) > 0 {
		line(headers)
	}
	for _, row := range rows {
		line(row)
	}
	return w.Flush()
}
