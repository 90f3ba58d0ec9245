// Package tabular turns delimited text into records for the normalizer.
package tabular

import (
	"encoding/csv"
	"strings"

	"chitieu/internal/normalize"
)

// headerKeywords mark a first row as a header when any cell contains one.
var headerKeywords = []string{
	"date", "amount", "note", "category",
	"ngày", "số tiền", "ghi chú", "danh mục",
}

// Positional column names used when there is no header row.
const (
	ColDate     = "date"
	ColAmount   = "amount"
	ColNote     = "note"
	ColCategory = "category"
)

var positional = []string{ColDate, ColAmount, ColNote, ColCategory}

// Parse splits text into records. A header row, when detected, names the
// fields; otherwise columns are date, amount, note and category, with the
// category taken from the note when the row has no fourth column.
func Parse(text string) []normalize.Record {
	return ParseRows(SplitRows(text))
}

// SplitRows splits text into trimmed cells, one slice per non-blank line.
func SplitRows(text string) [][]string {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line))
	}
	return rows
}

// splitLine reads one line as CSV, falling back to a bare comma split when
// the line is not valid CSV.
func splitLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	cells, err := r.Read()
	if err != nil {
		cells = strings.Split(line, ",")
	}
	for i, c := range cells {
		cells[i] = unquote(c)
	}
	return cells
}

func unquote(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 2 && cell[0] == '"' && cell[len(cell)-1] == '"' {
		cell = strings.ReplaceAll(cell[1:len(cell)-1], `""`, `"`)
	} else {
		cell = strings.Trim(cell, `"`)
	}
	return strings.TrimSpace(cell)
}

// IsHeader reports whether row looks like a header row.
func IsHeader(row []string) bool {
	for _, cell := range row {
		c := strings.ToLower(cell)
		for _, kw := range headerKeywords {
			if strings.Contains(c, kw) {
				return true
			}
		}
	}
	return false
}

// ParseRows maps pre-split rows (CSV lines or spreadsheet values) to
// records. Rows with fewer than two cells are skipped.
func ParseRows(rows [][]string) []normalize.Record {
	if len(rows) == 0 {
		return nil
	}
	var header []string
	if IsHeader(rows[0]) {
		header = rows[0]
		rows = rows[1:]
	}

	out := make([]normalize.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if header != nil {
			out = append(out, byHeader(header, row))
		} else {
			out = append(out, byPosition(row))
		}
	}
	return out
}

func byHeader(header, row []string) normalize.Record {
	rec := make(normalize.Record, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || i >= len(row) {
			continue
		}
		rec[name] = row[i]
	}
	return rec
}

func byPosition(row []string) normalize.Record {
	rec := make(normalize.Record, len(positional))
	for i, name := range positional {
		if i < len(row) {
			rec[name] = row[i]
		}
	}
	if _, ok := rec[ColCategory]; !ok {
		if note, ok := rec[ColNote]; ok {
			rec[ColCategory] = note
		}
	}
	return rec
}
