package sheets

import (
	"context"
	"errors"
)

// DefaultRange covers the date, amount, note and category columns of the
// first sheet.
const DefaultRange = "A:D"

// ErrSpreadsheetNotFound is returned by sources that know which
// spreadsheets exist.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// Ports for outbound adapters.
type (
	// RowFetcher reads a range of a spreadsheet as display strings, one
	// slice per row.
	RowFetcher interface {
		FetchRows(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error)
	}
)
