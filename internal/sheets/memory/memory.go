package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "chitieu/internal/sheets"
	"chitieu/internal/tabular"
)

// Store serves rows from memory. The range is ignored: a spreadsheet is
// one table.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

var _ ports.RowFetcher = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// NewFromDir loads every *.csv file in base as a spreadsheet named after
// the file.
func NewFromDir(base string) (*Store, error) {
	s := New()
	files, err := filepath.Glob(filepath.Join(base, "*.csv"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		s.Put(id, tabular.SplitRows(string(b)))
	}
	return s, nil
}

// Put replaces the rows of a spreadsheet.
func (s *Store) Put(spreadsheetID string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[spreadsheetID] = copyRows(rows)
}

func (s *Store) FetchRows(_ context.Context, spreadsheetID, _ string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[spreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSpreadsheetNotFound, spreadsheetID)
	}
	return copyRows(rows), nil
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
