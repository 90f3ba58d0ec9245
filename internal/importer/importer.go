// Package importer ingests external JSON and CSV files into the ledger.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/log"
	"chitieu/internal/metrics"
	"chitieu/internal/normalize"
	"chitieu/internal/storage"
	"chitieu/internal/tabular"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Kind is the detected shape of an import.
type Kind string

const (
	KindBackup Kind = "backup"
	KindList   Kind = "list"
	KindRows   Kind = "rows"
)

var (
	// ErrUnreadableFile means the content could not be decoded at all.
	// Nothing is imported.
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// maxFileSize bounds what ImportFile reads.
const maxFileSize = 10 << 20

// Result reports an import. Imported is zero when the file was readable
// but nothing in it was usable.
type Result struct {
	Kind        Kind     `json:"kind"`
	Imported    int      `json:"imported"`
	Rejected    int      `json:"rejected"`
	Skipped     int      `json:"skipped"`
	Months      []string `json:"months,omitempty"`
	LatestMonth string   `json:"latest_month,omitempty"`
}

// Recorder keeps the import history.
type Recorder interface {
	RecordImport(ctx context.Context, run storage.ImportRun) error
}

type Importer struct {
	store    *ledger.Store
	norm     *normalize.Normalizer
	recorder Recorder
	logger   *log.Logger
}

type Option func(*Importer)

func WithRecorder(r Recorder) Option { return func(im *Importer) { im.recorder = r } }

func WithLogger(l *log.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l.WithComponent(log.ComponentImport)
		}
	}
}

// WithNormalizer overrides the normalizer. By default dates resolve in the
// store's location.
func WithNormalizer(n *normalize.Normalizer) Option { return func(im *Importer) { im.norm = n } }

func New(store *ledger.Store, opts ...Option) *Importer {
	im := &Importer{
		store:  store,
		norm:   normalize.New(store.Location()),
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// DetectFormat picks the format from the file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ImportFile reads r and imports it in the format implied by name.
func (im *Importer) ImportFile(ctx context.Context, name string, r io.Reader, target ledger.Target) (Result, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return Result{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	if len(data) > maxFileSize {
		return Result{}, fmt.Errorf("%w: larger than %d bytes", ErrUnreadableFile, maxFileSize)
	}
	res, err := im.Import(ctx, format, data, target)
	if err == nil {
		im.record(ctx, filepath.Base(name), res)
	}
	return res, err
}

// Import decodes data and applies it to the ledger. Backups replace the
// months they contain; lists are routed to the month of each record in
// personal mode or to the target event in group mode.
func (im *Importer) Import(ctx context.Context, format Format, data []byte, target ledger.Target) (Result, error) {
	switch format {
	case FormatCSV:
		if !utf8.Valid(data) {
			return Result{}, fmt.Errorf("%w: not valid UTF-8 text", ErrUnreadableFile)
		}
		return im.applyRecords(ctx, KindList, tabular.Parse(string(data)), target)
	case FormatJSON:
		raw, err := decodeJSON(data)
		if err != nil {
			return Result{}, err
		}
		if backup, ok := asBackup(raw); ok {
			return im.applyBackup(ctx, backup)
		}
		return im.applyRecords(ctx, KindList, expand(extractList(raw)), target)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ImportRows imports spreadsheet values the same way as CSV lines.
func (im *Importer) ImportRows(ctx context.Context, source string, rows [][]string, target ledger.Target) (Result, error) {
	res, err := im.applyRecords(ctx, KindRows, tabular.ParseRows(rows), target)
	if err == nil {
		im.record(ctx, source, res)
	}
	return res, err
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON document", ErrUnreadableFile)
	}
	return raw, nil
}

// asBackup reports whether raw is a non-empty object whose values are all
// objects carrying an "expenses" list.
func asBackup(raw any) (map[string]any, bool) {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, false
	}
	for _, v := range obj {
		sess, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if _, ok := sess["expenses"].([]any); !ok {
			return nil, false
		}
	}
	return obj, true
}

// extractList finds the record list: a bare array, the "data" key, a
// single object with nested items, or the first key (in sorted order)
// holding an array of objects.
func extractList(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if list, ok := v["data"].([]any); ok {
			return list
		}
		if _, ok := v["items"].([]any); ok {
			return []any{v}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := v[k].([]any); ok && hasObject(list) {
				return list
			}
		}
	}
	return nil
}

func hasObject(list []any) bool {
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// expand flattens one level of nesting: a record with an "items" list
// becomes one record per item, each inheriting the parent's fields.
// Non-object entries become nil records so they count as rejected.
func expand(list []any) []normalize.Record {
	out := make([]normalize.Record, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, nil)
			continue
		}
		children, ok := obj["items"].([]any)
		if !ok {
			out = append(out, normalize.Record(obj))
			continue
		}
		for _, c := range children {
			child, ok := c.(map[string]any)
			if !ok {
				out = append(out, nil)
				continue
			}
			merged := make(normalize.Record, len(obj)+len(child))
			for k, v := range obj {
				if k != "items" {
					merged[k] = v
				}
			}
			for k, v := range child {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out
}

func (im *Importer) applyRecords(ctx context.Context, kind Kind, recs []normalize.Record, target ledger.Target) (Result, error) {
	res := Result{Kind: kind}
	placements := make([]ledger.Placement, 0, len(recs))
	for _, rec := range recs {
		e, ok := im.norm.NormalizeRecord(rec)
		if !ok {
			res.Rejected++
			continue
		}
		t := target
		if t.Mode != ledger.ModeGroup {
			t = ledger.Personal(im.store.MonthKeyOf(e.Date))
		}
		placements = append(placements, ledger.Placement{Target: t, Expense: e})
	}

	batch, err := im.store.AddBatch(ctx, placements)
	if err != nil {
		return Result{}, err
	}
	res.Imported = batch.Added
	res.Skipped = batch.Skipped
	res.Months = batch.Months
	if n := len(batch.Months); n > 0 {
		res.LatestMonth = batch.Months[n-1]
	}
	im.count(res)
	im.logger.InfoContext(ctx, "Records imported",
		log.FieldOperation, log.OpImport,
		log.FieldFormat, string(kind),
		log.FieldMode, string(target.Mode),
		log.FieldCount, res.Imported,
		"rejected", res.Rejected,
		"skipped", res.Skipped)
	return res, nil
}

func (im *Importer) applyBackup(ctx context.Context, backup map[string]any) (Result, error) {
	res := Result{Kind: KindBackup}
	sessions := make(map[string]core.MonthlySession, len(backup))
	for key, v := range backup {
		key = strings.TrimSpace(key)
		obj := v.(map[string]any)
		list := obj["expenses"].([]any)
		if !core.ValidMonthKey(key) {
			res.Rejected += len(list)
			continue
		}
		sess := core.MonthlySession{ID: key, Expenses: make([]core.Expense, 0, len(list))}
		if done, ok := obj["isCompleted"].(bool); ok {
			sess.IsCompleted = done
		}
		if b, ok := obj["budget"]; ok {
			sess.Budget = normalize.ParseAmount(b)
		}
		for _, item := range list {
			rec, ok := item.(map[string]any)
			if !ok {
				res.Rejected++
				continue
			}
			e, ok := im.norm.NormalizeRecord(rec)
			if !ok {
				res.Rejected++
				continue
			}
			if id, ok := rec["id"].(string); ok {
				e.ID = strings.TrimSpace(id)
			}
			sess.Expenses = append(sess.Expenses, e)
		}
		res.Imported += len(sess.Expenses)
		sessions[key] = sess
	}

	latest, err := im.store.MergeSessions(ctx, sessions)
	if err != nil {
		return Result{}, err
	}
	res.LatestMonth = latest
	for k := range sessions {
		res.Months = append(res.Months, k)
	}
	sort.Strings(res.Months)
	im.count(res)
	im.logger.InfoContext(ctx, "Backup merged",
		log.FieldOperation, log.OpMerge,
		log.FieldCount, res.Imported,
		log.FieldMonth, latest)
	return res, nil
}

func (im *Importer) count(res Result) {
	metrics.ImportRecords.WithLabelValues("imported").Add(float64(res.Imported))
	metrics.ImportRecords.WithLabelValues("rejected").Add(float64(res.Rejected))
	metrics.ImportRecords.WithLabelValues("locked").Add(float64(res.Skipped))
}

func (im *Importer) record(ctx context.Context, source string, res Result) {
	if im.recorder == nil {
		return
	}
	run := storage.ImportRun{Source: source, Kind: string(res.Kind), Imported: res.Imported, Skipped: res.Skipped}
	if err := im.recorder.RecordImport(ctx, run); err != nil {
		im.logger.WarnContext(ctx, "Failed to record import",
			log.FieldError, err)
	}
}
