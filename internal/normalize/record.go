package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"chitieu/internal/core"
)

// Record is one external record with unknown key names.
type Record map[string]any

// probe is an ordered list of alias keys for one field.
type probe []string

var (
	amountKeys = probe{
		"amount", "Amount", "số tiền", "Số tiền", "so_tien", "soTien", "sotien",
		"tiền", "tien", "value", "price", "giá", "cost", "total", "money",
	}
	dateKeys = probe{
		"date", "Date", "ngày", "Ngày", "ngay", "createdAt", "created_at",
		"timestamp", "time", "thời gian", "day",
	}
	noteKeys = probe{
		"note", "Note", "ghi chú", "Ghi chú", "ghi_chu", "ghichu", "description",
		"desc", "memo", "nội dung", "content", "title", "name", "details",
	}
	categoryKeys = probe{
		"category", "Category", "danh mục", "Danh mục", "danh_muc", "danhmuc",
		"loại", "type", "cat", "group",
	}
)

// fields pairs each expense field with its probe and extractor, in the
// order they are resolved.
var fields = []struct {
	name    string
	keys    probe
	extract func(n *Normalizer, v any, out *core.Expense)
}{
	{"amount", amountKeys, func(_ *Normalizer, v any, out *core.Expense) { out.Amount = ParseAmount(v) }},
	{"date", dateKeys, func(n *Normalizer, v any, out *core.Expense) { out.Date = n.ParseDate(v) }},
	{"note", noteKeys, func(_ *Normalizer, v any, out *core.Expense) { out.Note = text(v) }},
	{"category", categoryKeys, func(_ *Normalizer, v any, out *core.Expense) { out.Category = core.Category(text(v)) }},
}

// lookup returns the first present value: exact keys first, then keys
// equal after trimming and case folding.
func (p probe) lookup(rec Record) (any, bool) {
	for _, k := range p {
		if v, ok := rec[k]; ok && present(v) {
			return v, true
		}
	}
	folded := make(map[string]any, len(rec))
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fk := fold(k)
		if _, dup := folded[fk]; !dup && present(rec[k]) {
			folded[fk] = rec[k]
		}
	}
	for _, k := range p {
		if v, ok := folded[fold(k)]; ok {
			return v, true
		}
	}
	return nil, false
}

func present(v any) bool {
	switch s := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(s) != ""
	default:
		return true
	}
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// NormalizeRecord uses the package default normalizer.
func NormalizeRecord(rec Record) (core.Expense, bool) {
	return defaultNormalizer.NormalizeRecord(rec)
}

// NormalizeRecord converts rec into an expense without an id. It reports
// false when the record has no usable amount.
func (n *Normalizer) NormalizeRecord(rec Record) (core.Expense, bool) {
	var out core.Expense
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		v, ok := f.keys.lookup(rec)
		if !ok {
			continue
		}
		seen[f.name] = true
		f.extract(n, v, &out)
	}

	f := float64(out.Amount)
	if !seen["amount"] || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return core.Expense{}, false
	}
	if !seen["date"] {
		out.Date = n.now()
	}
	if out.Category != "" {
		out.Category = DetectCategory(string(out.Category))
	} else {
		out.Category = DetectCategory(out.Note)
	}
	if out.Note == "" {
		out.Note = out.Category.Label()
	}
	return out, true
}
