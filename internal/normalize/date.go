package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// directLayouts are tried before positional parsing. Slash dates are
// deliberately absent: "05/03/2024" must read as day-month-year.
var directLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalizer resolves calendar dates in Location and uses Now as the
// fallback instant.
type Normalizer struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns a normalizer for loc. A nil loc means time.Local.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{Location: loc, Now: time.Now}
}

var defaultNormalizer = New(nil)

// ParseDate uses the package default normalizer (local time zone).
func ParseDate(v any) time.Time {
	return defaultNormalizer.ParseDate(v)
}

func (n *Normalizer) loc() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now().In(n.loc())
	}
	return n.Now().In(n.loc())
}

// ParseDate converts v to an instant. time.Time values pass through,
// numbers are Unix milliseconds and strings are tried as ISO dates, then
// positionally as D/M/Y or Y/M/D. Anything else is the current instant.
func (n *Normalizer) ParseDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return n.now()
		}
		return d
	case *time.Time:
		if d == nil || d.IsZero() {
			return n.now()
		}
		return *d
	case float64:
		return time.UnixMilli(int64(d)).In(n.loc())
	case int64:
		return time.UnixMilli(d).In(n.loc())
	case int:
		return time.UnixMilli(int64(d)).In(n.loc())
	case json.Number:
		if ms, err := d.Int64(); err == nil {
			return time.UnixMilli(ms).In(n.loc())
		}
		return n.now()
	case string:
		if t, ok := n.parseDateString(d); ok {
			return t
		}
		return n.now()
	default:
		return n.now()
	}
}

func (n *Normalizer) parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range directLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc()); err == nil {
			return t, true
		}
	}
	return n.parsePositional(s)
}

// parsePositional handles "D/M/Y", "D-M-Y", "Y/M/D" and "Y-M-D", optionally
// followed by a clock time ("05/03/2024 08:30").
func (n *Normalizer) parsePositional(s string) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return time.Time{}, false
	}
	parts := strings.FieldsFunc(fields[0], func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return time.Time{}, false
		}
		nums[i] = v
	}

	var year, month, day int
	switch {
	case len(parts[2]) >= 4:
		day, month, year = nums[0], nums[1], nums[2]
	case len(parts[0]) >= 4:
		year, month, day = nums[0], nums[1], nums[2]
	default:
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	var hour, minute, sec int
	if len(fields) == 2 {
		clock, ok := parseClock(fields[1])
		if !ok {
			return time.Time{}, false
		}
		hour, minute, sec = clock[0], clock[1], clock[2]
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, n.loc())
	// 31/02 would roll into March.
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func parseClock(s string) ([3]int, bool) {
	var out [3]int
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return out, false
	}
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return out, false
		}
		out[i] = v
	}
	return out, true
}
