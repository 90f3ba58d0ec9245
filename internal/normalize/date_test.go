package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
)

var ict = time.FixedZone("ICT", 7*3600)

func fixedNormalizer() *Normalizer {
	now := time.Date(2030, 1, 2, 3, 4, 5, 0, ict)
	return &Normalizer{Location: ict, Now: func() time.Time { return now }}
}

func TestParseDateDayMonthYear(t *testing.T) {
	n := fixedNormalizer()
	got := n.ParseDate("05/03/2024")
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())
}

func TestParseDateISO(t *testing.T) {
	n := fixedNormalizer()
	got := n.ParseDate("2024-03-05")
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, ict), got)

	got = n.ParseDate("2024-03-05T10:15:00Z")
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)))
}

func TestParseDatePositional(t *testing.T) {
	n := fixedNormalizer()
	cases := []struct {
		in   string
		want time.Time
	}{
		{"5-3-2024", time.Date(2024, 3, 5, 0, 0, 0, 0, ict)},
		{"2024/3/5", time.Date(2024, 3, 5, 0, 0, 0, 0, ict)},
		{"31/12/2023", time.Date(2023, 12, 31, 0, 0, 0, 0, ict)},
		{"05/03/2024 08:30", time.Date(2024, 3, 5, 8, 30, 0, 0, ict)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, n.ParseDate(tc.in), tc.in)
	}
}

func TestParseDateFallsBackToNow(t *testing.T) {
	n := fixedNormalizer()
	now := n.Now()
	for _, in := range []any{"", "hôm qua", "05/13/2024", "31/02/2024", "1/2/3", "1/2", true, nil} {
		assert.Equal(t, now, n.ParseDate(in), "%v", in)
	}
}

func TestParseDateNumericIsUnixMillis(t *testing.T) {
	n := fixedNormalizer()
	ms := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC).UnixMilli()
	got := n.ParseDate(float64(ms))
	require.True(t, got.Equal(time.UnixMilli(ms)))
	assert.Equal(t, "2024-03", core.MonthKey(got))

	got = n.ParseDate(json.Number("1709600400000"))
	assert.Equal(t, int64(1709600400000), got.UnixMilli())
}

func TestParseDatePassthrough(t *testing.T) {
	n := fixedNormalizer()
	in := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, in, n.ParseDate(in))
}
