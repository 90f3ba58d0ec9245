package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"chitieu/internal/core"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want core.Money
	}{
		{"float", 45000.0, 45000},
		{"int", 12000, 12000},
		{"json number", json.Number("30000"), 30000},
		{"plain string", "25000", 25000},
		{"dotted vnd", "1.250.000 đ", 1250000},
		{"comma grouping", "45,000", 45000},
		{"currency prefix", "VND 99 000", 99000},
		{"no digits", "miễn phí", 0},
		{"empty", "", 0},
		{"bool", true, 0},
		{"nil", nil, 0},
		{"slice", []any{1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseAmount(tc.in))
		})
	}
}
