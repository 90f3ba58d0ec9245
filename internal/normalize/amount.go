// Package normalize turns loosely typed external values into the canonical
// expense fields.
//
// Nothing here returns an error. Unusable amounts come back as zero, which
// callers treat as invalid, and unusable dates fall back to the current
// instant.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"chitieu/internal/core"
)

// ParseAmount converts v to an amount. Numbers pass through unchanged.
// Strings keep only their digits ("1.250.000 đ" is 1250000, "45,000" is
// 45000). Every other type is 0.
func ParseAmount(v any) core.Money {
	switch n := v.(type) {
	case core.Money:
		return n
	case float64:
		return core.Money(n)
	case float32:
		return core.Money(n)
	case int:
		return core.Money(n)
	case int8:
		return core.Money(n)
	case int16:
		return core.Money(n)
	case int32:
		return core.Money(n)
	case int64:
		return core.Money(n)
	case uint:
		return core.Money(n)
	case uint8:
		return core.Money(n)
	case uint16:
		return core.Money(n)
	case uint32:
		return core.Money(n)
	case uint64:
		return core.Money(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return core.Money(f)
	case string:
		return parseAmountString(n)
	default:
		return 0
	}
}

func parseAmountString(s string) core.Money {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return core.Money(f)
}
