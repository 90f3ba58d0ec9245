// Package core provides money handling utilities.
//
// Amounts are Vietnamese dong. The currency has no minor unit, so values are
// integral in practice, but imported data may carry decimals and those are
// kept as-is.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Money is an amount in VND.
type Money float64

// Validate rejects zero, NaN and infinite amounts. A zero amount cannot be
// represented in the ledger.
func (m Money) Validate() error {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Dong returns the amount rounded half away from zero to whole dong.
func (m Money) Dong() int64 {
	return int64(math.Round(float64(m)))
}

// String formats the amount the vi-VN way: dot thousand separators and a
// trailing "đ", e.g. "1.250.000 đ".
func (m Money) String() string {
	return FormatVND(m)
}

// FormatVND formats an amount with dot thousand separators and the dong sign.
func FormatVND(m Money) string {
	return GroupThousands(m.Dong()) + " đ"
}

// GroupThousands renders n with "." between groups of three digits.
func GroupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// SumAmounts adds up the amounts of the given expenses.
func SumAmounts(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}
