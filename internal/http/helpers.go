package http

import (
	"strings"

	"chitieu/internal/ledger"
)

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// importTarget selects group mode when event is set. Personal imports
// route every record to the month of its date.
func importTarget(event string) ledger.Target {
	if event = strings.TrimSpace(event); event != "" {
		return ledger.Group(event)
	}
	return ledger.Personal("")
}
