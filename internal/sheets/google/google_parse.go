package google

import (
	"fmt"
	"strings"
)

// toRows converts a values matrix (as returned by Sheets API) into trimmed
// strings, dropping rows whose cells are all empty.
func toRows(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cells := toStrings(row)
		if allEmpty(cells) {
			continue
		}
		out = append(out, cells)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
