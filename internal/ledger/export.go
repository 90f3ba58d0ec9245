package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"chitieu/internal/core"
)

// Export is a downloadable snapshot.
type Export struct {
	FileName string
	Data     []byte
}

// ExportSessions snapshots the whole session map as indented JSON. The
// file name carries currentMonth, the month being viewed. The output is
// accepted by the importer as a full backup.
func (s *Store) ExportSessions(currentMonth string) (Export, error) {
	if currentMonth == "" {
		currentMonth = s.CurrentMonth()
	}
	if !core.ValidMonthKey(currentMonth) {
		return Export{}, fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, currentMonth)
	}
	data, err := json.MarshalIndent(s.Sessions(), "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("marshal sessions: %w", err)
	}
	return Export{FileName: "chitieu-backup-" + currentMonth + ".json", Data: data}, nil
}

// ExportGroupEvent snapshots one event as indented JSON.
func (s *Store) ExportGroupEvent(id string) (Export, error) {
	ev, ok := s.GroupEvent(id)
	if !ok {
		return Export{}, ErrEventNotFound
	}
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return Export{}, fmt.Errorf("marshal group event: %w", err)
	}
	name := Slug(ev.Name)
	if name == "" {
		name = ev.ID
	}
	return Export{FileName: "chitieu-nhom-" + name + ".json", Data: data}, nil
}

// Slug lowercases s, strips Vietnamese diacritics and joins the remaining
// letters and digits with dashes: "Đi chơi Đà Lạt" is "di-choi-da-lat".
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	plain = strings.NewReplacer("đ", "d", "Đ", "D").Replace(plain)

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
