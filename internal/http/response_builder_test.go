package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chitieu/internal/core"
	"chitieu/internal/importer"
	"chitieu/internal/ledger"
	"chitieu/internal/sheets"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/events/1").
		JSON(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Location"); got != "/api/events/1" {
		t.Errorf("Location = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":"1"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Attachment("chitieu-backup-2024-03.json", []byte(`{}`)).Write(w)

	cd := w.Header().Get("Content-Disposition")
	if cd != `attachment; filename=chitieu-backup-2024-03.json` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != `{}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"locked", ledger.ErrLocked, http.StatusConflict, CodeLocked},
		{"wrapped locked", fmt.Errorf("add: %w", ledger.ErrLocked), http.StatusConflict, CodeLocked},
		{"expense missing", ledger.ErrExpenseNotFound, http.StatusNotFound, CodeNotFound},
		{"event missing", ledger.ErrEventNotFound, http.StatusNotFound, CodeNotFound},
		{"spreadsheet missing", sheets.ErrSpreadsheetNotFound, http.StatusNotFound, CodeNotFound},
		{"bad month", fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, "2024-13"), http.StatusBadRequest, CodeInvalidTarget},
		{"bad theme", ledger.ErrInvalidTheme, http.StatusBadRequest, CodeInvalidTheme},
		{"bad amount", core.ErrInvalidAmount, http.StatusUnprocessableEntity, CodeInvalidExpense},
		{"bad category", core.ErrInvalidCategory, http.StatusUnprocessableEntity, CodeInvalidExpense},
		{"empty event name", core.ErrEmptyEventName, http.StatusUnprocessableEntity, CodeInvalidEvent},
		{"unreadable file", fmt.Errorf("%w: eof", importer.ErrUnreadableFile), http.StatusUnprocessableEntity, CodeUnreadableFile},
		{"unsupported", importer.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, CodeUnsupportedFormat},
		{"bad request", fmt.Errorf("%w: invalid JSON", errBadRequest), http.StatusBadRequest, CodeInvalidRequest},
		{"missing id", ledger.ErrMissingID, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFor(tt.err).Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if tt.code == CodeInternal && strings.Contains(body.Message, "disk") {
				t.Errorf("internal error text leaked: %q", body.Message)
			}
		})
	}
}
