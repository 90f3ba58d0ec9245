// Package http exposes the ledger as a JSON API.
//
// This file implements the builder used for every response: a status, extra
// headers and either a JSON body or a file attachment.

package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"chitieu/internal/core"
	"chitieu/internal/importer"
	"chitieu/internal/ledger"
	"chitieu/internal/sheets"
)

// Error codes carried in the JSON error body.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeInvalidExpense    = "INVALID_EXPENSE"
	CodeInvalidEvent      = "INVALID_EVENT"
	CodeInvalidTheme      = "INVALID_THEME"
	CodeLocked            = "LOCKED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnreadableFile    = "UNREADABLE_FILE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeSheetsUnavailable = "SHEETS_UNAVAILABLE"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeRateLimited       = "RATE_LIMITED"
	CodeNotReady          = "NOT_READY"
	CodeInternal          = "INTERNAL"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building responses.
type JSONResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	body        any
	raw         []byte
	contentType string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode:  http.StatusOK,
		headers:     make(map[string]string),
		contentType: "application/json; charset=utf-8",
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Attachment sends data as a downloadable JSON file named fileName.
func (b *JSONResponseBuilder) Attachment(fileName string, data []byte) *JSONResponseBuilder {
	b.raw = data
	b.body = nil
	b.headers["Content-Disposition"] = mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	var payload []byte
	switch {
	case b.raw != nil:
		payload = b.raw
	case b.body != nil:
		data, err := json.Marshal(b.body)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			data, _ = json.Marshal(ErrorBody{Code: CodeInternal, Message: "failed to encode response"})
		}
		payload = append(data, '\n')
	}

	if payload != nil {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		JSON(ErrorBody{Code: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeInvalidRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// ErrorFor maps a domain error to its response. Unknown errors become a
// 500 without leaking their text.
func ErrorFor(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, ledger.ErrMissingID):
		return BadRequestError(err.Error())
	case errors.Is(err, ledger.ErrLocked):
		return ErrorResponse(http.StatusConflict, CodeLocked, "session or event is locked")
	case errors.Is(err, ledger.ErrExpenseNotFound), errors.Is(err, ledger.ErrEventNotFound),
		errors.Is(err, sheets.ErrSpreadsheetNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ledger.ErrInvalidTarget), errors.Is(err, core.ErrInvalidMonthKey):
		return ErrorResponse(http.StatusBadRequest, CodeInvalidTarget, err.Error())
	case errors.Is(err, ledger.ErrInvalidTheme):
		return ErrorResponse(http.StatusBadRequest, CodeInvalidTheme, err.Error())
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidDate):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeInvalidExpense, err.Error())
	case errors.Is(err, core.ErrEmptyEventName), errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrEmptyMemberName), errors.Is(err, core.ErrEndBeforeStart),
		errors.Is(err, core.ErrEventNameTooLong):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeInvalidEvent, err.Error())
	case errors.Is(err, importer.ErrUnreadableFile):
		return ErrorResponse(http.StatusUnprocessableEntity, CodeUnreadableFile, err.Error())
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return ErrorResponse(http.StatusUnsupportedMediaType, CodeUnsupportedFormat, err.Error())
	default:
		return InternalServerError("internal error")
	}
}
