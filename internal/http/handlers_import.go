package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chitieu/internal/log"
	"chitieu/internal/sheets"
	"chitieu/internal/storage"
)

// maxUploadBytes bounds multipart import uploads.
const maxUploadBytes = 10<<20 + 1<<16

const (
	defaultImportsLimit = 20
	maxImportsLimit     = 100
)

// handleImport accepts a multipart "file" field with a .json or .csv file.
// A non-empty "event" field imports into that group event. A readable file
// without usable records succeeds with imported 0.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		BadRequestError("expected a multipart form with a file field").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("missing file field").Write(w)
		return
	}
	defer file.Close()

	target := importTarget(r.FormValue("event"))
	res, err := s.importer.ImportFile(r.Context(), header.Filename, file, target)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Import failed",
			log.FieldOperation, log.OpImport,
			"file", header.Filename,
			log.FieldError, err)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().JSON(res).Write(w)
}

// handleImportSheet fetches a spreadsheet range and imports its rows.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		ErrorResponse(http.StatusServiceUnavailable, CodeSheetsUnavailable, "no spreadsheet source configured").Write(w)
		return
	}
	var req SheetImportRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	id := strings.TrimSpace(req.SpreadsheetID)
	if id == "" {
		BadRequestError("spreadsheet_id is required").Write(w)
		return
	}
	rangeName := strings.TrimSpace(req.Range)
	if rangeName == "" {
		rangeName = sheets.DefaultRange
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	rows, err := s.sheets.FetchRows(ctx, id, rangeName)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Sheet fetch failed",
			log.FieldOperation, log.OpImport,
			"spreadsheet_id", id,
			log.FieldError, err)
		if errors.Is(err, sheets.ErrSpreadsheetNotFound) {
			ErrorFor(err).Write(w)
			return
		}
		ErrorResponse(http.StatusBadGateway, CodeUpstream, "failed to read spreadsheet").Write(w)
		return
	}

	res, err := s.importer.ImportRows(r.Context(), "sheet:"+id, rows, importTarget(req.Event))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().JSON(res).Write(w)
}

// handleListImports returns the import history, newest first. limit
// defaults to 20 and is capped at 100.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := defaultImportsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			BadRequestError("limit must be a positive integer").Write(w)
			return
		}
		limit = min(n, maxImportsLimit)
	}

	runs := []storage.ImportRun{}
	if s.imports != nil {
		var err error
		runs, err = s.imports.RecentImports(r.Context(), limit)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to list imports", log.FieldError, err)
			InternalServerError("failed to list imports").Write(w)
			return
		}
		if runs == nil {
			runs = []storage.ImportRun{}
		}
	}
	NewJSONResponse().JSON(map[string]any{"imports": runs}).Write(w)
}
