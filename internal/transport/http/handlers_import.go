package http

import (
	"encoding/json"
	"net/http"

	"persondb/internal/importer"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/requestcontext"
)

// handleImportPreview parses the uploaded file and returns mapping
// suggestions for operator review; nothing is written.
func (h *Handler) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, filename, err := h.parseUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var columns []string
	if len(rows) > 0 {
		columns = rows[0].Columns
	}
	suggestions, err := h.pipeline.SuggestMappings(ctx, db.ID, columns)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":    filename,
		"rows":        len(rows),
		"columns":     columns,
		"suggestions": suggestions,
	})
}

// handleImport parses the file and commits the batch with the
// operator's mapping specification.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, _, err := h.parseUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	mappings := map[string]importer.Mapping{}
	if raw := r.FormValue("mappings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid mappings json"))
			return
		}
	}

	report, err := h.pipeline.Commit(ctx, db.ID, rows, mappings, requestcontext.Principal(ctx).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseUpload reads the multipart "file" part (with optional "sheet"
// selection) into rows. File-level failures surface before any row is
// processed.
func (h *Handler) parseUpload(r *http.Request) ([]importer.Row, string, error) {
	if err := r.ParseMultipartForm(h.importCfg.MaxFileSize); err != nil {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "missing file upload")
	}
	defer file.Close() //nolint:errcheck

	if h.importCfg.MaxFileSize > 0 && header.Size > h.importCfg.MaxFileSize {
		return nil, "", dErrors.Newf(dErrors.CodeValidation, "file exceeds the %d byte limit", h.importCfg.MaxFileSize)
	}
	rows, err := importer.Parse(header.Filename, file, r.FormValue("sheet"))
	if err != nil {
		return nil, "", err
	}
	return rows, header.Filename, nil
}
