package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
)

// handleSearch runs one unified search. The minimum query length is a
// transport concern; the engine itself only special-cases empty input.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < h.searchCfg.MinQueryLen {
		writeError(w, dErrors.Newf(dErrors.CodeBadRequest, "query must be at least %d characters", h.searchCfg.MinQueryLen))
		return
	}

	results, err := h.engine.Search(ctx, query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	top, err := h.suggestions.Top(ctx, limit)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load suggestions"))
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (h *Handler) handlePersonView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := domain.SourceKind(chi.URLParam(r, "kind"))
	id := chi.URLParam(r, "id")

	view, err := h.people.UnifiedView(ctx, kind, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
