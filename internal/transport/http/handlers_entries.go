package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	recordmodels "persondb/internal/record/models"
	"persondb/pkg/domain"
	"persondb/pkg/requestcontext"
)

type createEntryRequest struct {
	Identity   recordmodels.Identity   `json:"identity"`
	Attributes recordmodels.Attributes `json:"attributes"`
}

// handleCreateEntry creates a direct (non-import) entry. Direct
// entries start as drafts; the import pipeline submits its rows.
func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.records.CreateEntry(ctx, db.ID, req.Identity, req.Attributes,
		recordmodels.StatusDraft, requestcontext.Principal(ctx).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.records.ListEntries(ctx, db.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entry":        entry,
		"display_name": h.records.DisplayName(ctx, entry),
	})
}

type updateFieldRequest struct {
	Value string `json:"value"`
}

func (h *Handler) handleUpdateEntryField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateFieldRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.records.UpdateField(ctx, entry.ID, chi.URLParam(r, "name"), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}
	approved, err := h.records.Approve(ctx, entry.ID, requestcontext.Principal(ctx).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approved)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rejected, err := h.records.Reject(ctx, entry.ID, requestcontext.Principal(ctx).UserID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rejected)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}
	archived, err := h.records.Archive(ctx, entry.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (h *Handler) handleEntryLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := h.requireEntry(r)
	if err != nil {
		writeError(w, err)
		return
	}
	links, err := h.identity.LinksForEntry(ctx, entry.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	suggestions, err := h.identity.SuggestLinks(ctx, h.records.DisplayName(ctx, entry))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"links":       links,
		"suggestions": suggestions,
	})
}

// requireEntry loads the entry from the {id} route param and applies
// the owning database's access policy.
func (h *Handler) requireEntry(r *http.Request) (*recordmodels.Entry, error) {
	entryID, err := domain.ParseEntryID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	entry, err := h.records.GetEntry(r.Context(), entryID)
	if err != nil {
		return nil, err
	}
	if _, err := h.schemas.RequireAccess(r.Context(), entry.DatabaseID, requestcontext.Principal(r.Context())); err != nil {
		return nil, err
	}
	return entry, nil
}
