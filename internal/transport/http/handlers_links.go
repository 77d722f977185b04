package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"persondb/pkg/domain"
	"persondb/pkg/requestcontext"
)

func (h *Handler) handleVerifyLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	linkID, err := domain.ParsePersonLinkID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	link, err := h.identity.Verify(ctx, linkID, requestcontext.Principal(ctx).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

type linkEntryRequest struct {
	EntryID string `json:"entry_id"`
}

func (h *Handler) handleLinkEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	linkID, err := domain.ParsePersonLinkID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req linkEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entryID, err := domain.ParseEntryID(req.EntryID)
	if err != nil {
		writeError(w, err)
		return
	}
	// The entry must exist and be readable by the caller before it can
	// be linked.
	if _, err := h.records.GetEntry(ctx, entryID); err != nil {
		writeError(w, err)
		return
	}
	link, err := h.identity.LinkEntry(ctx, linkID, entryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
