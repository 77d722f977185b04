package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	schemamodels "persondb/internal/schema/models"
	schemaservice "persondb/internal/schema/service"
	"persondb/pkg/domain"
	"persondb/pkg/requestcontext"
)

type createDatabaseRequest struct {
	Name   string                    `json:"name"`
	Type   schemamodels.DatabaseType `json:"type"`
	Parent string                    `json:"parent,omitempty"`
	Policy schemamodels.AccessPolicy `json:"policy"`
}

func (h *Handler) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.Principal(ctx)

	var req createDatabaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var parent *domain.DatabaseID
	if req.Parent != "" {
		parsed, err := domain.ParseDatabaseID(req.Parent)
		if err != nil {
			writeError(w, err)
			return
		}
		parent = &parsed
	}

	db, err := h.schemas.DefineDatabase(ctx, req.Name, req.Type, parent, req.Policy, principal.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, db)
}

func (h *Handler) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	databases, err := h.schemas.ListDatabases(ctx, requestcontext.Principal(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, databases)
}

func (h *Handler) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}
	fields, err := h.schemas.Fields(ctx, db.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database": db,
		"fields":   fields,
	})
}

func (h *Handler) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dbID, err := domain.ParseDatabaseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.schemas.DeleteDatabase(ctx, dbID, requestcontext.Principal(ctx)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createFieldRequest struct {
	Name        string                      `json:"name"`
	Label       string                      `json:"label"`
	Type        schemamodels.FieldType      `json:"type"`
	Required    bool                        `json:"required"`
	Searchable  bool                        `json:"searchable"`
	Filterable  bool                        `json:"filterable"`
	Default     string                      `json:"default"`
	Help        string                      `json:"help"`
	Placeholder string                      `json:"placeholder"`
	Options     []string                    `json:"options"`
	Rule        schemamodels.ValidationRule `json:"rule"`
}

func (h *Handler) handleCreateField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createFieldRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	field, err := h.schemas.DefineField(ctx, db.ID, req.Name, req.Label, req.Type, schemaservice.FieldOptions{
		Required:    req.Required,
		Searchable:  req.Searchable,
		Filterable:  req.Filterable,
		Default:     req.Default,
		Help:        req.Help,
		Placeholder: req.Placeholder,
		Options:     req.Options,
		Rule:        req.Rule,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

func (h *Handler) handleListFields(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}
	fields, err := h.schemas.Fields(ctx, db.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// handleColumns returns both the full column union and the columns
// that currently carry data, so consumers can skip sparse ones.
func (h *Handler) handleColumns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db, err := h.requireDatabase(r)
	if err != nil {
		writeError(w, err)
		return
	}
	all, err := h.records.AllColumnNames(ctx, db.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	active, err := h.records.ActiveColumnNames(ctx, db.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"all":    all,
		"active": active,
	})
}

// requireDatabase parses the {id} route param and applies the access
// policy before any read or write on the database's records.
func (h *Handler) requireDatabase(r *http.Request) (*schemamodels.Database, error) {
	dbID, err := domain.ParseDatabaseID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return h.schemas.RequireAccess(r.Context(), dbID, requestcontext.Principal(r.Context()))
}
