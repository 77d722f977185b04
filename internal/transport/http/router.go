package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identityservice "persondb/internal/identity/service"
	"persondb/internal/importer"
	"persondb/internal/person"
	"persondb/internal/platform/config"
	"persondb/internal/platform/middleware"
	recordservice "persondb/internal/record/service"
	schemaservice "persondb/internal/schema/service"
	"persondb/internal/search"
)

// Handler carries the domain services the routes delegate to.
type Handler struct {
	schemas     *schemaservice.Service
	records     *recordservice.Service
	identity    *identityservice.Service
	engine      *search.Engine
	people      *person.Service
	pipeline    *importer.Service
	suggestions search.SuggestionStore
	searchCfg   config.SearchConfig
	importCfg   config.ImportConfig
	validator   *middleware.JWTValidator
	logger      *slog.Logger
}

// New constructs the transport handler.
func New(
	schemas *schemaservice.Service,
	records *recordservice.Service,
	identity *identityservice.Service,
	engine *search.Engine,
	people *person.Service,
	pipeline *importer.Service,
	suggestions search.SuggestionStore,
	searchCfg config.SearchConfig,
	importCfg config.ImportConfig,
	validator *middleware.JWTValidator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		schemas:     schemas,
		records:     records,
		identity:    identity,
		engine:      engine,
		people:      people,
		pipeline:    pipeline,
		suggestions: suggestions,
		searchCfg:   searchCfg,
		importCfg:   importCfg,
		validator:   validator,
		logger:      logger,
	}
}

// NewRouter wires every endpoint. /healthz and /metrics are open;
// everything under /api requires a bearer token.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth(h.validator, h.logger))

		api.Get("/search", h.handleSearch)
		api.Get("/search/suggestions", h.handleSuggestions)
		api.Get("/people/{kind}/{id}", h.handlePersonView)

		api.Post("/databases", h.handleCreateDatabase)
		api.Get("/databases", h.handleListDatabases)
		api.Get("/databases/{id}", h.handleGetDatabase)
		api.Delete("/databases/{id}", h.handleDeleteDatabase)
		api.Post("/databases/{id}/fields", h.handleCreateField)
		api.Get("/databases/{id}/fields", h.handleListFields)
		api.Get("/databases/{id}/columns", h.handleColumns)

		api.Post("/databases/{id}/entries", h.handleCreateEntry)
		api.Get("/databases/{id}/entries", h.handleListEntries)
		api.Post("/databases/{id}/import", h.handleImport)
		api.Post("/databases/{id}/import/preview", h.handleImportPreview)

		api.Get("/entries/{id}", h.handleGetEntry)
		api.Patch("/entries/{id}/fields/{name}", h.handleUpdateEntryField)
		api.Post("/entries/{id}/approve", h.handleApprove)
		api.Post("/entries/{id}/reject", h.handleReject)
		api.Post("/entries/{id}/archive", h.handleArchive)
		api.Get("/entries/{id}/links", h.handleEntryLinks)

		api.Post("/links/{id}/verify", h.handleVerifyLink)
		api.Post("/links/{id}/entries", h.handleLinkEntry)
	})
	return r
}
