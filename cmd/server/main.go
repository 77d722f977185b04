package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"persondb/internal/audit"
	"persondb/internal/external"
	identityservice "persondb/internal/identity/service"
	identitystore "persondb/internal/identity/store"
	"persondb/internal/importer"
	"persondb/internal/person"
	"persondb/internal/platform/config"
	"persondb/internal/platform/httpserver"
	"persondb/internal/platform/logger"
	"persondb/internal/platform/metrics"
	"persondb/internal/platform/middleware"
	platformredis "persondb/internal/platform/redis"
	recordservice "persondb/internal/record/service"
	recordstore "persondb/internal/record/store"
	schemaservice "persondb/internal/schema/service"
	schemastore "persondb/internal/schema/store"
	"persondb/internal/search"
	transport "persondb/internal/transport/http"
	"persondb/pkg/domain"
)

// purgerProxy breaks the schema/record construction cycle: the schema
// registry needs a purger before the record service exists.
type purgerProxy struct {
	records *recordservice.Service
}

func (p *purgerProxy) PurgeDatabase(ctx context.Context, dbID domain.DatabaseID) error {
	return p.records.PurgeDatabase(ctx, dbID)
}

// main wires dependencies and owns the server lifecycle. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor := newAuditor(ctx, cfg, log)
	if closer, ok := auditor.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		dbStore    schemaservice.DatabaseStore
		fieldStore schemaservice.FieldStore
		entryStore recordservice.EntryStore
		linkStore  identityservice.LinkStore
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			fatal(log, "open postgres", err)
		}
		defer db.Close()
		if err := migrate(ctx, db); err != nil {
			fatal(log, "migrate", err)
		}
		dbStore = schemastore.NewPostgresDatabaseStore(db)
		fieldStore = schemastore.NewPostgresFieldStore(db)
		entryStore = recordstore.NewPostgres(db)
		linkStore = identitystore.NewPostgres(db)
	} else {
		log.Warn("no postgres url configured, using in-memory stores")
		dbStore = schemastore.NewMemoryDatabaseStore()
		fieldStore = schemastore.NewMemoryFieldStore()
		entryStore = recordstore.NewMemory()
		linkStore = identitystore.NewMemory()
	}

	purger := &purgerProxy{}
	schemas := schemaservice.New(dbStore, fieldStore, purger, auditor, log)
	records := recordservice.New(entryStore, schemas, nil, auditor, m, log)
	purger.records = records
	identity := identityservice.New(linkStore, cfg.Search, auditor, m, log)
	pipeline := importer.New(records, identity, schemas, cfg.Import, auditor, m, log)

	// Suggestion counters share state across instances through Redis
	// when it is configured.
	var suggestions search.SuggestionStore = search.NewMemorySuggestionStore()
	if redisClient, err := platformredis.New(cfg.Redis); err != nil {
		fatal(log, "connect redis", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		suggestions = search.NewRedisSuggestionStore(redisClient.Client)
	}

	// The member and constituent rosters are snapshots fed by their
	// owning collaborators; they start empty.
	members := external.NewMemberDirectory(nil)
	constituents := external.NewConstituentDirectory(nil)
	sources := []external.Directory{
		members,
		constituents,
		search.NewEntrySource(records),
	}
	engine := search.New(sources, suggestions, cfg.Search, m, log)
	people := person.New(sources, records, identity, log)

	handler := transport.New(
		schemas, records, identity, engine, people, pipeline,
		suggestions, cfg.Search, cfg.Import,
		middleware.NewJWTValidator(cfg.JWTSigningKey), log,
	)
	srv := httpserver.New(cfg.Addr, transport.NewRouter(handler))

	log.Info("starting persondb", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(log, "server", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown", err)
	}
	log.Info("persondb stopped")
}

func newAuditor(ctx context.Context, cfg config.Config, log *slog.Logger) audit.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return &audit.LogPublisher{Logger: log}
	}
	publisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
	if err != nil {
		log.Warn("kafka unavailable, falling back to log audit sink", "error", err)
		return &audit.LogPublisher{Logger: log}
	}
	return publisher
}

func migrate(ctx context.Context, db *sql.DB) error {
	if err := schemastore.Migrate(ctx, db); err != nil {
		return err
	}
	if err := recordstore.Migrate(ctx, db); err != nil {
		return err
	}
	return identitystore.Migrate(ctx, db)
}

func fatal(log *slog.Logger, what string, err error) {
	log.Error(what, "error", err)
	os.Exit(1)
}
