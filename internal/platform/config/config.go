package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the service. Values
// come from the environment so deployments stay twelve-factor.
type Config struct {
	Addr          string
	PostgresURL   string
	Redis         RedisConfig
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	Search SearchConfig
	Import ImportConfig
}

// RedisConfig tunes the shared Redis client. An empty URL disables
// Redis-backed components (suggestion counters fall back to memory).
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SearchConfig holds the relevance-engine tunables. The boost
// magnitudes are configuration, not contract; only the ordering of
// SourceBoosts matters (a higher-priority source wins score ties).
type SearchConfig struct {
	// SourceBoosts maps source kind to its priority boost.
	SourceBoosts map[string]float64
	// SourceTimeout bounds each per-source scan; a slow source is
	// skipped, not waited on.
	SourceTimeout time.Duration
	MinQueryLen   int
	// SuggestThreshold gates identity-link suggestions.
	SuggestThreshold float64
	// AutoLinkThreshold gates automatic entry-to-link attachment.
	AutoLinkThreshold float64
}

// ImportConfig bounds the import pipeline.
type ImportConfig struct {
	MaxRows     int
	MaxFileSize int64
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:          envOr("PERSONDB_ADDR", ":8080"),
		PostgresURL:   os.Getenv("PERSONDB_POSTGRES_URL"),
		KafkaBrokers:  splitNonEmpty(os.Getenv("PERSONDB_KAFKA_BROKERS")),
		AuditTopic:    envOr("PERSONDB_AUDIT_TOPIC", "persondb.audit"),
		JWTSigningKey: envOr("PERSONDB_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("PERSONDB_REDIS_URL"),
			PoolSize:     envInt("PERSONDB_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PERSONDB_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("PERSONDB_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PERSONDB_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PERSONDB_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Search: SearchConfig{
			SourceBoosts: map[string]float64{
				"member":      envFloat("PERSONDB_BOOST_MEMBER", 100),
				"constituent": envFloat("PERSONDB_BOOST_CONSTITUENT", 50),
				"entry":       envFloat("PERSONDB_BOOST_ENTRY", 0),
			},
			SourceTimeout:     envDuration("PERSONDB_SEARCH_SOURCE_TIMEOUT", 2*time.Second),
			MinQueryLen:       envInt("PERSONDB_SEARCH_MIN_QUERY_LEN", 2),
			SuggestThreshold:  envFloat("PERSONDB_LINK_SUGGEST_THRESHOLD", 0.6),
			AutoLinkThreshold: envFloat("PERSONDB_LINK_AUTO_THRESHOLD", 0.95),
		},
		Import: ImportConfig{
			MaxRows:     envInt("PERSONDB_IMPORT_MAX_ROWS", 50000),
			MaxFileSize: int64(envInt("PERSONDB_IMPORT_MAX_FILE_BYTES", 20<<20)),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	var out []string
	for part := range strings.SplitSeq(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
