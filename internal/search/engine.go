// Package search implements the relevance engine: a stateless
// scatter-gather over heterogeneous person sources with field-level
// scoring, per-source-priority tie-breaking, and per-source failure
// isolation.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"persondb/internal/external"
	"persondb/internal/platform/config"
	"persondb/internal/platform/metrics"
	"persondb/pkg/domain"
	"persondb/pkg/textmatch"
)

// Result is one ranked hit, shaped for presentation. The deep link is
// the caller's job, not this engine's.
type Result struct {
	Kind        domain.SourceKind `json:"kind"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle,omitempty"`
	Description string            `json:"description,omitempty"`
	Label       string            `json:"label,omitempty"`
	Score       float64           `json:"score"`
}

// Results carries both the flat ranked list and the grouped view.
type Results struct {
	Ranked []Result                       `json:"ranked"`
	Groups map[domain.SourceKind][]Result `json:"groups"`
}

// Engine fans a query out across all registered sources and merges
// the scored candidates. It holds no per-query state; the suggestion
// store is injected shared state, never a package singleton.
type Engine struct {
	sources     []external.Directory
	suggestions SuggestionStore
	cfg         config.SearchConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New constructs the engine over the given sources.
func New(sources []external.Directory, suggestions SuggestionStore, cfg config.SearchConfig, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		sources:     sources,
		suggestions: suggestions,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// Search runs one query. An empty query returns empty results without
// consulting any source. A failing or slow source is skipped and
// logged; it never fails the overall search.
func (e *Engine) Search(ctx context.Context, query string) (Results, error) {
	results := Results{Ranked: []Result{}, Groups: map[domain.SourceKind][]Result{}}
	raw := strings.TrimSpace(query)
	if raw == "" {
		return results, nil
	}
	normalized := textmatch.Normalize(raw)

	e.metrics.IncrementSearches()
	e.recordSuggestion(ctx, normalized)

	perSource := make([][]external.Person, len(e.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range e.sources {
		g.Go(func() error {
			start := time.Now()
			scanCtx := gctx
			if e.cfg.SourceTimeout > 0 {
				var cancel context.CancelFunc
				scanCtx, cancel = context.WithTimeout(gctx, e.cfg.SourceTimeout)
				defer cancel()
			}
			candidates, err := source.Scan(scanCtx, raw)
			e.metrics.ObserveSourceScan(string(source.Kind()), time.Since(start).Seconds())
			if err != nil {
				// Isolation contract: this source contributes nothing.
				e.metrics.IncrementSourceFailure(string(source.Kind()))
				e.logger.WarnContext(ctx, "search source failed",
					"source", string(source.Kind()),
					"error", err,
				)
				return nil
			}
			perSource[i] = candidates
			return nil
		})
	}
	// Goroutines only return nil; Wait just joins them.
	_ = g.Wait()

	seen := make(map[string]struct{})
	for _, candidates := range perSource {
		for _, c := range candidates {
			// Dedupe by per-source identity key; cross-source identity
			// is identity resolution's job, not the engine's.
			key := string(c.Kind()) + ":" + c.ID()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			results.Ranked = append(results.Ranked, e.toResult(c, raw, normalized))
		}
	}

	sort.SliceStable(results.Ranked, func(i, j int) bool {
		a, b := results.Ranked[i], results.Ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ba, bb := e.boost(a.Kind), e.boost(b.Kind); ba != bb {
			return ba > bb
		}
		return a.ID < b.ID
	})
	for _, r := range results.Ranked {
		results.Groups[r.Kind] = append(results.Groups[r.Kind], r)
	}
	return results, nil
}

// score implements the field-level match ladder. The boost magnitudes
// are configuration; only their ordering is contractual.
func (e *Engine) score(c external.Person, raw, normalized string) float64 {
	fullName := textmatch.Normalize(c.DisplayName())
	first, last := c.FirstLast()
	firstLast := textmatch.Normalize(strings.TrimSpace(first + " " + last))

	var score float64
	if fullName != "" && fullName == normalized {
		score += 100
	}
	if firstLast != "" && firstLast == normalized {
		score += 90
	}
	if textmatch.ContainsFold(c.DisplayName(), raw) {
		score += 70
	}
	if textmatch.ContainsFold(c.Email(), raw) {
		score += 60
	}
	if textmatch.ContainsFold(c.Phone(), raw) {
		score += 50
	}
	score += textmatch.Ratio(normalized, fullName) * 40
	return score + e.boost(c.Kind())
}

func (e *Engine) boost(kind domain.SourceKind) float64 {
	return e.cfg.SourceBoosts[string(kind)]
}

func (e *Engine) toResult(c external.Person, raw, normalized string) Result {
	subtitle := c.Email()
	if subtitle == "" {
		subtitle = c.Phone()
	}
	return Result{
		Kind:        c.Kind(),
		ID:          c.ID(),
		Title:       c.DisplayName(),
		Subtitle:    subtitle,
		Description: c.SecondaryID(),
		Label:       c.Label(),
		Score:       e.score(c, raw, normalized),
	}
}

func (e *Engine) recordSuggestion(ctx context.Context, keyword string) {
	if e.suggestions == nil {
		return
	}
	if err := e.suggestions.Increment(ctx, keyword); err != nil {
		e.logger.WarnContext(ctx, "suggestion increment failed", "error", err)
		return
	}
	e.metrics.IncrementSuggestions()
}
