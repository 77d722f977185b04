package search

import (
	"context"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Suggestion is one popular search keyword with its query count.
type Suggestion struct {
	Keyword string  `json:"keyword"`
	Count   float64 `json:"count"`
}

// SuggestionStore counts query keywords so consumers can offer
// popular searches. Increment must be atomic increment-or-create.
type SuggestionStore interface {
	Increment(ctx context.Context, keyword string) error
	Top(ctx context.Context, n int) ([]Suggestion, error)
}

// MemorySuggestionStore is the single-node fallback.
type MemorySuggestionStore struct {
	mu     sync.Mutex
	counts map[string]float64
}

// NewMemorySuggestionStore constructs an empty in-memory counter store.
func NewMemorySuggestionStore() *MemorySuggestionStore {
	return &MemorySuggestionStore{counts: make(map[string]float64)}
}

func (s *MemorySuggestionStore) Increment(_ context.Context, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[keyword]++
	return nil
}

func (s *MemorySuggestionStore) Top(_ context.Context, n int) ([]Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suggestion, 0, len(s.counts))
	for keyword, count := range s.counts {
		out = append(out, Suggestion{Keyword: keyword, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

const suggestionKey = "search:suggestions"

// RedisSuggestionStore shares the counters across instances using a
// sorted set; ZINCRBY is the atomic increment-or-create.
type RedisSuggestionStore struct {
	client *redis.Client
}

// NewRedisSuggestionStore constructs a Redis-backed counter store.
func NewRedisSuggestionStore(client *redis.Client) *RedisSuggestionStore {
	return &RedisSuggestionStore{client: client}
}

func (s *RedisSuggestionStore) Increment(ctx context.Context, keyword string) error {
	return s.client.ZIncrBy(ctx, suggestionKey, 1, keyword).Err()
}

func (s *RedisSuggestionStore) Top(ctx context.Context, n int) ([]Suggestion, error) {
	members, err := s.client.ZRevRangeWithScores(ctx, suggestionKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(members))
	for _, m := range members {
		keyword, _ := m.Member.(string)
		out = append(out, Suggestion{Keyword: keyword, Count: m.Score})
	}
	return out, nil
}
