//go:build integration

package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"persondb/internal/search"
	"persondb/pkg/testutil/containers"
)

type RedisSuggestionSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *search.RedisSuggestionStore
}

func TestRedisSuggestionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSuggestionSuite))
}

func (s *RedisSuggestionSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = search.NewRedisSuggestionStore(s.redis.Client)
}

func (s *RedisSuggestionSuite) TearDownSuite() {
	ctx := context.Background()
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(ctx)
}

func (s *RedisSuggestionSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSuggestionSuite) TestIncrementAndTop() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Increment(ctx, "juan"))
	}
	s.Require().NoError(s.store.Increment(ctx, "maria"))

	top, err := s.store.Top(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("juan", top[0].Keyword)
	s.Equal(float64(3), top[0].Count)
	s.Equal("maria", top[1].Keyword)
	s.Equal(float64(1), top[1].Count)
}

func (s *RedisSuggestionSuite) TestTopLimit() {
	ctx := context.Background()
	for _, keyword := range []string{"a", "b", "c", "d"} {
		s.Require().NoError(s.store.Increment(ctx, keyword))
	}

	top, err := s.store.Top(ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)
}

func (s *RedisSuggestionSuite) TestEmptyStore() {
	top, err := s.store.Top(context.Background(), 5)
	s.Require().NoError(err)
	s.Empty(top)
}
