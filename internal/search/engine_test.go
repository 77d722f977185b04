package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"persondb/internal/external"
	"persondb/internal/platform/config"
	"persondb/pkg/domain"
)

// failingSource always errors; the engine must isolate it.
type failingSource struct {
	kind domain.SourceKind
}

func (f failingSource) Kind() domain.SourceKind { return f.kind }

func (f failingSource) Scan(context.Context, string) ([]external.Person, error) {
	return nil, errors.New("source is down")
}

func (f failingSource) Get(context.Context, string) (external.Person, error) {
	return nil, errors.New("source is down")
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		SourceBoosts: map[string]float64{
			"member":      100,
			"constituent": 50,
			"entry":       0,
		},
		MinQueryLen: 2,
	}
}

type EngineSuite struct {
	suite.Suite
	members      *external.MemberDirectory
	constituents *external.ConstituentDirectory
	suggestions  *MemorySuggestionStore
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.members = external.NewMemberDirectory([]external.Member{
		{MemberID: "m-1", FirstName: "Juan", LastName: "Dela Cruz", EmailAddr: "jdc@parliament.gov", MemberNo: "H-0042", Status: "incumbent"},
		{MemberID: "m-2", FirstName: "Juan", MiddleName: "D.", LastName: "Cruz", Status: "incumbent"},
	})
	s.constituents = external.NewConstituentDirectory([]external.Constituent{
		{ConstituentID: "c-1", FirstName: "Juan", LastName: "Dela Cruz", District: "2nd"},
		{ConstituentID: "c-2", FirstName: "Maria", LastName: "Santos", PhoneNo: "0917-555-0101"},
	})
	s.suggestions = NewMemorySuggestionStore()
}

func (s *EngineSuite) engine(sources ...external.Directory) *Engine {
	return New(sources, s.suggestions, testConfig(), nil, slog.New(slog.DiscardHandler))
}

func (s *EngineSuite) TestEmptyQueryReturnsEmptyWithoutScanning() {
	engine := s.engine(failingSource{kind: domain.SourceMember})
	results, err := engine.Search(context.Background(), "   ")
	s.Require().NoError(err)
	s.Empty(results.Ranked)
	s.Empty(results.Groups)

	// Nothing recorded either; empty queries are free.
	top, err := s.suggestions.Top(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *EngineSuite) TestExactNameOutranksFuzzy() {
	engine := s.engine(s.members)
	results, err := engine.Search(context.Background(), "Juan Dela Cruz")
	s.Require().NoError(err)
	s.Require().Len(results.Ranked, 2)
	s.Equal("m-1", results.Ranked[0].ID)
	s.Equal("m-2", results.Ranked[1].ID)
	s.Greater(results.Ranked[0].Score, results.Ranked[1].Score)
}

func (s *EngineSuite) TestSourceBoostBreaksTextTies() {
	// The same person appears in both rosters with identical text; the
	// member source carries the higher boost and must rank first.
	engine := s.engine(s.constituents, s.members)
	results, err := engine.Search(context.Background(), "Juan Dela Cruz")
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(results.Ranked), 2)
	s.Equal(domain.SourceMember, results.Ranked[0].Kind)
}

func (s *EngineSuite) TestGroupsBySourceKind() {
	engine := s.engine(s.members, s.constituents)
	results, err := engine.Search(context.Background(), "Juan")
	s.Require().NoError(err)
	s.Len(results.Groups[domain.SourceMember], 2)
	s.Len(results.Groups[domain.SourceConstituent], 1)
}

func (s *EngineSuite) TestPhoneAndSecondaryIDMatch() {
	engine := s.engine(s.members, s.constituents)

	byPhone, err := engine.Search(context.Background(), "0917-555-0101")
	s.Require().NoError(err)
	s.Require().Len(byPhone.Ranked, 1)
	s.Equal("c-2", byPhone.Ranked[0].ID)

	byMemberNo, err := engine.Search(context.Background(), "H-0042")
	s.Require().NoError(err)
	s.Require().Len(byMemberNo.Ranked, 1)
	s.Equal("m-1", byMemberNo.Ranked[0].ID)
}

func (s *EngineSuite) TestFailingSourceIsIsolated() {
	engine := s.engine(failingSource{kind: domain.SourceConstituent}, s.members)
	results, err := engine.Search(context.Background(), "Juan")
	s.Require().NoError(err)
	s.Len(results.Ranked, 2)
	for _, r := range results.Ranked {
		s.Equal(domain.SourceMember, r.Kind)
	}
}

func (s *EngineSuite) TestDeduplicatesPerSourceKey() {
	// Registering the same directory twice yields duplicate candidates
	// with the same kind and ID; only one survives.
	engine := s.engine(s.members, s.members)
	results, err := engine.Search(context.Background(), "Juan Dela Cruz")
	s.Require().NoError(err)
	s.Len(results.Ranked, 2)
}

func (s *EngineSuite) TestRecordsSuggestions() {
	engine := s.engine(s.members)
	_, err := engine.Search(context.Background(), "Juan")
	s.Require().NoError(err)
	_, err = engine.Search(context.Background(), "  JUAN  ")
	s.Require().NoError(err)
	_, err = engine.Search(context.Background(), "Maria")
	s.Require().NoError(err)

	top, err := s.suggestions.Top(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("juan", top[0].Keyword)
	s.Equal(float64(2), top[0].Count)
}
