//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"persondb/internal/schema/models"
	"persondb/internal/schema/store"
	"persondb/pkg/domain"
	"persondb/pkg/platform/sentinel"
	"persondb/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	databases *store.PostgresDatabaseStore
	fields    *store.PostgresFieldStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.Migrate(context.Background(), s.postgres.DB))
	s.databases = store.NewPostgresDatabaseStore(s.postgres.DB)
	s.fields = store.NewPostgresFieldStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	ctx := context.Background()
	_ = s.postgres.DB.Close()
	_ = s.postgres.Container.Terminate(ctx)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "fields", "databases"))
}

func newTestDatabase(name, slug string) *models.Database {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Database{
		ID:        domain.NewDatabaseID(),
		Name:      name,
		Slug:      slug,
		Type:      models.TypeVolunteers,
		Active:    true,
		Policy:    models.AccessPolicy{Roles: []string{"staff"}},
		CreatedBy: domain.UserID(uuid.New()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	parent := newTestDatabase("Volunteers", "volunteers")
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, parent))

	child := newTestDatabase("Relief Volunteers 2026", "relief-volunteers-2026")
	child.ParentID = &parent.ID
	child.Policy = models.AccessPolicy{
		Roles:   []string{"staff", "admin"},
		UserIDs: []domain.UserID{domain.UserID(uuid.New())},
	}
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, child))

	found, err := s.databases.FindByID(ctx, child.ID)
	s.Require().NoError(err)
	s.Equal(child.Name, found.Name)
	s.Equal(child.Slug, found.Slug)
	s.Equal(models.TypeVolunteers, found.Type)
	s.Require().NotNil(found.ParentID)
	s.Equal(parent.ID, *found.ParentID)
	s.Equal(child.Policy, found.Policy)

	bySlug, err := s.databases.FindBySlug(ctx, child.Slug)
	s.Require().NoError(err)
	s.Equal(child.ID, bySlug.ID)

	byName, err := s.databases.FindByName(ctx, "RELIEF VOLUNTEERS 2026")
	s.Require().NoError(err)
	s.Equal(child.ID, byName.ID)
}

// Concurrent creates racing for one slug must resolve to exactly one
// winner through the unique index.
func (s *PostgresStoreSuite) TestConcurrentSlugConflict() {
	ctx := context.Background()
	const goroutines = 30

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db := newTestDatabase("Relief Ops", "relief-ops")
			switch err := s.databases.CreateIfSlugAvailable(ctx, db); err {
			case nil:
				successes.Add(1)
			case sentinel.ErrAlreadyUsed:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestDeleteCascadesFields() {
	ctx := context.Background()
	db := newTestDatabase("Trainings", "trainings")
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, db))

	field := &models.Field{
		ID:         domain.NewFieldID(),
		DatabaseID: db.ID,
		Name:       "venue",
		Label:      "Venue",
		Type:       models.FieldText,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.fields.CreateIfNameAvailable(ctx, field))

	s.Require().NoError(s.databases.Delete(ctx, db.ID))

	_, err := s.databases.FindByID(ctx, db.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	remaining, err := s.fields.ListByDatabase(ctx, db.ID)
	s.Require().NoError(err)
	s.Empty(remaining)

	s.ErrorIs(s.databases.Delete(ctx, db.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFieldNameUniquePerDatabase() {
	ctx := context.Background()
	first := newTestDatabase("Events A", "events-a")
	second := newTestDatabase("Events B", "events-b")
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, first))
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, second))

	now := time.Now().UTC().Truncate(time.Microsecond)
	field := func(dbID domain.DatabaseID, name string) *models.Field {
		return &models.Field{
			ID:         domain.NewFieldID(),
			DatabaseID: dbID,
			Name:       name,
			Label:      name,
			Type:       models.FieldText,
			CreatedAt:  now,
		}
	}

	s.Require().NoError(s.fields.CreateIfNameAvailable(ctx, field(first.ID, "Venue")))
	s.ErrorIs(s.fields.CreateIfNameAvailable(ctx, field(first.ID, "venue")), sentinel.ErrAlreadyUsed)

	// The same name is free on a different database.
	s.NoError(s.fields.CreateIfNameAvailable(ctx, field(second.ID, "Venue")))
}

func (s *PostgresStoreSuite) TestFieldOrderingAndRules() {
	ctx := context.Background()
	db := newTestDatabase("Beneficiaries", "beneficiaries")
	s.Require().NoError(s.databases.CreateIfSlugAvailable(ctx, db))

	now := time.Now().UTC().Truncate(time.Microsecond)
	minLen := 2
	declared := []*models.Field{
		{ID: domain.NewFieldID(), DatabaseID: db.ID, Name: "barangay", Label: "Barangay", Type: models.FieldText, Required: true, Position: 0, CreatedAt: now},
		{ID: domain.NewFieldID(), DatabaseID: db.ID, Name: "priority", Label: "Priority", Type: models.FieldSelect, Options: []string{"low", "high"}, Position: 1, CreatedAt: now},
		{ID: domain.NewFieldID(), DatabaseID: db.ID, Name: "code", Label: "Code", Type: models.FieldText, Rule: models.ValidationRule{Kind: models.RuleLength, MinLen: &minLen}, Position: 2, CreatedAt: now},
	}
	for _, f := range declared {
		s.Require().NoError(s.fields.CreateIfNameAvailable(ctx, f))
	}

	listed, err := s.fields.ListByDatabase(ctx, db.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal("barangay", listed[0].Name)
	s.True(listed[0].Required)
	s.Equal([]string{"low", "high"}, listed[1].Options)
	s.Equal(models.RuleLength, listed[2].Rule.Kind)
	s.Require().NotNil(listed[2].Rule.MinLen)
	s.Equal(minLen, *listed[2].Rule.MinLen)
}
