package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"persondb/internal/audit"
	"persondb/internal/record/models"
	"persondb/internal/record/store"
	schemamodels "persondb/internal/schema/models"
	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
	"persondb/pkg/requestcontext"
)

// staticFields serves a fixed field list without a schema registry.
type staticFields struct {
	fields []*schemamodels.Field
}

func (s staticFields) Fields(context.Context, domain.DatabaseID) ([]*schemamodels.Field, error) {
	return s.fields, nil
}

type ServiceSuite struct {
	suite.Suite
	service *Service
	dbID    domain.DatabaseID
	creator domain.UserID
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	fields := staticFields{fields: []*schemamodels.Field{
		{Name: "occupation", Label: "Occupation", Type: schemamodels.FieldText},
		{Name: "age", Label: "Age", Type: schemamodels.FieldNumber},
		{Name: "barangay", Label: "Barangay", Type: schemamodels.FieldText, Required: true},
		{Name: "notes", Label: "Notes", Type: schemamodels.FieldText},
	}}
	s.service = New(store.NewMemory(), fields, nil, audit.Discard{}, nil, slog.New(slog.DiscardHandler))
	s.dbID = domain.NewDatabaseID()
	s.creator = domain.UserID(uuid.New())
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) createEntry(identity models.Identity, attrs models.Attributes) *models.Entry {
	entry, err := s.service.CreateEntry(s.ctx, s.dbID, identity, attrs, models.StatusSubmitted, s.creator)
	s.Require().NoError(err)
	return entry
}

func (s *ServiceSuite) TestCreateEntry() {
	s.Run("projection contains identity and attributes", func() {
		entry := s.createEntry(
			models.Identity{FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@example.com"},
			models.Attributes{
				"occupation": models.String("Teacher"),
				"barangay":   models.String("San Isidro"),
			},
		)
		for _, want := range []string{"juan", "dela cruz", "juan@example.com", "occupation", "teacher", "san isidro"} {
			s.Contains(entry.SearchText, want)
		}
	})

	s.Run("unknown attributes are dropped", func() {
		entry := s.createEntry(
			models.Identity{FirstName: "Maria"},
			models.Attributes{
				"barangay": models.String("Poblacion"),
				"favorite": models.String("mangoes"),
			},
		)
		s.NotContains(entry.Attributes, "favorite")
		s.NotContains(entry.SearchText, "mangoes")
	})

	s.Run("first validation failure rejects the whole write", func() {
		// A database of its own, so entries from earlier subtests do not
		// leak into the emptiness check.
		dbID := domain.NewDatabaseID()
		_, err := s.service.CreateEntry(s.ctx, dbID,
			models.Identity{FirstName: "Pedro"},
			models.Attributes{
				"age":      models.String("not a number"),
				"barangay": models.String("Bagong Silang"),
			},
			models.StatusSubmitted, s.creator)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		entries, err := s.service.ListEntries(s.ctx, dbID)
		s.Require().NoError(err)
		s.Empty(entries)
	})
}

// Searching for any current attribute value must find the entry
// through the projection.
func (s *ServiceSuite) TestProjectionSupersetProperty() {
	attrs := models.Attributes{
		"occupation": models.String("Fisherman"),
		"age":        models.String("52"),
		"barangay":   models.String("Looc"),
	}
	entry := s.createEntry(models.Identity{FirstName: "Andres"}, attrs)

	for _, value := range attrs {
		s.Contains(entry.SearchText, strings.ToLower(value.Text()))
		found, err := s.service.ScanMatching(s.ctx, value.Text())
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(entry.ID, found[0].ID)
	}
}

func (s *ServiceSuite) TestUpdateField() {
	entry := s.createEntry(
		models.Identity{FirstName: "Juan"},
		models.Attributes{"barangay": models.String("San Roque")},
	)

	s.Run("recomputes the projection in the same save", func() {
		updated, err := s.service.UpdateField(s.ctx, entry.ID, "occupation", "Carpenter")
		s.Require().NoError(err)
		s.Contains(updated.SearchText, "carpenter")
	})

	s.Run("is idempotent", func() {
		first, err := s.service.UpdateField(s.ctx, entry.ID, "occupation", "Carpenter")
		s.Require().NoError(err)
		second, err := s.service.UpdateField(s.ctx, entry.ID, "occupation", "Carpenter")
		s.Require().NoError(err)
		s.Equal(first.Attributes, second.Attributes)
		s.Equal(first.SearchText, second.SearchText)
	})

	s.Run("rejects invalid values", func() {
		_, err := s.service.UpdateField(s.ctx, entry.ID, "age", "ageless")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects undeclared fields", func() {
		_, err := s.service.UpdateField(s.ctx, entry.ID, "nickname", "Juanito")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestWorkflowTransitions() {
	approver := domain.UserID(uuid.New())
	entry := s.createEntry(models.Identity{FirstName: "Juan"}, models.Attributes{"barangay": models.String("Centro")})

	approved, err := s.service.Approve(s.ctx, entry.ID, approver)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Require().NotNil(approved.ApproverID)
	s.Equal(approver, *approved.ApproverID)

	s.Run("double approve conflicts", func() {
		_, err := s.service.Approve(s.ctx, entry.ID, approver)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("archived entries reject workflow changes", func() {
		archived, err := s.service.Archive(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusArchived, archived.Status)

		_, err = s.service.Reject(s.ctx, entry.ID, approver, "late")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestDisplayName() {
	s.Run("guest name fields win", func() {
		entry := s.createEntry(
			models.Identity{FirstName: "Juan", MiddleName: "M.", LastName: "Dela Cruz"},
			models.Attributes{"barangay": models.String("x")},
		)
		s.Equal("Juan M. Dela Cruz", s.service.DisplayName(s.ctx, entry))
	})

	s.Run("falls back to name-like attribute keys", func() {
		fields := staticFields{fields: []*schemamodels.Field{
			{Name: "First Name", Type: schemamodels.FieldText},
			{Name: "Surname", Type: schemamodels.FieldText},
		}}
		service := New(store.NewMemory(), fields, nil, audit.Discard{}, nil, slog.New(slog.DiscardHandler))
		entry, err := service.CreateEntry(s.ctx, s.dbID, models.Identity{}, models.Attributes{
			"First Name": models.String("Maria"),
			"Surname":    models.String("Santos"),
		}, models.StatusSubmitted, s.creator)
		s.Require().NoError(err)
		s.Equal("Maria Santos", service.DisplayName(s.ctx, entry))
	})

	s.Run("stable when several keys match the same pattern", func() {
		fields := staticFields{fields: []*schemamodels.Field{
			{Name: "full_name", Type: schemamodels.FieldText},
			{Name: "name", Type: schemamodels.FieldText},
		}}
		service := New(store.NewMemory(), fields, nil, audit.Discard{}, nil, slog.New(slog.DiscardHandler))
		entry, err := service.CreateEntry(s.ctx, s.dbID, models.Identity{}, models.Attributes{
			"full_name": models.String("J. Rizal"),
			"name":      models.String("Jose Rizal"),
		}, models.StatusSubmitted, s.creator)
		s.Require().NoError(err)
		for i := 0; i < 10; i++ {
			s.Equal("Jose Rizal", service.DisplayName(s.ctx, entry))
		}
	})

	s.Run("synthetic label when nothing is usable", func() {
		entry := s.createEntry(models.Identity{}, models.Attributes{"barangay": models.String("y")})
		s.Contains(s.service.DisplayName(s.ctx, entry), "Entry #")
	})
}

func (s *ServiceSuite) TestColumnIntrospection() {
	s.createEntry(models.Identity{FirstName: "A"}, models.Attributes{
		"occupation": models.String("Nurse"),
		"barangay":   models.String("Centro"),
	})
	s.createEntry(models.Identity{FirstName: "B"}, models.Attributes{
		"age":      models.String("30"),
		"barangay": models.String("Silangan"),
		"notes":    models.String(""),
	})

	all, err := s.service.AllColumnNames(s.ctx, s.dbID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"occupation", "barangay", "age", "notes"}, all)

	// notes only ever holds empty values, so it is not active.
	active, err := s.service.ActiveColumnNames(s.ctx, s.dbID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"occupation", "barangay", "age"}, active)
}

// Differently-written names of the same column must resolve to the
// same underlying key.
func (s *ServiceSuite) TestFindColumnMatchesRoundTrip() {
	fields := staticFields{fields: []*schemamodels.Field{
		{Name: "First Name", Type: schemamodels.FieldText},
	}}
	service := New(store.NewMemory(), fields, nil, audit.Discard{}, nil, slog.New(slog.DiscardHandler))
	_, err := service.CreateEntry(s.ctx, s.dbID, models.Identity{}, models.Attributes{
		"First Name": models.String("Juan"),
	}, models.StatusSubmitted, s.creator)
	s.Require().NoError(err)

	spaced, err := service.FindColumnMatches(s.ctx, s.dbID, "First Name")
	s.Require().NoError(err)
	underscored, err := service.FindColumnMatches(s.ctx, s.dbID, "first_name")
	s.Require().NoError(err)
	s.Equal(spaced, underscored)
	s.Equal([]string{"First Name"}, spaced)

	s.Run("falls back to the target itself", func() {
		matches, err := service.FindColumnMatches(s.ctx, s.dbID, "completely unknown")
		s.Require().NoError(err)
		s.Equal([]string{"completely unknown"}, matches)
	})
}
