package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"persondb/internal/audit"
	"persondb/internal/external"
	identityservice "persondb/internal/identity/service"
	identitystore "persondb/internal/identity/store"
	"persondb/internal/importer"
	"persondb/internal/person"
	"persondb/internal/platform/config"
	"persondb/internal/platform/middleware"
	recordservice "persondb/internal/record/service"
	recordstore "persondb/internal/record/store"
	schemaservice "persondb/internal/schema/service"
	schemastore "persondb/internal/schema/store"
	"persondb/internal/search"
	transport "persondb/internal/transport/http"
	"persondb/pkg/domain"
)

const testSigningKey = "router-test-signing-key"

type RouterSuite struct {
	suite.Suite
	router http.Handler
	token  string
	userID domain.UserID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	searchCfg := config.SearchConfig{
		SourceBoosts:      map[string]float64{"member": 100, "constituent": 50, "entry": 0},
		MinQueryLen:       2,
		SuggestThreshold:  0.6,
		AutoLinkThreshold: 0.95,
	}
	importCfg := config.ImportConfig{MaxRows: 1000, MaxFileSize: 1 << 20}

	schemas := schemaservice.New(schemastore.NewMemoryDatabaseStore(), schemastore.NewMemoryFieldStore(), nil, audit.Discard{}, logger)
	records := recordservice.New(recordstore.NewMemory(), schemas, nil, audit.Discard{}, nil, logger)
	identity := identityservice.New(identitystore.NewMemory(), searchCfg, audit.Discard{}, nil, logger)

	members := external.NewMemberDirectory([]external.Member{
		{MemberID: "m-1", FirstName: "Juan", LastName: "Dela Cruz", MemberNo: "H-0042", Status: "incumbent"},
	})
	sources := []external.Directory{members, search.NewEntrySource(records)}
	suggestions := search.NewMemorySuggestionStore()
	engine := search.New(sources, suggestions, searchCfg, nil, logger)
	people := person.New(sources, records, identity, logger)
	pipeline := importer.New(records, identity, schemas, importCfg, audit.Discard{}, nil, logger)

	handler := transport.New(schemas, records, identity, engine, people, pipeline,
		suggestions, searchCfg, importCfg, middleware.NewJWTValidator(testSigningKey), logger)
	s.router = transport.NewRouter(handler)

	s.userID = domain.UserID(uuid.New())
	s.token = s.mintToken(s.userID)
}

func (s *RouterSuite) mintToken(userID domain.UserID) string {
	claims := middleware.Claims{
		Role:      "staff",
		Superuser: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst))
}

func (s *RouterSuite) createDatabase(name string) string {
	rec := s.do(http.MethodPost, "/api/databases", map[string]any{
		"name": name,
		"type": "volunteers",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var db struct {
		ID string `json:"id"`
	}
	s.decode(rec, &db)
	return db.ID
}

func (s *RouterSuite) TestHealthzIsOpen() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestAPIRequiresBearerToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=juan", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestDatabaseEntryLifecycle() {
	dbID := s.createDatabase("Relief Volunteers")

	rec := s.do(http.MethodPost, "/api/databases/"+dbID+"/fields", map[string]any{
		"name":  "barangay",
		"label": "Barangay",
		"type":  "text",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/databases/"+dbID+"/entries", map[string]any{
		"identity":   map[string]any{"first_name": "Maria", "last_name": "Santos"},
		"attributes": map[string]any{"barangay": "San Isidro"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.decode(rec, &entry)
	s.Equal("draft", entry.Status)

	rec = s.do(http.MethodPost, "/api/entries/"+entry.ID+"/approve", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &entry)
	s.Equal("approved", entry.Status)

	// Double approval is a state conflict.
	rec = s.do(http.MethodPost, "/api/entries/"+entry.ID+"/approve", nil)
	s.Equal(http.StatusConflict, rec.Code)
	var envelope struct {
		Error string `json:"error"`
	}
	s.decode(rec, &envelope)
	s.Equal("conflict", envelope.Error)
}

func (s *RouterSuite) TestSearchMinimumQueryLength() {
	rec := s.do(http.MethodGet, "/api/search?q=j", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error string `json:"error"`
	}
	s.decode(rec, &envelope)
	s.Equal("bad_request", envelope.Error)
}

func (s *RouterSuite) TestSearchSpansSources() {
	dbID := s.createDatabase("Constituents Outreach")
	rec := s.do(http.MethodPost, "/api/databases/"+dbID+"/entries", map[string]any{
		"identity": map[string]any{"first_name": "Juan", "last_name": "Reyes"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/search?q=Juan", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var results struct {
		Ranked []struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"ranked"`
	}
	s.decode(rec, &results)
	s.Require().Len(results.Ranked, 2)

	kinds := map[string]bool{}
	for _, r := range results.Ranked {
		kinds[r.Kind] = true
	}
	s.True(kinds["member"])
	s.True(kinds["entry"])
}

func (s *RouterSuite) TestUnknownEntryIsNotFound() {
	rec := s.do(http.MethodGet, "/api/entries/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)
	var envelope struct {
		Error string `json:"error"`
	}
	s.decode(rec, &envelope)
	s.Equal("not_found", envelope.Error)
}

func (s *RouterSuite) TestImportPreviewSuggestsMappings() {
	dbID := s.createDatabase("Training Attendees")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "attendees.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("Full Name,Contact Number\nJuan Dela Cruz,0917-555-0101\n"))
	s.Require().NoError(err)
	s.Require().NoError(form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/databases/"+dbID+"/import/preview", &buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var preview struct {
		Rows        int      `json:"rows"`
		Columns     []string `json:"columns"`
		Suggestions []struct {
			Column string `json:"column"`
			Target string `json:"target"`
			Kind   string `json:"kind"`
		} `json:"suggestions"`
	}
	s.decode(rec, &preview)
	s.Equal(1, preview.Rows)
	s.Equal([]string{"Full Name", "Contact Number"}, preview.Columns)
	s.Require().Len(preview.Suggestions, 2)
	s.Equal("full_name", preview.Suggestions[0].Target)
	s.Equal("phone", preview.Suggestions[1].Target)
}

func (s *RouterSuite) TestImportNewFieldValuesAreSearchable() {
	dbID := s.createDatabase("Outreach Log")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "visits.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("Full Name,Notes\nJuan Reyes,walk-in\n"))
	s.Require().NoError(err)
	s.Require().NoError(form.WriteField("mappings",
		`{"Full Name":{"type":"standard","field":"full_name"},"Notes":{"type":"new_field"}}`))
	s.Require().NoError(form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/databases/"+dbID+"/import", &buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Successful int      `json:"successful"`
		CreatedIDs []string `json:"created_ids"`
	}
	s.decode(rec, &report)
	s.Require().Equal(1, report.Successful)
	s.Require().Len(report.CreatedIDs, 1)

	// The value lives only in the imported column; finding it proves
	// the column was declared and its data stored.
	rec = s.do(http.MethodGet, "/api/search?q=walk-in", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var results struct {
		Ranked []struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"ranked"`
	}
	s.decode(rec, &results)
	s.Require().Len(results.Ranked, 1)
	s.Equal("entry", results.Ranked[0].Kind)
	s.Equal(report.CreatedIDs[0], results.Ranked[0].ID)

	rec = s.do(http.MethodGet, "/api/databases/"+dbID+"/columns", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Notes")
}

func (s *RouterSuite) TestImportCommitReportsRows() {
	dbID := s.createDatabase("Medical Mission")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "patients.csv")
	s.Require().NoError(err)
	_, err = part.Write([]byte("Name,Email\nJuan Dela Cruz,juan@example.com\n,,\n"))
	s.Require().NoError(err)
	s.Require().NoError(form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/databases/"+dbID+"/import", &buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var report struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
		Errors     []struct {
			Row int `json:"row"`
		} `json:"errors"`
	}
	s.decode(rec, &report)
	s.Equal(2, report.Total)
	s.Equal(1, report.Successful)
	s.Equal(1, report.Failed)
	s.Require().Len(report.Errors, 1)
	s.Equal(2, report.Errors[0].Row)
}
