package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	cfg "github.com/example/screenplay/internal/config"
	"github.com/example/screenplay/internal/domain"
	"github.com/example/screenplay/internal/report"
)

type stubEngine struct {
	mu       sync.Mutex
	markup   string
	printErr error
	opened   int
	closed   int
}

func (e *stubEngine) Open(context.Context) (report.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened++
	return &stubSession{engine: e}, nil
}

type stubSession struct{ engine *stubEngine }

func (s *stubSession) SetContent(_ context.Context, markup string) error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.markup = markup
	return nil
}

func (s *stubSession) PrintPDF(context.Context, report.PageOptions) ([]byte, error) {
	if s.engine.printErr != nil {
		return nil, s.engine.printErr
	}
	return []byte("%PDF-1.4 stub"), nil
}

func (s *stubSession) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.closed++
	return nil
}

type testServer struct {
	app     *App
	handler http.Handler
	engine  *stubEngine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	engine := &stubEngine{}
	c := &cfg.Config{JwtSecret: testSecret, RateLimitPerMinute: 10000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := NewApp(NewMemoryDB(), c, engine, logger)
	return &testServer{app: app, handler: app.routes(), engine: engine}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// login registers a fresh user and returns its id and token.
func (s *testServer) login(t *testing.T, email string) (string, string) {
	t.Helper()
	creds := map[string]string{"email": email, "password": "secret-pw"}

	rec := s.do(t, http.MethodPost, "/api/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))

	rec = s.do(t, http.MethodPost, "/api/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return u.ID, out.Token
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestRegister_ResponseOmitsHash(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/register", map[string]string{"email": "a@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a@example.com", body["email"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "a@example.com")

	rec := s.do(t, http.MethodPost, "/api/register", map[string]string{"email": "a@example.com", "password": "pw"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeAPIError(t, rec)
	assert.Equal(t, "USER_EXISTS", e.Code)
	assert.Equal(t, "User already exists", e.Message)
}

func TestRegister_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/register", "{not json", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)
}

func TestLogin_FailuresShareMessage(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "a@example.com")

	wrong := s.do(t, http.MethodPost, "/api/login", map[string]string{"email": "a@example.com", "password": "nope"}, "")
	unknown := s.do(t, http.MethodPost, "/api/login", map[string]string{"email": "b@example.com", "password": "secret-pw"}, "")

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, decodeAPIError(t, wrong), decodeAPIError(t, unknown))
	assert.Equal(t, "INVALID_CREDENTIALS", decodeAPIError(t, wrong).Code)
}

func TestProtectedRoutes_AuthFailures(t *testing.T) {
	s := newTestServer(t)
	ghost, err := s.app.gate.Issue("ghost@example.com")
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		code  string
	}{
		{"missing", "", "MISSING_CREDENTIAL"},
		{"malformed", "Bearer abc.def.ghi", "INVALID_CREDENTIAL"},
		{"unknown identity", ghost, "UNKNOWN_IDENTITY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, path := range []string{"/api/characters", "/api/relations", "/api/properties", "/api/reports/pdf", "/api/reports/excel-csv", "/api/me"} {
				rec := s.do(t, http.MethodGet, path, nil, tc.token)
				require.Equal(t, http.StatusUnauthorized, rec.Code, path)
				assert.Equal(t, tc.code, decodeAPIError(t, rec).Code, path)
			}
		})
	}
}

func TestCharacterCRUD(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.login(t, "writer@example.com")

	rec := s.do(t, http.MethodPost, "/api/relations", map[string]string{"name": "Friend", "description": "close"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rel domain.Relation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))

	rec = s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"name":       "Alice",
		"age":        30,
		"gender":     "female",
		"occupation": "Engineer",
		"photos":     []map[string]string{{"url": "https://img.example/alice.png", "filename": "alice.png"}},
		"relations":  []string{rel.ID},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var alice domain.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alice))
	assert.Equal(t, userID, alice.UserID)
	assert.Equal(t, []string{rel.ID}, alice.Relations)
	assert.Equal(t, []string{}, alice.Properties)

	rec = s.do(t, http.MethodGet, "/api/characters/"+alice.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/characters/"+alice.ID, map[string]any{"age": 31}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 31, updated.Age)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, userID, updated.UserID)

	rec = s.do(t, http.MethodGet, "/api/characters", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = s.do(t, http.MethodDelete, "/api/characters/"+alice.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Character deleted successfully"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/characters/"+alice.ID, nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	e := decodeAPIError(t, rec)
	assert.Equal(t, "NOT_FOUND", e.Code)
	assert.Equal(t, "Character not found", e.Message)

	rec = s.do(t, http.MethodPut, "/api/characters/"+alice.ID, map[string]any{"age": 1}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/characters/"+alice.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCharacterCreate_Validation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")

	rec := s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"name": "", "age": -1, "gender": "robot", "occupation": "x",
	}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeAPIError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	fields := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"name", "age", "gender"}, fields)

	rec = s.do(t, http.MethodPost, "/api/characters",
		`{"name":"Bob","age":1,"gender":"male","occupation":"x","relations":"[not json"}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/characters",
		`{"name":"Bob","age":1,"gender":"male","occupation":"x","relations":["not-a-uuid"]}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharacterCreate_StringifiedRelations(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")

	id := "6f1c0e1e-8c0b-4b8e-9a53-2f5f6d0c1a11"
	body := `{"name":"Bob","age":40,"gender":"male","occupation":"Pilot","relations":"[\"` + id + `\"]"}`
	rec := s.do(t, http.MethodPost, "/api/characters", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c domain.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, []string{id}, c.Relations)
}

func TestRelationAndPropertyCRUD(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")

	rec := s.do(t, http.MethodPost, "/api/properties", map[string]string{"name": "Height", "value": "180"}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/properties",
		map[string]string{"name": "Height", "value": "180", "description": "cm"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p domain.Property
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = s.do(t, http.MethodPut, "/api/properties/"+p.ID,
		map[string]string{"name": "Height", "value": "181", "description": "cm"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "181", p.Value)

	rec = s.do(t, http.MethodDelete, "/api/properties/"+p.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Property deleted successfully"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/relations/missing", nil, token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Relation not found", decodeAPIError(t, rec).Message)

	rec = s.do(t, http.MethodPost, "/api/relations", map[string]string{"name": "Rival"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var rel domain.Relation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))

	rec = s.do(t, http.MethodGet, "/api/relations", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var rels []domain.Relation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rels))
	require.Len(t, rels, 1)
	assert.Equal(t, "Rival", rels[0].Name)

	rec = s.do(t, http.MethodDelete, "/api/relations/"+rel.ID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Relation deleted successfully"}`, rec.Body.String())
}

// seedAliceAndBob creates Alice (one relation, one photo, plus a dangling
// relation id) and Bob (nothing attached).
func seedAliceAndBob(t *testing.T, s *testServer, token string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/relations", map[string]string{"name": "Friend"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var rel domain.Relation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))

	rec = s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"name": "Alice", "age": 30, "gender": "female", "occupation": "Engineer",
		"photos":    []map[string]string{{"url": "https://img.example/alice.png", "filename": "alice.png"}},
		"relations": []string{rel.ID, "00000000-0000-4000-8000-000000000000"},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/characters", map[string]any{
		"name": "Bob", "age": 40, "gender": "male", "occupation": "Pilot",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func padCells(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func TestExcelReport(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")
	seedAliceAndBob(t, s, token)

	rec := s.do(t, http.MethodGet, "/api/reports/excel-csv", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="character_report.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, []string{"Alice", "30", "female", "Engineer", "Friend", "alice.png"}, padCells(rows[1], 6))
	assert.Equal(t, []string{"Bob", "40", "male", "Pilot", "", ""}, padCells(rows[2], 6))

	ok, link, err := f.GetCellHyperLink(report.SheetName, "F2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://img.example/alice.png", link)
}

func TestCSVReport(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")
	seedAliceAndBob(t, s, token)

	for _, path := range []string{"/api/reports/csv", "/api/reports/excel-csv?format=csv"} {
		rec := s.do(t, http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, report.CSVContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="character_report.csv"`, rec.Header().Get("Content-Disposition"))

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"Alice", "30", "female", "Engineer", "Friend", "alice.png"}, records[1])
		assert.Equal(t, []string{"Bob", "40", "male", "Pilot", "", ""}, records[2])
	}
}

func TestPDFReport(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")
	seedAliceAndBob(t, s, token)

	rec := s.do(t, http.MethodGet, "/api/reports/pdf", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 stub", rec.Body.String())

	assert.Equal(t, 1, s.engine.opened)
	assert.Equal(t, 1, s.engine.closed)
	assert.Contains(t, s.engine.markup, "Alice")
	assert.Contains(t, s.engine.markup, "Friend")
	assert.Equal(t, 1, strings.Count(s.engine.markup, "<img"))
}

func TestPDFReport_RenderFailure(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "writer@example.com")
	s.engine.printErr = errors.New("browser crashed")

	rec := s.do(t, http.MethodGet, "/api/reports/pdf", nil, token)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeAPIError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.Equal(t, "Error generating PDF", e.Message)
	assert.Contains(t, e.Details, "browser crashed")
	assert.Equal(t, 1, s.engine.closed)
}

func TestMeAndValidate(t *testing.T) {
	s := newTestServer(t)
	id, token := s.login(t, "writer@example.com")

	rec := s.do(t, http.MethodGet, "/api/me", nil, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "writer@example.com", me.Email)

	rec = s.do(t, http.MethodGet, "/api/auth/validate?token="+token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info TokenInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Active)
	assert.Equal(t, "writer@example.com", info.Email)
	assert.Greater(t, info.ExpiresAt, info.IssuedAt)

	rec = s.do(t, http.MethodGet, "/api/auth/validate?token=bogus", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":false}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/auth/validate", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/ready", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())
}
