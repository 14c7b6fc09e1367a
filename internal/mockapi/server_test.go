package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func serve(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) map[string]interface{} {
	t.Helper()
	rec := serve(s, http.MethodPost, APIPrefix+"/auth/login", `{"email":"parent@example.com","password":"storytime123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthIsServedAtRoot(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	rec := serve(s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	rec := serve(s, http.MethodGet, APIPrefix+"/children/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, rec.Body.String())
}

func TestRefreshRotatesTokens(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	tokens := login(t, s)
	refresh := tokens["refresh_token"].(string)

	rec := serve(s, http.MethodPost, APIPrefix+"/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodPost, APIPrefix+"/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChildAgeIsValidated(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	access := login(t, s)["access_token"].(string)

	rec := serve(s, http.MethodPost, APIPrefix+"/children/", `{"name":"Tiny","age":4}`, access)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Age must be between 7 and 12")
}

func TestFailNextInjectsStatuses(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	s.FailNext("/auth/login", http.StatusInternalServerError, http.StatusBadGateway)

	body := `{"email":"parent@example.com","password":"storytime123"}`
	assert.Equal(t, http.StatusInternalServerError, serve(s, http.MethodPost, APIPrefix+"/auth/login", body, "").Code)
	assert.Equal(t, http.StatusBadGateway, serve(s, http.MethodPost, APIPrefix+"/auth/login", body, "").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodPost, APIPrefix+"/auth/login", body, "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	req := httptest.NewRequest(http.MethodOptions, APIPrefix+"/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewServer(DefaultConfig(), zap.New(core))

	serve(s, http.MethodGet, "/health", "", "")
	serve(s, http.MethodGet, APIPrefix+"/children/", "", "")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Request handled", entries[0].Message)
	assert.EqualValues(t, http.StatusUnauthorized, entries[0].ContextMap()["status"])
}

func TestRecommendationsMatchReaderLevel(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	access := login(t, s)["access_token"].(string)

	// Noa reads hebrew at beginner level, Max english at intermediate
	rec := serve(s, http.MethodPost, APIPrefix+"/stories/generate", `{"childId":3,"theme":"space"}`, access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, APIPrefix+"/stories/recommendations/3?limit=2", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Stories []map[string]interface{} `json:"stories"`
		Reason  string                   `json:"recommendation_reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Stories, 1)
	assert.Equal(t, "Based on Max's interests and reading level", body.Reason)

	rec = serve(s, http.MethodGet, APIPrefix+"/stories/recommendations/2", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stories":[]`)
}

func TestProgressReportRejectsUnknownPeriod(t *testing.T) {
	s := NewServer(DefaultConfig(), nil)
	access := login(t, s)["access_token"].(string)

	rec := serve(s, http.MethodGet, APIPrefix+"/analytics/child/3/progress?period=decade", "", access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, http.MethodGet, APIPrefix+"/analytics/child/3/progress?period=week", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"child_name":"Max"`)

	rec = serve(s, http.MethodGet, APIPrefix+"/analytics/child/99/progress", "", access)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
