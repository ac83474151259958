package api

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextreadapp/nextread-server/internal/auth"
	"github.com/nextreadapp/nextread-server/internal/domain"
	"github.com/nextreadapp/nextread-server/internal/http/response"
	"github.com/nextreadapp/nextread-server/internal/metadata/isbndb"
	"github.com/nextreadapp/nextread-server/internal/recommender"
	"github.com/nextreadapp/nextread-server/internal/service"
	"github.com/nextreadapp/nextread-server/internal/store"
)

const testJWTSecret = "handler-test-secret"

type stubMetadata struct{}

func (stubMetadata) GetBook(_ context.Context, isbn string) (*isbndb.Book, error) {
	switch isbn {
	case "9780441013593":
		return &isbndb.Book{Title: "Dune", Author: "Frank Herbert", ISBN: isbn}, nil
	case "9780553293357":
		return &isbndb.Book{Title: "Foundation", Author: "Isaac Asimov", ISBN: isbn}, nil
	default:
		return nil, isbndb.ErrNotFound
	}
}

func (stubMetadata) Search(_ context.Context, params isbndb.SearchParams) ([]*isbndb.Book, error) {
	if params.Query == "dune" {
		return []*isbndb.Book{{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593"}}, nil
	}
	return []*isbndb.Book{}, nil
}

type stubGenerator struct{}

func (stubGenerator) Suggest(_ context.Context, _ []*domain.Book, _ *domain.Book) (*recommender.Proposal, error) {
	return &recommender.Proposal{
		Title:       "Hyperion",
		Author:      "Dan Simmons",
		ISBN:        "9780553283686",
		Explanation: "Layered far-future storytelling.",
	}, nil
}

func newTestServer(t *testing.T, maxRecs int) (*Server, *store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	recSvc := service.NewRecommendationService(st, stubMetadata{}, stubGenerator{}, maxRecs, logger)
	searchSvc := service.NewSearchService(stubMetadata{}, logger)

	return NewServer(recSvc, searchSvc, auth.NewVerifier(testJWTSecret), []string{"*"}, logger), st
}

func signTestToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

const twoBooksBody = `{"books":[{"isbn":"9780441013593"},{"isbn":"9780553293357"}]}`

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, 5)

	w := doRequest(s, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
}

func TestRecommend_RequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, 5)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/recommend", tt.token, twoBooksBody)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRecommend(t *testing.T) {
	s, st := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend", token, twoBooksBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	book, ok := data["recommendedBook"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hyperion", book["title"])
	assert.Equal(t, "Layered far-future storytelling.", data["explanation"])

	// The caller's user row was provisioned as a side effect.
	_, err := st.GetUserByExternalID(context.Background(), "user_1")
	assert.NoError(t, err)
}

func TestRecommend_TooFewBooks(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend", token,
		`{"books":[{"isbn":"9780441013593"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommend_SkipsBookWithoutISBN(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	// An entry without an ISBN is dropped, not rejected, as long as two
	// entries with ISBNs remain.
	w := doRequest(s, http.MethodPost, "/recommend", token,
		`{"books":[{"isbn":"9780441013593"},{"isbn":"9780553293357"},{"title":"No ISBN Here"}]}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRecommend_TooFewBooksWithISBN(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend", token,
		`{"books":[{"isbn":"9780441013593"},{"title":"No ISBN Here"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommend_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend", token, `{"books":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommend_QuotaExceeded(t *testing.T) {
	s, _ := newTestServer(t, 1)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend", token, twoBooksBody)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodPost, "/recommend", token, twoBooksBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRetry(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	// Seed input books and a first recommendation.
	w := doRequest(s, http.MethodPost, "/recommend", token, twoBooksBody)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodPost, "/recommend/retry", token,
		`{"books":[{"isbn":"9780441013593"},{"isbn":"9780553293357"}],"previousIsbn":"9780553283686"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A retry never counts against the quota.
	w = doRequest(s, http.MethodGet, "/recommend/count", token, "")
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(1), data["count"])
}

func TestRetry_MissingPreviousISBN(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodPost, "/recommend/retry", token, twoBooksBody)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendCount_NewUser(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "fresh_user")

	w := doRequest(s, http.MethodGet, "/recommend/count", token, "")

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(0), data["count"])
}

func TestHistory(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodGet, "/history", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	assert.Empty(t, data["recommendations"])

	doRequest(s, http.MethodPost, "/recommend", token, twoBooksBody)

	w = doRequest(s, http.MethodGet, "/history", token, "")
	env = decodeEnvelope(t, w)
	data = env.Data.(map[string]any)
	recs := data["recommendations"].([]any)
	require.Len(t, recs, 1)

	entry := recs[0].(map[string]any)
	assert.NotNil(t, entry["resultBook"])
	assert.Len(t, entry["inputBooks"], 2)
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t, 5)
	token := signTestToken(t, "user_1")

	w := doRequest(s, http.MethodGet, "/search?q=dune", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	assert.Len(t, data["results"], 1)

	// An empty query degrades to an empty list, not an error.
	w = doRequest(s, http.MethodGet, "/search", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	env = decodeEnvelope(t, w)
	data = env.Data.(map[string]any)
	assert.Empty(t, data["results"])
}

func TestCORS_WildcardOriginIsNotCredentialed(t *testing.T) {
	s, _ := newTestServer(t, 5)

	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ConcreteOriginIsCredentialed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	recSvc := service.NewRecommendationService(st, stubMetadata{}, stubGenerator{}, 5, logger)
	searchSvc := service.NewSearchService(stubMetadata{}, logger)
	s := NewServer(recSvc, searchSvc, auth.NewVerifier(testJWTSecret), []string{"https://app.example.com"}, logger)

	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestIdentityWebhook(t *testing.T) {
	s, st := newTestServer(t, 5)

	body := `{"type":"user.created","data":{"id":"user_hooked"}}`

	w := doRequest(s, http.MethodPost, "/webhooks/identity", "", body)
	require.Equal(t, http.StatusOK, w.Code)

	// Redelivery is idempotent.
	w = doRequest(s, http.MethodPost, "/webhooks/identity", "", body)
	require.Equal(t, http.StatusOK, w.Code)

	user, err := st.GetUserByExternalID(context.Background(), "user_hooked")
	require.NoError(t, err)
	assert.Equal(t, "user_hooked", user.ExternalID)
}

func TestIdentityWebhook_IgnoresOtherEvents(t *testing.T) {
	s, _ := newTestServer(t, 5)

	w := doRequest(s, http.MethodPost, "/webhooks/identity", "",
		`{"type":"session.created","data":{"id":"sess_1"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]any)
	assert.Equal(t, "ignored", data["status"])
}

func TestIdentityWebhook_MissingID(t *testing.T) {
	s, _ := newTestServer(t, 5)

	w := doRequest(s, http.MethodPost, "/webhooks/identity", "",
		`{"type":"user.created","data":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
