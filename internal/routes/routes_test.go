package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anitrack-api/internal/cache"
	"anitrack-api/internal/realtime"
	"anitrack-api/internal/store"
	"anitrack-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	c := cache.New[any](cache.Config{})
	t.Cleanup(func() { _ = c.Close() })

	return SetupRoutes(Dependencies{
		Store:  store.New(db),
		Cache:  c,
		Hub:    realtime.NewHub(zerolog.Nop()),
		Logger: zerolog.Nop(),
	})
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPreflight(t *testing.T) {
	r := setupTestRouter(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/documents/a", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestDocumentRoundTrip(t *testing.T) {
	r := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/documents/anime_1", strings.NewReader(`{"title":"Frieren"}`))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/documents/anime_1", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Frieren")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/cache/keys", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "document_anime_1")
}
