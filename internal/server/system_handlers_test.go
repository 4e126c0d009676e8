package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpetrou/signalfolio/internal/cache"
)

func newTestSystemHandlers(t *testing.T) (*SystemHandlers, *cache.Cache) {
	t.Helper()
	c := cache.New(time.Minute, zerolog.Nop())
	return NewSystemHandlers(zerolog.Nop(), c), c
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestSystemHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "goroutines")
	assert.Contains(t, body, "memory_percent")
}

func TestHandleCacheStats(t *testing.T) {
	h, c := newTestSystemHandlers(t)
	require.NoError(t, c.Set(cache.NamespaceAnalysis+"AAPL", "payload"))

	req := httptest.NewRequest(http.MethodGet, "/api/system/cache", nil)
	rec := httptest.NewRecorder()
	h.HandleCacheStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)
}

func TestHandleCacheInvalidate(t *testing.T) {
	t.Run("by prefix", func(t *testing.T) {
		h, c := newTestSystemHandlers(t)
		require.NoError(t, c.Set(cache.NamespaceAnalysis+"AAPL", "a"))
		require.NoError(t, c.Set(cache.NamespaceOpportunities+"buy", "b"))

		req := httptest.NewRequest(http.MethodDelete, "/api/system/cache?prefix="+cache.NamespaceAnalysis, nil)
		rec := httptest.NewRecorder()
		h.HandleCacheInvalidate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, c.Stats().Entries)
	})

	t.Run("everything", func(t *testing.T) {
		h, c := newTestSystemHandlers(t)
		require.NoError(t, c.Set(cache.NamespaceAnalysis+"AAPL", "a"))
		require.NoError(t, c.Set(cache.NamespaceOpportunities+"buy", "b"))

		req := httptest.NewRequest(http.MethodDelete, "/api/system/cache", nil)
		rec := httptest.NewRecorder()
		h.HandleCacheInvalidate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, c.Stats().Entries)
	})
}
