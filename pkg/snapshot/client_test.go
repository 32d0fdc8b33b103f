package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// snapshotServer serves a fixed row count through ranged reads the way
// PostgREST does.
func snapshotServer(t *testing.T, totalRows int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/players", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("apikey"))
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var start, end int
		_, err := fmt.Sscanf(r.Header.Get("Range"), "%d-%d", &start, &end)
		require.NoError(t, err)

		rows := []map[string]interface{}{}
		for i := start; i <= end && i < totalRows; i++ {
			rows = append(rows, map[string]interface{}{
				"id":     float64(i),
				"name":   fmt.Sprintf("player_%d", i),
				"points": float64(i * 2),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPartialContent)
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
}

func TestLoadPaginates(t *testing.T) {
	srv := snapshotServer(t, 250)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "players", 100)
	f, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 250, f.NumRows())
	assert.Equal(t, []string{"id", "name", "points"}, f.Columns())

	names, err := f.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "player_249", names[249])
}

func TestLoadExactPageBoundary(t *testing.T) {
	srv := snapshotServer(t, 200)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "players", 100)
	f, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, f.NumRows())
}

func TestLoadEmptyTable(t *testing.T) {
	srv := snapshotServer(t, 0)
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "players", 100)
	f, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.NumRows())
}

func TestLoadFailsClosedOnPageError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusPartialContent)
			rows := make([]map[string]interface{}, 100)
			for i := range rows {
				rows[i] = map[string]interface{}{"id": float64(i)}
			}
			_ = json.NewEncoder(w).Encode(rows)
			return
		}
		http.Error(w, `{"message":"JWT expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "players", 100)
	_, err := c.Load(context.Background())
	require.Error(t, err, "a mid-pagination failure must not yield a partial snapshot")
	assert.Contains(t, err.Error(), "401")
	assert.True(t, strings.Contains(err.Error(), "players"))
}

func TestCacheServesWithinTTL(t *testing.T) {
	loads := 0
	loader := loaderFunc(func(ctx context.Context) (*frame.Frame, error) {
		loads++
		return frame.MustNew([]string{"v"}, [][]frame.Value{{1.0}}), nil
	})

	cache := NewCache(loader, time.Hour)
	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.NotSame(t, first, second, "callers get independent copies")
}

func TestCacheDisabledWithZeroTTL(t *testing.T) {
	loads := 0
	loader := loaderFunc(func(ctx context.Context) (*frame.Frame, error) {
		loads++
		return frame.MustNew([]string{"v"}, [][]frame.Value{{1.0}}), nil
	})

	cache := NewCache(loader, 0)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestCacheInvalidate(t *testing.T) {
	loads := 0
	loader := loaderFunc(func(ctx context.Context) (*frame.Frame, error) {
		loads++
		return frame.MustNew([]string{"v"}, [][]frame.Value{{1.0}}), nil
	})

	cache := NewCache(loader, time.Hour)
	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestCachePropagatesLoadError(t *testing.T) {
	sentinel := errors.New("network down")
	cache := NewCache(loaderFunc(func(ctx context.Context) (*frame.Frame, error) {
		return nil, sentinel
	}), time.Hour)

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, sentinel)
}

type loaderFunc func(ctx context.Context) (*frame.Frame, error)

func (f loaderFunc) Load(ctx context.Context) (*frame.Frame, error) { return f(ctx) }
