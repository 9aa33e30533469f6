package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GhostRadar/pkg/model"
)

const snapshotBody = `{
	"source": "ghosts",
	"records": [
		{"username": "lurker1", "ghost_score": 90},
		{"username": "active1", "ghost_score": 10}
	]
}`

func TestFetchSuccess(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	source := NewHTTPSource("key123", server.URL, 5*time.Second)
	records, err := source.Fetch(context.Background(), "ghosts", nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/metrics/ghosts", gotPath)
	assert.Equal(t, "Bearer key123", gotAuth)
	require.Len(t, records, 2)
	assert.Equal(t, model.StringValue("lurker1"), records[0]["username"])
	assert.Equal(t, model.NumberValue(90), records[0]["ghost_score"])
}

func TestFetchSinceParam(t *testing.T) {
	var gotSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		w.Write([]byte(`{"source":"ghosts","records":[]}`))
	}))
	defer server.Close()

	since := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	source := NewHTTPSource("key", server.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "ghosts", &since)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24T10:00:00Z", gotSince)
}

func TestFetchUnknownSourceNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewHTTPSource("key", server.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "no-such", nil)

	// 404是配置错误，立即返回不重试
	var configErr *model.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Msg, "no-such")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(snapshotBody))
	}))
	defer server.Close()

	source := NewHTTPSource("key", server.URL, 5*time.Second)
	records, err := source.Fetch(context.Background(), "ghosts", nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPSource("key", server.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "ghosts", nil)

	var transientErr *model.TransientError
	require.ErrorAs(t, err, &transientErr)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestFetchContextCancelStopsRetry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewHTTPSource("key", server.URL, 5*time.Second)
	_, err := source.Fetch(ctx, "ghosts", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	source := NewHTTPSource("key", server.URL, 5*time.Second)
	_, err := source.Fetch(context.Background(), "ghosts", nil)

	var configErr *model.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestFetchEmptyName(t *testing.T) {
	source := NewHTTPSource("key", "http://unused", time.Second)
	_, err := source.Fetch(context.Background(), "", nil)

	var configErr *model.ConfigError
	assert.ErrorAs(t, err, &configErr)
}
