package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Timeout = "2s"
	return cfg
}

func TestClient_GetReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "<h1>%s not found</h1>", r.URL.Path)
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	resp, err := c.Get(context.Background(), MustParseURL(srv.URL+"/missing"), GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "<h1>/missing not found</h1>", resp.Body)
	assert.True(t, resp.IsTextOrHTML())
	assert.NotZero(t, resp.ID)
}

func TestClient_DecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("caf\xe9"))
	}))
	defer srv.Close()

	resp, err := NewClient(testConfig()).Get(context.Background(), MustParseURL(srv.URL), GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "café", resp.Body)
}

func TestClient_CacheOnlyWhenRequested(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	u := MustParseURL(srv.URL + "/page")
	ctx := context.Background()

	first, err := c.Get(ctx, u, GetOptions{UseCache: true})
	require.NoError(t, err)
	second, err := c.Get(ctx, u, GetOptions{UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, hits.Load())

	_, err = c.Get(ctx, u, GetOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load(), "uncached GET must reach the server")
}

func TestClient_GrepHooksSkippedWithNoGrep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	var seen atomic.Int32
	c.AddGrepper(func(*Response) { seen.Add(1) })

	u := MustParseURL(srv.URL)
	_, err := c.Get(context.Background(), u, GetOptions{})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), u, GetOptions{NoGrep: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, seen.Load())
}

func TestClient_ConsecutiveFailuresStopScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := MustParseURL(srv.URL)
	srv.Close() // connections are now refused

	cfg := testConfig()
	cfg.MaxConsecutiveErrors = 2
	c := NewClient(cfg)

	_, err := c.Get(context.Background(), u, GetOptions{})
	require.Error(t, err)
	assert.True(t, core.IsTransient(err), "first failure should be transient: %v", err)

	_, err = c.Get(context.Background(), u, GetOptions{})
	assert.True(t, errors.Is(err, core.ErrMustStop), "second failure should stop the scan: %v", err)
	assert.True(t, c.Stopped())

	_, err = c.Get(context.Background(), u, GetOptions{})
	assert.ErrorIs(t, err, core.ErrMustStop)
}

func TestClient_StopRefusesRequests(t *testing.T) {
	c := NewClient(testConfig())
	c.Stop()
	_, err := c.Get(context.Background(), MustParseURL("http://127.0.0.1:1/"), GetOptions{})
	assert.ErrorIs(t, err, core.ErrMustStop)
}
