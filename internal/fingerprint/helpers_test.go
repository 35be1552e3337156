package fingerprint

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"soft404Go/internal/core/logger"
	"soft404Go/internal/web"
)

func init() {
	logger.SetOutput(io.Discard)
}

type fakeFetcher struct {
	mu       sync.Mutex
	requests []string
	opts     []web.GetOptions
	FetchFn  func(u web.URL) (*web.Response, error)
}

func (f *fakeFetcher) Get(_ context.Context, u web.URL, opts web.GetOptions) (*web.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, u.String())
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	return f.FetchFn(u)
}

func (f *fakeFetcher) count(match func(u string) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.requests {
		if match(u) {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) total() int {
	return f.count(func(string) bool { return true })
}

func htmlResponse(u web.URL, status int, body string) *web.Response {
	return web.NewResponse(u, status, http.Header{"Content-Type": {"text/html; charset=utf-8"}}, body)
}

// mutate replaces every step-th character, starting at offset, with '#',
// n times.
func mutate(s string, offset, step, n int) string {
	b := []byte(s)
	for i := 0; i < n; i++ {
		b[offset+i*step] = '#'
	}
	return string(b)
}

// A 100 character body with no repeated runs, so mutations keep alignment.
const pageBody = "Welcome to Quixotic Jams: fresh berry preserves, zesty marmalade & wild plum butter - shop by flavor" // 100 chars

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryBackoff = 0
	opts.Threads = 4
	return opts
}

func newTestLog() *logrus.Entry {
	return logger.WithComponent("fingerprint_test")
}

func notProbe(u string) bool {
	return strings.Contains(u, "/not-")
}

func requireLen(t *testing.T, s string, n int) {
	t.Helper()
	if len(s) != n {
		t.Fatalf("fixture length = %d, want %d", len(s), n)
	}
}
