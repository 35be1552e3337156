package fingerprint

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soft404Go/internal/core"
	"soft404Go/internal/web"
)

func unreachable(t *testing.T) *fakeFetcher {
	return &fakeFetcher{FetchFn: func(u web.URL) (*web.Response, error) {
		t.Errorf("unexpected request to %s", u)
		return nil, core.ErrNetworkError
	}}
}

func networkDown(web.URL) (*web.Response, error) {
	return nil, fmt.Errorf("%w: connection refused", core.ErrNetworkError)
}

// trained returns a classifier whose once-per-scan knowledge round is
// already done, so only the single-probe fallback can hit the fetcher.
func trained(f web.Fetcher, opts Options) *Classifier {
	c := NewClassifier(f, opts)
	c.analyzed = true
	return c
}

func TestClassify_StatusCodeNeedsNoFetcher(t *testing.T) {
	c := NewClassifier(nil, testOptions())
	resp := htmlResponse(web.MustParseURL("http://example.com/app/gone.php"), 404, pageBody)

	v, err := c.Classify(context.Background(), resp)
	require.NoError(t, err)
	assert.True(t, v.NotFound)
	assert.Equal(t, ReasonStatusCode, v.Reason)
}

func TestClassify_Overrides(t *testing.T) {
	opts := testOptions()
	opts.Always404 = []string{"http://example.com/always/", "http://example.com/both/"}
	opts.Never404 = []string{"http://example.com/never/", "http://example.com/both/x.php"}
	c := NewClassifier(unreachable(t), opts)
	ctx := context.Background()

	v, err := c.Classify(ctx, htmlResponse(web.MustParseURL("http://example.com/always/index.php"), 200, pageBody))
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: true, Reason: ReasonAlways404}, v)

	v, err = c.Classify(ctx, htmlResponse(web.MustParseURL("http://example.com/never/missing.php"), 404, "Not Found"))
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: false, Reason: ReasonNever404}, v, "never-404 beats the status code")

	v, err = c.Classify(ctx, htmlResponse(web.MustParseURL("http://example.com/both/y.php"), 200, pageBody))
	require.NoError(t, err)
	assert.Equal(t, ReasonAlways404, v.Reason, "always-404 is checked first")

	// overrides match the exact directory, not its children
	v, err = c.Classify(ctx, htmlResponse(web.MustParseURL("http://example.com/always/sub/x.php"), 404, ""))
	require.NoError(t, err)
	assert.Equal(t, ReasonStatusCode, v.Reason)
}

func TestClassify_StringMatch(t *testing.T) {
	opts := testOptions()
	opts.NotFoundString = "Sorry, no jam here"
	c := NewClassifier(unreachable(t), opts)

	v, err := c.Classify(context.Background(),
		htmlResponse(web.MustParseURL("http://example.com/shop/x.php"), 200, "<p>Sorry, no jam here</p>"))
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: true, Reason: ReasonStringMatch}, v)
}

func TestClassify_CorpusMatch(t *testing.T) {
	requireLen(t, pageBody, 100)
	c := trained(unreachable(t), testOptions())
	c.AddReference(web.MustParseURL("http://example.com/app/"), pageBody)

	resp := htmlResponse(web.MustParseURL("http://example.com/app/other.php"), 200, mutate(pageBody, 3, 11, 5))
	v, err := c.Classify(context.Background(), resp)
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: true, Reason: ReasonCorpusMatch}, v)
}

func TestClassify_SingleProbeFallback(t *testing.T) {
	f := &fakeFetcher{FetchFn: func(u web.URL) (*web.Response, error) {
		if notProbe(u.String()) {
			return htmlResponse(u, 404, pageBody), nil
		}
		return networkDown(u)
	}}
	c := NewClassifier(f, testOptions())
	ctx := context.Background()

	resp := htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, mutate(pageBody, 3, 11, 8))
	v, err := c.Classify(ctx, resp)
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: true, Reason: ReasonSingleProbe}, v)
	assert.Equal(t, 1, f.count(func(u string) bool { return u == "http://example.com/app/not-index.php" }))

	// the knowledge round failed completely, so nothing came from it
	stats := c.Stats()
	assert.Equal(t, 1, stats.CorpusSize)
	assert.Equal(t, 1, stats.FingerprintedPaths)
	assert.Equal(t, 1, stats.DirectoriesUse404)

	before := f.total()
	other := htmlResponse(web.MustParseURL("http://example.com/app/contact.php"), 200, "Contact us at the jam shop")
	v, err = c.Classify(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: false, Reason: ReasonDirectoryCodes}, v)
	assert.Equal(t, before, f.total(), "a directory known to use 404 must not be probed again")
}

func TestClassify_SingleProbeDissimilar(t *testing.T) {
	f := &fakeFetcher{FetchFn: func(u web.URL) (*web.Response, error) {
		return htmlResponse(u, 200, "Welcome to the front page of a totally different site"), nil
	}}
	c := trained(f, testOptions())

	v, err := c.Classify(context.Background(),
		htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody))
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: false, Reason: ReasonDefault}, v)
	assert.Zero(t, c.Stats().DirectoriesUse404)
	assert.Zero(t, c.Stats().CorpusSize)
}

func TestClassify_SingleProbeTransientFailure(t *testing.T) {
	f := &fakeFetcher{FetchFn: networkDown}
	c := NewClassifier(f, testOptions())

	ok, err := c.IsNotFound(context.Background(),
		htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, f.count(notProbe), "the fallback probe is retried once")
}

func TestClassify_DirectoryProbe(t *testing.T) {
	f := &fakeFetcher{FetchFn: func(u web.URL) (*web.Response, error) {
		return htmlResponse(u, 200, "directory listing of something else"), nil
	}}
	c := trained(f, testOptions())

	_, err := c.Classify(context.Background(),
		htmlResponse(web.MustParseURL("http://example.com/app/sub/"), 200, pageBody))
	require.NoError(t, err)
	require.Equal(t, 1, f.total())
	assert.Regexp(t, regexp.MustCompile(`^http://example\.com/app/[A-Za-z0-9]{8}/$`), f.requests[0])
}

func TestClassify_Memoized(t *testing.T) {
	c := trained(unreachable(t), testOptions())
	c.AddReference(web.MustParseURL("http://example.com/app/"), "nothing like the page")
	resp := htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody)
	ctx := context.Background()

	first, err := c.Classify(ctx, resp)
	require.NoError(t, err)
	assert.Equal(t, Verdict{NotFound: false, Reason: ReasonDefault}, first)

	second, err := c.Classify(ctx, resp)
	require.NoError(t, err)
	assert.True(t, second.Memoized)
	assert.Equal(t, first.NotFound, second.NotFound)
	assert.EqualValues(t, 1, c.Stats().MemoHits)
}

func TestClassify_NoFetcher(t *testing.T) {
	c := NewClassifier(nil, testOptions())
	resp := htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody)

	_, err := c.IsNotFound(context.Background(), resp)
	assert.ErrorIs(t, err, core.ErrNoFetcher)

	c.SetFetcher(&fakeFetcher{FetchFn: echoingNotFound})
	ok, err := c.IsNotFound(context.Background(), resp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClassify_MustStop(t *testing.T) {
	f := &fakeFetcher{FetchFn: func(web.URL) (*web.Response, error) { return nil, core.ErrMustStop }}
	c := NewClassifier(f, testOptions())

	_, err := c.IsNotFound(context.Background(),
		htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody))
	assert.ErrorIs(t, err, core.ErrMustStop)
}

func TestClassify_KnowledgeBuiltOnce(t *testing.T) {
	f := &fakeFetcher{FetchFn: echoingNotFound}
	c := NewClassifier(f, testOptions())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := web.MustParseURL(fmt.Sprintf("http://example.com/app/page%d.php", i))
			ok, err := c.IsNotFound(ctx, htmlResponse(u, 200, pageBody))
			assert.NoError(t, err)
			assert.False(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(DefaultProbeExtensions), f.total())
	assert.Zero(t, f.count(notProbe), "a fingerprinted directory needs no fallback")
	assert.Equal(t, 1, c.Stats().CorpusSize)
}

func TestClassify_PerDirectoryKnowledge(t *testing.T) {
	f := &fakeFetcher{FetchFn: echoingNotFound}
	opts := testOptions()
	opts.PerDirectory = true
	c := NewClassifier(f, opts)
	ctx := context.Background()

	for _, raw := range []string{
		"http://example.com/a/x.php",
		"http://example.com/b/y.php",
		"http://example.com/a/z.php",
	} {
		_, err := c.IsNotFound(ctx, htmlResponse(web.MustParseURL(raw), 200, pageBody))
		require.NoError(t, err)
	}
	assert.Equal(t, 2*len(DefaultProbeExtensions), f.total())
	assert.Equal(t, 2, c.Stats().FingerprintedPaths)
}

func TestClassify_DirectoryErrorCodePolicy(t *testing.T) {
	forbidden := func(u web.URL) (*web.Response, error) {
		return htmlResponse(u, 403, "Forbidden"), nil
	}
	ctx := context.Background()
	next := func() *web.Response {
		return htmlResponse(web.MustParseURL("http://example.com/app/index.php"), 200, pageBody)
	}

	narrow := trained(&fakeFetcher{FetchFn: forbidden}, testOptions())
	_, err := narrow.Classify(ctx, next())
	require.NoError(t, err)
	assert.Zero(t, narrow.Stats().DirectoriesUse404)

	opts := testOptions()
	opts.DirectoryErrorCodes = []int{404, 401, 403}
	broad := trained(&fakeFetcher{FetchFn: forbidden}, opts)
	_, err = broad.Classify(ctx, next())
	require.NoError(t, err)
	assert.Equal(t, 1, broad.Stats().DirectoriesUse404)

	v, err := broad.Classify(ctx, next())
	require.NoError(t, err)
	assert.Equal(t, ReasonDirectoryCodes, v.Reason)
}

func TestClassify_Stats(t *testing.T) {
	opts := testOptions()
	opts.Always404 = []string{"http://example.com/old/"}
	c := NewClassifier(nil, opts)
	ctx := context.Background()

	for _, resp := range []*web.Response{
		htmlResponse(web.MustParseURL("http://example.com/x/a.php"), 404, ""),
		htmlResponse(web.MustParseURL("http://example.com/x/b.php"), 404, ""),
		htmlResponse(web.MustParseURL("http://example.com/old/c.php"), 200, ""),
	} {
		_, err := c.Classify(ctx, resp)
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]int64{"status-404": 2, "always-404": 1}, c.Stats().Decisions)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "corpus-match", ReasonCorpusMatch.String())
	assert.Equal(t, "unknown", Reason(99).String())
}

func TestScripted(t *testing.T) {
	s := NewScripted(true, false)
	s.Default = true
	ctx := context.Background()
	u := web.MustParseURL("http://example.com/")

	for _, want := range []bool{true, false, true, true} {
		got, err := s.IsNotFound(ctx, htmlResponse(u, 200, ""))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Len(t, s.Calls(), 4)
}
