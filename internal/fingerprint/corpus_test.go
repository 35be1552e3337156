package fingerprint

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soft404Go/internal/web"
)

func TestCorpus_EvictsLowestIDsUnderConcurrentAdds(t *testing.T) {
	const capacity, writers = 5, 200
	corpus := NewCorpus(capacity)
	u := web.MustParseURL("http://example.com/app/")

	var mu sync.Mutex
	bodyOf := make(map[uint64]string, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("not found %d", i)
			id := corpus.Add(ProbeResult{URL: u, Body: body})
			mu.Lock()
			bodyOf[id] = body
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, bodyOf, writers, "ids must be unique")
	entries := corpus.Entries()
	require.Len(t, entries, capacity)
	for k, e := range entries {
		id := uint64(writers - capacity + 1 + k)
		got, ok := corpus.Get(id)
		require.True(t, ok, "id %d evicted before an older one", id)
		assert.Equal(t, bodyOf[id], got.Body)
		assert.Equal(t, bodyOf[id], e.Body, "entries must be ordered by id")
	}
	_, ok := corpus.Get(uint64(writers - capacity))
	assert.False(t, ok)
}

func TestCorpus_Match(t *testing.T) {
	corpus := NewCorpus(10)
	u := web.MustParseURL("http://example.com/app/")
	corpus.Add(ProbeResult{URL: u, Extension: "php", Body: pageBody})

	got, ok := corpus.Match(mutate(pageBody, 3, 11, 5))
	require.True(t, ok)
	assert.Equal(t, "php", got.Extension)

	_, ok = corpus.Match("<html>completely different page</html>")
	assert.False(t, ok)
}
