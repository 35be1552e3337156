package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"soft404Go/internal/core"
	"soft404Go/internal/web"
)

const alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randAlnum(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alnum[rand.IntN(len(alnum))]
	}
	return string(b)
}

// prober issues the classifier's own requests: uncached, without grep hooks,
// retried with exponential backoff on anything but a scan abort.
type prober struct {
	mu       sync.RWMutex
	fetcher  web.Fetcher
	attempts int
	backoff  time.Duration
	log      *logrus.Entry
}

func (p *prober) setFetcher(f web.Fetcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetcher = f
}

func (p *prober) current() web.Fetcher {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetcher
}

func (p *prober) bound() bool {
	return p.current() != nil
}

func (p *prober) fetch(ctx context.Context, u web.URL) (*web.Response, error) {
	f := p.current()
	if f == nil {
		return nil, core.ErrNoFetcher
	}
	opts := web.GetOptions{UseCache: false, NoGrep: true}
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		resp, err := f.Get(ctx, u, opts)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, core.ErrMustStop) {
			return nil, err
		}
		lastErr = err
		if attempt == p.attempts {
			break
		}
		wait := p.backoff << (attempt - 1)
		p.log.WithFields(logrus.Fields{"url": u.String(), "attempt": attempt, "wait": wait}).
			Debugf("probe failed, retrying: %v", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", core.ErrMustStop, ctx.Err())
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("probe %s failed after %d attempts: %w", u, p.attempts, lastErr)
}
