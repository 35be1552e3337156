package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"soft404Go/internal/cache"
	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
)

const maxRedirects = 5

// Client is the scan's HTTP collaborator. It paces requests, decodes bodies
// to UTF-8, optionally caches responses and turns a run of consecutive
// transport failures into core.ErrMustStop.
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	responses *cache.FIFO[string, *Response]
	maxBody   int64
	maxErrors int32

	mu       sync.RWMutex
	grepers  []func(*Response)
	failures atomic.Int32
	stopped  atomic.Bool
	log      *logrus.Entry
}

// NewClient builds a Client from the scan configuration.
func NewClient(cfg *core.Config) *Client {
	rc := resty.New().
		SetTimeout(cfg.RequestTimeout()).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Insecure {
		rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Proxy != "" {
		rc.SetProxy(cfg.Proxy)
	}

	c := &Client{
		http:      rc,
		maxBody:   cfg.MaxBodySize,
		maxErrors: int32(cfg.MaxConsecutiveErrors),
		log:       logger.WithComponent("http"),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.ResponseCacheSize > 0 {
		c.responses = cache.NewFIFO[string, *Response](cfg.ResponseCacheSize)
	}
	return c
}

// AddGrepper registers a hook run on every response fetched without NoGrep.
func (c *Client) AddGrepper(fn func(*Response)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grepers = append(c.grepers, fn)
}

// Stop makes every subsequent Get fail with core.ErrMustStop.
func (c *Client) Stop() {
	c.stopped.Store(true)
}

// Stopped reports whether the client refuses further requests.
func (c *Client) Stopped() bool {
	return c.stopped.Load()
}

// Get implements Fetcher.
func (c *Client) Get(ctx context.Context, u URL, opts GetOptions) (*Response, error) {
	if c.stopped.Load() {
		return nil, core.ErrMustStop
	}
	if opts.UseCache && c.responses != nil {
		if cached, ok := c.responses.Get(u.String()); ok {
			return cached, nil
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMustStop, err)
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, c.fail(ctx, u, err)
	}
	raw := resp.RawBody()
	defer raw.Close()
	body, err := c.readBody(raw, resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, c.fail(ctx, u, err)
	}
	c.failures.Store(0)

	r := NewResponse(u, resp.StatusCode(), resp.Header(), body)
	c.log.WithFields(logrus.Fields{"url": u.String(), "status": r.StatusCode, "id": r.ID}).Debug("fetched")

	if opts.UseCache && c.responses != nil {
		c.responses.Put(u.String(), r)
	}
	if !opts.NoGrep {
		c.mu.RLock()
		hooks := c.grepers
		c.mu.RUnlock()
		for _, fn := range hooks {
			fn(r)
		}
	}
	return r, nil
}

func (c *Client) readBody(raw io.Reader, contentType string) (string, error) {
	if c.maxBody > 0 {
		raw = io.LimitReader(raw, c.maxBody)
	}
	// Unknown charsets fall back to the raw bytes inside NewReader; an error
	// here is a read failure.
	decoded, err := charset.NewReader(raw, contentType)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(decoded)
	return string(b), err
}

// fail classifies a transport error and trips the abort switch after too
// many consecutive failures.
func (c *Client) fail(ctx context.Context, u URL, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", core.ErrMustStop, ctx.Err())
	}
	kind := core.ErrNetworkError
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = core.ErrNetworkTimeout
	}
	n := c.failures.Add(1)
	if c.maxErrors > 0 && n >= c.maxErrors {
		if !c.stopped.Swap(true) {
			c.log.WithField("failures", n).Error("too many consecutive network errors, stopping scan")
		}
		return fmt.Errorf("%w: GET %s: %v", core.ErrMustStop, u, err)
	}
	return fmt.Errorf("%w: GET %s: %v", kind, u, err)
}
