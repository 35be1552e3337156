package discovery

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/scan"
	"soft404Go/internal/web"
)

// CrawlConfig tunes the crawler. The transport fields mirror the session's
// HTTP client settings so crawl traffic is paced and routed the same way.
type CrawlConfig struct {
	MaxDepth  int
	Threads   int
	MaxPages  int
	Timeout   time.Duration
	UserAgent string

	Proxy             string
	Insecure          bool
	MaxBodySize       int64
	RequestsPerSecond float64
}

// NewCrawlConfig copies the HTTP settings of cfg.
func NewCrawlConfig(cfg *core.Config) *CrawlConfig {
	return &CrawlConfig{
		Threads:           cfg.Threads,
		Timeout:           cfg.RequestTimeout(),
		UserAgent:         cfg.UserAgent,
		Proxy:             cfg.Proxy,
		Insecure:          cfg.Insecure,
		MaxBodySize:       cfg.MaxBodySize,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

// limitRule spreads RequestsPerSecond over the parallel slots; colly sleeps
// Delay in each slot after every request.
func limitRule(threads int, rps float64) *colly.LimitRule {
	rule := &colly.LimitRule{DomainGlob: "*", Parallelism: threads}
	if rps > 0 {
		rule.Delay = time.Duration(float64(threads) / rps * float64(time.Second))
	}
	return rule
}

// CrawlResult lists the pages reached, split by the classifier's verdict.
type CrawlResult struct {
	Target     string    `json:"target"`
	Visited    int64     `json:"visited"`
	Findings   []Finding `json:"findings"`
	Suppressed []string  `json:"suppressed"`
	Aborted    bool      `json:"aborted"`
}

const notFoundKey = "soft404"

// Crawl follows same-host links from target and classifies every page it
// receives, error statuses included. Links on not-found pages are not
// followed.
func Crawl(ctx context.Context, classifier scan.NotFoundClassifier, target string, config *CrawlConfig) (*CrawlResult, error) {
	if config == nil {
		config = &CrawlConfig{}
	}
	start, err := web.ParseURL(target)
	if err != nil {
		return nil, err
	}
	depth := config.MaxDepth
	if depth <= 0 {
		depth = 2
	}
	threads := config.Threads
	if threads <= 0 {
		threads = 5
	}
	log := logger.WithComponent("crawler").WithField("target", start.String())

	opts := []colly.CollectorOption{
		colly.AllowedDomains(start.Hostname()),
		colly.MaxDepth(depth),
		colly.Async(true),
	}
	if config.UserAgent != "" {
		opts = append(opts, colly.UserAgent(config.UserAgent))
	}
	if config.MaxBodySize > 0 {
		opts = append(opts, colly.MaxBodySize(int(config.MaxBodySize)))
	}
	c := colly.NewCollector(opts...)
	c.ParseHTTPErrorResponse = true
	c.DetectCharset = true
	if config.Insecure {
		c.WithTransport(&http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
	}
	// after WithTransport, SetProxy patches the installed transport
	if config.Proxy != "" {
		if err := c.SetProxy(config.Proxy); err != nil {
			return nil, fmt.Errorf("%w: proxy %q: %v", core.ErrInvalidConfig, config.Proxy, err)
		}
	}
	if err := c.Limit(limitRule(threads, config.RequestsPerSecond)); err != nil {
		return nil, err
	}
	if config.Timeout > 0 {
		c.SetRequestTimeout(config.Timeout)
	}

	result := &CrawlResult{Target: start.String()}
	var (
		mu        sync.Mutex
		requested atomic.Int64
		visited   atomic.Int64
		stopped   atomic.Bool
		fatal     error
	)

	c.OnRequest(func(r *colly.Request) {
		if stopped.Load() || ctx.Err() != nil {
			r.Abort()
			return
		}
		if config.MaxPages > 0 && requested.Add(1) > int64(config.MaxPages) {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		visited.Add(1)
		u, err := web.ParseURL(r.Request.URL.String())
		if err != nil {
			return
		}
		resp := web.NewResponse(u, r.StatusCode, r.Headers.Clone(), string(r.Body))
		notFound, err := classifier.IsNotFound(ctx, resp)
		if err != nil {
			mu.Lock()
			if fatal == nil {
				fatal = err
			}
			mu.Unlock()
			stopped.Store(true)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if notFound {
			r.Ctx.Put(notFoundKey, "1")
			result.Suppressed = append(result.Suppressed, resp.URL.String())
			log.WithField("url", resp.URL.String()).Debug("suppressed not-found page")
			return
		}
		result.Findings = append(result.Findings, newFinding(resp))
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if stopped.Load() || e.Request.Ctx.Get(notFoundKey) != "" {
			return
		}
		_ = e.Request.Visit(e.Attr("href"))
	})

	c.OnError(func(r *colly.Response, err error) {
		log.WithField("url", r.Request.URL.String()).Debugf("crawl request failed: %v", err)
	})

	if err := c.Visit(start.String()); err != nil {
		return nil, fmt.Errorf("crawl %s: %w", start, err)
	}
	c.Wait()

	result.Visited = visited.Load()
	sort.Slice(result.Findings, func(i, j int) bool { return result.Findings[i].URL < result.Findings[j].URL })
	sort.Strings(result.Suppressed)
	if fatal == nil && ctx.Err() != nil {
		fatal = fmt.Errorf("%w: %v", core.ErrMustStop, ctx.Err())
	}
	if fatal != nil {
		result.Aborted = true
		if errors.Is(fatal, core.ErrNoFetcher) {
			log.Error("classifier has no fetcher bound")
		}
		return result, fatal
	}
	log.Infof("crawled %d pages, %d real, %d not found", result.Visited, len(result.Findings), len(result.Suppressed))
	return result, nil
}

func (r *CrawlResult) String() string {
	s := fmt.Sprintf("Crawled %d pages on %s: %d real, %d soft 404s suppressed.", r.Visited, r.Target, len(r.Findings), len(r.Suppressed))
	for _, f := range r.Findings {
		s += fmt.Sprintf("\n  [%d] %s", f.Status, f.URL)
	}
	return s
}

type crawlerPlugin struct{}

func (p *crawlerPlugin) Name() string        { return "Crawler" }
func (p *crawlerPlugin) Description() string { return "Link crawler that reports only pages that really exist" }
func (p *crawlerPlugin) Category() string    { return "discovery" }
func (p *crawlerPlugin) Options() []scan.ModuleOption {
	return []scan.ModuleOption{
		{Name: "target", Type: "string", Description: "Start URL", Required: true},
		{Name: "depth", Type: "int", Default: 2, Description: "Maximum link depth", Required: false},
		{Name: "max_pages", Type: "int", Default: 0, Description: "Stop after this many pages (0 = no limit)", Required: false},
		{Name: "threads", Type: "int", Default: 5, Description: "Parallel requests", Required: false},
	}
}
func (p *crawlerPlugin) Run(ctx context.Context, sess *scan.Session, target string, options map[string]interface{}) (interface{}, error) {
	config := NewCrawlConfig(sess.Config)
	config.MaxDepth = scan.OptionInt(options, "depth", 2)
	config.MaxPages = scan.OptionInt(options, "max_pages", 0)
	config.Threads = scan.OptionInt(options, "threads", 5)
	return Crawl(ctx, sess.NotFound(), target, config)
}

func init() {
	scan.RegisterPlugin(&crawlerPlugin{})
}
