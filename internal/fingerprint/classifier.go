// Package fingerprint decides whether an HTTP response means "this resource
// does not exist", even on servers that answer 200 for everything.
//
// A Classifier learns what the target's not-found pages look like by
// requesting random file names, keeps a bounded corpus of those bodies and
// compares every response it is asked about against them.
package fingerprint

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"soft404Go/internal/cache"
	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/web"
)

// Reason names the rule that produced a verdict.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonAlways404
	ReasonNever404
	ReasonStringMatch
	ReasonStatusCode
	ReasonDirectoryCodes
	ReasonCorpusMatch
	ReasonSingleProbe
	ReasonDefault
	numReasons
)

var reasonNames = [numReasons]string{
	ReasonNone:           "none",
	ReasonAlways404:      "always-404",
	ReasonNever404:       "never-404",
	ReasonStringMatch:    "string-match",
	ReasonStatusCode:     "status-404",
	ReasonDirectoryCodes: "directory-uses-404",
	ReasonCorpusMatch:    "corpus-match",
	ReasonSingleProbe:    "single-probe",
	ReasonDefault:        "default",
}

func (r Reason) String() string {
	if r < 0 || r >= numReasons {
		return "unknown"
	}
	return reasonNames[r]
}

// Verdict is the outcome of one classification.
type Verdict struct {
	NotFound bool
	Reason   Reason
	Memoized bool
}

// Options configures a Classifier.
type Options struct {
	Always404           []string
	Never404            []string
	NotFoundString      string
	ReferenceCacheSize  int
	MemoCacheSize       int
	Threads             int
	ProbeAttempts       int
	RetryBackoff        time.Duration
	DirectoryErrorCodes []int
	// PerDirectory builds knowledge for every new directory instead of once
	// per scan.
	PerDirectory    bool
	ProbeExtensions []string
}

// DefaultOptions mirrors core.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(core.DefaultConfig())
}

// OptionsFromConfig extracts the classifier settings from the scan config.
func OptionsFromConfig(cfg *core.Config) Options {
	return Options{
		Always404:           cfg.Always404,
		Never404:            cfg.Never404,
		NotFoundString:      cfg.NotFoundString,
		ReferenceCacheSize:  cfg.ReferenceCacheSize,
		MemoCacheSize:       cfg.MemoCacheSize,
		Threads:             cfg.Threads,
		ProbeAttempts:       cfg.ProbeAttempts,
		RetryBackoff:        cfg.ProbeBackoff(),
		DirectoryErrorCodes: cfg.DirectoryErrorCodes,
		PerDirectory:        cfg.PerDirectoryKnowledge,
		ProbeExtensions:     append(append([]string(nil), DefaultProbeExtensions...), cfg.ProbeExtensions...),
	}
}

// Stats is a point-in-time view of the classifier's state.
type Stats struct {
	CorpusSize         int
	FingerprintedPaths int
	DirectoriesUse404  int
	MemoSize           int
	MemoHits           int64
	Decisions          map[string]int64
}

// Classifier is the scan's not-found detector. It is safe for concurrent use.
type Classifier struct {
	opts       Options
	always404  map[string]struct{}
	never404   map[string]struct{}
	errorCodes map[int]bool

	corpus        *Corpus
	fingerprinted *PathSet
	dirUses404    *PathSet
	memo          *cache.FIFO[uint64, Verdict]
	prober        *prober
	builder       *KnowledgeBuilder

	analysisMu sync.Mutex
	analyzed   bool
	attempted  *PathSet

	decisions [numReasons]atomic.Int64
	memoHits  atomic.Int64
	log       *logrus.Entry
}

// NewClassifier returns a classifier issuing its probes through fetcher. A nil
// fetcher may be bound later with SetFetcher; until then any classification
// that needs the network fails with core.ErrNoFetcher.
func NewClassifier(fetcher web.Fetcher, opts Options) *Classifier {
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.ProbeAttempts <= 0 {
		opts.ProbeAttempts = 1
	}
	if len(opts.ProbeExtensions) == 0 {
		opts.ProbeExtensions = DefaultProbeExtensions
	}
	if len(opts.DirectoryErrorCodes) == 0 {
		opts.DirectoryErrorCodes = []int{404}
	}
	log := logger.WithComponent("fingerprint_404")

	c := &Classifier{
		opts:          opts,
		always404:     domainPathSet(opts.Always404, log),
		never404:      domainPathSet(opts.Never404, log),
		errorCodes:    make(map[int]bool),
		corpus:        NewCorpus(opts.ReferenceCacheSize),
		fingerprinted: NewPathSet(),
		dirUses404:    NewPathSet(),
		memo:          cache.NewFIFO[uint64, Verdict](opts.MemoCacheSize),
		attempted:     NewPathSet(),
		log:           log,
	}
	for _, code := range opts.DirectoryErrorCodes {
		c.errorCodes[code] = true
	}
	for p := range c.always404 {
		if _, ok := c.never404[p]; ok {
			log.WithField("domain_path", p).Warn("path is listed as both always and never 404, always wins")
		}
	}
	c.prober = &prober{
		fetcher:  fetcher,
		attempts: opts.ProbeAttempts,
		backoff:  opts.RetryBackoff,
		log:      log,
	}
	c.builder = &KnowledgeBuilder{
		prober:        c.prober,
		corpus:        c.corpus,
		fingerprinted: c.fingerprinted,
		extensions:    opts.ProbeExtensions,
		threads:       opts.Threads,
		log:           log,
	}
	return c
}

// SetFetcher binds (or replaces) the HTTP collaborator.
func (c *Classifier) SetFetcher(f web.Fetcher) {
	c.prober.setFetcher(f)
}

// IsNotFound reports whether resp is a not-found page. The error is non-nil
// only for core.ErrNoFetcher and core.ErrMustStop; every other failure
// degrades to false.
func (c *Classifier) IsNotFound(ctx context.Context, resp *web.Response) (bool, error) {
	v, err := c.Classify(ctx, resp)
	return v.NotFound, err
}

// Classify is IsNotFound with the deciding rule attached.
func (c *Classifier) Classify(ctx context.Context, resp *web.Response) (Verdict, error) {
	v, err := c.classify(ctx, resp)
	if err != nil {
		return Verdict{Reason: ReasonDefault}, err
	}
	if v.Memoized {
		c.memoHits.Add(1)
	} else {
		c.decisions[v.Reason].Add(1)
	}
	c.log.WithFields(logrus.Fields{
		"url":       resp.URL.String(),
		"status":    resp.StatusCode,
		"not_found": v.NotFound,
		"reason":    v.Reason.String(),
		"memoized":  v.Memoized,
	}).Debug("classified response")
	return v, nil
}

func (c *Classifier) classify(ctx context.Context, resp *web.Response) (Verdict, error) {
	domainPath := resp.URL.DomainPath().String()

	if _, ok := c.always404[domainPath]; ok {
		return Verdict{NotFound: true, Reason: ReasonAlways404}, nil
	}
	if _, ok := c.never404[domainPath]; ok {
		return Verdict{NotFound: false, Reason: ReasonNever404}, nil
	}
	if c.opts.NotFoundString != "" && resp.Contains(c.opts.NotFoundString) {
		return Verdict{NotFound: true, Reason: ReasonStringMatch}, nil
	}
	if resp.StatusCode == 404 {
		return Verdict{NotFound: true, Reason: ReasonStatusCode}, nil
	}
	// The directory answers broken links with real error codes, so a
	// non-404 here is a real resource.
	if c.dirUses404.Contains(domainPath) {
		return Verdict{NotFound: false, Reason: ReasonDirectoryCodes}, nil
	}
	if v, ok := c.memo.Get(resp.ID); ok {
		v.Memoized = true
		return v, nil
	}

	if err := c.ensureKnowledge(ctx, resp.URL); err != nil {
		return Verdict{}, err
	}

	body := CleanBody(resp)
	if _, ok := c.corpus.Match(body); ok {
		return c.remember(resp, Verdict{NotFound: true, Reason: ReasonCorpusMatch}), nil
	}
	if !c.fingerprinted.Contains(domainPath) {
		v, err := c.singleProbe(ctx, resp, body)
		if err != nil {
			return Verdict{}, err
		}
		return c.remember(resp, v), nil
	}
	return c.remember(resp, Verdict{NotFound: false, Reason: ReasonDefault}), nil
}

func (c *Classifier) remember(resp *web.Response, v Verdict) Verdict {
	c.memo.Put(resp.ID, v)
	return v
}

// ensureKnowledge runs the knowledge builder the first time it is needed.
// Concurrent callers wait on the lock rather than probe twice.
func (c *Classifier) ensureKnowledge(ctx context.Context, target web.URL) error {
	if !c.prober.bound() {
		return core.ErrNoFetcher
	}
	domainPath := target.DomainPath().String()

	c.analysisMu.Lock()
	defer c.analysisMu.Unlock()
	if c.opts.PerDirectory {
		if c.attempted.Contains(domainPath) {
			return nil
		}
	} else if c.analyzed {
		return nil
	}

	if _, err := c.builder.Build(ctx, target); err != nil {
		return err
	}
	c.analyzed = true
	c.attempted.Add(domainPath)
	return nil
}

// singleProbe requests one sibling that cannot exist (not-<file>, or a random
// sibling directory) and compares it with the response.
func (c *Classifier) singleProbe(ctx context.Context, resp *web.Response, body string) (Verdict, error) {
	var probeURL web.URL
	if name := resp.URL.FileName(); name != "" {
		probeURL = resp.URL.Join("not-" + url.PathEscape(name))
	} else {
		probeURL = resp.URL.Join("../" + randAlnum(probeNameLength) + "/")
	}
	log := c.log.WithFields(logrus.Fields{"url": resp.URL.String(), "probe": probeURL.String()})

	probe, err := c.prober.fetch(ctx, probeURL)
	if err != nil {
		if errors.Is(err, core.ErrMustStop) || errors.Is(err, core.ErrNoFetcher) {
			return Verdict{}, err
		}
		log.Warnf("single 404 probe failed: %v", err)
		return Verdict{NotFound: false, Reason: ReasonDefault}, nil
	}

	domainPath := resp.URL.DomainPath().String()
	if c.errorCodes[probe.StatusCode] && c.dirUses404.Add(domainPath) {
		log.WithField("status", probe.StatusCode).Debug("directory uses real error codes")
	}

	probeBody := CleanBody(probe)
	if !SimilarityAtLeast(probeBody, body, IsEqualRatio) {
		return Verdict{NotFound: false, Reason: ReasonDefault}, nil
	}
	c.corpus.Add(ProbeResult{URL: probeURL, Extension: probeURL.Extension(), Body: probeBody})
	c.fingerprinted.Add(domainPath)
	return Verdict{NotFound: true, Reason: ReasonSingleProbe}, nil
}

// AddReference stores body, fetched from u, as a known not-found page and
// marks u's directory as fingerprinted.
func (c *Classifier) AddReference(u web.URL, body string) {
	c.corpus.Add(ProbeResult{URL: u, Extension: u.Extension(), Body: Normalize(body, u)})
	c.fingerprinted.Add(u.DomainPath().String())
}

// BuildKnowledge runs a knowledge round for target's directory right away,
// bypassing the once-per-scan gate.
func (c *Classifier) BuildKnowledge(ctx context.Context, target web.URL) (int, error) {
	c.analysisMu.Lock()
	defer c.analysisMu.Unlock()
	n, err := c.builder.Build(ctx, target)
	if err == nil {
		c.analyzed = true
		c.attempted.Add(target.DomainPath().String())
	}
	return n, err
}

// Stats returns counters for dashboards and reports.
func (c *Classifier) Stats() Stats {
	s := Stats{
		CorpusSize:         c.corpus.Len(),
		FingerprintedPaths: c.fingerprinted.Len(),
		DirectoriesUse404:  c.dirUses404.Len(),
		MemoSize:           c.memo.Len(),
		MemoHits:           c.memoHits.Load(),
		Decisions:          make(map[string]int64),
	}
	for r := ReasonAlways404; r < numReasons; r++ {
		if n := c.decisions[r].Load(); n > 0 {
			s.Decisions[r.String()] = n
		}
	}
	return s
}

func domainPathSet(paths []string, log *logrus.Entry) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		u, err := web.ParseURL(p)
		if err != nil {
			log.WithField("path", p).Warnf("ignoring 404 override: %v", err)
			continue
		}
		set[u.DomainPath().String()] = struct{}{}
	}
	return set
}
