package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/scan"
	"soft404Go/internal/web"
)

// DirFuzzerConfig allows custom wordlists and settings.
type DirFuzzerConfig struct {
	Wordlist   []string
	Extensions []string
	Threads    int
	// OnResult is called after every request. finding is set for real
	// resources, err for failed requests; both are nil for not-found pages.
	OnResult func(path string, finding *Finding, err error)
}

// DirFuzzerResult holds the results of directory/file fuzzing.
type DirFuzzerResult struct {
	Target     string        `json:"target"`
	Paths      int           `json:"paths"`
	Requests   int64         `json:"requests"`
	Suppressed int64         `json:"suppressed"`
	Errors     int64         `json:"errors"`
	Aborted    bool          `json:"aborted"`
	Findings   []Finding     `json:"findings"`
	Duration   time.Duration `json:"duration"`
}

// DirFuzzer requests every wordlist entry (expanded with the configured
// extensions) under target and keeps the responses the classifier does not
// consider not-found. It stops early on core.ErrMustStop or when no fetcher is
// bound, returning the partial result together with the error.
func DirFuzzer(ctx context.Context, fetcher web.Fetcher, classifier scan.NotFoundClassifier, target string, config *DirFuzzerConfig) (*DirFuzzerResult, error) {
	if config == nil {
		config = &DirFuzzerConfig{}
	}
	if !strings.HasPrefix(target, "http") {
		target = "http://" + target
	}
	base, err := web.ParseURL(target)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(base.Path(), "/") {
		base = base.Join(base.FileName() + "/")
	}

	wordlist := config.Wordlist
	if len(wordlist) == 0 {
		wordlist, _ = core.ResolveWordlist("")
	}
	paths := core.ExpandWordlist(wordlist, config.Extensions)
	threads := config.Threads
	if threads <= 0 {
		threads = 10
	}
	log := logger.WithComponent("dir_fuzzer").WithField("target", base.String())
	log.Infof("fuzzing %d paths with %d workers", len(paths), threads)

	start := time.Now()
	result := &DirFuzzerResult{Target: base.String(), Paths: len(paths)}
	var (
		mu        sync.Mutex
		requests  atomic.Int64
		suppress  atomic.Int64
		failures  atomic.Int64
		stopped   atomic.Bool
		fatalOnce sync.Once
		fatal     error
	)
	abort := func(err error) {
		fatalOnce.Do(func() { fatal = err })
		stopped.Store(true)
	}

	swg := sizedwaitgroup.New(threads)
	for _, p := range paths {
		if stopped.Load() || ctx.Err() != nil {
			break
		}
		swg.Add()
		go func(p string) {
			defer swg.Done()
			if stopped.Load() {
				return
			}
			u := base.Join(strings.TrimPrefix(p, "/"))
			resp, err := fetcher.Get(ctx, u, web.GetOptions{})
			requests.Add(1)
			if err != nil {
				if errors.Is(err, core.ErrMustStop) {
					abort(err)
				} else {
					failures.Add(1)
					log.WithField("url", u.String()).Debugf("request failed: %v", err)
				}
				report(config, p, nil, err)
				return
			}
			notFound, err := classifier.IsNotFound(ctx, resp)
			if err != nil {
				abort(err)
				report(config, p, nil, err)
				return
			}
			if notFound {
				suppress.Add(1)
				report(config, p, nil, nil)
				return
			}
			f := newFinding(resp)
			mu.Lock()
			result.Findings = append(result.Findings, f)
			mu.Unlock()
			log.WithField("status", f.Status).Infof("found %s", f.URL)
			report(config, p, &f, nil)
		}(p)
	}
	swg.Wait()

	sort.Slice(result.Findings, func(i, j int) bool { return result.Findings[i].URL < result.Findings[j].URL })
	result.Requests = requests.Load()
	result.Suppressed = suppress.Load()
	result.Errors = failures.Load()
	result.Duration = time.Since(start)
	if fatal == nil && ctx.Err() != nil {
		fatal = fmt.Errorf("%w: %v", core.ErrMustStop, ctx.Err())
	}
	if fatal != nil {
		result.Aborted = true
		log.Errorf("fuzzing aborted after %d requests: %v", result.Requests, fatal)
		return result, fatal
	}
	return result, nil
}

func report(config *DirFuzzerConfig, path string, f *Finding, err error) {
	if config.OnResult != nil {
		config.OnResult(path, f, err)
	}
}

func (r *DirFuzzerResult) String() string {
	if len(r.Findings) == 0 {
		return fmt.Sprintf("No files or directories found on %s (%d soft 404s suppressed).", r.Target, r.Suppressed)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d files/directories on %s (%d soft 404s suppressed):\n", len(r.Findings), r.Target, r.Suppressed)
	for _, f := range r.Findings {
		fmt.Fprintf(&sb, "  [%d] %s", f.Status, f.URL)
		if f.Title != "" {
			fmt.Fprintf(&sb, "  %q", f.Title)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

type dirFuzzerPlugin struct{}

func (p *dirFuzzerPlugin) Name() string { return "DirFuzzer" }
func (p *dirFuzzerPlugin) Description() string {
	return "Directory and file brute forcing with soft 404 suppression"
}
func (p *dirFuzzerPlugin) Category() string { return "discovery" }
func (p *dirFuzzerPlugin) Options() []scan.ModuleOption {
	return []scan.ModuleOption{
		{Name: "target", Type: "string", Description: "Base URL to fuzz", Required: true},
		{Name: "wordlist", Type: "string", Default: "", Description: "Built-in list name (directories, files, backups) or file path", Required: false},
		{Name: "extensions", Type: "string", Default: "", Description: "Comma-separated extensions appended to every word", Required: false},
		{Name: "threads", Type: "int", Default: 10, Description: "Number of concurrent workers", Required: false},
	}
}
func (p *dirFuzzerPlugin) Run(ctx context.Context, sess *scan.Session, target string, options map[string]interface{}) (interface{}, error) {
	words, err := core.ResolveWordlist(scan.OptionString(options, "wordlist", sess.Config.Wordlist))
	if err != nil {
		return nil, err
	}
	exts := scan.OptionList(options, "extensions")
	if len(exts) == 0 {
		exts = sess.Config.Extensions
	}
	config := &DirFuzzerConfig{
		Wordlist:   words,
		Extensions: exts,
		Threads:    scan.OptionInt(options, "threads", sess.Config.Threads),
	}
	return DirFuzzer(ctx, sess.Fetcher(), sess.NotFound(), target, config)
}

func init() {
	scan.RegisterPlugin(&dirFuzzerPlugin{})
}
