package fingerprint

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"soft404Go/internal/core"
	"soft404Go/internal/web"
)

// DefaultProbeExtensions are requested in every knowledge round, together
// with the extension of the resource that triggered it.
var DefaultProbeExtensions = []string{
	"py", "php", "asp", "aspx", "do", "jsp", "rb", "gif",
	"htm", "pl", "cgi", "xhtml", "htmls",
}

const probeNameLength = 8

// KnowledgeBuilder harvests not-found bodies for a directory by requesting
// random file names under it. It does not remember which directories it has
// already probed; the Classifier gates calls.
type KnowledgeBuilder struct {
	prober        *prober
	corpus        *Corpus
	fingerprinted *PathSet
	extensions    []string
	threads       int
	log           *logrus.Entry
}

// Build probes target's directory once per candidate extension, normalizes
// and deduplicates the bodies, and stores the survivors in the corpus. It
// returns how many bodies were added.
//
// Failed probes are dropped. Only core.ErrNoFetcher and core.ErrMustStop are
// returned.
func (b *KnowledgeBuilder) Build(ctx context.Context, target web.URL) (int, error) {
	if !b.prober.bound() {
		return 0, core.ErrNoFetcher
	}
	domainPath := target.DomainPath()
	exts := probeExtensions(b.extensions, target.Extension())
	log := b.log.WithField("domain_path", domainPath.String())
	log.Infof("building 404 knowledge with %d probes", len(exts))

	results := make([]*ProbeResult, len(exts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.threads)
	for i, ext := range exts {
		i, ext := i, ext
		g.Go(func() error {
			u := domainPath.Join(randAlnum(probeNameLength) + "." + ext)
			resp, err := b.prober.fetch(gctx, u)
			if err != nil {
				if errors.Is(err, core.ErrMustStop) || errors.Is(err, core.ErrNoFetcher) {
					return err
				}
				log.WithField("url", u.String()).Warnf("dropping 404 probe: %v", err)
				return nil
			}
			results[i] = &ProbeResult{URL: u, Extension: ext, Body: CleanBody(resp)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	kept := dedupeBodies(results)
	for _, r := range kept {
		b.corpus.Add(r)
	}
	if len(kept) > 0 {
		b.fingerprinted.Add(domainPath.String())
	}
	log.WithField("kept", len(kept)).Infof("404 knowledge ready, corpus holds %d bodies", b.corpus.Len())
	return len(kept), nil
}

// dedupeBodies keeps, in probe order, each result not IsEqualRatio-similar to
// one already kept.
func dedupeBodies(results []*ProbeResult) []ProbeResult {
	var kept []ProbeResult
	for _, r := range results {
		if r == nil {
			continue
		}
		similar := false
		for _, k := range kept {
			if SimilarityAtLeast(k.Body, r.Body, IsEqualRatio) {
				similar = true
				break
			}
		}
		if !similar {
			kept = append(kept, *r)
		}
	}
	return kept
}

func probeExtensions(base []string, original string) []string {
	seen := make(map[string]bool, len(base)+1)
	var out []string
	for _, ext := range append(append([]string(nil), base...), original) {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}
