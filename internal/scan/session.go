// Package scan wires one scan together: the HTTP client, the not-found
// classifier bound to it and the plugins that consume both.
package scan

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"soft404Go/internal/core"
	"soft404Go/internal/core/logger"
	"soft404Go/internal/fingerprint"
	"soft404Go/internal/web"
)

// NotFoundClassifier is the capability discovery modules depend on.
// *fingerprint.Classifier and *fingerprint.Scripted implement it.
type NotFoundClassifier interface {
	IsNotFound(ctx context.Context, resp *web.Response) (bool, error)
}

var (
	_ NotFoundClassifier = (*fingerprint.Classifier)(nil)
	_ NotFoundClassifier = (*fingerprint.Scripted)(nil)
)

// Session owns the per-scan collaborators. There is exactly one classifier
// per session and it is only built here.
type Session struct {
	Config     *core.Config
	Client     *web.Client
	Classifier *fingerprint.Classifier
	log        *logrus.Entry
	fetched    atomic.Int64
}

// NewSession validates cfg and builds a client and a classifier bound to it.
func NewSession(cfg *core.Config) (*Session, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := web.NewClient(cfg)
	s := &Session{
		Config:     cfg,
		Client:     client,
		Classifier: fingerprint.NewClassifier(client, fingerprint.OptionsFromConfig(cfg)),
		log:        logger.WithComponent("session"),
	}
	client.AddGrepper(func(*web.Response) { s.fetched.Add(1) })
	return s, nil
}

// Fetched counts responses received for scan traffic. Not-found probes are
// fetched without grepping and are not included.
func (s *Session) Fetched() int64 {
	return s.fetched.Load()
}

// NotFound returns the session's classifier as the consumer capability.
func (s *Session) NotFound() NotFoundClassifier {
	return s.Classifier
}

// Fetcher returns the client as a plain web.Fetcher.
func (s *Session) Fetcher() web.Fetcher {
	return s.Client
}

// Warmup builds not-found knowledge for target's directory before any
// response needs it.
func (s *Session) Warmup(ctx context.Context, target string) error {
	u, err := web.ParseURL(target)
	if err != nil {
		return err
	}
	n, err := s.Classifier.BuildKnowledge(ctx, u)
	if err != nil {
		return fmt.Errorf("warmup %s: %w", u, err)
	}
	s.log.WithField("target", u.String()).Infof("warmup stored %d not-found bodies", n)
	return nil
}

// Close stops the client; later requests fail with core.ErrMustStop.
func (s *Session) Close() {
	s.Client.Stop()
	st := s.Classifier.Stats()
	s.log.WithFields(logrus.Fields{
		"corpus":        st.CorpusSize,
		"fingerprinted": st.FingerprintedPaths,
		"memo_hits":     st.MemoHits,
		"fetched":       s.fetched.Load(),
	}).Debug("session closed")
}
