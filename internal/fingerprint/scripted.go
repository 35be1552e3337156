package fingerprint

import (
	"context"
	"sync"

	"soft404Go/internal/web"
)

// Scripted answers IsNotFound from a fixed sequence, one answer per call,
// then falls back to Default. Consumers of the classifier use it in tests so
// they need neither a network nor a trained corpus.
type Scripted struct {
	mu      sync.Mutex
	answers []bool
	calls   []string
	Default bool
}

// NewScripted returns a Scripted replaying answers in order.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

// IsNotFound consumes the next answer.
func (s *Scripted) IsNotFound(_ context.Context, resp *web.Response) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, resp.URL.String())
	if len(s.answers) == 0 {
		return s.Default, nil
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Calls lists the URLs classified so far.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
