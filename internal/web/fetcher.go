package web

import "context"

// GetOptions tunes a single GET.
type GetOptions struct {
	// UseCache allows the response to be served from, and stored in, the
	// client's response cache.
	UseCache bool
	// NoGrep skips the registered response hooks.
	NoGrep bool
}

// Fetcher issues synchronous GET requests. Implementations return errors
// wrapping core.ErrNetworkTimeout or core.ErrNetworkError for retryable
// failures and core.ErrMustStop when the whole scan has to abort.
type Fetcher interface {
	Get(ctx context.Context, u URL, opts GetOptions) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, u URL, opts GetOptions) (*Response, error)

// Get calls f.
func (f FetcherFunc) Get(ctx context.Context, u URL, opts GetOptions) (*Response, error) {
	return f(ctx, u, opts)
}
