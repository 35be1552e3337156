// internal/core/errors.go
package core

import "errors"

// Sentinel errors shared across the scanner. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	ErrNetworkTimeout = errors.New("network request timed out")
	ErrNetworkError   = errors.New("network error occurred")
	ErrMustStop       = errors.New("scan must stop")
	ErrNoFetcher      = errors.New("no HTTP fetcher bound to the 404 classifier")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownModule  = errors.New("unknown module")
	ErrOutputFormat   = errors.New("unsupported output format")
	ErrFileWrite      = errors.New("failed to write to file")
)

// IsTransient reports whether err is a retryable transport failure. A scan-wide
// abort is never transient, even when it wraps a network error.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrMustStop) {
		return false
	}
	return errors.Is(err, ErrNetworkTimeout) || errors.Is(err, ErrNetworkError)
}
