// Package web holds the HTTP-facing types the scanner works with: URLs,
// responses, the Fetcher contract and its resty-backed implementation.
package web

import (
	"fmt"
	"net/url"
	"strings"

	"soft404Go/internal/core"
)

// URL is an immutable absolute http(s) URL.
type URL struct {
	u *url.URL
}

// ParseURL parses raw, which must be an absolute http or https URL.
func ParseURL(raw string) (URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return URL{}, fmt.Errorf("%w: %v", core.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return URL{}, fmt.Errorf("%w: unsupported scheme in %q", core.ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return URL{}, fmt.Errorf("%w: missing host in %q", core.ErrInvalidURL, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return URL{u: u}, nil
}

// MustParseURL is ParseURL for literals known to be valid.
func MustParseURL(raw string) URL {
	u, err := ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// IsZero reports whether u was never set.
func (u URL) IsZero() bool { return u.u == nil }

func (u URL) String() string {
	if u.u == nil {
		return ""
	}
	return u.u.String()
}

// Host returns host[:port].
func (u URL) Host() string {
	if u.u == nil {
		return ""
	}
	return u.u.Host
}

// Hostname returns the host without any port.
func (u URL) Hostname() string {
	if u.u == nil {
		return ""
	}
	return u.u.Hostname()
}

// Path returns the decoded path.
func (u URL) Path() string {
	if u.u == nil {
		return ""
	}
	return u.u.Path
}

// DomainPath returns scheme://host/directory/ with the filename, query and
// fragment removed.
func (u URL) DomainPath() URL {
	if u.u == nil {
		return u
	}
	dp := &url.URL{Scheme: u.u.Scheme, Host: u.u.Host, User: u.u.User}
	p := u.u.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[:i+1]
	} else {
		p = "/"
	}
	dp.Path = p
	return URL{u: dp}
}

// FileName is the last path segment, empty for directory URLs.
func (u URL) FileName() string {
	p := u.Path()
	return p[strings.LastIndex(p, "/")+1:]
}

// Extension is the filename extension without the dot, empty when the
// filename has none.
func (u URL) Extension() string {
	name := u.FileName()
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

// Join resolves relative against u. An unparsable reference yields u itself.
func (u URL) Join(relative string) URL {
	if u.u == nil {
		return u
	}
	ref, err := url.Parse(relative)
	if err != nil {
		return u
	}
	return URL{u: u.u.ResolveReference(ref)}
}

// SameHost reports whether both URLs point at the same scheme and host.
func (u URL) SameHost(other URL) bool {
	if u.u == nil || other.u == nil {
		return false
	}
	return u.u.Scheme == other.u.Scheme && strings.EqualFold(u.u.Host, other.u.Host)
}
