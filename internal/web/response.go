package web

import (
	"net/http"
	"strings"
	"sync/atomic"
)

var lastResponseID atomic.Uint64

// Response is a fetched HTTP response with its body already decoded to text.
type Response struct {
	ID         uint64
	URL        URL
	StatusCode int
	Header     http.Header
	Body       string
}

// NewResponse builds a Response with a fresh process-unique ID.
func NewResponse(u URL, status int, header http.Header, body string) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{
		ID:         lastResponseID.Add(1),
		URL:        u,
		StatusCode: status,
		Header:     header,
		Body:       body,
	}
}

// ContentType returns the Content-Type header, sniffing the body when absent.
func (r *Response) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return http.DetectContentType([]byte(r.Body))
}

// IsTextOrHTML reports whether the body is textual and therefore worth
// normalizing and comparing.
func (r *Response) IsTextOrHTML() bool {
	ct := strings.ToLower(r.ContentType())
	return strings.Contains(ct, "text") || strings.Contains(ct, "html")
}

// Contains reports whether the body contains s.
func (r *Response) Contains(s string) bool {
	return s != "" && strings.Contains(r.Body, s)
}
