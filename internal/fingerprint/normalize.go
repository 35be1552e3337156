package fingerprint

import (
	"html"
	"net/url"
	"sort"
	"strings"

	"soft404Go/internal/web"
)

// Only URL pieces longer than this are stripped; shorter ones ("app", "v1")
// are too likely to appear in the page for unrelated reasons.
const minIdentifyingLength = 6

// Normalize removes every URL-derived string from body: each '/'-separated
// piece of u longer than six characters and the full URL, in raw,
// percent-decoded, HTML-escaped and decoded-then-escaped form. Escaping is
// tried both with and without quotes. Error pages
// that echo the requested path back then compare equal across paths.
func Normalize(body string, u web.URL) string {
	if body == "" || u.IsZero() {
		return body
	}
	for _, candidate := range identifyingSubstrings(u) {
		for _, form := range encodedForms(candidate) {
			body = strings.ReplaceAll(body, form, "")
		}
	}
	return body
}

// CleanBody is the body used for comparisons: normalized for text and HTML
// responses, raw otherwise.
func CleanBody(resp *web.Response) string {
	if !resp.IsTextOrHTML() {
		return resp.Body
	}
	return Normalize(resp.Body, resp.URL)
}

func identifyingSubstrings(u web.URL) []string {
	full := u.String()
	seen := map[string]bool{full: true}
	out := []string{full}
	for _, piece := range strings.Split(full, "/") {
		if len(piece) > minIdentifyingLength && !seen[piece] {
			seen[piece] = true
			out = append(out, piece)
		}
	}
	// longest first so the full URL goes before the segments it contains
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// markupEscaper escapes only &, < and >, leaving quotes raw the way many
// templates echo a path into attribute values.
var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func encodedForms(s string) []string {
	forms := []string{s, html.EscapeString(s), markupEscaper.Replace(s)}
	// A malformed escape only costs us the decoded variants.
	if decoded, err := url.QueryUnescape(s); err == nil {
		forms = append(forms, decoded, html.EscapeString(decoded), markupEscaper.Replace(decoded))
	}
	out := forms[:0]
	seen := make(map[string]bool, len(forms))
	for _, f := range forms {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
