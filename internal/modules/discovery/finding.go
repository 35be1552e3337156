// Package discovery finds content on a web server and relies on the scan's
// not-found classifier to throw away soft 404 pages.
package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"soft404Go/internal/web"
)

// Finding is a resource that exists.
type Finding struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Length int    `json:"length"`
	Title  string `json:"title,omitempty"`
}

func newFinding(resp *web.Response) Finding {
	return Finding{
		URL:    resp.URL.String(),
		Status: resp.StatusCode,
		Length: len(resp.Body),
		Title:  pageTitle(resp),
	}
}

// pageTitle returns the trimmed <title> of an HTML response.
func pageTitle(resp *web.Response) string {
	if !strings.Contains(strings.ToLower(resp.ContentType()), "html") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
