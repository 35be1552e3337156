package fingerprint

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"soft404Go/internal/web"
)

func TestNormalize_UnrelatedBodyUnchanged(t *testing.T) {
	u := web.MustParseURL("http://example.com/app/AAAAAAA")
	body := "<html><body>nothing to see here</body></html>"
	assert.Equal(t, body, Normalize(body, u))
}

func TestNormalize_StripsSegmentAndEncodings(t *testing.T) {
	u := web.MustParseURL("http://example.com/dir/AAAAAAA")
	body := "prefix AAAAAAA suffix"
	got := Normalize(body, u)
	assert.NotContains(t, got, "AAAAAAA")
	assert.Equal(t, "prefix  suffix", got)
}

func TestNormalize_StripsEncodedForms(t *testing.T) {
	u := web.MustParseURL("http://example.com/dir/a%20b%3Cc%3E")
	body := "raw[a%20b%3Cc%3E] decoded[a b<c>] escaped[a b&lt;c&gt;]"
	got := Normalize(body, u)
	assert.Equal(t, "raw[] decoded[] escaped[]", got)
}

func TestNormalize_StripsMarkupOnlyEscaping(t *testing.T) {
	u := web.MustParseURL("http://example.com/dir/%22quoted%3Cname%3E.php")
	// quotes left raw, angle brackets escaped
	body := `<input value=""quoted&lt;name&gt;.php"> full[&#34;quoted&lt;name&gt;.php]`
	assert.Equal(t, `<input value=""> full[]`, Normalize(body, u))
}

func TestNormalize_StripsFullURL(t *testing.T) {
	u := web.MustParseURL("http://example.com/x/y.php")
	body := "The requested URL http://example.com/x/y.php was not found."
	assert.Equal(t, "The requested URL  was not found.", Normalize(body, u))
}

func TestNormalize_ShortSegmentsKept(t *testing.T) {
	u := web.MustParseURL("http://example.com/app/abc.php")
	body := "app abc.php"
	// "abc.php" is seven characters, "app" only three
	assert.Equal(t, "app ", Normalize(body, u))
}

func TestNormalize_EchoedNamesCompareEqual(t *testing.T) {
	a := web.MustParseURL("http://example.com/app/Xy12Ab9q.php")
	b := web.MustParseURL("http://example.com/app/Qw98Er7t.jsp")
	page := func(name string) string {
		return "<h1>Not Found</h1><p>The requested file " + name + " does not exist.</p>"
	}
	assert.Equal(t, Normalize(page("Xy12Ab9q.php"), a), Normalize(page("Qw98Er7t.jsp"), b))
}

func TestCleanBody_BinaryUntouched(t *testing.T) {
	u := web.MustParseURL("http://example.com/img/picture1.png")
	body := "\x89PNG picture1.png"
	resp := web.NewResponse(u, 200, http.Header{"Content-Type": {"image/png"}}, body)
	assert.Equal(t, body, CleanBody(resp))
}
