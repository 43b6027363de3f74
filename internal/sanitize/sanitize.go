package sanitize

import (
	"html"
	"html/template"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultBase is the origin standalone URLs are resolved against when no base is given.
const DefaultBase = "http://localhost/"

var (
	allowedTags    = []string{"p", "br", "strong", "em", "u", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "a", "blockquote", "code", "pre"}
	allowedSchemes = []string{"http", "https", "ftp", "ftps", "mailto", "tel", "callto", "sms", "cid", "xmpp"}
)

var (
	richPolicy  = newRichPolicy()
	plainPolicy = newPlainPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("title", "alt", "class").Globally()
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes(allowedSchemes...)
	return p
}

func newPlainPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// HTML returns raw reduced to the allow-listed markup. Empty or entirely unsafe input yields "".
func HTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return richPolicy.Sanitize(raw)
}

// URL validates raw against [DefaultBase]. See [URLFrom].
func URL(raw string) string {
	return URLFrom(raw, DefaultBase)
}

// URLFrom returns raw when it resolves against base to an http or https URL and passes the allow-list unchanged.
// Anything else yields "".
func URLFrom(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	switch baseURL.ResolveReference(ref).Scheme {
	case "http", "https":
	default:
		return ""
	}

	if html.UnescapeString(richPolicy.Sanitize(raw)) != raw {
		return ""
	}
	return raw
}

// Text strips all markup and collapses whitespace, for terminals and plain-text reports.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(plainPolicy.Sanitize(raw))), " ")
}

// PlainHTML returns [Text] with HTML special characters escaped again, for output such as Markdown where
// any markup that survives is rendered.
func PlainHTML(raw string) string {
	return html.EscapeString(Text(raw))
}

// Excerpt returns at most n runes of [Text] followed by "..." when anything was cut.
func Excerpt(raw string, n int) string {
	text := Text(raw)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRightFunc(string(runes[:n]), func(r rune) bool { return r == ' ' }) + "..."
}

// Trusted sanitizes raw with [HTML] and marks the result safe for [html/template].
func Trusted(raw string) template.HTML {
	return template.HTML(HTML(raw))
}
