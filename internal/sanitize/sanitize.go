// Package sanitize re-sanitizes declared format markup before it is spliced
// into rendered pages. Declarations are captured raw, so a page author could
// smuggle active HTML into every page that links to theirs; only harmless
// inline formatting survives.
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedTags is the inline formatting vocabulary permitted in link text.
var allowedTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"em": true, "strong": true, "code": true, "tt": true,
	"small": true, "big": true, "sub": true, "sup": true,
	"span": true, "abbr": true, "kbd": true, "var": true,
}

// allowedAttrs are the attributes kept on allowed tags.
var allowedAttrs = map[string]bool{
	"class": true, "title": true, "lang": true, "dir": true,
}

// HTMLSanitizer strips disallowed HTML from format markup.
type HTMLSanitizer struct{}

// New creates the standard sanitizer.
func New() *HTMLSanitizer { return &HTMLSanitizer{} }

// Sanitize tokenizes markup as HTML and re-emits it with disallowed tags
// escaped and unsafe attributes dropped. Plain text, including wikilink
// brackets, passes through byte-for-byte.
func (*HTMLSanitizer) Sanitize(markup string) string {
	if !strings.Contains(markup, "<") {
		return markup
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var out strings.Builder
	out.Grow(len(markup))

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			out.WriteString(html.EscapeString(string(z.Text())))
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			writeTag(&out, z, tt)
		case html.CommentToken, html.DoctypeToken:
			// Dropped entirely.
		}
	}
}

func writeTag(out *strings.Builder, z *html.Tokenizer, tt html.TokenType) {
	raw := string(z.Raw())
	name, hasAttr := z.TagName()
	tag := strings.ToLower(string(name))

	if !allowedTags[tag] {
		out.WriteString(html.EscapeString(raw))
		return
	}

	if tt == html.EndTagToken {
		out.WriteString("</" + tag + ">")
		return
	}

	out.WriteString("<" + tag)
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		k := strings.ToLower(string(key))
		if !allowedAttrs[k] {
			continue
		}
		out.WriteString(" " + k + `="` + html.EscapeString(string(val)) + `"`)
	}
	if tt == html.SelfClosingTagToken {
		out.WriteString("/>")
		return
	}
	out.WriteString(">")
}
