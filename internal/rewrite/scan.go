package rewrite

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LinkOccurrence is one bare wikilink found in rendered markup.
type LinkOccurrence struct {
	// WholeText is the literal matched substring, brackets included. It is
	// also the dedup key and the find side of the substitution plan.
	WholeText string

	// Target is the link target without fragment, percent-decoded when the
	// raw target contained '%'.
	Target string

	// Fragment is the in-page anchor, without '#'. Empty when absent.
	Fragment string

	// DecodedFromPercentEncoding marks targets that went through decoding.
	DecodedFromPercentEncoding bool
}

// scanLinks walks markup once and extracts bare double-bracket links.
//
// A candidate matches when the bracketed text has no pipe (piped links carry
// explicit display text), no nested bracket or newline, does not start with
// the namespace-separator escape ':', and the match is not immediately
// followed by an alphabetic code point (link trails extend the rendered link,
// so such occurrences are not bare). Occurrences are deduplicated by literal
// matched substring; the first occurrence's classification applies to all
// identical ones.
func scanLinks(markup string) []LinkOccurrence {
	var out []LinkOccurrence
	seen := make(map[string]struct{})

	for i := 0; ; {
		rel := strings.Index(markup[i:], "[[")
		if rel < 0 {
			break
		}
		open := i + rel
		closeRel := strings.Index(markup[open+2:], "]]")
		if closeRel < 0 {
			break
		}
		end := open + 2 + closeRel + 2
		inner := markup[open+2 : end-2]

		// Resume after the opening brackets when the candidate is rejected,
		// so an inner "[[" still gets considered.
		i = open + 2

		if inner == "" || strings.ContainsAny(inner, "|[]\n") {
			continue
		}
		if inner[0] == ':' {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(markup[end:]); unicode.IsLetter(r) {
			continue
		}

		whole := markup[open:end]
		i = end
		if _, dup := seen[whole]; dup {
			continue
		}
		seen[whole] = struct{}{}

		target, fragment := inner, ""
		if at := strings.Index(inner, "#"); at >= 0 {
			target, fragment = inner[:at], inner[at+1:]
		}

		decoded := false
		if strings.Contains(target, "%") {
			if un, err := url.PathUnescape(target); err == nil {
				// Escape markup the decoding may have introduced.
				target = htmlAngleEscaper.Replace(un)
				decoded = true
			}
		}

		out = append(out, LinkOccurrence{
			WholeText:                  whole,
			Target:                     target,
			Fragment:                   fragment,
			DecodedFromPercentEncoding: decoded,
		})
	}
	return out
}

var htmlAngleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
