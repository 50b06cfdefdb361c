package rewrite

import "strings"

// OptOutMarker disables default-link-text substitution for a whole page when
// it appears anywhere outside a verbatim span.
const OptOutMarker = "__NODEFAULTLINKS__"

// ContainsOptOutMarker reports whether text carries the page-wide opt-out
// marker outside <nowiki> spans.
func ContainsOptOutMarker(text string) bool {
	_, found := findMarker(text)
	return found
}

// StripOptOutMarker removes every opt-out marker occurrence outside <nowiki>
// spans and reports whether any was removed. Markers inside verbatim spans
// are literal text and stay.
func StripOptOutMarker(text string) (string, bool) {
	spans := verbatimSpans(text)

	var b strings.Builder
	found := false
	last := 0
	for i := 0; ; {
		rel := strings.Index(text[i:], OptOutMarker)
		if rel < 0 {
			break
		}
		pos := i + rel
		if insideSpan(spans, pos) {
			i = pos + len(OptOutMarker)
			continue
		}
		b.WriteString(text[last:pos])
		last = pos + len(OptOutMarker)
		i = last
		found = true
	}
	if !found {
		return text, false
	}
	b.WriteString(text[last:])
	return b.String(), true
}

func findMarker(text string) (int, bool) {
	spans := verbatimSpans(text)
	for i := 0; ; {
		rel := strings.Index(text[i:], OptOutMarker)
		if rel < 0 {
			return 0, false
		}
		pos := i + rel
		if !insideSpan(spans, pos) {
			return pos, true
		}
		i = pos + len(OptOutMarker)
	}
}

// VerbatimRanges returns the [start, end) byte ranges covered by <nowiki>
// spans, for callers that must skip verbatim content when extracting
// constructs from raw page text.
func VerbatimRanges(text string) [][2]int {
	spans := verbatimSpans(text)
	out := make([][2]int, len(spans))
	for i, s := range spans {
		out[i] = [2]int{s.start, s.end}
	}
	return out
}

type span struct{ start, end int }

// verbatimSpans returns the byte ranges covered by <nowiki>...</nowiki>.
// An unclosed opening tag extends to the end of the text.
func verbatimSpans(text string) []span {
	lower := strings.ToLower(text)
	var spans []span
	for i := 0; ; {
		rel := strings.Index(lower[i:], "<nowiki>")
		if rel < 0 {
			break
		}
		start := i + rel
		endRel := strings.Index(lower[start:], "</nowiki>")
		if endRel < 0 {
			spans = append(spans, span{start, len(text)})
			break
		}
		end := start + endRel + len("</nowiki>")
		spans = append(spans, span{start, end})
		i = end
	}
	return spans
}

func insideSpan(spans []span, pos int) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			return true
		}
	}
	return false
}
