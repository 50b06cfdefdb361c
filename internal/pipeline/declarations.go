package pipeline

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/linktext/internal/rewrite"
)

const constructOpen = "{{#linktext:"

// construct is one {{#linktext: ...}} occurrence in raw page text.
type construct struct {
	args       rewrite.DeclarationArgs
	start, end int // byte range including the braces
}

// extractConstructs finds declaration constructs outside <nowiki> spans.
// Matching is case-insensitive on the construct name; an unclosed construct
// extends to the end of the text.
func extractConstructs(text string) []construct {
	lower := strings.ToLower(text)
	verbatim := rewrite.VerbatimRanges(text)

	var constructs []construct
	for i := 0; ; {
		rel := strings.Index(lower[i:], constructOpen)
		if rel < 0 {
			break
		}
		start := i + rel
		if insideRange(verbatim, start) {
			i = start + len(constructOpen)
			continue
		}

		end := len(text)
		if closeRel := strings.Index(text[start:], "}}"); closeRel >= 0 {
			end = start + closeRel + 2
		}
		body := text[start+len(constructOpen) : end]
		body = strings.TrimSuffix(body, "}}")

		constructs = append(constructs, construct{
			args:  parseDeclarationArgs(body),
			start: start,
			end:   end,
		})
		i = end
	}
	return constructs
}

// parseDeclarationArgs splits the construct body: the first segment is the
// link markup, the rest are named or flag parameters. Unknown parameters are
// ignored. Pipes inside the link markup's own [[...]] belong to the link, so
// splitting only starts after the markup's closing brackets.
func parseDeclarationArgs(body string) rewrite.DeclarationArgs {
	segments := splitTopLevel(body)
	args := rewrite.DeclarationArgs{}
	if len(segments) > 0 {
		args.LinkMarkup = strings.TrimSpace(segments[0])
	}
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		switch {
		case seg == "silent":
			args.Silent = true
		case strings.HasPrefix(seg, "for="):
			args.ForPage = strings.TrimSpace(strings.TrimPrefix(seg, "for="))
		}
	}
	return args
}

// splitTopLevel splits on '|' outside [[...]] link brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "[["):
			depth++
			i++
		case strings.HasPrefix(s[i:], "]]"):
			if depth > 0 {
				depth--
			}
			i++
		case s[i] == '|' && depth == 0:
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func insideRange(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// applyDeclarations runs every construct through the session and splices the
// construct's inline output (empty on success, an error span on failure) back
// into the text. Declaration errors are returned for warning publication but
// never abort the page.
func applyDeclarations(ctx context.Context, s *rewrite.Session, text string) (string, []error) {
	constructs := extractConstructs(text)
	if len(constructs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	var errs []error
	last := 0
	for _, c := range constructs {
		b.WriteString(text[last:c.start])
		out, err := s.Declare(ctx, c.args)
		if err != nil {
			errs = append(errs, err)
		}
		b.WriteString(out)
		last = c.end
	}
	b.WriteString(text[last:])
	return b.String(), errs
}
