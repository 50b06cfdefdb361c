package pipeline

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/linktext/internal/budget"
	"git.home.luguber.info/inful/linktext/internal/rewrite"
)

const (
	regionOpen  = "<nolinktext>"
	regionClose = "</nolinktext>"
)

// rewritePage handles the page-wide opt-out marker, then rewrites the markup
// segment by segment. The marker must suppress the whole render context
// before any segment is processed: links ahead of it in document order stay
// bare even when a <nolinktext> region separates them from the marker.
func rewritePage(ctx context.Context, s *rewrite.Session, markup string, opts *rewrite.RewriteOptions, b *budget.IncludeSizeBudget) (string, error) {
	if cleaned, found := rewrite.StripOptOutMarker(markup); found {
		s.Suppress(opts)
		markup = cleaned
	}
	return rewriteSegments(ctx, s, markup, opts, b)
}

// rewriteSegments applies Session.Rewrite to markup outside <nolinktext>
// regions. Region content is emitted verbatim with the tags removed; regions
// nest, and an unclosed open tag extends to the end of the markup.
func rewriteSegments(ctx context.Context, s *rewrite.Session, markup string, opts *rewrite.RewriteOptions, b *budget.IncludeSizeBudget) (string, error) {
	var out strings.Builder
	out.Grow(len(markup))

	for len(markup) > 0 {
		idx := strings.Index(markup, regionOpen)
		if idx < 0 {
			rewritten, err := s.Rewrite(ctx, markup, opts, b)
			if err != nil {
				return "", err
			}
			out.WriteString(rewritten)
			break
		}

		rewritten, err := s.Rewrite(ctx, markup[:idx], opts, b)
		if err != nil {
			return "", err
		}
		out.WriteString(rewritten)

		inner, rest := splitRegion(markup[idx+len(regionOpen):])

		// The suppressed recursion strips nested tags without substituting.
		err = s.WithSuppressed(opts, func() error {
			innerOut, innerErr := rewriteSegments(ctx, s, inner, opts, b)
			if innerErr != nil {
				return innerErr
			}
			out.WriteString(innerOut)
			return nil
		})
		if err != nil {
			return "", err
		}
		markup = rest
	}
	return out.String(), nil
}

// splitRegion returns the region content up to the matching close tag and the
// text after it, honoring nested regions.
func splitRegion(s string) (inner, rest string) {
	depth := 1
	for i := 0; i < len(s); {
		nextOpen := strings.Index(s[i:], regionOpen)
		nextClose := strings.Index(s[i:], regionClose)
		switch {
		case nextClose < 0:
			return s, ""
		case nextOpen >= 0 && nextOpen < nextClose:
			depth++
			i += nextOpen + len(regionOpen)
		default:
			depth--
			if depth == 0 {
				return s[:i+nextClose], s[i+nextClose+len(regionClose):]
			}
			i += nextClose + len(regionClose)
		}
	}
	return s, ""
}
