package rewrite

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linktext/internal/budget"
	"git.home.luguber.info/inful/linktext/internal/logfields"
)

// Rewrite scans nearly-final markup for bare wikilink occurrences and
// replaces each with the display form its target declared, when one exists.
//
// Re-entrant calls return the input unchanged. An inline opt-out marker
// removes itself and suppresses the context for the remainder of the session;
// markers are stripped even when the context is already suppressed, so they
// never leak into output. A budget overrun rolls the whole substitution back,
// returns the original markup and surfaces budget.LimitExceededError for the
// caller to report as a limitation warning; it is not a render failure.
func (s *Session) Rewrite(ctx context.Context, markup string, opts *RewriteOptions, b *budget.IncludeSizeBudget) (string, error) {
	if s.rewriting {
		// Re-sanitization of replacement text can re-enter the rendering
		// pipeline; the inner invocation must be a no-op.
		return markup, nil
	}
	s.rewriting = true
	defer func() { s.rewriting = false }()

	if opts == nil {
		opts = &RewriteOptions{}
	}
	if cleaned, found := StripOptOutMarker(markup); found {
		s.Suppress(opts)
		markup = cleaned
	}
	if s.IsSuppressed(opts) {
		return markup, nil
	}

	occurrences := scanLinks(markup)
	if len(occurrences) == 0 {
		return markup, nil
	}

	plan, err := s.resolve(ctx, occurrences, opts)
	if err != nil {
		// Degrade to no substitution rather than failing the render.
		slog.Warn("Link text resolution failed",
			logfields.RenderID(s.id),
			logfields.Page(s.page.PrefixedName()),
			logfields.Error(err))
		return markup, nil
	}
	if len(plan) == 0 {
		return markup, nil
	}

	result, count, err := s.substitute(markup, plan, b)
	if err != nil {
		if budget.IsLimitExceeded(err) {
			s.deps.Metrics.IncLimitExceeded()
			slog.Warn("Inclusion size budget exceeded, substitutions discarded",
				logfields.RenderID(s.id),
				logfields.Page(s.page.PrefixedName()),
				logfields.Error(err))
			return markup, err
		}
		return markup, err
	}

	s.deps.Metrics.IncSubstitutions(count)
	return result, nil
}
