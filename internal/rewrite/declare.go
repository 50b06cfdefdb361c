package rewrite

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/linktext/internal/logfields"
	"git.home.luguber.info/inful/linktext/internal/metrics"
)

// DeclarationArgs carries one declaration construct's arguments.
type DeclarationArgs struct {
	// LinkMarkup is the declared display form, containing at least one
	// [[...]] link back to the declaring page.
	LinkMarkup string

	// ForPage optionally scopes the declaration: when it names a page other
	// than the current one, the declaration is silently ignored. Templates
	// shared across many pages use this so each transclusion only takes
	// effect on its own page.
	ForPage string

	// Silent suppresses all error surfacing; output is empty instead of an
	// inline error span.
	Silent bool
}

// Declare parses one declaration construct for the session's page and
// registers the declared format. The returned string replaces the construct
// in page output: empty on success, ignore, or silence; an inline error span
// on failure.
func (s *Session) Declare(ctx context.Context, args DeclarationArgs) (string, error) {
	out, err := s.declare(ctx, args)
	if err != nil {
		if args.Silent {
			return "", err
		}
		if de, ok := AsDeclarationError(err); ok {
			return de.InlineHTML(), err
		}
	}
	return out, err
}

func (s *Session) declare(ctx context.Context, args DeclarationArgs) (string, error) {
	if args.ForPage != "" {
		forTitle, ok := s.deps.Titles.Resolve(args.ForPage)
		if !ok || forTitle.PrefixedName() == "" {
			s.deps.Metrics.IncDeclarations(metrics.DeclarationRejected)
			return "", &DeclarationError{Kind: ErrInvalidTargetPage, Target: args.ForPage}
		}
		if !forTitle.SameAs(s.page) {
			// Scoped to another page: a no-op here by design of per-page
			// declarations under transclusion.
			s.deps.Metrics.IncDeclarations(metrics.DeclarationIgnored)
			return "", nil
		}
	}

	linkMarkup := strings.ReplaceAll(args.LinkMarkup, "\n", "")

	links := extractDeclaredLinks(linkMarkup)
	if len(links) == 0 {
		s.deps.Metrics.IncDeclarations(metrics.DeclarationRejected)
		return "", &DeclarationError{Kind: ErrInvalidLinkSyntax}
	}

	for _, dl := range links {
		target := dl.target
		if t, ok := s.deps.Titles.Resolve(target); ok {
			// File/media links render the image, not a link to the file page;
			// their link= parameter names the page the link actually points to.
			if s.deps.Titles.IsFileNamespace(t.Namespace) && !strings.HasPrefix(strings.TrimSpace(dl.target), ":") {
				if override, has := dl.params["link"]; has {
					target = override
				}
			}
		}

		resolved, ok := s.deps.Titles.Resolve(target)
		if !ok {
			continue
		}
		// A fragment-only target ([[#History|...]]) always names this page.
		selfByFragment := resolved.PrefixedName() == "" && resolved.Fragment != ""
		if !resolved.SameAs(s.page) && !selfByFragment {
			continue
		}

		// First matching occurrence wins; the rest of the declaration is
		// display markup, not further declarations.
		if !s.deps.Titles.HasLinkTextCapability(s.page.Namespace) {
			s.deps.Metrics.IncDeclarations(metrics.DeclarationRejected)
			return "", &DeclarationError{Kind: ErrDisallowedNamespace, Target: s.page.PrefixedName()}
		}

		if resolved.Fragment == "" {
			return s.declarePrimary(ctx, linkMarkup)
		}
		s.ownFragments[normalizeFragment(resolved.Fragment)] = linkMarkup
		s.deps.Metrics.IncDeclarations(metrics.DeclarationAccepted)
		slog.Debug("Registered fragment link text",
			logfields.RenderID(s.id),
			logfields.Page(s.page.PrefixedName()),
			logfields.Fragment(resolved.Fragment))
		return "", nil
	}

	// No occurrence named this page: normal under transclusion, nothing to do.
	s.deps.Metrics.IncDeclarations(metrics.DeclarationIgnored)
	return "", nil
}

func (s *Session) declarePrimary(_ context.Context, linkMarkup string) (string, error) {
	if s.ownPrimarySet && strings.TrimSpace(s.ownPrimary) != strings.TrimSpace(linkMarkup) {
		s.deps.Metrics.IncDeclarations(metrics.DeclarationDuplicate)
		return "", &DeclarationError{
			Kind: ErrDuplicateDeclaration,
			Old:  s.ownPrimary,
			New:  linkMarkup,
		}
	}
	if !s.ownPrimarySet {
		s.ownPrimary = linkMarkup
		s.ownPrimarySet = true
	}
	s.deps.Metrics.IncDeclarations(metrics.DeclarationAccepted)
	slog.Debug("Registered primary link text",
		logfields.RenderID(s.id),
		logfields.Page(s.page.PrefixedName()))
	return "", nil
}

type declaredLink struct {
	target string
	params map[string]string
}

// extractDeclaredLinks finds every [[target|...]] construct in the declared
// markup, keeping pipe parameters (for the file link= override).
func extractDeclaredLinks(markup string) []declaredLink {
	var out []declaredLink
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
		i = end

		parts := strings.Split(inner, "|")
		dl := declaredLink{target: parts[0], params: make(map[string]string)}
		for _, p := range parts[1:] {
			if k, v, ok := strings.Cut(p, "="); ok {
				dl.params[strings.TrimSpace(strings.ToLower(k))] = strings.TrimSpace(v)
			}
		}
		if strings.TrimSpace(dl.target) == "" {
			continue
		}
		out = append(out, dl)
	}
	return out
}
