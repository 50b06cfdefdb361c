// Package rewrite implements the default-link-text core: parsing declarations
// embedded in page content, scanning nearly-final markup for bare wikilink
// occurrences, resolving each occurrence against declared formats (self-page
// fast path, in-process cache, one batched store read, negative cache), and
// substituting the declared text back into the markup under an inclusion-size
// budget.
package rewrite

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/linktext/internal/metrics"
	"git.home.luguber.info/inful/linktext/internal/store"
	"git.home.luguber.info/inful/linktext/internal/title"
)

// Sanitizer is the host's content-sanitization capability. Declared format
// text is captured raw and must be re-sanitized before it is substituted
// into rendered markup.
type Sanitizer interface {
	Sanitize(markup string) string
}

// passthroughSanitizer is the default when the host provides none.
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(markup string) string { return markup }

// Deps are the external capabilities injected into a Session.
type Deps struct {
	Titles    title.Resolver
	Store     store.FormatStore
	Sanitizer Sanitizer
	Metrics   metrics.Recorder
}

// RewriteOptions identifies one render context. Suppression is tracked by
// identity (pointer), not by value: two renders with equal settings are
// still distinct contexts.
type RewriteOptions struct {
	// IsSectionPreview marks a render previewing only part of a page, where
	// the full page's own declarations cannot be trusted as complete.
	IsSectionPreview bool
}

// Session is the per-render-pass state: the format cache, the current page's
// own just-parsed declarations, the suppression set and the recursion guard.
// Sessions are not safe for concurrent use; concurrent renders each get their
// own Session and share only the store.
type Session struct {
	id   string
	deps Deps
	page title.Title

	cache *formatCache

	ownPrimary    string
	ownPrimarySet bool
	ownFragments  map[string]string // normalized fragment -> declared markup

	suppressed map[*RewriteOptions]struct{}
	rewriting  bool
}

// NewSession creates the session for rendering one page. page must carry the
// page's ArticleID.
func NewSession(deps Deps, page title.Title) *Session {
	if deps.Sanitizer == nil {
		deps.Sanitizer = passthroughSanitizer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	return &Session{
		id:           uuid.NewString(),
		deps:         deps,
		page:         page,
		cache:        newFormatCache(),
		ownFragments: make(map[string]string),
		suppressed:   make(map[*RewriteOptions]struct{}),
	}
}

// ID returns the session's correlation id for logging.
func (s *Session) ID() string { return s.id }

// Page returns the title this session renders.
func (s *Session) Page() title.Title { return s.page }

// Suppress disables substitution for the given render context for the
// remainder of this session.
func (s *Session) Suppress(opts *RewriteOptions) {
	s.suppressed[opts] = struct{}{}
}

// IsSuppressed reports whether substitution is disabled for the context.
func (s *Session) IsSuppressed(opts *RewriteOptions) bool {
	_, ok := s.suppressed[opts]
	return ok
}

// WithSuppressed runs fn with opts added to the suppressed set, then restores
// the prior set exactly, even if fn panics (stack discipline for scoped
// opt-out regions).
func (s *Session) WithSuppressed(opts *RewriteOptions, fn func() error) error {
	prev := s.suppressed
	next := make(map[*RewriteOptions]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[opts] = struct{}{}
	s.suppressed = next
	defer func() { s.suppressed = prev }()
	return fn()
}

// DeclaredPrimary returns the page's own primary format, if one was declared
// this render.
func (s *Session) DeclaredPrimary() (string, bool) {
	return s.ownPrimary, s.ownPrimarySet
}

// DeclaredFragments returns a copy of the page's own fragment formats keyed
// by normalized fragment.
func (s *Session) DeclaredFragments() map[string]string {
	out := make(map[string]string, len(s.ownFragments))
	for k, v := range s.ownFragments {
		out[k] = v
	}
	return out
}

// FlattenFragments encodes the page's fragment formats in the store's wire
// format: fragment \n text \n fragment \n text ...
func (s *Session) FlattenFragments() string {
	if len(s.ownFragments) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.ownFragments)*2)
	for _, frag := range sortedKeys(s.ownFragments) {
		parts = append(parts, frag, s.ownFragments[frag])
	}
	return strings.Join(parts, "\n")
}

// DecodeFragments parses the flattened fragment-format encoding. Fragments
// are normalized (lower-cased, trimmed); a trailing odd element is dropped.
func DecodeFragments(value string) map[string]string {
	out := make(map[string]string)
	if value == "" {
		return out
	}
	parts := strings.Split(value, "\n")
	for i := 0; i+1 < len(parts); i += 2 {
		frag := normalizeFragment(parts[i])
		if frag == "" {
			continue
		}
		out[frag] = parts[i+1]
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
