// Package title implements page title resolution: normalization of raw link
// text into (namespace, name, fragment, article-id) tuples, and the
// per-namespace capability allow-list that gates default-link-text formatting.
package title

import "strings"

// Title is a resolved page reference.
type Title struct {
	// Namespace is the canonical namespace name; empty means the main namespace.
	Namespace string

	// Name is the normalized page name within the namespace.
	// Empty together with a non-empty Fragment means a fragment-only self link.
	Name string

	// Fragment is the in-page anchor, without the leading '#'.
	Fragment string

	// ArticleID identifies the page in the store; 0 means the page is not registered.
	ArticleID int64
}

// PrefixedName returns "Namespace:Name", or just Name for the main namespace.
func (t Title) PrefixedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	if t.Name == "" {
		return ""
	}
	return t.Namespace + ":" + t.Name
}

// SameAs reports whether two titles reference the same page (fragment ignored).
func (t Title) SameAs(other Title) bool {
	return t.Namespace == other.Namespace && strings.EqualFold(t.Name, other.Name)
}

// Resolver turns raw link text into a normalized Title and answers
// per-namespace capability questions.
type Resolver interface {
	// Resolve returns the normalized title and true, or a zero Title and false
	// when the text is not a valid page reference.
	Resolve(text string) (Title, bool)

	// HasLinkTextCapability reports whether pages in the namespace may declare
	// and receive default link text.
	HasLinkTextCapability(namespace string) bool

	// IsFileNamespace reports whether the namespace holds file/media pages,
	// whose links support a link= target override.
	IsFileNamespace(namespace string) bool
}

// PageIndex looks up article ids for registered pages. The store implements it.
type PageIndex interface {
	ArticleID(namespace, name string) (int64, error)
}
