package title

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Namespace describes one configured namespace.
type Namespace struct {
	Name     string
	Aliases  []string
	LinkText bool // pages here may declare/receive default link text
	File     bool // file/media namespace (links support link= override)
}

// SiteResolver is the standard Resolver implementation, driven by the
// configured namespace table and an optional PageIndex for article ids.
type SiteResolver struct {
	canonical map[string]string // lowercased name/alias -> canonical name
	linkText  map[string]bool
	file      map[string]bool
	index     PageIndex
}

// NewSiteResolver builds a resolver from the namespace table. index may be nil,
// in which case every resolved title has ArticleID 0.
func NewSiteResolver(namespaces []Namespace, index PageIndex) *SiteResolver {
	r := &SiteResolver{
		canonical: make(map[string]string),
		linkText:  make(map[string]bool),
		file:      make(map[string]bool),
		index:     index,
	}
	for _, ns := range namespaces {
		r.canonical[strings.ToLower(ns.Name)] = ns.Name
		for _, alias := range ns.Aliases {
			r.canonical[strings.ToLower(alias)] = ns.Name
		}
		r.linkText[ns.Name] = ns.LinkText
		r.file[ns.Name] = ns.File
	}
	return r
}

// HasLinkTextCapability implements Resolver. The main namespace is always
// capable; others only when configured.
func (r *SiteResolver) HasLinkTextCapability(namespace string) bool {
	if namespace == "" {
		return true
	}
	return r.linkText[namespace]
}

// IsFileNamespace implements Resolver.
func (r *SiteResolver) IsFileNamespace(namespace string) bool {
	return r.file[namespace]
}

// Resolve implements Resolver.
func (r *SiteResolver) Resolve(text string) (Title, bool) {
	raw := norm.NFC.String(strings.TrimSpace(text))

	// One leading colon escapes into the main namespace.
	raw = strings.TrimPrefix(raw, ":")

	name, fragment := splitFragment(raw)
	name = normalizeSpacing(name)
	fragment = strings.TrimSpace(fragment)

	if name == "" {
		if fragment == "" {
			return Title{}, false
		}
		// Fragment-only self link.
		return Title{Fragment: fragment}, true
	}

	namespace := ""
	if prefix, rest, ok := strings.Cut(name, ":"); ok {
		if canon, known := r.canonical[strings.ToLower(strings.TrimSpace(prefix))]; known {
			namespace = canon
			name = normalizeSpacing(rest)
			if name == "" {
				return Title{}, false
			}
		}
		// Unknown prefixes stay part of the page name.
	}

	if !validName(name) {
		return Title{}, false
	}
	name = upperFirst(name)

	t := Title{Namespace: namespace, Name: name, Fragment: fragment}
	if r.index != nil {
		if id, err := r.index.ArticleID(namespace, name); err == nil {
			t.ArticleID = id
		}
	}
	return t, true
}

func splitFragment(s string) (string, string) {
	if i := strings.Index(s, "#"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// normalizeSpacing folds underscores into spaces and collapses runs.
func normalizeSpacing(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func validName(s string) bool {
	for _, r := range s {
		if r < 0x20 || strings.ContainsRune("<>[]{}|", r) {
			return false
		}
	}
	return true
}
