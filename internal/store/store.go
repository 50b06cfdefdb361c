// Package store persists per-page link-text properties: a page registry that
// assigns article ids, and a (page-id, property) -> value store with batched
// multi-key reads. The rewrite core performs exactly one batched read per
// render pass; concurrent renders share one store instance.
package store

import "context"

// Property names for declared link-text formats.
const (
	// PropPrimary holds the whole-page default link text markup.
	PropPrimary = "linktext-primary"

	// PropFragments holds fragment-scoped formats as a flattened alternating
	// sequence: fragment \n text \n fragment \n text ...
	PropFragments = "linktext-fragments"
)

// PropRow is one (page, property, value) row from a batched read.
type PropRow struct {
	PageID int64
	Prop   string
	Value  string
}

// FormatStore is the external key-value property store for declared formats.
type FormatStore interface {
	// BatchRead returns all stored rows for the given page ids and property
	// names in one call. Missing keys produce no row (callers negative-cache
	// the absence).
	BatchRead(ctx context.Context, pageIDs []int64, props []string) ([]PropRow, error)

	// Write upserts one property value for a page.
	Write(ctx context.Context, pageID int64, prop, value string) error

	// DeleteAll removes every property for a page. Called when a page is
	// permanently removed.
	DeleteAll(ctx context.Context, pageID int64) error
}

// Page is one registered page.
type Page struct {
	ID        int64
	Namespace string
	Name      string
}

// Registry assigns and looks up article ids. The pipeline registers every
// loaded page before rendering; title resolution reads ids back through
// title.PageIndex (ArticleID).
type Registry interface {
	EnsurePage(ctx context.Context, namespace, name string) (int64, error)
	ArticleID(namespace, name string) (int64, error)
	AllPages(ctx context.Context) ([]Page, error)
}
