package rewrite

import (
	"strconv"
	"strings"
)

// notFound is the negative-cache sentinel: "looked up, confirmed absent".
// It is only ever written for keys that were part of a completed batched read.
const notFound = "\x00not-found\x00"

// formatCache maps resolution keys to declared format markup within one
// render pass. Keys are either the bare page id ("12", primary format) or
// a composite "12#fragment" (fragment format, lower-cased trimmed fragment).
// Primary and fragment keys never alias; fragment lookups never fall back
// to the primary slot.
type formatCache struct {
	entries map[string]string
}

func newFormatCache() *formatCache {
	return &formatCache{entries: make(map[string]string)}
}

func bareKey(pageID int64) string {
	return strconv.FormatInt(pageID, 10)
}

func fragmentKey(pageID int64, fragment string) string {
	return bareKey(pageID) + "#" + normalizeFragment(fragment)
}

// normalizeFragment applies the cache's fragment key normalization.
func normalizeFragment(fragment string) string {
	return strings.ToLower(strings.TrimSpace(fragment))
}

// lookup returns (text, negative, present).
func (c *formatCache) lookup(key string) (string, bool, bool) {
	v, ok := c.entries[key]
	if !ok {
		return "", false, false
	}
	if v == notFound {
		return "", true, true
	}
	return v, false, true
}

func (c *formatCache) store(key, text string) {
	c.entries[key] = text
}

func (c *formatCache) storeNegative(key string) {
	// Never downgrade a real value to the sentinel.
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = notFound
	}
}
