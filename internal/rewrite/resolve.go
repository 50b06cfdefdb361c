package rewrite

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/linktext/internal/logfields"
	"git.home.luguber.info/inful/linktext/internal/store"
)

// plannedReplacement is one find/replace pair of the resolution plan.
type plannedReplacement struct {
	whole       string
	replacement string
}

// pendingLookup remembers which cache key answers an occurrence once the
// batched read has completed.
type pendingLookup struct {
	occ LinkOccurrence
	key string
}

// resolve classifies every occurrence, performs at most one batched store
// read for all unresolved page ids, and produces the substitution plan.
func (s *Session) resolve(ctx context.Context, occurrences []LinkOccurrence, opts *RewriteOptions) ([]plannedReplacement, error) {
	var plan []plannedReplacement
	var pending []pendingLookup
	queued := make(map[int64]struct{})

	appendPlan := func(occ LinkOccurrence, text string) {
		plan = append(plan, plannedReplacement{whole: occ.WholeText, replacement: text})
	}

	for _, occ := range occurrences {
		raw := occ.Target
		if occ.Fragment != "" {
			raw = occ.Target + "#" + occ.Fragment
		}
		t, ok := s.deps.Titles.Resolve(raw)
		if !ok || !s.deps.Titles.HasLinkTextCapability(t.Namespace) {
			continue
		}

		isSelf := t.PrefixedName() == "" || t.SameAs(s.page)
		pageID := t.ArticleID
		if t.PrefixedName() == "" {
			pageID = s.page.ArticleID
		}
		if pageID == 0 {
			continue
		}

		if occ.Fragment != "" {
			frag := normalizeFragment(occ.Fragment)
			fragKey := fragmentKey(pageID, frag)

			if isSelf {
				if text, declared := s.ownFragments[frag]; declared {
					s.cache.store(fragKey, text)
				}
			}

			if text, negative, hit := s.cache.lookup(fragKey); hit {
				if negative {
					s.deps.Metrics.IncNegativeCacheHit()
					continue
				}
				appendPlan(occ, text)
				continue
			}

			// A bare-id entry (positive or negative) means the page was
			// already fetched this render: a fragment miss then is
			// authoritative. Self links outside section preview are likewise
			// answered only by the page's own just-parsed declarations.
			if _, _, hit := s.cache.lookup(bareKey(pageID)); hit || (isSelf && !opts.IsSectionPreview) {
				continue
			}

			if _, dup := queued[pageID]; !dup {
				queued[pageID] = struct{}{}
			}
			pending = append(pending, pendingLookup{occ: occ, key: fragKey})
			continue
		}

		// No fragment: the page's own primary declaration is the fast path.
		if isSelf && s.ownPrimarySet {
			appendPlan(occ, s.ownPrimary)
			continue
		}

		key := bareKey(pageID)
		if text, negative, hit := s.cache.lookup(key); hit {
			if negative {
				s.deps.Metrics.IncNegativeCacheHit()
				continue
			}
			appendPlan(occ, text)
			continue
		}

		if !isSelf || opts.IsSectionPreview {
			if _, dup := queued[pageID]; !dup {
				queued[pageID] = struct{}{}
			}
			pending = append(pending, pendingLookup{occ: occ, key: key})
		}
		// Self link outside preview with no declaration yet: nothing to substitute.
	}

	if len(queued) == 0 {
		return plan, nil
	}

	pageIDs := make([]int64, 0, len(queued))
	for id := range queued {
		pageIDs = append(pageIDs, id)
	}

	rows, err := s.deps.Store.BatchRead(ctx, pageIDs, []string{store.PropPrimary, store.PropFragments})
	if err != nil {
		return nil, fmt.Errorf("batched format lookup: %w", err)
	}
	s.deps.Metrics.IncLookupBatch(len(pageIDs))
	slog.Debug("Batched link text lookup",
		logfields.RenderID(s.id),
		logfields.Page(s.page.PrefixedName()),
		logfields.Count(len(pageIDs)))

	gotPrimary := make(map[int64]bool)
	for _, row := range rows {
		switch row.Prop {
		case store.PropPrimary:
			s.cache.store(bareKey(row.PageID), row.Value)
			gotPrimary[row.PageID] = true
		case store.PropFragments:
			for frag, text := range DecodeFragments(row.Value) {
				s.cache.store(fragmentKey(row.PageID, frag), text)
			}
		}
	}

	// Every queried id that yielded no primary value is confirmed absent.
	for _, id := range pageIDs {
		if !gotPrimary[id] {
			s.cache.storeNegative(bareKey(id))
		}
	}

	for _, p := range pending {
		text, negative, hit := s.cache.lookup(p.key)
		if hit && !negative {
			appendPlan(p.occ, text)
			continue
		}
		// Confirmed absent by the completed read.
		s.cache.storeNegative(p.key)
	}

	return plan, nil
}
