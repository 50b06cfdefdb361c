package rewrite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linktext/internal/store"
	"git.home.luguber.info/inful/linktext/internal/title"
)

type env struct {
	t      *testing.T
	store  *store.MemoryStore
	titles *title.SiteResolver
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemoryStore()
	namespaces := []title.Namespace{
		{Name: "Help", LinkText: true},
		{Name: "Talk"},
		{Name: "File", Aliases: []string{"Image"}, File: true},
	}
	return &env{t: t, store: st, titles: title.NewSiteResolver(namespaces, st)}
}

func (e *env) register(prefixed string) int64 {
	e.t.Helper()
	ns, name := "", prefixed
	if p, rest, ok := strings.Cut(prefixed, ":"); ok {
		switch p {
		case "Help", "Talk", "File":
			ns, name = p, rest
		}
	}
	id, err := e.store.EnsurePage(context.Background(), ns, name)
	require.NoError(e.t, err)
	return id
}

// session registers pageName and builds its render session.
func (e *env) session(pageName string) *Session {
	e.t.Helper()
	e.register(pageName)
	pt, ok := e.titles.Resolve(pageName)
	require.True(e.t, ok)
	require.NotZero(e.t, pt.ArticleID)
	return NewSession(Deps{Titles: e.titles, Store: e.store}, pt)
}

// setPrimary registers the page and stores its primary format.
func (e *env) setPrimary(pageName, markup string) {
	e.t.Helper()
	id := e.register(pageName)
	require.NoError(e.t, e.store.Write(context.Background(), id, store.PropPrimary, markup))
}

// setFragments registers the page and stores its flattened fragment formats.
func (e *env) setFragments(pageName, flattened string) {
	e.t.Helper()
	id := e.register(pageName)
	require.NoError(e.t, e.store.Write(context.Background(), id, store.PropFragments, flattened))
}
