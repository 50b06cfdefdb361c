package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linktext/internal/config"
	"git.home.luguber.info/inful/linktext/internal/rewrite"
	"git.home.luguber.info/inful/linktext/internal/store"
	"git.home.luguber.info/inful/linktext/internal/title"
)

// harness bundles the renderer collaborators around an in-memory store and a
// temp vault/output pair.
type harness struct {
	cfg    *config.Config
	store  *store.MemoryStore
	titles *title.SiteResolver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	namespaces := []title.Namespace{
		{Name: "Help", LinkText: true},
		{Name: "Talk"},
		{Name: "File", Aliases: []string{"Image"}, File: true},
	}
	cfg := &config.Config{}
	cfg.Source.Dir = filepath.Join(t.TempDir(), "vault")
	cfg.Source.Output = filepath.Join(t.TempDir(), "out")
	cfg.Render.Workers = 2
	require.NoError(t, os.MkdirAll(cfg.Source.Dir, 0o755))
	return &harness{cfg: cfg, store: st, titles: title.NewSiteResolver(namespaces, st)}
}

// writePage creates one vault page file at the given vault-relative path.
func (h *harness) writePage(t *testing.T, rel, content string) {
	t.Helper()
	dst := filepath.Join(h.cfg.Source.Dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.WriteFile(dst, []byte(content), 0o644))
}

// newSession registers pageName and builds a rewrite session for it.
func (h *harness) newSession(t *testing.T, pageName string) *rewrite.Session {
	t.Helper()
	pt, ok := h.titles.Resolve(pageName)
	require.True(t, ok)
	id, err := h.store.EnsurePage(context.Background(), pt.Namespace, pt.Name)
	require.NoError(t, err)
	pt.ArticleID = id
	return rewrite.NewSession(rewrite.Deps{Titles: h.titles, Store: h.store}, pt)
}

func (h *harness) renderer() *Renderer {
	return NewRenderer(h.cfg, h.store, h.titles, nil, nil, nil)
}

// readOutput returns the emitted content for a vault-relative path.
func (h *harness) readOutput(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.cfg.Source.Output, rel))
	require.NoError(t, err)
	return string(data)
}
