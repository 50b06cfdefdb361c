package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/linktext/internal/budget"
	"git.home.luguber.info/inful/linktext/internal/config"
	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/logfields"
	"git.home.luguber.info/inful/linktext/internal/metrics"
	"git.home.luguber.info/inful/linktext/internal/notify"
	"git.home.luguber.info/inful/linktext/internal/rewrite"
	"git.home.luguber.info/inful/linktext/internal/store"
	"git.home.luguber.info/inful/linktext/internal/title"
)

// Store is the persistence surface the renderer needs: format properties
// plus the page registry.
type Store interface {
	store.FormatStore
	store.Registry
}

// Options selects per-render behavior.
type Options struct {
	// SectionPreview renders as if previewing partial pages: a page's own
	// declarations are not trusted as complete.
	SectionPreview bool
	// HTML additionally emits a goldmark-rendered .html next to each page.
	HTML bool
}

// Result summarizes one render pass.
type Result struct {
	PagesRendered int
	Warnings      int
}

// Renderer drives the vault render: declaration pre-pass for every page,
// persistence of declared formats, then the rewrite pass against the store.
type Renderer struct {
	cfg       *config.Config
	store     Store
	titles    *title.SiteResolver
	metrics   metrics.Recorder
	notify    notify.Publisher
	sanitizer rewrite.Sanitizer
}

// NewRenderer wires a renderer. metrics, publisher and sanitizer may be nil.
func NewRenderer(cfg *config.Config, st Store, titles *title.SiteResolver, rec metrics.Recorder, pub notify.Publisher, san rewrite.Sanitizer) *Renderer {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if pub == nil {
		pub = notify.NoopPublisher{}
	}
	return &Renderer{cfg: cfg, store: st, titles: titles, metrics: rec, notify: pub, sanitizer: san}
}

// renderState carries one page between the two passes.
type renderState struct {
	page    Page
	session *rewrite.Session
	text    string // after the declaration pre-pass
}

// Render runs one full pass over the vault.
func (r *Renderer) Render(ctx context.Context, opt Options) (*Result, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveRenderDuration(time.Since(started)) }()

	pages, err := LoadVault(r.cfg.Source.Dir, r.titles)
	if err != nil {
		return nil, err
	}
	slog.Info("Vault loaded",
		logfields.Count(len(pages)),
		logfields.Path(r.cfg.Source.Dir))

	if err := r.registerPages(ctx, pages); err != nil {
		return nil, err
	}
	// Previews never persist: stored formats stay as the last full render
	// left them.
	if !opt.SectionPreview {
		if err := r.pruneRemoved(ctx, pages); err != nil {
			return nil, err
		}
	}

	result := &Result{}

	// Pass one: declarations. Every page's formats must be persisted before
	// any page's links resolve, so cross-references settle in a single render.
	states := make([]*renderState, len(pages))
	for i, page := range pages {
		st, warnings, err := r.declarePass(ctx, page, opt)
		if err != nil {
			return nil, err
		}
		result.Warnings += warnings
		states[i] = st
	}

	// Pass two: rewrite and emit, fanned out across workers. Sessions are
	// per-page; only the store and the budget are shared.
	b := budget.New(r.cfg.Render.InclusionBudget)
	if err := r.rewritePass(ctx, states, opt, b, result); err != nil {
		return nil, err
	}

	slog.Info("Render pass complete",
		logfields.Count(result.PagesRendered),
		logfields.DurationMS(float64(time.Since(started).Milliseconds())))
	return result, nil
}

func (r *Renderer) registerPages(ctx context.Context, pages []Page) error {
	for i := range pages {
		id, err := r.store.EnsurePage(ctx, pages[i].Title.Namespace, pages[i].Title.Name)
		if err != nil {
			return err
		}
		pages[i].Title.ArticleID = id
	}
	return nil
}

// pruneRemoved drops stored formats for pages no longer present in the vault.
func (r *Renderer) pruneRemoved(ctx context.Context, pages []Page) error {
	current := make(map[int64]struct{}, len(pages))
	for _, p := range pages {
		current[p.Title.ArticleID] = struct{}{}
	}
	known, err := r.store.AllPages(ctx)
	if err != nil {
		return err
	}
	for _, p := range known {
		if _, ok := current[p.ID]; ok {
			continue
		}
		if err := r.store.DeleteAll(ctx, p.ID); err != nil {
			return err
		}
		slog.Debug("Removed stale page formats",
			logfields.Page(p.Name),
			logfields.Namespace(p.Namespace))
	}
	return nil
}

func (r *Renderer) declarePass(ctx context.Context, page Page, opt Options) (*renderState, int, error) {
	session := rewrite.NewSession(rewrite.Deps{
		Titles:    r.titles,
		Store:     r.store,
		Sanitizer: r.sanitizer,
		Metrics:   r.metrics,
	}, page.Title)

	text, declErrs := applyDeclarations(ctx, session, page.Raw)
	for _, derr := range declErrs {
		r.publishDeclarationWarning(ctx, session, page, derr)
	}

	if !opt.SectionPreview {
		primary, _ := session.DeclaredPrimary()
		if err := r.store.Write(ctx, page.Title.ArticleID, store.PropPrimary, primary); err != nil {
			return nil, 0, err
		}
		if err := r.store.Write(ctx, page.Title.ArticleID, store.PropFragments, session.FlattenFragments()); err != nil {
			return nil, 0, err
		}
	}

	return &renderState{page: page, session: session, text: text}, len(declErrs), nil
}

func (r *Renderer) rewritePass(ctx context.Context, states []*renderState, opt Options, b *budget.IncludeSizeBudget, result *Result) error {
	workers := r.cfg.Render.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *renderState)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	record := func(warnings int) {
		mu.Lock()
		defer mu.Unlock()
		result.Warnings += warnings
		result.PagesRendered++
	}
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				warnings, err := r.renderPage(ctx, st, opt, b)
				if err != nil {
					fail(err)
					continue
				}
				record(warnings)
			}
		}()
	}

	for _, st := range states {
		select {
		case jobs <- st:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

// renderPage rewrites one page and emits it. A budget overrun degrades to the
// unrewritten text and counts as a warning rather than a failure.
func (r *Renderer) renderPage(ctx context.Context, st *renderState, opt Options, b *budget.IncludeSizeBudget) (int, error) {
	opts := &rewrite.RewriteOptions{IsSectionPreview: opt.SectionPreview}

	warnings := 0
	out, err := rewritePage(ctx, st.session, st.text, opts, b)
	if err != nil {
		if !budget.IsLimitExceeded(err) {
			return 0, err
		}
		warnings++
		out = st.text
		r.publishWarning(ctx, notify.RenderWarning{
			Kind:     notify.WarningLimitExceeded,
			Page:     st.page.Title.PrefixedName(),
			RenderID: st.session.ID(),
			Detail:   err.Error(),
		})
	}

	if err := r.emit(st.page, out, opt); err != nil {
		return warnings, err
	}
	r.metrics.IncPagesRendered()
	return warnings, nil
}

func (r *Renderer) emit(page Page, content string, opt Options) error {
	dst := filepath.Join(r.cfg.Source.Output, page.RelPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryRender, apperrors.SeverityError,
			"failed to create output directory")
	}
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryRender, apperrors.SeverityError,
			"failed to write page output").WithContext("path", dst)
	}

	if opt.HTML {
		htmlPath := strings.TrimSuffix(dst, filepath.Ext(dst)) + ".html"
		if err := renderHTML(content, htmlPath); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) publishDeclarationWarning(ctx context.Context, session *rewrite.Session, page Page, derr error) {
	kind := notify.WarningInvalidDeclaration
	if de, ok := rewrite.AsDeclarationError(derr); ok && de.Kind == rewrite.ErrDuplicateDeclaration {
		kind = notify.WarningDuplicateDeclaration
	}
	r.publishWarning(ctx, notify.RenderWarning{
		Kind:     kind,
		Page:     page.Title.PrefixedName(),
		RenderID: session.ID(),
		Detail:   derr.Error(),
	})
}

func (r *Renderer) publishWarning(ctx context.Context, w notify.RenderWarning) {
	if err := r.notify.Publish(ctx, w); err != nil {
		slog.Warn("Failed to publish render warning",
			logfields.Page(w.Page),
			logfields.Error(err))
	}
}
