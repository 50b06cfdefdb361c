package rewrite

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linktext/internal/budget"
)

func TestRewriteRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|the foo page]]")
	s := e.session("Source")

	out, err := s.Rewrite(context.Background(), "See [[Foo]] for details.", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "See [[Foo|the foo page]] for details.", out)
	assert.Equal(t, 1, e.store.Calls().BatchRead)
}

func TestRewriteNoMatchIsByteIdentical(t *testing.T) {
	e := newEnv(t)
	e.register("Foo")
	s := e.session("Source")

	input := "See [[Foo]] and [[Unregistered]] here.\n"
	out, err := s.Rewrite(context.Background(), input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestRewriteNegativeCachePreventsSecondLookup(t *testing.T) {
	e := newEnv(t)
	e.register("Ghost")
	s := e.session("Source")
	ctx := context.Background()

	out, err := s.Rewrite(ctx, "first [[Ghost]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "first [[Ghost]]", out)
	assert.Equal(t, 1, e.store.Calls().BatchRead)

	// Same session, second pass: the negative cache answers.
	out, err = s.Rewrite(ctx, "again [[Ghost]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "again [[Ghost]]", out)
	assert.Equal(t, 1, e.store.Calls().BatchRead, "confirmed-absent page must not be fetched twice")
}

func TestRewriteFragmentFormats(t *testing.T) {
	e := newEnv(t)
	e.setFragments("Foo", "history\n[[Foo#History|the early years]]")
	s := e.session("Source")
	ctx := context.Background()

	out, err := s.Rewrite(ctx, "see [[Foo#History]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "see [[Foo#History|the early years]]", out)

	// Fragment matching is case-insensitive; the replacement is the declared
	// markup, casing included.
	s2 := e.session("Other")
	out, err = s2.Rewrite(ctx, "see [[Foo#history]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "see [[Foo#History|the early years]]", out)
}

func TestFragmentFormatsDoNotLeakToBareLinks(t *testing.T) {
	e := newEnv(t)
	e.setFragments("Foo", "sec\n[[Foo#sec|sectional]]")
	s := e.session("Source")

	input := "plain [[Foo]] link"
	out, err := s.Rewrite(context.Background(), input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, input, out, "fragment-scoped formats must not affect unfragmented links")
}

func TestPrimaryFormatDoesNotLeakToFragmentLinks(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|the foo page]]")
	s := e.session("Source")

	input := "see [[Foo#Other]]"
	out, err := s.Rewrite(context.Background(), input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, input, out, "fragment lookups never fall back to the primary format")
}

func TestRewriteSelfLinkFastPath(t *testing.T) {
	e := newEnv(t)
	s := e.session("Foo")
	ctx := context.Background()

	_, err := s.Declare(ctx, DeclarationArgs{LinkMarkup: "[[Foo|myself, nicely]]"})
	require.NoError(t, err)

	out, err := s.Rewrite(ctx, "about [[Foo]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "about [[Foo|myself, nicely]]", out)
	assert.Equal(t, 0, e.store.Calls().BatchRead, "own declarations never need a lookup")
}

func TestRewriteSelfLinkWithoutDeclarationSkipsLookup(t *testing.T) {
	e := newEnv(t)
	s := e.session("Foo")

	input := "about [[Foo]] and [[Foo#part]]"
	out, err := s.Rewrite(context.Background(), input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, input, out)
	assert.Equal(t, 0, e.store.Calls().BatchRead,
		"outside preview the page's own just-parsed declarations are authoritative")
}

func TestRewriteSelfLinkInSectionPreviewLooksUp(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|stored form]]")
	s := e.session("Foo")

	opts := &RewriteOptions{IsSectionPreview: true}
	out, err := s.Rewrite(context.Background(), "about [[Foo]]", opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "about [[Foo|stored form]]", out)
	assert.Equal(t, 1, e.store.Calls().BatchRead,
		"a section preview cannot trust the partial page's declarations")
}

func TestRewriteSelfFragmentSeedsCache(t *testing.T) {
	e := newEnv(t)
	s := e.session("Foo")
	ctx := context.Background()

	_, err := s.Declare(ctx, DeclarationArgs{LinkMarkup: "[[Foo#Sec|own section]]"})
	require.NoError(t, err)

	// Both spellings substitute to the declared markup; no lookup is needed.
	out, err := s.Rewrite(ctx, "go to [[Foo#Sec]] or [[#Sec]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "go to [[Foo#Sec|own section]] or [[Foo#Sec|own section]]", out)
	assert.Equal(t, 0, e.store.Calls().BatchRead)
}

func TestRewriteBatchesDistinctPages(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Alpha", "[[Alpha|A]]")
	e.setPrimary("Beta", "[[Beta|B]]")
	e.register("Gamma")
	s := e.session("Source")

	out, err := s.Rewrite(context.Background(), "[[Alpha]] [[Beta]] [[Gamma]] [[Alpha]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[[Alpha|A]] [[Beta|B]] [[Gamma]] [[Alpha|A]]", out)
	assert.Equal(t, 1, e.store.Calls().BatchRead, "one batched read per render pass")
}

func TestRewriteSkipsNamespacesWithoutCapability(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Talk:Foo", "[[Talk:Foo|chatter]]")
	s := e.session("Source")

	input := "see [[Talk:Foo]]"
	out, err := s.Rewrite(context.Background(), input, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, input, out)
	assert.Equal(t, 0, e.store.Calls().BatchRead)
}

func TestRewriteSanitizesReplacementText(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|<b>bold</b>]]")

	e.register("Source")
	pt, ok := e.titles.Resolve("Source")
	require.True(t, ok)
	s := NewSession(Deps{
		Titles:    e.titles,
		Store:     e.store,
		Sanitizer: sanitizerFunc(func(m string) string { return strings.ReplaceAll(m, "<b>", "<strong>") }),
	}, pt)

	out, err := s.Rewrite(context.Background(), "x [[Foo]]", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>")
}

type sanitizerFunc func(string) string

func (f sanitizerFunc) Sanitize(m string) string { return f(m) }

func TestRewriteRecursionGuard(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|nice]]")
	e.register("Source")
	pt, ok := e.titles.Resolve("Source")
	require.True(t, ok)

	var s *Session
	reentered := false
	s = NewSession(Deps{
		Titles: e.titles,
		Store:  e.store,
		Sanitizer: sanitizerFunc(func(m string) string {
			// Sanitization re-enters the rewriter; the inner call must no-op.
			inner, err := s.Rewrite(context.Background(), "[[Foo]]", nil, nil)
			require.NoError(t, err)
			require.Equal(t, "[[Foo]]", inner)
			reentered = true
			return m
		}),
	}, pt)

	out, err := s.Rewrite(context.Background(), "x [[Foo]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "x [[Foo|nice]]", out)
	assert.True(t, reentered)
}

func TestRewriteLinkTrailExclusionAtSubstitution(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Bus", "[[Bus|the bus]]")
	s := e.session("Source")

	out, err := s.Rewrite(context.Background(), "[[Bus]] but [[Bus]]es stay", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[[Bus|the bus]] but [[Bus]]es stay", out)
}

func TestRewriteBudgetCharged(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|a much longer display text]]")
	s := e.session("Source")

	b := budget.New(1000)
	input := "x [[Foo]]"
	out, err := s.Rewrite(context.Background(), input, nil, b)
	require.NoError(t, err)
	assert.Equal(t, "x [[Foo|a much longer display text]]", out)
	assert.Equal(t, int64(len(out)-len(input)), b.Used())
}

func TestRewriteBudgetOverrunRollsBackFully(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|a much longer display text]]")
	e.setPrimary("Bar", "[[Bar|b]]")
	s := e.session("Source")

	b := budget.New(3)
	input := "[[Bar]] and [[Foo]]"
	out, err := s.Rewrite(context.Background(), input, nil, b)
	require.Error(t, err)
	assert.True(t, budget.IsLimitExceeded(err))
	assert.Equal(t, input, out, "an overrun discards every substitution, not just the overflowing one")
	assert.Equal(t, int64(0), b.Used())
}

func TestRewriteShrinkingSubstitutionNotCharged(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Lengthy Page Name", "[[LPN|x]]")
	s := e.session("Source")

	// The replacement is 12 bytes shorter than the occurrence, so even a
	// 1-byte budget is untouched.
	b := budget.New(1)
	out, err := s.Rewrite(context.Background(), "see [[Lengthy Page Name]]!", nil, b)
	require.NoError(t, err)
	assert.Equal(t, "see [[LPN|x]]!", out)
	assert.Equal(t, int64(0), b.Used())
}

func TestRewritePageWideOptOutMarker(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|nice]]")
	s := e.session("Source")
	ctx := context.Background()
	opts := &RewriteOptions{}

	out, err := s.Rewrite(ctx, "__NODEFAULTLINKS__ see [[Foo]]", opts, nil)
	require.NoError(t, err)
	assert.Equal(t, " see [[Foo]]", out, "the marker is removed, substitution skipped")

	// The context stays suppressed for later passes in the same session.
	out, err = s.Rewrite(ctx, "again [[Foo]]", opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "again [[Foo]]", out)

	// A different render context is unaffected.
	out, err = s.Rewrite(ctx, "fresh [[Foo]]", &RewriteOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh [[Foo|nice]]", out)
}

func TestRewriteSuppressedContextStillStripsMarker(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|nice]]")
	s := e.session("Source")
	opts := &RewriteOptions{}
	s.Suppress(opts)

	out, err := s.Rewrite(context.Background(), "x __NODEFAULTLINKS__ [[Foo]]", opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "x  [[Foo]]", out, "the marker never leaks into output")
}

func TestRewriteMarkerInsideNowikiIsLiteral(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|nice]]")
	s := e.session("Source")

	out, err := s.Rewrite(context.Background(), "<nowiki>__NODEFAULTLINKS__</nowiki> [[Foo]]", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "<nowiki>__NODEFAULTLINKS__</nowiki> [[Foo|nice]]", out)
}

func TestWithSuppressedRestoresOnPanic(t *testing.T) {
	e := newEnv(t)
	e.setPrimary("Foo", "[[Foo|nice]]")
	s := e.session("Source")
	ctx := context.Background()
	opts := &RewriteOptions{}

	func() {
		defer func() { _ = recover() }()
		_ = s.WithSuppressed(opts, func() error {
			out, err := s.Rewrite(ctx, "[[Foo]]", opts, nil)
			require.NoError(t, err)
			require.Equal(t, "[[Foo]]", out)
			panic("render blew up")
		})
	}()

	assert.False(t, s.IsSuppressed(opts), "suppression scope must unwind with the stack")
	out, err := s.Rewrite(ctx, "[[Foo]]", opts, nil)
	require.NoError(t, err)
	assert.Equal(t, "[[Foo|nice]]", out)
}
