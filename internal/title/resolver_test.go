package title

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	ids map[string]int64
}

func (f *fakeIndex) ArticleID(namespace, name string) (int64, error) {
	key := name
	if namespace != "" {
		key = namespace + ":" + name
	}
	return f.ids[key], nil
}

func testNamespaces() []Namespace {
	return []Namespace{
		{Name: "Help", Aliases: []string{"H"}, LinkText: true},
		{Name: "Talk"},
		{Name: "File", Aliases: []string{"Image"}, File: true},
	}
}

func TestResolveMainNamespace(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("main page")
	require.True(t, ok)
	assert.Equal(t, "", got.Namespace)
	assert.Equal(t, "Main page", got.Name)
	assert.Equal(t, "Main page", got.PrefixedName())
}

func TestResolveUnderscoresAndSpacing(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("  some__odd _ title ")
	require.True(t, ok)
	assert.Equal(t, "Some odd title", got.Name)
}

func TestResolveNamespaceAlias(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("h:contents")
	require.True(t, ok)
	assert.Equal(t, "Help", got.Namespace)
	assert.Equal(t, "Contents", got.Name)
	assert.Equal(t, "Help:Contents", got.PrefixedName())
}

func TestResolveUnknownPrefixStaysInName(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("Unknown:Thing")
	require.True(t, ok)
	assert.Equal(t, "", got.Namespace)
	assert.Equal(t, "Unknown:Thing", got.Name)
}

func TestResolveFragment(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("Page#History of everything")
	require.True(t, ok)
	assert.Equal(t, "Page", got.Name)
	assert.Equal(t, "History of everything", got.Fragment)
}

func TestResolveFragmentOnlySelfLink(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve("#Section")
	require.True(t, ok)
	assert.Equal(t, "", got.Name)
	assert.Equal(t, "", got.PrefixedName())
	assert.Equal(t, "Section", got.Fragment)
}

func TestResolveLeadingColonEscape(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	got, ok := r.Resolve(":File:Logo.png")
	require.True(t, ok)
	assert.Equal(t, "File", got.Namespace)
	assert.Equal(t, "Logo.png", got.Name)
}

func TestResolveInvalid(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	for _, text := range []string{"", "   ", "a<b", "a|b", "bad[name]", "Help:"} {
		_, ok := r.Resolve(text)
		assert.False(t, ok, "expected %q to be invalid", text)
	}
}

func TestResolveArticleID(t *testing.T) {
	idx := &fakeIndex{ids: map[string]int64{"Main page": 7, "Help:Contents": 12}}
	r := NewSiteResolver(testNamespaces(), idx)

	got, ok := r.Resolve("main_page")
	require.True(t, ok)
	assert.Equal(t, int64(7), got.ArticleID)

	got, ok = r.Resolve("Help:Contents")
	require.True(t, ok)
	assert.Equal(t, int64(12), got.ArticleID)

	got, ok = r.Resolve("Missing")
	require.True(t, ok)
	assert.Equal(t, int64(0), got.ArticleID)
}

func TestCapabilities(t *testing.T) {
	r := NewSiteResolver(testNamespaces(), nil)

	assert.True(t, r.HasLinkTextCapability(""))
	assert.True(t, r.HasLinkTextCapability("Help"))
	assert.False(t, r.HasLinkTextCapability("Talk"))
	assert.True(t, r.IsFileNamespace("File"))
	assert.False(t, r.IsFileNamespace("Help"))
}

func TestSameAs(t *testing.T) {
	a := Title{Name: "Foo"}
	b := Title{Name: "foo"}
	assert.True(t, a.SameAs(b))
	assert.False(t, a.SameAs(Title{Namespace: "Help", Name: "Foo"}))
}
