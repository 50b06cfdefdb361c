package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsurePageIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.EnsurePage(ctx, "", "Main page")
	require.NoError(t, err)
	id2, err := s.EnsurePage(ctx, "", "Main page")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := s.EnsurePage(ctx, "Help", "Main page")
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestArticleID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.EnsurePage(ctx, "", "Foo")
	require.NoError(t, err)

	got, err := s.ArticleID("", "Foo")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	missing, err := s.ArticleID("", "Bar")
	require.NoError(t, err)
	assert.Equal(t, int64(0), missing)
}

func TestWriteAndBatchRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	foo, err := s.EnsurePage(ctx, "", "Foo")
	require.NoError(t, err)
	bar, err := s.EnsurePage(ctx, "", "Bar")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, foo, PropPrimary, "[[Foo|the foo page]]"))
	require.NoError(t, s.Write(ctx, foo, PropFragments, "history\n[[Foo#History|long ago]]"))
	require.NoError(t, s.Write(ctx, bar, PropPrimary, "[[Bar|a bar]]"))

	rows, err := s.BatchRead(ctx, []int64{foo, bar}, []string{PropPrimary, PropFragments})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	got := make(map[int64]map[string]string)
	for _, r := range rows {
		if got[r.PageID] == nil {
			got[r.PageID] = make(map[string]string)
		}
		got[r.PageID][r.Prop] = r.Value
	}
	assert.Equal(t, "[[Foo|the foo page]]", got[foo][PropPrimary])
	assert.Equal(t, "history\n[[Foo#History|long ago]]", got[foo][PropFragments])
	assert.Equal(t, "[[Bar|a bar]]", got[bar][PropPrimary])
}

func TestWriteOverwritesAndEmptyDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.EnsurePage(ctx, "", "Foo")
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, id, PropPrimary, "first"))
	require.NoError(t, s.Write(ctx, id, PropPrimary, "second"))

	rows, err := s.BatchRead(ctx, []int64{id}, []string{PropPrimary})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Value)

	require.NoError(t, s.Write(ctx, id, PropPrimary, ""))
	rows, err = s.BatchRead(ctx, []int64{id}, []string{PropPrimary})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBatchReadMissingKeysYieldNoRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows, err := s.BatchRead(ctx, []int64{42, 43}, []string{PropPrimary, PropFragments})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.BatchRead(ctx, nil, []string{PropPrimary})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.EnsurePage(ctx, "", "Doomed")
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, id, PropPrimary, "text"))

	require.NoError(t, s.DeleteAll(ctx, id))

	rows, err := s.BatchRead(ctx, []int64{id}, []string{PropPrimary})
	require.NoError(t, err)
	assert.Empty(t, rows)

	got, err := s.ArticleID("", "Doomed")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestAllPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.EnsurePage(ctx, "", "A")
	require.NoError(t, err)
	_, err = s.EnsurePage(ctx, "Help", "B")
	require.NoError(t, err)

	pages, err := s.AllPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "A", pages[0].Name)
	assert.Equal(t, "Help", pages[1].Namespace)
}
