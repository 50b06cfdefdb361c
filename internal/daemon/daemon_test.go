package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linktext/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Source.Dir = t.TempDir()
	cfg.Render.Interval = "1h"
	return cfg
}

func TestDaemonRunsStartupRender(t *testing.T) {
	cfg := testConfig(t)

	rendered := make(chan RenderTrigger, 1)
	d, err := New(cfg, func(_ context.Context, trigger RenderTrigger) error {
		select {
		case rendered <- trigger:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(context.Background()) }()

	select {
	case trigger := <-rendered:
		assert.Equal(t, TriggerStartup, trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("startup render never ran")
	}
}

func TestDaemonStartTwiceFails(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, func(context.Context, RenderTrigger) error { return nil })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer func() { _ = d.Stop(context.Background()) }()

	assert.Error(t, d.Start(ctx))
}

func TestEnqueueCoalescesPendingTriggers(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, func(context.Context, RenderTrigger) error { return nil })
	require.NoError(t, err)
	defer d.watcher.Close()

	// Without a running render loop, the buffered slot holds exactly one job.
	d.enqueue(TriggerWatch)
	d.enqueue(TriggerSchedule)
	d.enqueue(TriggerWatch)

	assert.Len(t, d.jobs, 1)
	assert.Equal(t, TriggerWatch, <-d.jobs)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var fires atomic.Int32
	w, err := NewWatcher(dir, func() { fires.Add(1) })
	require.NoError(t, err)
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	// A burst of writes within the quiet period fires once.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Page.wiki"), []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fires.Load() >= 1 },
		5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())
}

func TestDaemonStopUnblocks(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, func(context.Context, RenderTrigger) error { return nil })
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, d.Stop(stopCtx))

	// Stopping again is a no-op.
	assert.NoError(t, d.Stop(stopCtx))
}
