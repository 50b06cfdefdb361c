// Package daemon keeps the vault continuously rendered: a filesystem watcher
// and a periodic scheduler both enqueue render jobs on one channel consumed by
// a single render loop, so passes never overlap.
package daemon

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/linktext/internal/config"
	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/logfields"
)

// RenderTrigger names why a render pass was requested.
type RenderTrigger string

const (
	TriggerStartup  RenderTrigger = "startup"
	TriggerWatch    RenderTrigger = "watch"
	TriggerSchedule RenderTrigger = "schedule"
)

// RenderFunc performs one full render pass.
type RenderFunc func(ctx context.Context, trigger RenderTrigger) error

// Daemon owns the watcher, the scheduler and the render loop.
type Daemon struct {
	cfg    *config.Config
	render RenderFunc

	jobs      chan RenderTrigger
	watcher   *Watcher
	scheduler *Scheduler

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
	cancel  context.CancelFunc
}

// New creates a daemon rendering via render on every trigger.
func New(cfg *config.Config, render RenderFunc) (*Daemon, error) {
	d := &Daemon{
		cfg:    cfg,
		render: render,
		// Capacity one: a pending job absorbs any number of further triggers.
		jobs: make(chan RenderTrigger, 1),
	}

	watcher, err := NewWatcher(cfg.Source.Dir, func() { d.enqueue(TriggerWatch) })
	if err != nil {
		return nil, err
	}
	d.watcher = watcher

	scheduler, err := NewScheduler(cfg.Render.IntervalDuration(), func() { d.enqueue(TriggerSchedule) })
	if err != nil {
		watcher.Close()
		return nil, err
	}
	d.scheduler = scheduler

	return d, nil
}

// Start launches the render loop, the watcher and the scheduler, and enqueues
// one startup render. It does not block.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return apperrors.New(apperrors.CategoryDaemon, apperrors.SeverityError,
			"daemon already started")
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.renderLoop(ctx)
	}()

	if err := d.watcher.Start(ctx); err != nil {
		d.cancel()
		return err
	}
	d.scheduler.Start()

	d.enqueue(TriggerStartup)
	slog.Info("Daemon started",
		logfields.Path(d.cfg.Source.Dir),
		slog.Duration("interval", d.cfg.Render.IntervalDuration()))
	return nil
}

// Stop shuts the daemon down, bounded by ctx.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return nil
	}
	d.started = false

	if err := d.scheduler.Stop(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	d.watcher.Close()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue requests a render pass. A pending request already covers this one.
func (d *Daemon) enqueue(trigger RenderTrigger) {
	select {
	case d.jobs <- trigger:
	default:
	}
}

func (d *Daemon) renderLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-d.jobs:
			slog.Info("Render pass triggered", logfields.Stage(string(trigger)))
			if err := d.render(ctx, trigger); err != nil {
				slog.Error("Render pass failed",
					logfields.Stage(string(trigger)),
					logfields.Error(err))
			}
		}
	}
}
