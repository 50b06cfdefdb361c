package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/logfields"
)

// Watcher monitors the vault tree and fires the callback after a quiet
// period, coalescing editor save bursts into one render.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration

	changes chan struct{}
}

// NewWatcher creates a watcher over the vault root.
func NewWatcher(root string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal,
			"failed to create file watcher")
	}
	return &Watcher{
		root:     root,
		watcher:  fsw,
		onChange: onChange,
		debounce: 2 * time.Second,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Start registers the vault tree and launches the watch goroutines.
// Directories created later are added as they appear.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryDaemon, apperrors.SeverityFatal,
			"failed to watch vault tree").WithContext("root", w.root)
	}

	slog.Info("Watching vault for changes", logfields.Path(w.root))
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() {
	if err := w.watcher.Close(); err != nil {
		slog.Warn("Error closing file watcher", logfields.Error(err))
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories must join the watch set.
				if err := w.watcher.Add(event.Name); err == nil {
					slog.Debug("Watching new path", logfields.Path(event.Name))
				}
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
				event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Vault watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.changes:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.onChange)
		}
	}
}
