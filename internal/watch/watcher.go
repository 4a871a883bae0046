package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// DefaultDebounce is used when the caller supplies no debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher observes a single file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// New constructs a watcher for path.
func New(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		logger:   logging.NewComponentLogger(logger, "watch"),
	}, nil
}

// Run calls fn once, then again after each burst of changes to the file has
// been quiet for the debounce interval. fn runs on the calling goroutine, so
// runs never overlap. Errors from fn are logged and watching continues. Run
// returns nil when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "watch", "create watcher", "", err)
	}
	defer watcher.Close()

	// Editors often replace files by rename, so the directory is watched.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "watch directory", dir, err)
	}
	w.logger.Info("watching content unit",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("path", w.path),
		logging.Duration("debounce", w.debounce),
	)

	w.runOnce(ctx, fn)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"))
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("content unit changed", logging.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a change may have been missed"),
			)
		case <-fire:
			fire = nil
			w.runOnce(ctx, fn)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.ErrorWithContext(w.logger, "rebuild failed", "watch_build_failed",
			logging.String("failure_class", services.Classify(err)),
			logging.String(logging.FieldErrorHint, "fix the content unit and save again"),
			logging.Error(err),
		)
	}
}
