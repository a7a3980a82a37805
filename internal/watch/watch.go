// Package watch re-runs a callback when the rule directory changes.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/raaihank/whatis/internal/logger"
	"go.uber.org/zap"
)

// Watcher observes one rule directory. Bursts of events closer together
// than the debounce interval trigger a single callback.
type Watcher struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
}

// New starts watching dir. Events are not delivered until Run is called.
func New(dir string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		watcher:  fw,
		logger:   log.WithComponent("watch"),
	}, nil
}

// Run calls onChange after each debounced burst of changes until ctx is
// done. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.watcher.Close()

	w.logger.Info("Watching rule directory",
		zap.String("directory", w.dir),
		zap.Duration("debounce", w.debounce))

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
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("Rule directory changed",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			onChange()
		}
	}
}
