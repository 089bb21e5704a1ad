// Package watch runs a callback when a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/adamancini/gamedeck/internal/logging"
)

// DefaultDebounce coalesces the burst of writes Steam makes while it
// rewrites its manifest.
const DefaultDebounce = 2 * time.Second

// Trigger is run once per settled change.
type Trigger func(ctx context.Context) error

// Watcher watches one file. The parent directory is watched so the file
// may be replaced by rename or created later.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	trigger  Trigger
	log      *logrus.Entry

	mu   sync.Mutex
	runs int
}

// New creates a watcher for path. A non-positive debounce uses DefaultDebounce.
func New(path string, debounce time.Duration, trigger Trigger) (*Watcher, error) {
	if trigger == nil {
		return nil, fmt.Errorf("watch: trigger is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fw,
		path:     abs,
		debounce: debounce,
		trigger:  trigger,
		log:      logging.NewLogger("watch").WithField("path", abs),
	}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Runs returns how many times the trigger has run.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Run blocks until ctx is cancelled or the watcher fails. Trigger errors are
// logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.log.Debugf("fsnotify event op=%v", event.Op)
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			// Trailing edge: wait until writes have stopped for the full window.
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case <-fire:
			w.log.Info("file changed, running pass")
			if err := w.trigger(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.WithError(err).Error("pass failed")
			}
			w.mu.Lock()
			w.runs++
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
