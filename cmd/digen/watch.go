package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// watcher reruns regen when the manifest or a package source file changes.
type watcher struct {
	log      *zap.Logger
	manifest string
	out      string
	debounce time.Duration
	regen    func(context.Context) error
}

// run blocks until ctx is done. Regeneration errors are logged and watching
// continues, so a half-edited source file does not stop the loop.
func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.manifest)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.ToSlash(dir), err)
	}
	w.log.Info("watching", zap.String("dir", filepath.ToSlash(dir)))

	debounce := w.debounce
	if debounce <= 0 {
		debounce = watchDebounce
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("change detected", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.regen(ctx); err != nil {
				w.log.Error("regenerate failed", zap.Error(err))
				continue
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(ev.Name)
	if name == filepath.Clean(w.manifest) {
		return true
	}
	if w.out != "" && name == filepath.Clean(w.out) {
		return false
	}
	return isSourceFile(filepath.Base(name))
}
