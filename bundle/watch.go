package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// Watch builds once, then rebuilds whenever a file in WebDir changes, until
// ctx is done. Failed rebuilds are logged and watching continues.
func Watch(ctx context.Context, opts Options) error {
	if opts.WebDir == "" {
		return errors.New("watch needs a web directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(opts.WebDir); err != nil {
		return fmt.Errorf("watch %s: %w", opts.WebDir, err)
	}

	rebuild := func() {
		if err := Build(opts); err != nil {
			slog.Error("rebuild failed", "err", err)
		}
	}
	rebuild()

	distAbs, _ := filepath.Abs(opts.DistDir)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if inDir(event.Name, distAbs) {
				continue
			}
			slog.Debug("event received", "name", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case <-timer.C:
			rebuild()

		case wErr, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			slog.Error("fsnotify error", "err", wErr)
		}
	}
}

func inDir(name, dir string) bool {
	abs, err := filepath.Abs(name)
	if err != nil || dir == "" {
		return false
	}
	return abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator))
}
