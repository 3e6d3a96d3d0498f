package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay is how long the config file must stay quiet before a change
// triggers a re-evaluation. Editors commonly save with truncate + write or
// write + rename, which fire several events for one save.
var reloadDelay = 150 * time.Millisecond

// Watch monitors path and calls onChange with the newly loaded Config after
// each save. Bursts of events closer together than reloadDelay are coalesced
// into a single reload, so one save runs one evaluation. Watch runs until ctx
// is cancelled.
//
// A reload that fails (invalid YAML, a threshold out of range) is logged and
// skipped; the evaluation from the previous config stays current.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	quiet := time.NewTimer(reloadDelay)
	quiet.Stop()
	defer quiet.Stop()
	var pending <-chan time.Time
	coalesced := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves replace the file, so Create counts as a change too.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(reloadDelay)
			pending = quiet.C
			coalesced++

		case <-pending:
			pending = nil
			// An atomic save leaves the watch on the old inode.
			_ = watcher.Add(path)

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous evaluation",
					"path", path, "err", err)
				coalesced = 0
				continue
			}
			slog.Info("config: reloaded", "path", path, "events", coalesced)
			coalesced = 0
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
