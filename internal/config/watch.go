package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Simplici0/waterflow/internal/hydraulics"
)

// WatchSystem reloads the system file at path whenever it changes and
// passes the new system to onChange. It runs until ctx is cancelled.
//
// The parent directory is watched so editors that save by renaming a temp
// file over path keep triggering reloads. A reload that fails to parse or
// validate is logged and onChange is not called, so the previous system
// stays active.
func WatchSystem(ctx context.Context, path string, onChange func(hydraulics.System)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	slog.Info("system: watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			sys, err := LoadSystem(target)
			if err != nil {
				slog.Error("system: reload failed, keeping previous system", "path", target, "op", event.Op.String(), "err", err)
				continue
			}

			slog.Info("system: reloaded", "path", target,
				"supply", sys.Supply.Name,
				"household", sys.Household.Name,
			)
			onChange(sys)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("system: watcher error", "err", err)
		}
	}
}
