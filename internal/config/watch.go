package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// WatchEnvFile monitors the env file holding SMTP credentials and calls
// onChange after re-reading it into the process environment. It runs until
// ctx is cancelled.
//
// If a reload fails (unreadable file, parse error), the error is logged and
// the previous values remain active — WatchEnvFile does not call onChange.
func WatchEnvFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching env file for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := godotenv.Overload(path); err != nil {
				slog.Error("config: env reload failed — keeping previous values",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: env file reloaded", "path", path)
			onChange()

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
