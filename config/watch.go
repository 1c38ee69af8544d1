package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mlserve/logging"
)

// Watch re-reads path whenever it changes and applies the new log level.
// Nothing else is reloaded; it runs until ctx is done.
func Watch(ctx context.Context, path string, level zap.AtomicLevel, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				reload(path, level, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func reload(path string, level zap.AtomicLevel, logger *zap.Logger) {
	cfg, err := Load(path)
	if err != nil {
		logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	if err := logging.SetLevel(level, cfg.Log.Level); err != nil {
		logger.Warn("config reload: bad log level", zap.String("level", cfg.Log.Level), zap.Error(err))
		return
	}
	logger.Info("config reloaded", zap.String("log_level", level.Level().String()))
}
