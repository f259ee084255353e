package confloader

import "log/slog"

// LevelSource extracts the log level from a freshly loaded configuration.
type LevelSource[T any] func(cfg *T) string

// WatchLogLevel reloads the configuration whenever its file changes and
// applies the new log level through setLevel. newTarget returns the value
// each reload starts from, normally the defaults.
func WatchLogLevel[T any](w *Watcher, l *Loader, newTarget func() *T, level LevelSource[T], setLevel func(string), logger *slog.Logger) {
	w.OnChange(func(path string) {
		cfg := newTarget()
		if err := l.Reload(cfg); err != nil {
			logger.Warn("configuration reload failed, keeping current settings", "path", path, "error", err)
			return
		}
		lvl := level(cfg)
		setLevel(lvl)
		logger.Info("configuration reloaded", "path", path, "log_level", lvl)
	})
}
