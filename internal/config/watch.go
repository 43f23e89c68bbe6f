package config

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch re-reads the config file on change and hands every valid result to
// apply. Rejected documents are logged and the previous state is kept.
func (l *Loader) Watch(logger *zap.Logger, apply func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.reload(e, logger, apply)
	})
	l.v.WatchConfig()
}

func (l *Loader) reload(e fsnotify.Event, logger *zap.Logger, apply func(*Config)) {
	cfg, err := l.decode()
	if err != nil {
		logger.Error("Config reload rejected, keeping previous routing table",
			zap.String("file", e.Name), zap.Error(err))
		return
	}

	logger.Info("Config reloaded",
		zap.String("file", e.Name),
		zap.Stringer("op", e.Op),
		zap.Int("apis", len(cfg.APIs)),
	)
	apply(cfg)
}
