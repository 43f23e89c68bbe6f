package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and coloring for the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Color  bool   // console only
}

var (
	global *zap.Logger
	level  = zap.NewAtomicLevel()
	once   sync.Once
)

// DefaultConfig reads LOG_LEVEL, LOG_FORMAT, NO_COLOR and LOG_COLOR.
func DefaultConfig() Config {
	return Config{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "console"),
		Color:  shouldEnableColor(),
	}
}

// New builds a logger writing to w. The level is shared with the global
// logger so SetLevel affects both.
func New(cfg Config, w io.Writer) *zap.Logger {
	level.SetLevel(parseLevel(cfg.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		if cfg.Color {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			enc = NewColoredConsoleEncoder(encCfg)
		} else {
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Level == "debug" {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level), opts...)
}

// Initialize sets the global logger once.
func Initialize(cfg Config) {
	once.Do(func() {
		global = New(cfg, os.Stdout)
	})
}

// Get returns the global logger, initializing it from the environment if
// nobody called Initialize.
func Get() *zap.Logger {
	if global == nil {
		Initialize(DefaultConfig())
	}
	return global
}

func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// SetLevel changes the level at runtime, used when the config is reloaded.
func SetLevel(lvl string) {
	level.SetLevel(parseLevel(lvl))
}

func Level() zapcore.Level {
	return level.Level()
}

func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.ToLower(value)
	}
	return fallback
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// shouldEnableColor honours https://no-color.org/ first, then LOG_COLOR.
func shouldEnableColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if val := os.Getenv("LOG_COLOR"); val != "" {
		return val == "true" || val == "1"
	}
	return true
}
