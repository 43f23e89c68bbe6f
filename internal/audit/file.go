package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileRecorder appends JSON lines to a file through a dedicated zap core.
type FileRecorder struct {
	logger *zap.Logger
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "event"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = ""
	encoderConfig.CallerKey = ""

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Encoding:          "json",
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{path},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open audit file %s: %w", path, err)
	}

	return &FileRecorder{logger: logger}, nil
}

func (f *FileRecorder) Record(_ context.Context, e Entry) {
	f.logger.Info(e.Event,
		zap.String("request_id", e.RequestID),
		zap.Any("data", e.Data),
	)
}

func (f *FileRecorder) Close() error {
	_ = f.logger.Sync()
	return nil
}
