package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

// NewLogger builds a console logger writing to stderr at the given level
// (debug, info, warn, error).
func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

// NewRunID returns an identifier for a single command invocation.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID tags every entry with the invocation's run id.
func (l *Logger) WithRunID(runID string) *zap.Logger {
	if runID == "" {
		return l.Logger
	}
	return l.With(zap.String("run_id", runID))
}
