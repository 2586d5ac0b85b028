// Package logger builds the application-wide zap logger and adapts it to the
// logging interface expected by the asynq server.
package logger

import (
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a zap logger for the given environment.
// "production" yields JSON output at info level; anything else yields a
// development console logger with colored levels.
func New(environment string) (*zap.Logger, error) {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// Adapter exposes a *zap.SugaredLogger through the asynq.Logger interface so
// the asynq server's internal logging flows through the same sink as ours.
type Adapter struct {
	sugar *zap.SugaredLogger
}

// NewAdapter wraps l in an asynq-compatible adapter.
func NewAdapter(l *zap.Logger) *Adapter {
	// Skip one caller frame so log lines point at asynq, not the adapter.
	return &Adapter{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug logs a message at debug level.
func (a *Adapter) Debug(args ...interface{}) { a.sugar.Debug(args...) }

// Info logs a message at info level.
func (a *Adapter) Info(args ...interface{}) { a.sugar.Info(args...) }

// Warn logs a message at warn level.
func (a *Adapter) Warn(args ...interface{}) { a.sugar.Warn(args...) }

// Error logs a message at error level.
func (a *Adapter) Error(args ...interface{}) { a.sugar.Error(args...) }

// Fatal logs a message at fatal level and exits.
func (a *Adapter) Fatal(args ...interface{}) { a.sugar.Fatal(args...) }

var _ asynq.Logger = (*Adapter)(nil)
