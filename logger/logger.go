package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance, usable before Initialize runs.
	Logger *zap.SugaredLogger
	// JSONOutput tracks whether JSON encoding is currently active.
	JSONOutput bool
)

func init() {
	// A safe no-op logger at package load time prevents nil-pointer panics
	// if a package logs before Initialize runs (e.g. from an init()).
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger. verbosity follows the -v/-vv/-vvv
// CLI convention (see VerbosityToLevel); jsonOutput selects machine-readable
// structured output over the human console encoder.
func Initialize(jsonOutput bool, verbosity int) error {
	JSONOutput = jsonOutput
	loadThemeFromEnv()

	level := VerbosityToLevel(verbosity)

	var zapLogger *zap.Logger
	var err error
	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		zapLogger, err = cfg.Build()
	} else {
		zapLogger = zap.New(
			zapcore.NewCore(
				newMinimalEncoder(),
				zapcore.AddSync(os.Stdout),
				level,
			),
		)
	}
	if err != nil {
		return err
	}

	Logger = zapLogger.Sugar()
	return nil
}

// loadThemeFromEnv picks a console color theme from NETSUKUKU_LOG_THEME.
// Default theme is set in minimal_encoder.go.
func loadThemeFromEnv() {
	if theme := os.Getenv("NETSUKUKU_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}
}

// Cleanup flushes any buffered log entries. A returned error is often
// ignorable for stdout/stderr (e.g. EINVAL on some platforms).
func Cleanup() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

// Info logs an info message.
func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

// Infow logs an info message with structured fields.
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Error logs an error message.
func Error(args ...interface{}) {
	if Logger != nil {
		Logger.Error(args...)
	}
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// Errorw logs an error message with structured fields.
func Errorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, keysAndValues...)
	}
}

// Warn logs a warning message.
func Warn(args ...interface{}) {
	if Logger != nil {
		Logger.Warn(args...)
	}
}

// Warnw logs a warning message with structured fields.
func Warnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, keysAndValues...)
	}
}

// Debug logs a debug message.
func Debug(args ...interface{}) {
	if Logger != nil {
		Logger.Debug(args...)
	}
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Debugw logs a debug message with structured fields.
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
