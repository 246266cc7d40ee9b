package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: VerbosityInfo},
		{name: "Console output mode", jsonOutput: false, verbosity: VerbosityInfo},
		{name: "Console output, trace verbosity", jsonOutput: false, verbosity: VerbosityTrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Error("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}

			if Logger != nil {
				Logger.Sync()
				Logger = nil
			}
		})
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		name        string
		setupLogger bool
	}{
		{name: "Cleanup with initialized logger", setupLogger: true},
		{name: "Cleanup with nil logger", setupLogger: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupLogger {
				Logger = newTestLogger(t)
			} else {
				Logger = nil
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Cleanup() panicked unexpectedly: %v", r)
				}
			}()

			Cleanup()

			if tt.setupLogger && Logger == nil {
				t.Error("Cleanup() should not nil out the logger")
			}
			Logger = nil
		})
	}
}

func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zapLogger, err := config.Build()
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return zapLogger.Sugar()
}

func TestLoggingFunctions(t *testing.T) {
	Logger = newTestLogger(t)
	defer func() {
		Logger.Sync()
		Logger = nil
	}()

	t.Run("Info functions", func(t *testing.T) {
		Info("test")
		Infof("test %s", "format")
		Infow("test", FieldLevel, 1)
	})

	t.Run("Error functions", func(t *testing.T) {
		Error("test")
		Errorf("test %s", "format")
		Errorw("test", FieldError, "boom")
	})

	t.Run("Warn functions", func(t *testing.T) {
		Warn("test")
		Warnw("test", FieldNeighbor, "10.0.0.1")
	})

	t.Run("Debug functions", func(t *testing.T) {
		Debug("test")
		Debugf("test %s", "format")
		Debugw("test", FieldQSPNID, 42)
	})
}

func TestLoggingFunctionsNilLogger(t *testing.T) {
	Logger = nil
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("logging with nil Logger panicked: %v", r)
		}
	}()
	Info("test")
	Error("test")
	Warn("test")
	Debug("test")
	Infow("test", "k", "v")
}
