package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across the engine.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldRequestID = "request_id"
	FieldComponent = "component"

	// QSPN domain
	FieldLevel    = "level"
	FieldQSPNID   = "qspn_id"
	FieldSubID    = "sub_id"
	FieldNodePos  = "node_pos"
	FieldNeighbor = "neighbor"
	FieldOp       = "op"
	FieldSymbol   = "symbol" // component glyph, see symbol.go

	// Timing
	FieldDurationMS = "duration_ms"
	FieldRTTUs      = "rtt_us"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount     = "count"
	FieldHops      = "hops"
	FieldNotClosed = "not_closed"
	FieldNotOpened = "not_opened"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
	FieldDevice  = "device"
)

// Context keys for propagating logging context.
type contextKey string

const (
	runIDKey       contextKey = "logger_run_id"
	requestIDKey   contextKey = "logger_request_id"
	componentKeyCX contextKey = "logger_component"
)

// WithRunID adds the engine run ID to the context for logging.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithRequestID adds a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKeyCX, component)
}

// FieldsFromContext extracts logging fields from context, suitable for use
// with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKeyCX).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component, e.g.
//
//	log := logger.ComponentLogger("radar")
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger carrying additional fields, for
// sub-operations that need extra context (e.g. a single QSPN round).
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
