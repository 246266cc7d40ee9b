package logger

import "go.uber.org/zap"

// Component glyphs, logged as structured fields rather than baked into the
// message text so logs stay queryable by component.
const (
	SymRadar   = "◎" // neighbor discovery / RTT scans
	SymQSPN    = "⟁" // round state machine (CLOSE/OPEN)
	SymTracer  = "↯" // tracer packet pack/parse/store
	SymFlood   = "✦" // broadcast dispatcher
	SymRoute   = "⇥" // route installer adapter
	SymMap     = "▦" // map model mutations
)

// RadarInfow logs an info message tagged with the radar symbol.
func RadarInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymRadar}, keysAndValues...)...)
	}
}

// RadarDebugw logs a debug message tagged with the radar symbol.
func RadarDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymRadar}, keysAndValues...)...)
	}
}

// QSPNInfow logs an info message tagged with the qspn symbol.
func QSPNInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymQSPN}, keysAndValues...)...)
	}
}

// QSPNDebugw logs a debug message tagged with the qspn symbol.
func QSPNDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymQSPN}, keysAndValues...)...)
	}
}

// QSPNWarnw logs a warning message tagged with the qspn symbol.
func QSPNWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, append([]interface{}{FieldSymbol, SymQSPN}, keysAndValues...)...)
	}
}

// TracerDebugw logs a debug message tagged with the tracer symbol.
func TracerDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymTracer}, keysAndValues...)...)
	}
}

// FloodDebugw logs a debug message tagged with the flood symbol.
func FloodDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymFlood}, keysAndValues...)...)
	}
}

// RouteInfow logs an info message tagged with the route symbol.
func RouteInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymRoute}, keysAndValues...)...)
	}
}

// RouteErrorw logs an error message tagged with the route symbol.
func RouteErrorw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Errorw(msg, append([]interface{}{FieldSymbol, SymRoute}, keysAndValues...)...)
	}
}

// MapDebugw logs a debug message tagged with the map symbol.
func MapDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymMap}, keysAndValues...)...)
	}
}

// WithSymbol returns a logger carrying the given symbol as a field, for
// ad-hoc use not covered by the helpers above.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}

// SymbolInfow logs with a dynamic symbol value.
func SymbolInfow(symbol, msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, symbol}, keysAndValues...)...)
	}
}
