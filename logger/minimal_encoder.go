package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Color palette for console output. Single calm theme — a forest-green
// palette with amber for warnings/errors, inspired by the teacher's
// multi-theme encoder but collapsed to one scheme since this engine has
// no end-user theming surface to pick from.
const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorFg     = "\x1b[38;5;223m"
	colorTime   = "\x1b[38;5;107m"
	colorID     = "\x1b[38;5;109m"
	colorNum    = "\x1b[38;5;108m"
	colorWarn   = "\x1b[38;5;179m"
	colorWarnBg = "\x1b[48;5;58m"
	colorErr    = "\x1b[38;5;167m"
	colorErrBg  = "\x1b[48;5;52m"
)

var currentTheme = "forest"

// SetTheme is kept for config/env compatibility; the engine currently ships
// a single console theme so this only validates the name.
func SetTheme(theme string) {
	if theme == "forest" {
		currentTheme = theme
	}
}

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  qspn  Round closed  level=1 qspn_id=18"
type minimalEncoder struct {
	zapcore.Encoder
	buf *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return &minimalEncoder{Encoder: base, buf: buffer.NewPool().Get()}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone(), buf: buffer.NewPool().Get()}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorID)
		final.AppendString(ent.LoggerName)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if len(fields) > 0 {
		final.AppendString("  ")
		final.AppendString(extractFieldValues(fields))
	}

	final.AppendString("\n")
	return final, nil
}

func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarn + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErr + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorErrBg + colorErr + level.CapitalString() + colorReset
	default:
		return ""
	}
}

func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	default:
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface)
		}
		return ""
	}
}

// extractFieldValues renders the fields an operator cares about most at a
// glance (level/qspn_id/rtt/hops) in a compact "key=value" trailer; the
// rest remain available via Logger.With for JSON mode.
func extractFieldValues(fields []zapcore.Field) string {
	var parts []string
	for _, f := range fields {
		switch f.Key {
		case FieldLevel, FieldQSPNID, FieldSubID, FieldHops, FieldNotClosed, FieldNotOpened, FieldCount:
			if v := getFieldValue(f); v != "" {
				parts = append(parts, f.Key+"="+colorNum+v+colorReset)
			}
		case FieldRTTUs:
			if v := getFieldValue(f); v != "" {
				parts = append(parts, "rtt="+colorNum+v+colorReset+"us")
			}
		case FieldNeighbor, FieldNodePos, FieldAddress:
			if v := getFieldValue(f); v != "" {
				parts = append(parts, f.Key+"="+colorID+v+colorReset)
			}
		}
	}
	return strings.Join(parts, " ")
}
