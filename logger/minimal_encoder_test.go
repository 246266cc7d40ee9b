package logger

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func TestMinimalEncoderFormatsTimeAndMessage(t *testing.T) {
	encoder := newMinimalEncoder()
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Date(2026, 1, 1, 13, 4, 35, 0, time.UTC),
		Message: "round closed",
	}

	buf, err := encoder.EncodeEntry(entry, nil)
	require.NoError(t, err)

	clean := stripANSI(buf.String())
	require.Contains(t, clean, "13:04:35")
	require.Contains(t, clean, "round closed")
}

func TestMinimalEncoderRendersKnownDomainFields(t *testing.T) {
	encoder := newMinimalEncoder()
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "qspn",
		Message:    "round closed",
	}

	fields := []zapcore.Field{
		zap.Int(FieldLevel, 1),
		zap.Int(FieldQSPNID, 42),
		zap.Int64(FieldRTTUs, 1500),
		zap.String(FieldNeighbor, "10.0.0.2"),
	}

	buf, err := encoder.EncodeEntry(entry, fields)
	require.NoError(t, err)

	clean := stripANSI(buf.String())
	require.Contains(t, clean, "level=1")
	require.Contains(t, clean, "qspn_id=42")
	require.Contains(t, clean, "rtt=1500us")
	require.Contains(t, clean, "neighbor=10.0.0.2")
}

func TestMinimalEncoderIgnoresUnknownFieldsInTrailer(t *testing.T) {
	// Unknown fields are intentionally left out of the compact console
	// trailer; callers who need full field fidelity should use JSON mode.
	encoder := newMinimalEncoder()
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Now(),
		Message: "msg",
	}

	fields := []zapcore.Field{zap.String("unlisted_field", "value")}
	buf, err := encoder.EncodeEntry(entry, fields)
	require.NoError(t, err)

	clean := stripANSI(buf.String())
	require.False(t, strings.Contains(clean, "unlisted_field"))
}

func TestLevelColorStringKnownLevels(t *testing.T) {
	require.NotEmpty(t, levelColorString(zapcore.WarnLevel))
	require.NotEmpty(t, levelColorString(zapcore.ErrorLevel))
	require.Empty(t, levelColorString(zapcore.InfoLevel))
}

func TestSetThemeAcceptsKnownTheme(t *testing.T) {
	SetTheme("forest")
	require.Equal(t, "forest", currentTheme)
}
