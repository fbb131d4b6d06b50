package log

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func testEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

func TestStatusEmoji(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "🟢"},
		{302, "🟡"},
		{404, "🟠"},
		{503, "🔴"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusEmoji(tt.status))
	}
}

func TestStateEmoji(t *testing.T) {
	assert.Equal(t, "🔴", stateEmoji("OPEN"))
	assert.Equal(t, "🟡", stateEmoji("HALF_OPEN"))
	assert.Equal(t, "🟢", stateEmoji("CLOSED"))
	assert.Empty(t, stateEmoji("UNKNOWN"))
}

func TestAddEmojiToMap(t *testing.T) {
	AddEmojiToMap("test_custom", "🧪")
	t.Cleanup(func() {
		emojiMu.Lock()
		delete(emojiMap, "test_custom")
		emojiMu.Unlock()
	})

	m := GetEmojiMap()
	assert.Equal(t, "🧪", m["test_custom"])

	// GetEmojiMap returns a copy
	m["circuit"] = "x"
	assert.Equal(t, "🔌", GetEmojiMap()["circuit"])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0ms", formatDuration(0))
	assert.Equal(t, "999ms", formatDuration(999))
	assert.Equal(t, "1.0s", formatDuration(1000))
	assert.Equal(t, "2.5s", formatDuration(2500))
}

func TestEmojiConsoleEncoder_EncodeEntry(t *testing.T) {
	encoder := NewEmojiConsoleEncoder(testEncoderConfig())

	tests := []struct {
		name          string
		level         zapcore.Level
		fields        []zapcore.Field
		expectedEmoji string
	}{
		{"circuit type", zapcore.InfoLevel, []zapcore.Field{zap.String("type", "circuit")}, "🔌"},
		{"state beats type", zapcore.WarnLevel, []zapcore.Field{zap.String("type", "circuit"), zap.String("to_state", "OPEN")}, "🔴"},
		{"status beats state", zapcore.InfoLevel, []zapcore.Field{zap.String("to_state", "OPEN"), zap.Int64("status", 200)}, "🟢"},
		{"fallback type", zapcore.InfoLevel, []zapcore.Field{zap.String("type", "fallback")}, "🛟"},
		{"unknown type uses level", zapcore.WarnLevel, []zapcore.Field{zap.String("type", "nope")}, "⚠️"},
		{"error level default", zapcore.ErrorLevel, nil, "❌"},
		{"debug level default", zapcore.DebugLevel, nil, "🐛"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := encoder.EncodeEntry(zapcore.Entry{Level: tt.level, Message: "hello"}, tt.fields)
			require.NoError(t, err)
			defer buf.Free()

			assert.True(t, strings.Contains(buf.String(), tt.expectedEmoji+" hello"), buf.String())
		})
	}
}

func TestEmojiConsoleEncoder_Clone(t *testing.T) {
	encoder := NewEmojiConsoleEncoder(testEncoderConfig())
	cloned := encoder.Clone()

	_, ok := cloned.(*EmojiConsoleEncoder)
	assert.True(t, ok)
}
