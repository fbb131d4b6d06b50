package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// emojiMap 定义日志类型到表情符号的映射
// Log calls that carry a "type" field get the matching icon in console output.
var (
	emojiMu  sync.RWMutex
	emojiMap = map[string]string{
		"circuit":      "🔌",
		"circuit_open": "⛔",
		"fallback":     "🛟",
		"cache":        "📦",
		"quality":      "📊",
		"health":       "🩺",
		"request":      "🌐",
		"slow_request": "🐌",
		"startup":      "🚀",
		"security":     "🔒",
		"audit":        "📋",
		"database":     "💾",
	}
)

// stateEmoji returns the icon for a circuit state name.
func stateEmoji(state string) string {
	switch state {
	case "OPEN":
		return "🔴"
	case "HALF_OPEN":
		return "🟡"
	case "CLOSED":
		return "🟢"
	}
	return ""
}

// statusEmoji 根据 HTTP 状态码返回表情符号
func statusEmoji(status int) string {
	if status >= 500 {
		return "🔴"
	} else if status >= 400 {
		return "🟠"
	} else if status >= 300 {
		return "🟡"
	}
	return "🟢"
}

// EmojiConsoleEncoder wraps the zap ConsoleEncoder and prefixes messages with an icon.
type EmojiConsoleEncoder struct {
	zapcore.Encoder
	config zapcore.EncoderConfig
}

// NewEmojiConsoleEncoder 创建带表情符号的控制台编码器
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		config:  cfg,
	}
}

// EncodeEntry picks an icon by priority: HTTP status, circuit state, type field, then level.
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	var logType, state string
	var status int64

	for _, field := range fields {
		switch {
		case field.Key == "type" && field.Type == zapcore.StringType:
			logType = field.String
		case field.Key == "to_state" && field.Type == zapcore.StringType:
			state = field.String
		case field.Key == "status" && (field.Type == zapcore.Int64Type || field.Type == zapcore.Int32Type):
			status = field.Integer
		}
	}

	emoji := ""
	if status > 0 {
		emoji = statusEmoji(int(status))
	} else if state != "" {
		emoji = stateEmoji(state)
	}
	if emoji == "" && logType != "" {
		emojiMu.RLock()
		emoji = emojiMap[logType]
		emojiMu.RUnlock()
	}

	if emoji == "" {
		switch entry.Level {
		case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
			emoji = "❌"
		case zapcore.WarnLevel:
			emoji = "⚠️"
		case zapcore.InfoLevel:
			emoji = "ℹ️"
		case zapcore.DebugLevel:
			emoji = "🐛"
		}
	}

	if emoji != "" {
		entry.Message = emoji + " " + entry.Message
	}

	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone 克隆编码器（Zap 内部使用）
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{
		Encoder: enc.Encoder.Clone(),
		config:  enc.config,
	}
}

// AddEmojiToMap registers an icon for a custom log type.
func AddEmojiToMap(logType, emoji string) {
	emojiMu.Lock()
	defer emojiMu.Unlock()
	emojiMap[logType] = emoji
}

// GetEmojiMap returns a copy of the current mapping.
func GetEmojiMap() map[string]string {
	emojiMu.RLock()
	defer emojiMu.RUnlock()
	result := make(map[string]string, len(emojiMap))
	for k, v := range emojiMap {
		result[k] = v
	}
	return result
}

// formatDuration 格式化持续时间为易读格式
// 示例: 1ms, 150ms, 2.5s
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	return fmt.Sprintf("%.1fs", seconds)
}
