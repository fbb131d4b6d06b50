package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper 扩展 Kratos log.Helper，提供便捷的日志方法
// Every method tags a "type" field so the console encoder can pick an icon.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := make([]interface{}, 0, len(kvs)+4)
	allKvs = append(allKvs, "msg", msg)
	allKvs = append(allKvs, kvs...)
	return append(allKvs, "type", logType)
}

// Circuit logs a circuit state change. OPEN transitions are warnings.
func (h *LogHelper) Circuit(breaker, endpoint, from, to, reason string, kvs ...interface{}) {
	msg := fmt.Sprintf("circuit %s:%s %s -> %s: %s", breaker, endpoint, from, to, reason)
	allKvs := withType(msg, "circuit", kvs)
	allKvs = append(allKvs,
		"breaker", breaker,
		"endpoint", endpoint,
		"from_state", from,
		"to_state", to,
		"reason", reason,
	)
	if to == "OPEN" {
		h.Warnw(allKvs...)
		return
	}
	h.Infow(allKvs...)
}

// CircuitDenied logs a request short-circuited by an OPEN breaker（表情符号: ⛔）
func (h *LogHelper) CircuitDenied(breaker, endpoint, reason string, kvs ...interface{}) {
	allKvs := withType(reason, "circuit_open", kvs)
	allKvs = append(allKvs, "breaker", breaker, "endpoint", endpoint)
	h.Debugw(allKvs...)
}

// Fallback 记录降级路径日志（表情符号: 🛟）
func (h *LogHelper) Fallback(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "fallback", kvs)...)
}

// Cache logs best-effort cache problems. They never fail the caller.
func (h *LogHelper) Cache(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "cache", kvs)...)
}

// Quality 记录数据质量评估日志（表情符号: 📊）
func (h *LogHelper) Quality(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "quality", kvs)...)
}

// Health logs an aggregated circuit health snapshot.
func (h *LogHelper) Health(healthy bool, total, open int, kvs ...interface{}) {
	msg := fmt.Sprintf("circuit health: %d circuits, %d open", total, open)
	allKvs := withType(msg, "health", kvs)
	allKvs = append(allKvs, "healthy", healthy, "circuits", total, "open_circuits", open)
	if !healthy {
		h.Warnw(allKvs...)
		return
	}
	h.Infow(allKvs...)
}

// Startup 记录启动相关日志（表情符号: 🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}

// Security 记录安全相关日志（表情符号: 🔒）
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "security", kvs)...)
}

// Audit 记录审计日志（表情符号: 📋）
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "audit", kvs)...)
}

// Database 记录数据库操作日志（表情符号: 💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "database", kvs)...)
}

// RequestWithContext logs a finished HTTP request and warns when it exceeded slowThresholdMs.
// A non-positive threshold disables the slow request warning.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs, slowThresholdMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%s)", method, url, status, formatDuration(durationMs))
	allKvs := withType(msg, "request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"operation", reqCtx.Operation,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	if status >= 500 {
		h.Errorw(allKvs...)
	} else {
		h.Infow(allKvs...)
	}

	if slowThresholdMs > 0 && durationMs > slowThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, slowThresholdMs)
	}
}

// SlowRequest 记录慢请求警告（表情符号: 🐌）
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := withType(msg, "slow_request", kvs)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
	)
	h.Warnw(allKvs...)
}
