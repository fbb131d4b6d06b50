package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "playline_request_context"

// RequestContext carries tracing information for one HTTP request.
type RequestContext struct {
	RequestID string
	Operation string
	StartTime time.Time
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 字符集（小写字母 + 数字）
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a 10 character base36 id, e.g. mgrn0zfqda.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext 将 RequestContext 注入到 Context 中
func WithRequestContext(ctx context.Context, requestID, operation string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		Operation: operation,
		StartTime: time.Now(),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext returns the RequestContext stored in ctx, or an "unknown" placeholder.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID 从 Context 中提取 Request ID
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime returns the request age in milliseconds.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
