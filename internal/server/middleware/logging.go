package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// DefaultSlowRequestThreshold is used when no threshold is configured.
const DefaultSlowRequestThreshold = time.Second

// Logging 返回一个记录 HTTP 请求日志的中间件
// 自动生成 Request ID、检测慢请求、注入 Request Context
//
// 日志输出示例:
//
//	🟢 POST /v1/circuits/stats/reset - 200 (3ms)
//	🐌 [mgrn0zfqda] Slow request detected | GET /v1/circuits/health | 1500ms
func Logging(logger *pkglog.LogHelper, slowThreshold time.Duration) middleware.Middleware {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowRequestThreshold
	}

	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				operation string
				ip        string
				userAgent string
				requestID string
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				method = tr.Kind().String()
				path = operation

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					if httpReq.URL.RawQuery != "" {
						path = path + "?" + httpReq.URL.RawQuery
					}
					ip = extractClientIP(httpReq)
					userAgent = httpReq.Header.Get("User-Agent")
					requestID = httpReq.Header.Get("X-Request-ID")
				}
			}
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, operation)

			reply, err := handler(ctx, req)

			duration := time.Since(startTime).Milliseconds()
			status := extractHTTPStatus(err)

			kvs := []interface{}{
				"ip", ip,
				"user_agent", userAgent,
			}
			if err != nil {
				kvs = append(kvs, "error", err)
			}
			logger.RequestWithContext(ctx, method, path, status, duration, slowThreshold.Milliseconds(), kvs...)

			return reply, err
		}
	}
}

// extractClientIP 从请求中提取客户端真实 IP
// 优先级: X-Real-IP > X-Forwarded-For > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if idx := strings.LastIndex(req.RemoteAddr, ":"); idx != -1 {
		return req.RemoteAddr[:idx]
	}
	return req.RemoteAddr
}

// extractHTTPStatus 从 Kratos 错误中提取 HTTP 状态码
func extractHTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	return int(errors.FromError(err).Code)
}
