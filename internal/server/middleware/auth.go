// Package middleware provides HTTP middleware for admin authentication and request logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	pkglog "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// ErrAdminDisabled is returned when no admin token is configured.
var ErrAdminDisabled = errors.Unauthorized("ADMIN_DISABLED", "administrative operations are disabled")

// ErrAdminUnauthorized is returned for a missing or wrong admin token.
var ErrAdminUnauthorized = errors.Unauthorized("ADMIN_UNAUTHORIZED", "invalid admin token")

// AdminAuth 校验管理员令牌
// 支持 "Authorization: Bearer {token}" 和 "X-Admin-Token" 两种方式，
// 未配置令牌时拒绝所有请求
func AdminAuth(adminToken string, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			operation := ""
			presented := ""
			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				if ht, ok := tr.(http.Transporter); ok {
					presented = extractAdminToken(ht.Request())
				}
			}

			if adminToken == "" {
				logger.Security("admin operation rejected: no admin token configured",
					"operation", operation,
					"request_id", pkglog.GetRequestID(ctx),
				)
				return nil, ErrAdminDisabled
			}

			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(adminToken)) != 1 {
				logger.Security("admin operation rejected: invalid token",
					"operation", operation,
					"token_present", presented != "",
					"request_id", pkglog.GetRequestID(ctx),
				)
				return nil, ErrAdminUnauthorized
			}

			return handler(ctx, req)
		}
	}
}

// extractAdminToken 优先读取 Authorization，其次 X-Admin-Token
func extractAdminToken(req *http.Request) string {
	if auth := req.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(req.Header.Get("X-Admin-Token"))
}
