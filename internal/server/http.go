package server

import (
	"context"

	"PlayLine/internal/conf"
	"PlayLine/internal/server/middleware"
	"PlayLine/internal/service"
	pkglog "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, m *conf.Monitor, circuitService *service.CircuitService, logger log.Logger) *http.Server {
	// 创建增强的日志辅助器
	logHelper := pkglog.NewLogHelper(log.With(logger, "module", "server/http"))

	var slowThreshold = middleware.DefaultSlowRequestThreshold
	if m != nil && m.SlowRequestThreshold != nil {
		slowThreshold = m.SlowRequestThreshold.AsDuration()
	}

	var adminToken string
	if c != nil {
		adminToken = c.AdminToken
	}

	// 仅保护熔断器重置
	adminOnly := selector.Server(middleware.AdminAuth(adminToken, logHelper)).
		Match(isAdminOperation).
		Build()

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logHelper, slowThreshold), // 请求日志中间件：记录请求方法、路径、耗时
			adminOnly,
		),
	}
	if c != nil && c.Http != nil {
		if c.Http.Network != "" {
			opts = append(opts, http.Network(c.Http.Network))
		}
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != nil {
			opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
		}
	}
	srv := http.NewServer(opts...)

	service.RegisterCircuitHTTPServer(srv, circuitService)

	return srv
}

func isAdminOperation(_ context.Context, operation string) bool {
	return operation == service.OperationResetCircuit
}
