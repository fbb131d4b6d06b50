//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"PlayLine/internal/biz"
	"PlayLine/internal/conf"
	"PlayLine/internal/data"
	"PlayLine/internal/server"
	"PlayLine/internal/service"
	"PlayLine/pkg/metrics"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Resilience, *conf.Monitor, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		metrics.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		server.ProviderSet,
		newCircuitListeners,
		newHealthCron,
		newApp,
	))
}

