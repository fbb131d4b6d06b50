// Package main is the entry point of the PlayLine service.
// It initializes the Kratos application with the circuit ops HTTP server
// and the health snapshot job.
package main

import (
	"flag"
	"os"

	"PlayLine/internal/biz"
	"PlayLine/internal/conf"
	"PlayLine/internal/data"
	zapLogger "PlayLine/pkg/log"
	"PlayLine/pkg/metrics"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = zapLogger.ServiceName
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, hc *HealthCron) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			hc,
		),
	)
}

// newCircuitListeners attaches metrics and the event log to every breaker.
func newCircuitListeners(m *metrics.CircuitMetrics, events *data.CircuitEventLog) []biz.CircuitListener {
	return []biz.CircuitListener{m, events}
}

func main() {
	flag.Parse()

	// Load configuration using Viper with environment variable and CLI flag support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	logger := zapLogger.NewKratosAdapter(zapLog)

	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)

	zapLogger.NewLogHelper(logger).Startup("PlayLine service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"http.addr", bc.Server.Http.Addr,
		"resilience.max_endpoints", bc.Resilience.MaxEndpoints,
		"monitor.health_interval", bc.Monitor.HealthInterval.AsDuration().String(),
		"data.database.dsn", bc.Data.Database.Source,
		"admin.enabled", bc.Server.AdminToken != "",
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Resilience, bc.Monitor, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
