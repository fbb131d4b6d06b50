package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"PlayLine/internal/biz"
	"PlayLine/internal/conf"
	"PlayLine/internal/data"
	pkglog "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/protobuf/types/known/durationpb"
)

func newTestHealthCron(t *testing.T, m *conf.Monitor) (*HealthCron, *biz.CircuitRegistry, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := pkglog.NewKratosAdapter(zap.New(core))

	b := &conf.Breaker{
		FailureThreshold: 1,
		RecoveryTimeout:  durationpb.New(time.Minute),
		HalfOpenRequests: 1,
		ResetTimeout:     durationpb.New(time.Minute),
	}
	registry, err := biz.NewCircuitRegistry(&conf.Resilience{Generic: b, Stats: b, Odds: b, Llm: b, Search: b}, log.DefaultLogger, nil)
	require.NoError(t, err)

	d, cleanup, err := data.NewData(&conf.Data{}, log.DefaultLogger, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return newHealthCron(registry, d, m, logger), registry, logs
}

func TestHealthCron_Interval(t *testing.T) {
	hc, _, _ := newTestHealthCron(t, nil)
	assert.Equal(t, defaultHealthInterval, hc.interval)

	hc, _, _ = newTestHealthCron(t, &conf.Monitor{HealthInterval: durationpb.New(15 * time.Second)})
	assert.Equal(t, 15*time.Second, hc.interval)

	hc, _, _ = newTestHealthCron(t, &conf.Monitor{HealthInterval: durationpb.New(0)})
	assert.Equal(t, defaultHealthInterval, hc.interval)
}

func TestHealthCron_SnapshotHealthy(t *testing.T) {
	hc, registry, logs := newTestHealthCron(t, nil)
	registry.Stats().RecordSuccess("/v1/standings")

	hc.snapshot()

	entries := logs.FilterField(zap.String("type", "health")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "circuit health: 1 circuits, 0 open", entries[0].Message)
	assert.Equal(t, false, entries[0].ContextMap()["cache_available"])
}

func TestHealthCron_SnapshotUnhealthy(t *testing.T) {
	hc, registry, logs := newTestHealthCron(t, nil)
	registry.Odds().RecordFailure("/v2/lines", errors.New("502"))
	registry.LLM().RecordFailure("/chat", errors.New("overloaded"))

	hc.snapshot()

	entries := logs.FilterField(zap.String("type", "health")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "llm:/chat,odds:/v2/lines", entries[0].ContextMap()["open"])

	// reporting never moves a circuit
	assert.Equal(t, "OPEN", registry.Odds().GetState("/v2/lines").State.String())
}

func TestHealthCron_StartStop(t *testing.T) {
	hc, _, logs := newTestHealthCron(t, &conf.Monitor{HealthInterval: durationpb.New(time.Hour)})

	require.NoError(t, hc.Start(context.Background()))
	assert.Len(t, hc.cron.Entries(), 1)
	assert.NotEmpty(t, logs.FilterField(zap.String("type", "startup")).All())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, hc.Stop(ctx))
}
