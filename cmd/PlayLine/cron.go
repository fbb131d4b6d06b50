package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PlayLine/internal/biz"
	"PlayLine/internal/conf"
	"PlayLine/internal/data"
	pkglog "PlayLine/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

const defaultHealthInterval = time.Minute

// HealthCron 定时记录熔断器健康快照
// 只读取状态，不触发任何状态转换
type HealthCron struct {
	registry *biz.CircuitRegistry
	data     *data.Data
	interval time.Duration
	cron     *cron.Cron
	log      *pkglog.LogHelper
}

func newHealthCron(registry *biz.CircuitRegistry, d *data.Data, m *conf.Monitor, logger log.Logger) *HealthCron {
	interval := defaultHealthInterval
	if m != nil && m.HealthInterval != nil && m.HealthInterval.AsDuration() > 0 {
		interval = m.HealthInterval.AsDuration()
	}
	return &HealthCron{
		registry: registry,
		data:     d,
		interval: interval,
		cron:     cron.New(),
		log:      pkglog.NewLogHelper(log.With(logger, "module", "cron/health")),
	}
}

// Start implements transport.Server so the job follows the app lifecycle.
func (h *HealthCron) Start(context.Context) error {
	spec := fmt.Sprintf("@every %s", h.interval)
	if _, err := h.cron.AddFunc(spec, h.snapshot); err != nil {
		return fmt.Errorf("failed to register health cron job: %w", err)
	}
	h.cron.Start()
	h.log.Startup("circuit health cron started", "interval", h.interval.String())
	return nil
}

// Stop waits for a running snapshot to finish.
func (h *HealthCron) Stop(ctx context.Context) error {
	select {
	case <-h.cron.Stop().Done():
	case <-ctx.Done():
	}
	return nil
}

func (h *HealthCron) snapshot() {
	health := h.registry.GetCircuitHealth()
	open := health.OpenCircuits()

	kvs := []interface{}{
		"cache_available", h.data.CacheAvailable(),
		"event_store_available", h.data.EventStoreAvailable(),
	}
	if len(open) > 0 {
		kvs = append(kvs, "open", strings.Join(open, ","))
	}
	h.log.Health(health.Healthy, len(health.Circuits), len(open), kvs...)
}
