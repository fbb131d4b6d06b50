// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// Breaker category keys, shared with the circuit registry.
const (
	BreakerGeneric = "generic"
	BreakerStats   = "stats"
	BreakerOdds    = "odds"
	BreakerLLM     = "llm"
	BreakerSearch  = "search"
)

// BreakerNames lists the breaker categories in registry order.
var BreakerNames = []string{BreakerGeneric, BreakerStats, BreakerOdds, BreakerLLM, BreakerSearch}

// breakerDefaults is the tuning per upstream category:
// failure threshold, recovery timeout, half-open probes, reset timeout.
var breakerDefaults = map[string]struct {
	threshold int
	recovery  time.Duration
	halfOpen  int
	reset     time.Duration
}{
	BreakerGeneric: {3, 60 * time.Second, 2, 5 * time.Minute},
	BreakerStats:   {5, 30 * time.Second, 1, 3 * time.Minute},
	BreakerOdds:    {3, 45 * time.Second, 1, 5 * time.Minute},
	BreakerLLM:     {2, 120 * time.Second, 1, 10 * time.Minute},
	BreakerSearch:  {3, 60 * time.Second, 2, 5 * time.Minute},
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with PLAYLINE_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Optional environment variables:
//   - MYSQL_DSN or PLAYLINE_DATA_DATABASE_SOURCE: enables the circuit event log
//   - REDIS_ADDR or PLAYLINE_DATA_REDIS_ADDR: fallback cache address
//   - ADMIN_TOKEN or PLAYLINE_SERVER_ADMIN_TOKEN: enables circuit reset over HTTP
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PLAYLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "PLAYLINE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "PLAYLINE_DATA_REDIS_ADDR")
	_ = v.BindEnv("server.admin_token", "ADMIN_TOKEN", "PLAYLINE_SERVER_ADMIN_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
			AdminToken: v.GetString("server.admin_token"),
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt32("data.redis.db"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		Resilience: &Resilience{
			MaxEndpoints: v.GetInt32("resilience.max_endpoints"),
			Generic:      loadBreaker(v, BreakerGeneric),
			Stats:        loadBreaker(v, BreakerStats),
			Odds:         loadBreaker(v, BreakerOdds),
			Llm:          loadBreaker(v, BreakerLLM),
			Search:       loadBreaker(v, BreakerSearch),
		},
		Monitor: &Monitor{
			HealthInterval:       durationpb.New(v.GetDuration("monitor.health_interval")),
			SlowRequestThreshold: durationpb.New(v.GetDuration("monitor.slow_request_threshold")),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

func loadBreaker(v *viper.Viper, name string) *Breaker {
	prefix := "resilience.breakers." + name + "."
	return &Breaker{
		FailureThreshold: v.GetInt32(prefix + "failure_threshold"),
		RecoveryTimeout:  durationpb.New(v.GetDuration(prefix + "recovery_timeout")),
		HalfOpenRequests: v.GetInt32(prefix + "half_open_requests"),
		ResetTimeout:     durationpb.New(v.GetDuration(prefix + "reset_timeout")),
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// data.database.source is optional: without it the event log is disabled

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.db", 0)
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("resilience.max_endpoints", 1024)
	for name, d := range breakerDefaults {
		prefix := "resilience.breakers." + name + "."
		v.SetDefault(prefix+"failure_threshold", d.threshold)
		v.SetDefault(prefix+"recovery_timeout", d.recovery)
		v.SetDefault(prefix+"half_open_requests", d.halfOpen)
		v.SetDefault(prefix+"reset_timeout", d.reset)
	}

	v.SetDefault("monitor.health_interval", time.Minute)
	v.SetDefault("monitor.slow_request_threshold", time.Second)
}

// Breaker returns the breaker configuration for a category name, or nil.
func (r *Resilience) Breaker(name string) *Breaker {
	if r == nil {
		return nil
	}
	switch name {
	case BreakerGeneric:
		return r.Generic
	case BreakerStats:
		return r.Stats
	case BreakerOdds:
		return r.Odds
	case BreakerLLM:
		return r.Llm
	case BreakerSearch:
		return r.Search
	}
	return nil
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing every invalid field.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.Server == nil || bc.Server.Http == nil || bc.Server.Http.Addr == "" {
		invalid = append(invalid, "server.http.addr")
	}

	if bc.Resilience == nil {
		invalid = append(invalid, "resilience")
	} else {
		if bc.Resilience.MaxEndpoints <= 0 {
			invalid = append(invalid, "resilience.max_endpoints (must be > 0)")
		}
		for _, name := range BreakerNames {
			invalid = append(invalid, validateBreaker(name, bc.Resilience.Breaker(name))...)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}

func validateBreaker(name string, b *Breaker) []string {
	prefix := "resilience.breakers." + name
	if b == nil {
		return []string{prefix}
	}

	var invalid []string
	if b.FailureThreshold <= 0 {
		invalid = append(invalid, prefix+".failure_threshold (must be > 0)")
	}
	if b.HalfOpenRequests <= 0 {
		invalid = append(invalid, prefix+".half_open_requests (must be > 0)")
	}
	if b.RecoveryTimeout.AsDuration() <= 0 {
		invalid = append(invalid, prefix+".recovery_timeout (must be > 0)")
	}
	if b.ResetTimeout.AsDuration() <= 0 {
		invalid = append(invalid, prefix+".reset_timeout (must be > 0)")
	}
	return invalid
}
