package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration of the PlayLine service.
type Bootstrap struct {
	Server     *Server
	Data       *Data
	Log        *Log
	Resilience *Resilience
	Monitor    *Monitor
}

// Server holds transport settings.
type Server struct {
	Http *Server_HTTP
	// AdminToken guards administrative circuit operations (reset).
	// Empty disables them.
	AdminToken string
}

// Server_HTTP is the HTTP listener configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage settings.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database is the MySQL connection used by the circuit event log.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis is the redis connection backing the fallback cache.
type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int32
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Resilience configures the circuit registry.
type Resilience struct {
	// MaxEndpoints bounds the number of tracked endpoints per breaker (LRU).
	MaxEndpoints int32
	Generic      *Breaker
	Stats        *Breaker
	Odds         *Breaker
	Llm          *Breaker
	Search       *Breaker
}

// Breaker is the tuning of one upstream category.
type Breaker struct {
	FailureThreshold int32
	RecoveryTimeout  *durationpb.Duration
	HalfOpenRequests int32
	ResetTimeout     *durationpb.Duration
}

// Monitor configures the periodic health snapshot.
type Monitor struct {
	HealthInterval *durationpb.Duration
	// SlowRequestThreshold is the request duration above which the HTTP
	// logging middleware emits a slow request warning.
	SlowRequestThreshold *durationpb.Duration
}
