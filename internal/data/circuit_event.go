package data

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"PlayLine/internal/model"
	perrors "PlayLine/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const circuitEventBuffer = 1000

// ListCircuitEvents page sizes
const (
	defaultEventListLimit = 100
	maxEventListLimit     = 500
)

// column sizes of circuit_event_logs
const (
	maxEndpointLen = 255
	maxReasonLen   = 255
)

// CircuitEvent is the GORM model for the circuit_event_logs table.
type CircuitEvent struct {
	ID        int64      `gorm:"primaryKey;column:id"`
	EventID   string     `gorm:"column:event_id;type:char(36);not null;uniqueIndex"`
	Breaker   string     `gorm:"column:breaker;type:varchar(32);not null;index:idx_breaker_endpoint"`
	Endpoint  string     `gorm:"column:endpoint;type:varchar(255);not null;index:idx_breaker_endpoint"`
	EventType string     `gorm:"column:event_type;type:varchar(32);not null"`
	FromState string     `gorm:"column:from_state;type:varchar(16);not null"`
	ToState   string     `gorm:"column:to_state;type:varchar(16);not null"`
	Reason    string     `gorm:"column:reason;type:varchar(255)"`
	Failures  int        `gorm:"column:failures;not null;default:0"`
	OpenedAt  *time.Time `gorm:"column:opened_at"`
	RetryAt   *time.Time `gorm:"column:retry_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (CircuitEvent) TableName() string {
	return "circuit_event_logs"
}

// MigrateCircuitEvents creates or updates the circuit_event_logs table.
func MigrateCircuitEvents(db *gorm.DB) error {
	if err := db.AutoMigrate(&CircuitEvent{}); err != nil {
		return fmt.Errorf("failed to migrate circuit_event_logs: %w", err)
	}
	return nil
}

// CircuitEventLog persists circuit transitions asynchronously.
// It satisfies the circuit listener contract so it can be attached to every
// breaker in the registry.
type CircuitEventLog struct {
	db      *gorm.DB
	logChan chan *CircuitEvent
	logger  *log.Helper

	// mu guards closed; senders hold the read lock so Close never closes
	// logChan under an in-flight send.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewCircuitEventLog starts the background writer. A nil db yields a log
// that accepts and discards events.
func NewCircuitEventLog(db *gorm.DB, logger log.Logger) (*CircuitEventLog, func(), error) {
	el := &CircuitEventLog{
		db:      db,
		logChan: make(chan *CircuitEvent, circuitEventBuffer),
		logger:  log.NewHelper(log.With(logger, "module", "data/circuit_event")),
		done:    make(chan struct{}),
	}

	if db == nil {
		el.logger.Warnw("msg", "database unavailable, circuit transitions will not be persisted")
		close(el.done)
		return el, func() {}, nil
	}

	go el.start()

	return el, el.Close, nil
}

// start drains the channel until Close.
func (l *CircuitEventLog) start() {
	defer close(l.done)
	for event := range l.logChan {
		err := l.write(event)
		if dbErr := perrors.ClassifyDBError(err); dbErr.Retryable() {
			err = l.write(event)
		}
		if err != nil {
			l.logger.Errorw(
				"msg", "failed to write circuit event",
				"breaker", event.Breaker,
				"endpoint", event.Endpoint,
				"event_type", event.EventType,
				"db_error", perrors.ClassifyDBError(err).Type.String(),
				"error", err,
			)
			continue
		}
		l.logger.Debugw(
			"msg", "circuit event written",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
}

func (l *CircuitEventLog) write(event *CircuitEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.db.WithContext(ctx).Create(event).Error
}

// OnStateChange queues the transition for persistence without blocking.
func (l *CircuitEventLog) OnStateChange(ev model.TransitionEvent) {
	if l.db == nil {
		return
	}

	event := &CircuitEvent{
		EventID:   uuid.NewString(),
		Breaker:   ev.Breaker,
		Endpoint:  truncate(ev.Endpoint, maxEndpointLen),
		EventType: model.AuditEventType(ev),
		FromState: ev.From.String(),
		ToState:   ev.To.String(),
		Reason:    truncate(ev.Reason, maxReasonLen),
		Failures:  ev.Failures,
		OpenedAt:  ev.OpenedAt,
		RetryAt:   ev.RetryAt,
	}
	if !ev.At.IsZero() {
		event.CreatedAt = ev.At
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Warnw("msg", "circuit event log closed, dropping event", "event_type", event.EventType)
		return
	}

	select {
	case l.logChan <- event:
	default:
		l.logger.Warnw(
			"msg", "circuit event channel full, dropping event",
			"breaker", ev.Breaker,
			"endpoint", ev.Endpoint,
			"event_type", event.EventType,
		)
	}
}

// OnFailure is a no-op: individual failures are logged and counted, not persisted.
func (l *CircuitEventLog) OnFailure(model.FailureEvent) {}

// Close stops accepting events and waits for queued ones to be written.
func (l *CircuitEventLog) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		if l.db != nil {
			close(l.logChan)
		}
		l.mu.Unlock()
		<-l.done
	})
}

// ListCircuitEvents returns the most recent persisted transitions, newest first.
func (l *CircuitEventLog) ListCircuitEvents(ctx context.Context, breaker string, limit int) ([]CircuitEvent, error) {
	if l.db == nil {
		return []CircuitEvent{}, nil
	}
	if limit <= 0 {
		limit = defaultEventListLimit
	} else if limit > maxEventListLimit {
		limit = maxEventListLimit
	}

	var events []CircuitEvent
	q := l.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if breaker != "" {
		q = q.Where("breaker = ?", breaker)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list circuit events: %w", err)
	}
	return events, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
