package data

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"PlayLine/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB creates a gorm connection backed by sqlmock
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func openedEvent() model.TransitionEvent {
	openedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	retryAt := openedAt.Add(time.Minute)
	return model.TransitionEvent{
		Breaker:  "stats",
		Endpoint: "/v1/standings",
		From:     model.StateClosed,
		To:       model.StateOpen,
		Reason:   "3 failures reached threshold 3",
		Failures: 3,
		OpenedAt: &openedAt,
		RetryAt:  &retryAt,
		At:       openedAt,
	}
}

func TestCircuitEventLog_PersistsTransition(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
		WithArgs(
			sqlmock.AnyArg(), // event_id
			"stats",
			"/v1/standings",
			model.AuditEventCircuitOpened,
			"CLOSED",
			"OPEN",
			"3 failures reached threshold 3",
			3,
			sqlmock.AnyArg(), // opened_at
			sqlmock.AnyArg(), // retry_at
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)

	el.OnStateChange(openedEvent())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitEventLog_EventTypes(t *testing.T) {
	db, mock := setupMockDB(t)

	reset := openedEvent()
	reset.From, reset.To, reset.Reason = model.StateOpen, model.StateClosed, model.ReasonAdministrativeReset

	probe := openedEvent()
	probe.From, probe.To = model.StateOpen, model.StateHalfOpen

	recovered := openedEvent()
	recovered.From, recovered.To = model.StateHalfOpen, model.StateClosed

	for _, want := range []string{
		model.AuditEventCircuitReset,
		model.AuditEventCircuitProbing,
		model.AuditEventCircuitRecovered,
	} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
			WithArgs(sqlmock.AnyArg(), "stats", "/v1/standings", want,
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)

	el.OnStateChange(reset)
	el.OnStateChange(probe)
	el.OnStateChange(recovered)
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitEventLog_WriteFailureIsLogged(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'playline.circuit_event_logs' doesn't exist"})

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)

	el.OnStateChange(openedEvent())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitEventLog_RetriesDeadlockOnce(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)

	el.OnStateChange(openedEvent())
	cleanup()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	// "é" is two bytes and is not split
	assert.Equal(t, "ab", truncate("abé", 3))
	assert.Len(t, truncate(strings.Repeat("x", 300), maxEndpointLen), maxEndpointLen)
}

func TestCircuitEventLog_NilDB(t *testing.T) {
	el, cleanup, err := NewCircuitEventLog(nil, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() {
		el.OnStateChange(openedEvent())
		el.OnFailure(model.FailureEvent{Breaker: "stats"})
		el.Close()
		el.Close()
	})

	events, err := el.ListCircuitEvents(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCircuitEventLog_AfterClose(t *testing.T) {
	db, mock := setupMockDB(t)

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)
	cleanup()

	assert.NotPanics(t, func() {
		el.OnStateChange(openedEvent())
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitEventLog_List(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "event_id", "breaker", "endpoint", "event_type", "from_state", "to_state", "reason", "failures"}).
		AddRow(2, "e2", "odds", "/v2/lines", model.AuditEventCircuitRecovered, "HALF_OPEN", "CLOSED", "2 consecutive probes succeeded", 0).
		AddRow(1, "e1", "odds", "/v2/lines", model.AuditEventCircuitOpened, "CLOSED", "OPEN", "3 failures reached threshold 3", 3)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `circuit_event_logs` WHERE breaker = ? ORDER BY id DESC LIMIT")).
		WillReturnRows(rows)

	el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	events, err := el.ListCircuitEvents(context.Background(), "odds", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].EventID)
	assert.Equal(t, model.AuditEventCircuitOpened, events[1].EventType)
	assert.Equal(t, 3, events[1].Failures)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitEvent_TableName(t *testing.T) {
	assert.Equal(t, "circuit_event_logs", CircuitEvent{}.TableName())
}

func TestCircuitEventLog_ListLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, defaultEventListLimit},
		{"negative", -3, defaultEventListLimit},
		{"within range", 20, 20},
		{"at max", 500, maxEventListLimit},
		{"clamped", 10000, maxEventListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)

			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `circuit_event_logs` ORDER BY id DESC LIMIT ?")).
				WithArgs(tt.want).
				WillReturnRows(sqlmock.NewRows([]string{"id"}))

			el, cleanup, err := NewCircuitEventLog(db, log.DefaultLogger)
			require.NoError(t, err)
			defer cleanup()

			_, err = el.ListCircuitEvents(context.Background(), "", tt.limit)
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCircuitEventLog_ConcurrentCloseAndSend(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 50; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `circuit_event_logs`")).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	el, _, err := NewCircuitEventLog(db, log.DefaultLogger)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el.OnStateChange(openedEvent())
		}()
	}
	el.Close()
	wg.Wait()

	// sends after Close are dropped instead of panicking
	assert.NotPanics(t, func() { el.OnStateChange(openedEvent()) })
}
