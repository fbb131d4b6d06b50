package data

import (
	"fmt"
	"time"

	"PlayLine/internal/conf"
	perrors "PlayLine/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewMySQLClient opens the database used by the circuit event log.
// With no DSN configured, or when the database cannot be reached or migrated,
// it returns a nil DB and the event log stays disabled.
func NewMySQLClient(c *conf.Data, l log.Logger) (*gorm.DB, func(), error) {
	helper := log.NewHelper(log.With(l, "module", "data/mysql"))

	if c == nil || c.Database == nil || c.Database.Source == "" {
		helper.Warnw("msg", "database source is empty, circuit event log disabled")
		return nil, func() {}, nil
	}
	if c.Database.Driver != "" && c.Database.Driver != "mysql" {
		return nil, nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	gormLogger := logger.New(
		&gormLogAdapter{helper: helper},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(c.Database.Source), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return degraded(helper, "failed to connect to MySQL", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return degraded(helper, "failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return degraded(helper, "failed to ping MySQL", err)
	}

	if err := MigrateCircuitEvents(db); err != nil {
		_ = sqlDB.Close()
		return degraded(helper, "failed to prepare circuit event store", err)
	}

	helper.Info("MySQL connection established successfully")

	cleanup := func() {
		helper.Info("closing MySQL connection")
		if err := sqlDB.Close(); err != nil {
			helper.Errorw("msg", "failed to close MySQL", "error", err)
		}
	}

	return db, cleanup, nil
}

// degraded keeps the service up without the event store. The store only
// records transitions; breakers never read from it.
func degraded(helper *log.Helper, msg string, err error) (*gorm.DB, func(), error) {
	helper.Warnw(
		"msg", msg+", circuit event log disabled",
		"db_error", perrors.ClassifyDBError(err).Type.String(),
		"error", err,
	)
	return nil, func() {}, nil
}

// gormLogAdapter adapts Kratos log.Helper to GORM logger interface.
type gormLogAdapter struct {
	helper *log.Helper
}

// Printf implements gorm/logger.Writer interface.
func (g *gormLogAdapter) Printf(format string, v ...interface{}) {
	g.helper.Warnf(format, v...)
}
