package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the shared handle. Tests use it to install an in-memory
// database.
func SetDB(d *gorm.DB) {
	db = d
}

// Open connects to the database described by driver and dsn.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported driver %q", driver)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	return conn, nil
}

// InitDB connects using the environment configuration and applies any
// pending migrations.
func InitDB() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	cfg.Print()

	conn, err := Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	log.WithField("driver", cfg.Driver).Info("connected to database")

	if err := Migrate(conn); err != nil {
		return err
	}
	db = conn
	return nil
}

// OpenTestDB returns a migrated private in-memory sqlite database.
func OpenTestDB() (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// every pooled connection to :memory: would be a separate database
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}
