package db

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// legacyColumns are fields older databases carried next to their current
// replacement.
var legacyColumns = []struct {
	model  any
	column string
}{
	{&DailyReading{}, "passages"},
	{&DailyReading{}, "estimated_minutes"},
	{&ReadingProgress{}, "current_cycle"},
	{&ReadingProgress{}, "reading_time_seconds"},
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(Models()...)
		},
	},
	{
		Version: 2,
		Name:    "drop legacy reading columns",
		Up: func(tx *gorm.DB) error {
			m := tx.Migrator()
			for _, lc := range legacyColumns {
				if !m.HasColumn(lc.model, lc.column) {
					continue
				}
				if err := m.DropColumn(lc.model, lc.column); err != nil {
					return errors.Wrapf(err, "drop column %s", lc.column)
				}
			}
			return nil
		},
	},
}

// Migrate applies every migration newer than the highest recorded version.
// Each migration runs with its bookkeeping row in one transaction.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&SchemaMigration{}); err != nil {
		return errors.Wrap(err, "create schema_migrations")
	}
	applied, err := AppliedVersions(conn)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := conn.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return errors.Wrapf(err, "migration %d (%s)", m.Version, m.Name)
		}
		log.WithFields(log.Fields{"version": m.Version, "name": m.Name}).Info("applied migration")
	}
	return nil
}

func AppliedVersions(conn *gorm.DB) (map[int]bool, error) {
	var rows []SchemaMigration
	if err := conn.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list schema_migrations")
	}
	out := make(map[int]bool, len(rows))
	for _, r := range rows {
		out[r.Version] = true
	}
	return out, nil
}

// LatestVersion is the schema version this build expects.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}
