// Package db opens the SQL database used by the sql storage backend
package db

import (
	"bitwise74/phone-verify/internal/model"
	"bitwise74/phone-verify/pkg/util"
	"errors"
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Other processes sharing the sqlite file wait this long (ms) for a lock
const sqliteBusyTimeout = 5000

// New opens driver ("sqlite" or "postgres") at dsn and migrates the
// verification table
func New(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() && !inMemory(dsn) {
			if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%v", dsn)
			}
		}

		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %v database, %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite connection pool, %w", err)
		}

		// sqlite has a single writer. With more connections a transaction that
		// read the latest version can't upgrade its lock and fails with
		// "database is locked" instead of waiting for the competing insert.
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(model.Verification{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}

// sqliteDSN makes every transaction take the write lock up front and wait for
// it instead of failing with SQLITE_BUSY
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s_txlock=immediate&_busy_timeout=%d", dsn, sep, sqliteBusyTimeout)
}

func inMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
