package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bilgisen/fairprice/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Open builds the repository selected by cfg.StorageDriver. The returned close
// function releases the database handle, if any.
func Open(ctx context.Context, cfg *config.Config) (Repository, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverFile:
		return NewFileStore(cfg.ContentDir), func() error { return nil }, nil
	case config.DriverSQLite, config.DriverMySQL:
		db, err := sql.Open(cfg.StorageDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s database: %w", cfg.StorageDriver, err)
		}
		if cfg.StorageDriver == config.DriverSQLite {
			// sqlite serializes writers; one connection avoids "database is locked".
			db.SetMaxOpenConns(1)
		} else {
			db.SetConnMaxLifetime(5 * time.Minute)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to connect to %s database: %w", cfg.StorageDriver, err)
		}

		store, err := NewSQLStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
