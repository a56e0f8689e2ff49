// Package backend opens the store.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/onnwee/signature-relay/config"
	"github.com/onnwee/signature-relay/db"
	"github.com/onnwee/signature-relay/store"
	"github.com/onnwee/signature-relay/store/badgerstore"
	"github.com/onnwee/signature-relay/store/sqlstore"
)

// Open connects to the configured backend and prepares its schema.
//
// SQL backends run versioned migrations first and fall back to the embedded idempotent
// statements when the versioned run fails (e.g. a schema created before versioning).
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		if err := os.MkdirAll(cfg.BadgerDir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		log.Info("opening badger store", slog.String("dir", cfg.BadgerDir), slog.String("component", "store"))
		st, err := badgerstore.Open(cfg.BadgerDir, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendPostgres:
		log.Info("opening postgres store", slog.String("component", "store"))
		return openSQL(ctx, db.Postgres, cfg.DBDsn, log)
	case config.BackendSQLite, "":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		log.Info("opening sqlite store", slog.String("path", cfg.DBPath), slog.String("component", "store"))
		return openSQL(ctx, db.SQLite, cfg.DBPath, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openSQL(ctx context.Context, dialect db.Dialect, dsn string, log *slog.Logger) (store.Store, error) {
	sqlDB, err := db.Connect(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := db.RunMigrations(sqlDB, dialect, log); err != nil {
		log.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, sqlDB, dialect); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate %s: %w", dialect, err)
		}
	}
	return sqlstore.New(sqlDB, dialect), nil
}
