package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "senseibot/pkg/logx"
)

// Store is the persistence API used by the bot and the reminder loop.
// Markers are expiring keys that record which reminder windows were
// already announced, so a restart inside a window does not repeat them.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	PutMarker(ctx context.Context, key string, until time.Time) error
	GetMarker(ctx context.Context, key string) (until time.Time, ok bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
