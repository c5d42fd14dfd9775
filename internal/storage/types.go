package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures optional durable storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one mutation of a catalog.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At        time.Time
	ActorID   int64
	ActorName string
	ChatID    int64
	Catalog   string // "events" or "resources"
	Action    string // "add", "update", "delete"
	Target    string // record id, possibly with field name
	Error     string
}
