// Package auditlog appends one durable record per processed webhook call
// and serves the read-only log projection.
package auditlog

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "hookrelay/pkg/logx"
)

// Store is the persistence API for audit records.
type Store interface {
	// Append writes one record. Failures are unrecoverable for the
	// calling operation (the audit trail must not silently lose entries).
	Append(ctx context.Context, r Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Since returns up to max records received at or after t, oldest first.
	Since(ctx context.Context, t time.Time, max int) ([]Record, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit storage driver: " + driver)
	}
}
