//go:build sqlite
// +build sqlite

package auditlog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "hookrelay/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	dataDir := strings.TrimSpace(cfg.DataDir)
	if dataDir == "" {
		return nil, errors.New("storage.data_dir is required for the sqlite driver")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, "audit.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Append(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now().UTC()
	}
	hb, err := json.Marshal(r.Headers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit(channel, received_at, forwarded, headers, payload_preview)
		 VALUES(?,?,?,?,?)`,
		r.Channel, r.ReceivedAt.UTC().Format(time.RFC3339Nano), boolInt(r.Forwarded), string(hb), r.PayloadPreview,
	)
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, received_at, forwarded, headers, payload_preview
		 FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *sqliteStore) Since(ctx context.Context, t time.Time, max int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if max <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, received_at, forwarded, headers, payload_preview
		 FROM audit WHERE received_at >= ? ORDER BY id ASC LIMIT ?`,
		t.UTC().Format(time.RFC3339Nano), max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var (
			r         Record
			at        string
			forwarded int
			headers   sql.NullString
		)
		if err := rows.Scan(&r.Channel, &at, &forwarded, &headers, &r.PayloadPreview); err != nil {
			return out, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			r.ReceivedAt = ts
		}
		r.Forwarded = forwarded != 0
		if headers.Valid && headers.String != "" {
			_ = json.Unmarshal([]byte(headers.String), &r.Headers)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
