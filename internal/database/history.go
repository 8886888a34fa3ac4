// Package database stores the import history in PostgreSQL.
//
// The history is optional: when DATABASE_URL is unset the server runs
// without it and /api/imports returns an empty list.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/sheetedit/internal/config"
	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultRecentLimit is used when a caller asks for a non-positive limit.
	DefaultRecentLimit = 20
	// MaxRecentLimit caps a single history page.
	MaxRecentLimit = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS import_history (
	id             UUID PRIMARY KEY,
	session_id     TEXT        NOT NULL,
	file_name      TEXT        NOT NULL,
	format         TEXT        NOT NULL,
	row_count      INTEGER     NOT NULL,
	columns        TEXT[]      NOT NULL,
	duplicate_keys INTEGER     NOT NULL DEFAULT 0,
	ip_address     TEXT,
	user_agent     TEXT,
	imported_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS import_history_imported_at_idx ON import_history (imported_at DESC);
`

// Connect opens a connection pool configured from cfg and checks it.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DatabaseName returns the database name in a connection URL, for logging.
func DatabaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// ImportHistory implements core.ImportRecorder on a pgx pool.
type ImportHistory struct {
	pool *pgxpool.Pool
}

var _ core.ImportRecorder = (*ImportHistory)(nil)

// NewImportHistory creates the history table if needed.
func NewImportHistory(ctx context.Context, pool *pgxpool.Pool) (*ImportHistory, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create import_history: %w", err)
	}
	return &ImportHistory{pool: pool}, nil
}

// RecordImport inserts one event.
func (h *ImportHistory) RecordImport(ctx context.Context, ev core.ImportEvent) error {
	const query = `
		INSERT INTO import_history
			(id, session_id, file_name, format, row_count, columns, duplicate_keys, ip_address, user_agent, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)`

	_, err := h.pool.Exec(ctx, query,
		ev.ID, ev.SessionID, ev.FileName, ev.Format, ev.Rows, ev.Columns,
		ev.DuplicateKeys, ev.IPAddress, ev.UserAgent, ev.ImportedAt,
	)
	return err
}

// RecentImports returns up to limit events, newest first.
func (h *ImportHistory) RecentImports(ctx context.Context, limit int) ([]core.ImportEvent, error) {
	const query = `
		SELECT id::text, session_id, file_name, format, row_count, columns, duplicate_keys,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), imported_at
		FROM import_history
		ORDER BY imported_at DESC
		LIMIT $1`

	rows, err := h.pool.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, err
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ImportEvent, error) {
		var ev core.ImportEvent
		err := row.Scan(&ev.ID, &ev.SessionID, &ev.FileName, &ev.Format, &ev.Rows, &ev.Columns,
			&ev.DuplicateKeys, &ev.IPAddress, &ev.UserAgent, &ev.ImportedAt)
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
