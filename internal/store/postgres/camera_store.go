// Package postgres provides Postgres-backed persistence for camera
// configuration and snapshot records.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crystalpeak/camcapture/internal/capture"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	CamerasTable    string
	SnapshotsTable  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool creates a pgx pool from the config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

type queryCloser interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// CameraStore reads camera configuration rows. The rows are owned by the
// configuration store; this is a read-only view.
type CameraStore struct {
	pool  queryCloser
	table string
}

// NewCameraStore constructs a store from an existing pool. The pool interface
// is narrow so tests can inject pgxmock.
func NewCameraStore(pool queryCloser, table string) (*CameraStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "cameras"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CameraStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *CameraStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListActive returns all active cameras ordered by display_order.
func (s *CameraStore) ListActive(ctx context.Context) ([]capture.Camera, error) {
	query := fmt.Sprintf(`
SELECT id, name, slug, source_type, source_url, is_active, display_order
FROM %s
WHERE is_active = TRUE
ORDER BY display_order`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []capture.Camera
	for rows.Next() {
		var cam capture.Camera
		var sourceType string
		if err := rows.Scan(
			&cam.ID,
			&cam.Name,
			&cam.Slug,
			&sourceType,
			&cam.SourceURL,
			&cam.IsActive,
			&cam.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("scan camera row: %w", err)
		}
		cam.SourceType = capture.SourceType(sourceType)
		cameras = append(cameras, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate camera rows: %w", err)
	}
	return cameras, nil
}
