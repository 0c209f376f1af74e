package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/crystalpeak/camcapture/internal/capture"
)

type execCloser interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// SnapshotStore inserts snapshot rows. Snapshots are write-once; this store
// deliberately has no update or delete path.
type SnapshotStore struct {
	pool  execCloser
	table string
}

// NewSnapshotStore constructs a store from an existing pool.
func NewSnapshotStore(pool execCloser, table string) (*SnapshotStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SnapshotStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *SnapshotStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert writes one snapshot row.
func (s *SnapshotStore) Insert(ctx context.Context, snap capture.Snapshot) error {
	if snap.CameraID == "" {
		return fmt.Errorf("camera id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	camera_id,
	image_url,
	captured_at,
	time_slot,
	file_size_bytes
) VALUES ($1,$2,$3,$4,$5)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		snap.CameraID,
		snap.ImageURL,
		snap.CapturedAt,
		snap.TimeSlot,
		snap.FileSizeBytes,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
