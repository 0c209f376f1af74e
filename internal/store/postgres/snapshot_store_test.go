package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/crystalpeak/camcapture/internal/capture"
)

func TestSnapshotStoreInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock, "snapshots")
	require.NoError(t, err)

	capturedAt := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)
	snap := capture.Snapshot{
		CameraID:      "cam-1",
		ImageURL:      "https://storage.googleapis.com/bucket/village/2026-01-15T20-00-00-000Z.jpg",
		CapturedAt:    capturedAt,
		TimeSlot:      "12:00 PM",
		FileSizeBytes: 123456,
	}

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(
			snap.CameraID,
			snap.ImageURL,
			snap.CapturedAt,
			snap.TimeSlot,
			snap.FileSizeBytes,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Insert(context.Background(), snap)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotStoreRequiresCameraID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock, "snapshots")
	require.NoError(t, err)

	err = store.Insert(context.Background(), capture.Snapshot{ImageURL: "https://x/y.jpg"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "no statement may reach the pool")
}

func TestSnapshotStoreInsertError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSnapshotStore(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO snapshots").
		WillReturnError(errors.New("constraint violation"))

	err = store.Insert(context.Background(), capture.Snapshot{CameraID: "cam-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert snapshot")
}

func TestSnapshotStoreValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewSnapshotStore(nil, "snapshots")
	require.Error(t, err)

	_, err = NewSnapshotStore(mock, "bad name")
	require.Error(t, err)
}
