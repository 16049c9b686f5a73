package repositories

import (
	"context"
	"time"

	"github.com/upb/student-success/backend/models"
)

// SnapshotRepository persists request performance snapshots
type SnapshotRepository interface {
	// EnsureSchema creates the snapshot table when it does not exist
	EnsureSchema(ctx context.Context) error

	// Insert stores a new snapshot
	Insert(ctx context.Context, snapshot *models.PerformanceSnapshot) error

	// ListSince returns snapshots captured at or after since, newest first
	ListSince(ctx context.Context, since time.Time, limit int) ([]*models.PerformanceSnapshot, error)

	// DeleteBefore removes snapshots captured before cutoff and returns how many
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
