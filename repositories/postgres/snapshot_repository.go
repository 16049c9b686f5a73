package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/student-success/backend/models"
	"github.com/upb/student-success/backend/repositories"
	"go.uber.org/zap"
)

const snapshotColumns = `id, captured_at, total_requests, slow_requests, p95_response_time_ms,
		       avg_response_time_ms, error_rate, recorded_total, evicted_total`

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS performance_snapshots (
		id                   UUID PRIMARY KEY,
		captured_at          TIMESTAMPTZ NOT NULL,
		total_requests       INTEGER NOT NULL,
		slow_requests        INTEGER NOT NULL,
		p95_response_time_ms BIGINT NOT NULL,
		avg_response_time_ms BIGINT NOT NULL,
		error_rate           DOUBLE PRECISION NOT NULL,
		recorded_total       BIGINT NOT NULL,
		evicted_total        BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_performance_snapshots_captured_at
		ON performance_snapshots (captured_at DESC);
`

// SnapshotRepository implements the repositories.SnapshotRepository interface
type SnapshotRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB, logger *zap.Logger) repositories.SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the snapshot table and index if missing
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create performance_snapshots table: %w", err)
	}
	return nil
}

// Insert stores a new snapshot
func (r *SnapshotRepository) Insert(ctx context.Context, s *models.PerformanceSnapshot) error {
	query := `
		INSERT INTO performance_snapshots (
			id, captured_at, total_requests, slow_requests, p95_response_time_ms,
			avg_response_time_ms, error_rate, recorded_total, evicted_total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.CapturedAt,
		s.TotalRequests,
		s.SlowRequests,
		s.P95ResponseTime,
		s.AvgResponseTime,
		s.ErrorRate,
		s.RecordedTotal,
		s.EvictedTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to insert performance snapshot: %w", err)
	}

	r.logger.Debug("performance snapshot inserted",
		zap.String("id", s.ID.String()),
		zap.Int("total_requests", s.TotalRequests))
	return nil
}

// ListSince returns snapshots captured at or after since, newest first
func (r *SnapshotRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]*models.PerformanceSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM performance_snapshots
		WHERE captured_at >= $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*models.PerformanceSnapshot, 0)
	for rows.Next() {
		s := &models.PerformanceSnapshot{}
		err := rows.Scan(
			&s.ID,
			&s.CapturedAt,
			&s.TotalRequests,
			&s.SlowRequests,
			&s.P95ResponseTime,
			&s.AvgResponseTime,
			&s.ErrorRate,
			&s.RecordedTotal,
			&s.EvictedTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance snapshot rows: %w", err)
	}

	return snapshots, nil
}

// DeleteBefore removes snapshots captured before cutoff
func (r *SnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM performance_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete performance snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted performance snapshots: %w", err)
	}
	return deleted, nil
}
