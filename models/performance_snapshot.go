package models

import (
	"time"

	"github.com/google/uuid"
)

// PerformanceSnapshot is a point-in-time copy of the request window summary
type PerformanceSnapshot struct {
	ID              uuid.UUID `json:"id" db:"id"`
	CapturedAt      time.Time `json:"capturedAt" db:"captured_at"`
	TotalRequests   int       `json:"totalRequests" db:"total_requests"`
	SlowRequests    int       `json:"slowRequests" db:"slow_requests"`
	P95ResponseTime int64     `json:"p95ResponseTime" db:"p95_response_time_ms"`
	AvgResponseTime int64     `json:"avgResponseTime" db:"avg_response_time_ms"`
	ErrorRate       float64   `json:"errorRate" db:"error_rate"`

	// Lifetime counters at capture time
	RecordedTotal int64 `json:"recordedTotal" db:"recorded_total"`
	EvictedTotal  int64 `json:"evictedTotal" db:"evicted_total"`
}

// TableName returns the table name for the PerformanceSnapshot model
func (PerformanceSnapshot) TableName() string {
	return "performance_snapshots"
}

// NewPerformanceSnapshot creates an empty snapshot captured at the given time
func NewPerformanceSnapshot(capturedAt time.Time) *PerformanceSnapshot {
	return &PerformanceSnapshot{
		ID:         uuid.New(),
		CapturedAt: capturedAt.UTC(),
	}
}

// IsEmpty reports whether the window held no requests at capture time
func (s *PerformanceSnapshot) IsEmpty() bool {
	return s.TotalRequests == 0
}
