package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/student-success/backend/internal/observability"
	"github.com/upb/student-success/backend/models"
	"github.com/upb/student-success/backend/repositories"
	"github.com/upb/student-success/backend/services"
	"go.uber.org/zap"
)

// Source is the request window being snapshotted
type Source interface {
	Summary() observability.PerformanceSummary
	Counters() (recorded, evicted uint64)
}

// Config holds configuration for the snapshot Service
type Config struct {
	Interval  time.Duration // Time between captures
	Retention time.Duration // Snapshots older than this are pruned
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Interval:  time.Minute,
		Retention: 7 * 24 * time.Hour,
	}
}

// Service periodically persists the request window summary
type Service struct {
	repo   repositories.SnapshotRepository
	source Source
	logger *zap.Logger
	config Config
	now    func() time.Time

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService creates a new snapshot Service
func NewService(repo repositories.SnapshotRepository, source Source, logger *zap.Logger, config Config) *Service {
	return &Service{
		repo:   repo,
		source: source,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Start ensures the schema exists and launches the capture loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return services.ErrSnapshotsAlreadyStarted
	}

	if err := s.repo.EnsureSchema(ctx); err != nil {
		return services.WrapInternal("failed to prepare snapshot storage", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.loop(loopCtx)

	s.logger.Info("started snapshot recorder",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("retention", s.config.Retention))
	return nil
}

// Stop halts the capture loop and writes one final snapshot
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return services.ErrSnapshotsNotStarted
	}
	s.started = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("snapshot recorder stop: %w", ctx.Err())
	}

	if _, err := s.Capture(ctx); err != nil {
		return err
	}
	s.logger.Info("snapshot recorder stopped")
	return nil
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.Capture(ctx); err != nil {
		s.logger.Error("failed to capture performance snapshot", zap.Error(err))
	}
	if _, err := s.Prune(ctx); err != nil {
		s.logger.Error("failed to prune performance snapshots", zap.Error(err))
	}
}

// Capture stores the current window summary
func (s *Service) Capture(ctx context.Context) (*models.PerformanceSnapshot, error) {
	summary := s.source.Summary()
	recorded, evicted := s.source.Counters()

	snapshot := models.NewPerformanceSnapshot(s.now())
	snapshot.TotalRequests = summary.TotalRequests
	snapshot.SlowRequests = summary.SlowRequests
	snapshot.P95ResponseTime = summary.P95ResponseTime
	snapshot.AvgResponseTime = summary.AvgResponseTime
	snapshot.ErrorRate = summary.ErrorRate
	snapshot.RecordedTotal = int64(recorded)
	snapshot.EvictedTotal = int64(evicted)

	if err := s.repo.Insert(ctx, snapshot); err != nil {
		return nil, services.WrapInternal("failed to store performance snapshot", err)
	}
	return snapshot, nil
}

// Prune deletes snapshots older than the retention period
func (s *Service) Prune(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteBefore(ctx, s.now().Add(-s.config.Retention))
	if err != nil {
		return 0, services.WrapInternal("failed to prune performance snapshots", err)
	}
	if deleted > 0 {
		s.logger.Debug("pruned performance snapshots", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// History returns snapshots captured within the given window, newest first
func (s *Service) History(ctx context.Context, window time.Duration, limit int) ([]*models.PerformanceSnapshot, error) {
	if window <= 0 || window > s.config.Retention {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid history range", nil).
			WithDetail("window", window.String()).
			WithDetail("max", s.config.Retention.String())
	}

	snapshots, err := s.repo.ListSince(ctx, s.now().Add(-window), limit)
	if err != nil {
		return nil, services.WrapInternal("failed to load performance history", err)
	}
	return snapshots, nil
}
