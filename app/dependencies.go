package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/student-success/backend/config"
	"github.com/upb/student-success/backend/handlers"
	"github.com/upb/student-success/backend/internal/observability"
	"github.com/upb/student-success/backend/middleware"
	"github.com/upb/student-success/backend/repositories/postgres"
	"github.com/upb/student-success/backend/services/snapshot"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when no database is configured
	Logger *zap.Logger

	// Request performance window and its Prometheus view
	Performance     *observability.Collector
	MetricsRegistry *prometheus.Registry
	Snapshots       *snapshot.Service // nil when no database is configured

	// Middleware
	AuthMiddleware    *middleware.AuthMiddleware
	MetricsMiddleware *middleware.MetricsMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Database.Enabled() {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	} else {
		logger.Warn("no database configured, readiness reports not_configured")
	}

	if err := deps.initMetrics(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if deps.DB != nil {
		if err := deps.initSnapshots(ctx, cfg); err != nil {
			_ = deps.DB.Close()
			return nil, fmt.Errorf("failed to initialize snapshots: %w", err)
		}
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(ctx, cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db
	return nil
}

// initMetrics builds the request performance collector, its middleware and
// the Prometheus registry exposing it
func (d *Dependencies) initMetrics(cfg *config.Config) error {
	collector, err := observability.NewCollector(observability.Options{
		WindowSize:    cfg.Metrics.WindowSize,
		SlowThreshold: cfg.Metrics.SlowThreshold,
	}, d.Logger.Named("performance"))
	if err != nil {
		return err
	}

	registry, err := observability.NewRegistry(collector, cfg.Metrics.Namespace)
	if err != nil {
		return fmt.Errorf("failed to register prometheus collectors: %w", err)
	}

	d.Performance = collector
	d.MetricsRegistry = registry
	d.MetricsMiddleware = middleware.NewMetricsMiddleware(collector, d.Logger)

	d.Logger.Info("request metrics initialized",
		zap.Int("window_size", cfg.Metrics.WindowSize),
		zap.Duration("slow_threshold", cfg.Metrics.SlowThreshold))
	return nil
}

// initSnapshots starts periodic persistence of the request window summary
func (d *Dependencies) initSnapshots(ctx context.Context, cfg *config.Config) error {
	repo := postgres.NewSnapshotRepository(d.DB, d.Logger)
	svc := snapshot.NewService(repo, d.Performance, d.Logger.Named("snapshots"), snapshot.Config{
		Interval:  cfg.Metrics.SnapshotInterval,
		Retention: cfg.Metrics.SnapshotRetention,
	})
	if err := svc.Start(ctx); err != nil {
		return err
	}
	d.Snapshots = svc
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("jwt secret not configured, admin endpoints disabled")
		// Use reject-all validator so protected routes return 401
		d.AuthMiddleware = middleware.NewAuthMiddleware(middleware.RejectAllValidator{}, d.Logger)
		return
	}
	validator := middleware.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("auth middleware initialized")
}

// DatabaseChecker returns the database for readiness checks, or nil when none
// is configured. It avoids handing out a typed nil interface.
func (d *Dependencies) DatabaseChecker() handlers.DatabaseChecker {
	if d.DB == nil {
		return nil
	}
	return d.DB
}

// HistorySource returns the snapshot service, or nil when history is not
// available.
func (d *Dependencies) HistorySource() handlers.HistorySource {
	if d.Snapshots == nil {
		return nil
	}
	return d.Snapshots
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Final snapshot needs the database, so stop before closing it
	if d.Snapshots != nil {
		if err := d.Snapshots.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop snapshots: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Performance != nil {
		summary := d.Performance.Summary()
		d.Logger.Info("final request metrics",
			zap.Int("total_requests", summary.TotalRequests),
			zap.Int64("avg_response_time_ms", summary.AvgResponseTime),
			zap.Int64("p95_response_time_ms", summary.P95ResponseTime),
			zap.Float64("error_rate", summary.ErrorRate))
	}

	// Sync logger
	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
