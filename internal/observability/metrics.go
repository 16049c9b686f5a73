package observability

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/upb/student-success/backend/utils"
	"go.uber.org/zap"
)

const (
	// DefaultWindowSize is the number of most recent samples retained.
	DefaultWindowSize = 1000

	// DefaultSlowThreshold classifies a request as slow once exceeded.
	DefaultSlowThreshold = 2000 * time.Millisecond
)

// MetricSample is one completed HTTP exchange. Samples are immutable once recorded.
type MetricSample struct {
	Endpoint   string    `json:"endpoint"`
	Method     string    `json:"method"`
	DurationMs int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"userId,omitempty"`
	StatusCode int       `json:"statusCode"`
}

// PerformanceSummary aggregates the samples currently held in the window.
type PerformanceSummary struct {
	P95ResponseTime int64   `json:"p95ResponseTime"`
	AvgResponseTime int64   `json:"avgResponseTime"`
	TotalRequests   int     `json:"totalRequests"`
	SlowRequests    int     `json:"slowRequests"`
	ErrorRate       float64 `json:"errorRate"`
}

// Options configures a Collector.
type Options struct {
	WindowSize    int           `validate:"gt=0"`
	SlowThreshold time.Duration `validate:"gt=0"`
}

// DefaultOptions returns a 1000-sample window with a 2s slow threshold.
func DefaultOptions() Options {
	return Options{
		WindowSize:    DefaultWindowSize,
		SlowThreshold: DefaultSlowThreshold,
	}
}

// Collector keeps a bounded FIFO window of request samples and serves
// aggregate statistics over it. It is safe for concurrent use.
type Collector struct {
	mu       sync.RWMutex
	window   *sampleRing
	recorded uint64
	evicted  uint64

	slowThresholdMs int64
	logger          *zap.Logger
	now             func() time.Time
	clampOnce       sync.Once
}

// NewCollector creates a Collector from validated options.
func NewCollector(opts Options, logger *zap.Logger) (*Collector, error) {
	if err := utils.ValidateStruct(&opts); err != nil {
		return nil, fmt.Errorf("invalid metrics options: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collector{
		window:          newSampleRing(opts.WindowSize),
		slowThresholdMs: opts.SlowThreshold.Milliseconds(),
		logger:          logger,
		now:             time.Now,
	}, nil
}

// Record appends a sample for a completed request. It never panics and never
// blocks on anything but the window lock. userID may be empty for anonymous
// callers.
func (c *Collector) Record(endpoint, method string, durationMs int64, statusCode int, userID string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("failed to record request sample",
				zap.String("endpoint", endpoint),
				zap.Any("panic", r))
		}
	}()

	if durationMs < 0 {
		c.clampOnce.Do(func() {
			c.logger.Warn("negative request duration clamped to zero",
				zap.String("method", method),
				zap.String("path", endpoint),
				zap.Int64("duration_ms", durationMs))
		})
		durationMs = 0
	}

	c.append(MetricSample{
		Endpoint:   endpoint,
		Method:     method,
		DurationMs: durationMs,
		Timestamp:  c.now(),
		UserID:     userID,
		StatusCode: statusCode,
	})

	if durationMs > c.slowThresholdMs {
		user := userID
		if user == "" {
			user = "anonymous"
		}
		c.logger.Warn("slow request",
			zap.String("method", method),
			zap.String("path", endpoint),
			zap.Int64("duration_ms", durationMs),
			zap.String("user_id", user))
	}
}

func (c *Collector) append(s MetricSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recorded++
	if c.window.push(s) {
		c.evicted++
	}
}

// Summary computes statistics over a point-in-time copy of the window.
func (c *Collector) Summary() PerformanceSummary {
	return summarize(c.Samples(), c.slowThresholdMs)
}

// Samples returns a copy of the window, oldest first.
func (c *Collector) Samples() []MetricSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.snapshot()
}

// SlowSamples returns the most recent slow samples, newest first. A limit
// <= 0 returns all of them.
func (c *Collector) SlowSamples(limit int) []MetricSample {
	samples := c.Samples()

	slow := make([]MetricSample, 0)
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].DurationMs <= c.slowThresholdMs {
			continue
		}
		slow = append(slow, samples[i])
		if limit > 0 && len(slow) == limit {
			break
		}
	}
	return slow
}

// Len returns the number of retained samples.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window.len()
}

// Counters returns the lifetime number of recorded and evicted samples.
func (c *Collector) Counters() (recorded, evicted uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.recorded, c.evicted
}

// SlowThreshold returns the configured slow-request threshold.
func (c *Collector) SlowThreshold() time.Duration {
	return time.Duration(c.slowThresholdMs) * time.Millisecond
}

func summarize(samples []MetricSample, slowThresholdMs int64) PerformanceSummary {
	n := len(samples)
	if n == 0 {
		return PerformanceSummary{}
	}

	durations := make([]int64, n)
	var total int64
	var slow, failed int
	for i, s := range samples {
		durations[i] = s.DurationMs
		total += s.DurationMs
		if s.DurationMs > slowThresholdMs {
			slow++
		}
		if s.StatusCode >= 400 {
			failed++
		}
	}
	slices.Sort(durations)

	// nearest rank: floor(0.95 * n), 0-based
	p95 := durations[n*95/100]

	return PerformanceSummary{
		P95ResponseTime: p95,
		AvgResponseTime: int64(math.Round(float64(total) / float64(n))),
		TotalRequests:   n,
		SlowRequests:    slow,
		ErrorRate:       math.Round(float64(failed)/float64(n)*100*100) / 100,
	}
}
