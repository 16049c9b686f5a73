package observability

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func recordDurations(c *Collector, durations ...int64) {
	for _, d := range durations {
		c.Record("/api/essays", http.MethodGet, d, http.StatusOK, "")
	}
}

func TestNewCollector(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		c, err := NewCollector(DefaultOptions(), nil)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, c.SlowThreshold())
		assert.Equal(t, 0, c.Len())
	})

	t.Run("rejects non-positive window size", func(t *testing.T) {
		c, err := NewCollector(Options{WindowSize: 0, SlowThreshold: time.Second}, zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "invalid metrics options")
	})

	t.Run("rejects non-positive slow threshold", func(t *testing.T) {
		c, err := NewCollector(Options{WindowSize: 10}, zap.NewNop())
		assert.Error(t, err)
		assert.Nil(t, c)
	})
}

func TestSummary(t *testing.T) {
	t.Run("empty window returns zero values", func(t *testing.T) {
		c := newTestCollector(t)

		assert.Equal(t, PerformanceSummary{}, c.Summary())
	})

	t.Run("p95 uses nearest rank", func(t *testing.T) {
		c := newTestCollector(t)
		// insert in descending order so sorting matters
		for d := int64(1000); d >= 10; d -= 10 {
			recordDurations(c, d)
		}

		summary := c.Summary()
		assert.Equal(t, 100, summary.TotalRequests)
		assert.Equal(t, int64(960), summary.P95ResponseTime)
	})

	t.Run("p95 of a single sample", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 42)

		assert.Equal(t, int64(42), c.Summary().P95ResponseTime)
	})

	t.Run("average", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 100, 200, 300)

		assert.Equal(t, int64(200), c.Summary().AvgResponseTime)
	})

	t.Run("average is rounded to nearest integer", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 1, 2)

		assert.Equal(t, int64(2), c.Summary().AvgResponseTime)
	})

	t.Run("slow requests", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 2500, 100, 100)

		assert.Equal(t, 1, c.Summary().SlowRequests)
	})

	t.Run("threshold itself is not slow", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 2000, 2001)

		assert.Equal(t, 1, c.Summary().SlowRequests)
	})

	t.Run("error rate", func(t *testing.T) {
		c := newTestCollector(t)
		for _, status := range []int{200, 404, 500, 200} {
			c.Record("/api/scholarships", http.MethodGet, 50, status, "")
		}

		assert.Equal(t, 50.0, c.Summary().ErrorRate)
	})

	t.Run("error rate is rounded to two decimals", func(t *testing.T) {
		c := newTestCollector(t)
		for _, status := range []int{200, 200, 500} {
			c.Record("/api/persona", http.MethodPost, 50, status, "")
		}

		assert.Equal(t, 33.33, c.Summary().ErrorRate)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		c := newTestCollector(t)
		recordDurations(c, 120, 3000, 45, 800)

		first := c.Summary()
		second := c.Summary()
		assert.Equal(t, first, second)
		assert.Equal(t, 4, c.Len())
	})
}

func TestRecord(t *testing.T) {
	t.Run("window is bounded and evicts oldest first", func(t *testing.T) {
		c := newTestCollector(t)
		for i := int64(0); i < 1500; i++ {
			recordDurations(c, i)
		}

		samples := c.Samples()
		require.Len(t, samples, DefaultWindowSize)
		assert.Equal(t, 1000, c.Summary().TotalRequests)
		for i, s := range samples {
			assert.Equal(t, int64(500+i), s.DurationMs)
		}

		recorded, evicted := c.Counters()
		assert.Equal(t, uint64(1500), recorded)
		assert.Equal(t, uint64(500), evicted)
	})

	t.Run("tight loop stays within capacity", func(t *testing.T) {
		c := newTestCollector(t)
		assert.NotPanics(t, func() {
			for i := 0; i < 10000; i++ {
				c.Record("/api/health", http.MethodGet, int64(i%3000), http.StatusOK, "")
				require.LessOrEqual(t, c.Len(), DefaultWindowSize)
			}
		})
		assert.Equal(t, DefaultWindowSize, c.Len())
	})

	t.Run("captures sample fields", func(t *testing.T) {
		c := newTestCollector(t)
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return fixed }

		c.Record("/api/essays/{id}/feedback", http.MethodPost, 321, http.StatusCreated, "student-7")

		samples := c.Samples()
		require.Len(t, samples, 1)
		assert.Equal(t, MetricSample{
			Endpoint:   "/api/essays/{id}/feedback",
			Method:     http.MethodPost,
			DurationMs: 321,
			Timestamp:  fixed,
			UserID:     "student-7",
			StatusCode: http.StatusCreated,
		}, samples[0])
	})

	t.Run("negative duration is clamped and logged once", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		c, err := NewCollector(DefaultOptions(), zap.New(core))
		require.NoError(t, err)

		c.Record("/api/a", http.MethodGet, -5, http.StatusOK, "")
		c.Record("/api/b", http.MethodGet, -10, http.StatusOK, "")

		for _, s := range c.Samples() {
			assert.Equal(t, int64(0), s.DurationMs)
		}
		assert.Equal(t, 1, logs.FilterMessage("negative request duration clamped to zero").Len())
	})

	t.Run("slow request is logged with caller details", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		c, err := NewCollector(DefaultOptions(), zap.New(core))
		require.NoError(t, err)

		c.Record("/api/scholarships/match", http.MethodPost, 2500, http.StatusOK, "counselor-1")
		c.Record("/api/scholarships/match", http.MethodPost, 2600, http.StatusOK, "")
		c.Record("/api/scholarships", http.MethodGet, 150, http.StatusOK, "counselor-1")

		entries := logs.FilterMessage("slow request").AllUntimed()
		require.Len(t, entries, 2)

		fields := entries[0].ContextMap()
		assert.Equal(t, http.MethodPost, fields["method"])
		assert.Equal(t, "/api/scholarships/match", fields["path"])
		assert.Equal(t, int64(2500), fields["duration_ms"])
		assert.Equal(t, "counselor-1", fields["user_id"])
		assert.Equal(t, "anonymous", entries[1].ContextMap()["user_id"])
	})

	t.Run("custom window size and threshold", func(t *testing.T) {
		c, err := NewCollector(Options{WindowSize: 3, SlowThreshold: 100 * time.Millisecond}, zap.NewNop())
		require.NoError(t, err)

		recordDurations(c, 500, 50, 150, 20)

		summary := c.Summary()
		assert.Equal(t, 3, summary.TotalRequests)
		assert.Equal(t, 1, summary.SlowRequests)
		assert.Equal(t, int64(73), summary.AvgResponseTime)
	})
}

func TestSlowSamples(t *testing.T) {
	c := newTestCollector(t)
	recordDurations(c, 2100, 10, 2200, 2300, 20)

	t.Run("newest first", func(t *testing.T) {
		slow := c.SlowSamples(0)
		require.Len(t, slow, 3)
		assert.Equal(t, int64(2300), slow[0].DurationMs)
		assert.Equal(t, int64(2200), slow[1].DurationMs)
		assert.Equal(t, int64(2100), slow[2].DurationMs)
	})

	t.Run("limit", func(t *testing.T) {
		slow := c.SlowSamples(2)
		require.Len(t, slow, 2)
		assert.Equal(t, int64(2300), slow[0].DurationMs)
	})

	t.Run("none slow", func(t *testing.T) {
		fast := newTestCollector(t)
		recordDurations(fast, 1, 2, 3)
		assert.Empty(t, fast.SlowSamples(10))
	})
}

func TestCollectorConcurrency(t *testing.T) {
	c, err := NewCollector(Options{WindowSize: 100, SlowThreshold: time.Second}, zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Record("/api/persona", http.MethodGet, int64(i), http.StatusOK, "")
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				summary := c.Summary()
				assert.LessOrEqual(t, summary.TotalRequests, 100)
			}
		}()
	}
	wg.Wait()

	recorded, evicted := c.Counters()
	assert.Equal(t, uint64(4000), recorded)
	assert.Equal(t, uint64(3900), evicted)
	assert.Equal(t, 100, c.Len())
}
