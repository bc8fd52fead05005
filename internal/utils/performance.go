package utils

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Elapsed returns the time since the timer started without stopping it.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop stops the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	return t.StopWithFields(nil)
}

// StopWithFields stops the timer and logs the duration together with fields.
// Runs over 10s are reported at Info, over 30s at Warn.
func (t *Timer) StopWithFields(fields map[string]any) time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Fields(fields).
		Dur("duration_ms", duration).
		Float64("duration_seconds", duration.Seconds()).
		Msg("Performance measurement")

	switch {
	case duration > 30*time.Second:
		t.log.Warn().Str("operation", t.name).Dur("duration", duration).Msg("Slow operation detected (>30s)")
	case duration > 10*time.Second:
		t.log.Info().Str("operation", t.name).Dur("duration", duration).Msg("Operation took longer than expected (>10s)")
	}

	return duration
}

// OperationTimer returns a function that logs the time since the call at
// Debug. It is meant to be deferred:
//
//	defer utils.OperationTimer("evolve", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() { t.Stop() }
}

// PerformanceMetrics aggregates durations of repeated operations. It is safe
// for concurrent use.
type PerformanceMetrics struct {
	OperationName string
	CallCount     int64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration

	mu sync.Mutex
}

// NewPerformanceMetrics creates an empty aggregate for operation.
func NewPerformanceMetrics(operation string) *PerformanceMetrics {
	return &PerformanceMetrics{OperationName: operation}
}

// Record adds one observed duration.
func (pm *PerformanceMetrics) Record(d time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.CallCount == 0 || d < pm.MinDuration {
		pm.MinDuration = d
	}
	if d > pm.MaxDuration {
		pm.MaxDuration = d
	}
	pm.CallCount++
	pm.TotalDuration += d
	pm.AvgDuration = pm.TotalDuration / time.Duration(pm.CallCount)
}

// LogMetrics logs the aggregated performance metrics
func (pm *PerformanceMetrics) LogMetrics(log zerolog.Logger) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.CallCount == 0 {
		return
	}

	log.Info().
		Str("operation", pm.OperationName).
		Int64("call_count", pm.CallCount).
		Dur("total_duration", pm.TotalDuration).
		Dur("avg_duration", pm.AvgDuration).
		Dur("min_duration", pm.MinDuration).
		Dur("max_duration", pm.MaxDuration).
		Msg("Performance metrics summary")
}
