package utils

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_Stop(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("evolve", log)
	time.Sleep(2 * time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Contains(t, buf.String(), `"operation":"evolve"`)
	assert.Contains(t, buf.String(), "Performance measurement")
}

func TestTimer_StopWithFields(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer("batch", zerolog.New(&buf).Level(zerolog.DebugLevel))
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Elapsed(), time.Millisecond)

	timer.StopWithFields(map[string]any{
		"runs":      3,
		"converged": true,
		"reason":    "patience",
	})

	out := buf.String()
	assert.Contains(t, out, `"runs":3`)
	assert.Contains(t, out, `"converged":true`)
	assert.Contains(t, out, `"reason":"patience"`)
}

func TestTimer_QuietAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer("optimize", zerolog.New(&buf).Level(zerolog.InfoLevel))

	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.Stop(), time.Duration(0))
	assert.Empty(t, buf.String())
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	done := OperationTimer("evolve", zerolog.New(&buf).Level(zerolog.DebugLevel))
	assert.Empty(t, buf.String())

	done()
	assert.Contains(t, buf.String(), `"operation":"evolve"`)
}

func TestPerformanceMetrics_Record(t *testing.T) {
	pm := NewPerformanceMetrics("build_operator")

	var wg sync.WaitGroup
	for _, d := range []time.Duration{3, 1, 2} {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			pm.Record(d * time.Millisecond)
		}(d)
	}
	wg.Wait()

	assert.Equal(t, int64(3), pm.CallCount)
	assert.Equal(t, time.Millisecond, pm.MinDuration)
	assert.Equal(t, 3*time.Millisecond, pm.MaxDuration)
	assert.Equal(t, 2*time.Millisecond, pm.AvgDuration)

	var buf bytes.Buffer
	pm.LogMetrics(zerolog.New(&buf))
	assert.Contains(t, buf.String(), `"call_count":3`)
}
