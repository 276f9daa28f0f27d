package feed

import (
	"testing"
	"time"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	s := NewStats()
	s.start()
	s.frame(itch.TypeAddOrder, time.Microsecond)
	s.frame(itch.TypeAddOrder, 3*time.Microsecond)
	s.frame(itch.TypeOrderExecuted, 0)
	s.add(&s.violations)
	s.stop()

	sum := s.Summary()
	assert.Equal(t, uint64(3), sum.Frames)
	assert.Equal(t, uint64(2), sum.ByType[itch.TypeAddOrder])
	assert.Equal(t, uint64(1), sum.Violations)
	assert.InDelta(t, float64(3*time.Microsecond), float64(sum.LatencyMax), float64(10*time.Nanosecond))
	assert.Greater(t, sum.Elapsed, time.Duration(0))
	assert.Greater(t, sum.FramesPerSecond(), 0.0)

	// The summary is a copy.
	sum.ByType[itch.TypeAddOrder] = 99
	assert.Equal(t, uint64(2), s.Summary().ByType[itch.TypeAddOrder])
}

func TestStatsSummary_FramesPerSecond(t *testing.T) {
	assert.Zero(t, StatsSummary{Frames: 10}.FramesPerSecond())
	assert.Equal(t, 5.0, StatsSummary{Frames: 10, Elapsed: 2 * time.Second}.FramesPerSecond())
}
