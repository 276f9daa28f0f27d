package feed

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/erain9/itchbook/pkg/itch"
)

// Stats counts what a replay did. It is safe for concurrent use.
type Stats struct {
	mu              sync.Mutex
	byType          map[itch.MessageType]uint64
	frames          uint64
	skipped         uint64
	ignored         uint64
	violations      uint64
	lookupErrors    uint64
	tradesPublished uint64
	publishErrors   uint64
	snapshots       uint64
	latency         *hdrhistogram.Histogram
	started         time.Time
	elapsed         time.Duration
}

// StatsSummary is a point-in-time copy of Stats.
type StatsSummary struct {
	Frames          uint64
	ByType          map[itch.MessageType]uint64
	Skipped         uint64
	Ignored         uint64
	Violations      uint64
	LookupErrors    uint64
	TradesPublished uint64
	PublishErrors   uint64
	Snapshots       uint64
	Elapsed         time.Duration
	LatencyP50      time.Duration
	LatencyP99      time.Duration
	LatencyMax      time.Duration
	LatencyMean     time.Duration
}

// FramesPerSecond is the replay throughput, or zero before any time elapsed.
func (s StatsSummary) FramesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Elapsed.Seconds()
}

// NewStats creates empty stats. Apply latency is tracked from 1ns to 10s.
func NewStats() *Stats {
	return &Stats{
		byType:  make(map[itch.MessageType]uint64),
		latency: hdrhistogram.New(1, int64(10*time.Second), 3),
	}
}

func (s *Stats) start() {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()
}

func (s *Stats) stop() {
	s.mu.Lock()
	s.elapsed = time.Since(s.started)
	s.mu.Unlock()
}

func (s *Stats) frame(t itch.MessageType, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.byType[t]++
	if d < 1 {
		d = 1
	}
	_ = s.latency.RecordValue(int64(d))
}

func (s *Stats) add(field *uint64) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Summary returns a copy of the counters.
func (s *Stats) Summary() StatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[itch.MessageType]uint64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}
	elapsed := s.elapsed
	if elapsed == 0 && !s.started.IsZero() {
		elapsed = time.Since(s.started)
	}
	return StatsSummary{
		Frames:          s.frames,
		ByType:          byType,
		Skipped:         s.skipped,
		Ignored:         s.ignored,
		Violations:      s.violations,
		LookupErrors:    s.lookupErrors,
		TradesPublished: s.tradesPublished,
		PublishErrors:   s.publishErrors,
		Snapshots:       s.snapshots,
		Elapsed:         elapsed,
		LatencyP50:      time.Duration(s.latency.ValueAtQuantile(50)),
		LatencyP99:      time.Duration(s.latency.ValueAtQuantile(99)),
		LatencyMax:      time.Duration(s.latency.Max()),
		LatencyMean:     time.Duration(s.latency.Mean()),
	}
}
