package feed

import (
	"fmt"

	"github.com/erain9/itchbook/pkg/messaging"
	"golang.org/x/time/rate"
)

// Policy decides what the dispatcher does after a consistency violation.
type Policy string

// Policies
const (
	// PolicyHalt stops the replay at the first violation.
	PolicyHalt Policy = "halt"
	// PolicySkip drops the offending event and continues.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates s as a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyHalt, PolicySkip:
		return p, nil
	case "":
		return PolicyHalt, nil
	default:
		return "", fmt.Errorf("unknown violation policy %q", s)
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy sets the violation policy. The default is PolicyHalt.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithTradeSender publishes every ledger contribution to s.
func WithTradeSender(s messaging.TradeSender) Option {
	return func(d *Dispatcher) { d.sender = s }
}

// WithSnapshots writes a book snapshot of each watched symbol to every sink
// after each frames-th frame.
func WithSnapshots(frames uint64, symbols []string, sinks ...SnapshotSink) Option {
	return func(d *Dispatcher) {
		d.snapshotEvery = frames
		d.watch = symbols
		d.sinks = append(d.sinks, sinks...)
	}
}

// WithRateLimit paces the replay to at most perSecond frames per second.
// Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(d *Dispatcher) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithPipeline lets decoding run up to depth frames ahead of the book. Zero
// keeps the replay on one goroutine.
func WithPipeline(depth int) Option {
	return func(d *Dispatcher) {
		if depth < 0 {
			depth = 0
		}
		d.depth = depth
	}
}

// WithErrorHandler is called for every frame error the policy lets the
// replay survive.
func WithErrorHandler(fn func(*FrameError)) Option {
	return func(d *Dispatcher) { d.onError = fn }
}
