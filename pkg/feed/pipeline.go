package feed

import (
	"context"
	"io"

	"github.com/erain9/itchbook/pkg/itch"
	"golang.org/x/sync/errgroup"
)

// runPipeline decodes on one goroutine and applies on another, joined by a
// channel of d.depth items. A full channel blocks the decoder.
func (d *Dispatcher) runPipeline(ctx context.Context, r io.Reader) (Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	items := make(chan item, d.depth)

	g.Go(func() error {
		defer close(items)
		reader := itch.NewReader(r)
		for index := uint64(1); ; index++ {
			it, ok := readItem(reader, index)
			if !ok {
				return nil
			}
			select {
			case items <- it:
			case <-gctx.Done():
				return gctx.Err()
			}
			// Nothing after a failed or terminating frame can be trusted.
			if it.err != nil || it.class == itch.ClassUnknown {
				return nil
			}
		}
	})

	var res Result
	g.Go(func() error {
		for it := range items {
			if err := gctx.Err(); err != nil {
				return err
			}
			stop, r, err := d.handle(gctx, it)
			if stop {
				res = r
				if err != nil {
					return err
				}
				return errStopped
			}
		}
		res = Result{Reason: StopEndOfStream}
		return nil
	})

	err := g.Wait()
	if err == errStopped {
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// errStopped ends the pipeline early without reporting an error.
var errStopped = stopError{}

type stopError struct{}

func (stopError) Error() string { return "feed stopped" }
