package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/erain9/itchbook/pkg/core"
)

// BookSnapshotSink appends instrument book snapshots to one CSV stream per
// symbol. Each snapshot is a block that starts with the instrument book
// header, so a stream can be split back into snapshots on that line.
type BookSnapshotSink struct {
	mu      sync.Mutex
	open    func(symbol string) (io.WriteCloser, error)
	streams map[string]*snapshotStream
}

type snapshotStream struct {
	w  io.WriteCloser
	cw *csv.Writer
}

// NewBookSnapshotSink creates a sink that writes <dir>/<symbol>_book.csv.
func NewBookSnapshotSink(dir string) *BookSnapshotSink {
	return NewBookSnapshotSinkFunc(func(symbol string) (io.WriteCloser, error) {
		return os.Create(filepath.Join(dir, symbol+"_book.csv"))
	})
}

// NewBookSnapshotSinkFunc creates a sink that opens each symbol's stream with open.
func NewBookSnapshotSinkFunc(open func(symbol string) (io.WriteCloser, error)) *BookSnapshotSink {
	return &BookSnapshotSink{
		open:    open,
		streams: make(map[string]*snapshotStream),
	}
}

// WriteSnapshot appends one block for symbol.
func (s *BookSnapshotSink) WriteSnapshot(_ context.Context, symbol string, _ uint64, orders []core.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[symbol]
	if !ok {
		w, err := s.open(symbol)
		if err != nil {
			return fmt.Errorf("open snapshot stream for %s: %w", symbol, err)
		}
		st = &snapshotStream{w: w, cw: csv.NewWriter(w)}
		s.streams[symbol] = st
	}
	if err := writeBookBlock(st.cw, orders); err != nil {
		return err
	}
	st.cw.Flush()
	return st.cw.Error()
}

// Close flushes and closes every stream.
func (s *BookSnapshotSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for symbol, st := range s.streams {
		st.cw.Flush()
		if err := st.cw.Error(); err != nil {
			errs = append(errs, err)
		}
		if err := st.w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close snapshot stream for %s: %w", symbol, err))
		}
		delete(s.streams, symbol)
	}
	return errors.Join(errs...)
}
