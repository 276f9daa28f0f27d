package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/reference"
)

// Exporter writes the end-of-run reports into a directory.
type Exporter struct {
	Dir          string
	Book         *core.OrderBook
	Instruments  *reference.InstrumentStore
	Participants *reference.ParticipantRegistry
}

// Report file names
const (
	OrderBookFile    = "order_book.csv"
	InstrumentsFile  = "instruments.csv"
	ParticipantsFile = "participants.csv"
)

// Export writes the full order book, the instrument and participant tables,
// and the book and execution prices of each symbol in watch. It returns the
// paths written.
func (e *Exporter) Export(watch []string) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	snap := e.Book.Snapshot()
	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(e.Dir, name)
		if err := writeFile(path, fn); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write(OrderBookFile, func(w io.Writer) error { return WriteOrderBook(w, snap.Orders) }); err != nil {
		return written, err
	}
	if err := write(InstrumentsFile, func(w io.Writer) error { return WriteInstruments(w, e.Instruments.All()) }); err != nil {
		return written, err
	}
	if err := write(ParticipantsFile, func(w io.Writer) error { return WriteParticipants(w, e.Participants.All()) }); err != nil {
		return written, err
	}

	for _, symbol := range watch {
		locate, err := e.Instruments.LookupLocate(itch.SymbolFromString(symbol))
		if err != nil {
			return written, fmt.Errorf("watched symbol %s: %w", symbol, err)
		}
		orders := e.Book.OrdersByLocate(locate)
		if err := write(symbol+"_orders.csv", func(w io.Writer) error { return WriteInstrumentBook(w, orders) }); err != nil {
			return written, err
		}
		prices := e.Book.TradePrices(locate)
		if err := write(symbol+"_executions.csv", func(w io.Writer) error { return WriteExecutionPrices(w, prices) }); err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
