package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/fatih/color"
)

// tapePrinter renders trade tape events as fixed-width lines.
type tapePrinter struct {
	w       io.Writer
	symbol  string
	limit   int
	printed int

	cyan   func(string, ...interface{}) string
	green  func(string, ...interface{}) string
	yellow func(string, ...interface{}) string
}

func newTapePrinter(w io.Writer, symbol string, limit int) *tapePrinter {
	return &tapePrinter{
		w:      w,
		symbol: symbol,
		limit:  limit,
		cyan:   color.New(color.FgCyan).SprintfFunc(),
		green:  color.New(color.FgGreen).SprintfFunc(),
		yellow: color.New(color.FgYellow).SprintfFunc(),
	}
}

func (p *tapePrinter) header() {
	fmt.Fprintf(p.w, "%-18s|%-8s|%12s|%10s|%12s|%s\n",
		p.cyan("Time"), p.cyan("Symbol"), p.cyan("Price"), p.cyan("Shares"), p.cyan("Match"), p.cyan("Kind"))
}

// errLimit stops consumption once enough trades were printed.
var errLimit = errors.New("trade limit reached")

// print writes one trade and returns errLimit after the last one wanted.
func (p *tapePrinter) print(t *messaging.TradeMessage) error {
	if p.symbol != "" && t.Symbol != p.symbol {
		return nil
	}
	kind := p.green("TRADE")
	if t.CrossType != "" {
		kind = p.yellow("CROSS " + t.CrossType)
	}
	fmt.Fprintf(p.w, "%-18s|%-8s|%12s|%10d|%12d|%s\n",
		itch.FormatTimestamp(t.Timestamp), t.Symbol, t.Price, t.Shares, t.MatchNumber, kind)
	p.printed++
	if p.limit > 0 && p.printed >= p.limit {
		return errLimit
	}
	return nil
}
