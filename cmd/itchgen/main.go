package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/erain9/itchbook/pkg/logging"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	out := flag.String("out", "-", "Output file, - for stdout")
	symbols := flag.String("symbols", "AAPL,MSFT,TSLA", "Comma-separated symbols")
	events := flag.Int("events", 100000, "Number of order flow events")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	rateLimit := flag.Float64("rate", 0, "Frames per second, 0 for unlimited")
	terminate := flag.Bool("terminate", true, "End the feed with an unrecognised frame")
	logLevel := flag.String("log_level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logging.Setup(logging.Config{Level: *logLevel, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var syms []string
	for _, s := range strings.Split(*symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			syms = append(syms, s)
		}
	}
	if len(syms) == 0 {
		log.Fatal().Msg("At least one symbol is required")
	}

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriterSize(w, 1<<20)

	var limiter *rate.Limiter
	if *rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rateLimit), 1)
	}

	start := time.Now()
	g := newGenerator(*seed, syms)
	frames, err := g.Generate(ctx, bw, *events, limiter, *terminate)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Error().Err(err).Int("frames", frames).Msg("Feed generation failed")
		os.Exit(1)
	}

	log.Info().
		Int("frames", frames).
		Int64("seed", *seed).
		Dur("elapsed", time.Since(start)).
		Str("out", *out).
		Msgf("Generated feed for %d symbols", len(syms))
}
