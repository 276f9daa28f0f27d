package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/erain9/itchbook/config"
	"github.com/erain9/itchbook/pkg/backend/memory"
	redisbackend "github.com/erain9/itchbook/pkg/backend/redis"
	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/db/queue"
	"github.com/erain9/itchbook/pkg/feed"
	"github.com/erain9/itchbook/pkg/logging"
	"github.com/erain9/itchbook/pkg/messaging"
	"github.com/erain9/itchbook/pkg/messaging/kafka"
	"github.com/erain9/itchbook/pkg/otel"
	"github.com/erain9/itchbook/pkg/reference"
	"github.com/erain9/itchbook/pkg/report"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Format == "pretty",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		log.Error().Err(err).Msg("Replay failed")
		os.Exit(1)
	}
}

// run replays the configured feed and writes the reports. The console
// summary goes to out.
func run(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	ctx, runID := logging.NewRunContext(ctx)
	logger := logging.FromContext(ctx)

	cleanup, err := otel.Init(otel.Config{
		ServiceName:      otel.ServiceFeed,
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.Enabled,
	})
	if err != nil {
		return fmt.Errorf("initialize OpenTelemetry: %w", err)
	}
	defer cleanup()
	if cfg.Otel.Enabled {
		if err := otel.StartRuntimeMetrics(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	zapLogger, err := logging.NewZapLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("create zap logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	redisbackend.SetDefaultRedisOptions(&redisbackend.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	backend, closeBackend, err := newBackend(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer closeBackend()
	book := core.NewOrderBook(backend)
	instruments := reference.NewInstrumentStore()
	participants := reference.NewParticipantRegistry()

	policy, err := feed.ParsePolicy(cfg.Feed.Policy)
	if err != nil {
		return err
	}
	opts := []feed.Option{
		feed.WithPolicy(policy),
		feed.WithPipeline(cfg.Feed.PipelineDepth),
		feed.WithRateLimit(cfg.Feed.RateLimit),
		feed.WithErrorHandler(func(fe *feed.FrameError) {
			logger.Debug().Err(fe).Msg("Frame error passed by policy")
		}),
	}

	sender, err := newTradeSender(cfg)
	if err != nil {
		return err
	}
	if sender != nil {
		defer func() {
			if cerr := sender.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("Failed to close trade sender")
			}
		}()
		opts = append(opts, feed.WithTradeSender(sender))
	}

	var redisSink *redisbackend.SnapshotSink
	if cfg.Redis.Enabled {
		redisSink = redisbackend.NewSnapshotSink(redisbackend.GetRedisClient(), cfg.Redis.Prefix, cfg.Redis.SnapshotKeep, zapLogger)
		defer redisSink.Close()
	}

	if cfg.Report.SnapshotEvery > 0 {
		if err := os.MkdirAll(cfg.Report.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		csvSink := report.NewBookSnapshotSink(cfg.Report.OutputDir)
		defer func() {
			err = errors.Join(err, csvSink.Close())
		}()
		sinks := []feed.SnapshotSink{csvSink}
		if redisSink != nil {
			sinks = append(sinks, redisSink)
		}
		opts = append(opts, feed.WithSnapshots(cfg.Report.SnapshotEvery, cfg.Report.Watch, sinks...))
	}

	f, err := os.Open(cfg.Feed.Path)
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	dispatcher := feed.NewDispatcher(book, instruments, participants, opts...)
	res, runErr := dispatcher.Run(ctx, bufio.NewReaderSize(f, 1<<20))
	stats := dispatcher.Stats()

	totals := report.Totals{
		Orders:       book.OrderCount(),
		Trades:       book.TradeCount(),
		Instruments:  instruments.Len(),
		Participants: participants.Len(),
	}
	if err := report.PrintSummary(out, res, stats, totals); err != nil {
		logger.Warn().Err(err).Msg("Failed to print summary")
	}

	if redisSink != nil {
		summary := map[string]any{
			"run_id":      runID,
			"feed":        cfg.Feed.Path,
			"frames":      res.Frames,
			"stop_reason": string(res.Reason),
			"orders":      totals.Orders,
			"trades":      totals.Trades,
			"violations":  stats.Violations,
		}
		if err := redisSink.WriteSummary(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to write run summary to Redis")
		}
	}

	if runErr != nil {
		return runErr
	}

	exporter := &report.Exporter{
		Dir:          cfg.Report.OutputDir,
		Book:         book,
		Instruments:  instruments,
		Participants: participants,
	}
	written, err := exporter.Export(cfg.Report.Watch)
	if err != nil {
		return fmt.Errorf("export reports: %w", err)
	}
	logger.Info().Strs("files", written).Msg("Reports written")
	return nil
}

// newBackend returns an empty store for the book. A Redis backend is cleared
// of whatever an earlier replay left under the same prefix.
func newBackend(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (core.OrderBookBackend, func(), error) {
	if cfg.Feed.Backend == config.BackendRedis {
		b := redisbackend.NewRedisBackend(redisbackend.GetRedisClient(), cfg.Redis.Prefix, zapLogger).WithContext(ctx)
		if err := b.Reset(); err != nil {
			_ = b.Close()
			return nil, nil, fmt.Errorf("reset redis backend: %w", err)
		}
		return b, func() { _ = b.Close() }, nil
	}
	return memory.NewMemoryBackend(), func() {}, nil
}

func newTradeSender(cfg *config.Config) (messaging.TradeSender, error) {
	switch cfg.Kafka.Driver {
	case config.DriverKafkaGo:
		s, err := kafka.NewKafkaTradeSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("create kafka-go trade sender: %w", err)
		}
		return s, nil
	case config.DriverSarama:
		s, err := queue.NewQueueTradeSender([]string{cfg.Kafka.BrokerAddr}, cfg.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("create sarama trade sender: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}
