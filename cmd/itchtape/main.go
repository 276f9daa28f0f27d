package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/erain9/itchbook/pkg/db/queue"
	"github.com/erain9/itchbook/pkg/logging"
	"github.com/erain9/itchbook/pkg/messaging/kafka"
	"github.com/rs/zerolog/log"
)

func main() {
	driver := flag.String("driver", "kafka-go", "Tape format: kafka-go (JSON) or sarama (protobuf wire)")
	broker := flag.String("broker", "localhost:9092", "Kafka broker address")
	topic := flag.String("topic", "itch-trades", "Trade tape topic")
	group := flag.String("group", "itchtape", "Consumer group (kafka-go only)")
	oldest := flag.Bool("oldest", true, "Start from the oldest offset (sarama only)")
	symbol := flag.String("symbol", "", "Only print trades for this symbol")
	limit := flag.Int("limit", 0, "Stop after this many trades, 0 for no limit")
	logLevel := flag.String("log_level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logging.Setup(logging.Config{Level: *logLevel, Pretty: true, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := newTapePrinter(os.Stdout, *symbol, *limit)
	printer.header()

	var err error
	switch *driver {
	case "kafka-go":
		consumer := kafka.NewTradeConsumer(*broker, *topic, *group, log.Logger)
		defer consumer.Close()
		err = consumer.Consume(ctx, printer.print)
	case "sarama":
		consumer, cerr := queue.NewQueueTradeConsumer([]string{*broker}, *topic)
		if cerr != nil {
			log.Fatal().Err(cerr).Msg("Failed to create consumer")
		}
		defer consumer.Close()
		offset := sarama.OffsetNewest
		if *oldest {
			offset = sarama.OffsetOldest
		}
		err = consumer.ConsumeTrades(ctx, offset, printer.print)
	default:
		log.Fatal().Str("driver", *driver).Msg("Unknown driver")
	}

	if err != nil && !errors.Is(err, errLimit) && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Trade tape consumer failed")
		os.Exit(1)
	}
	log.Info().Int("trades", printer.printed).Msg("Trade tape closed")
}
