package otel

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	ServiceFeed   = "itch-feed"
	ServiceEngine = "itch-book-engine"
)

var (
	mu             sync.RWMutex
	feedTracer     trace.Tracer
	engineTracer   trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
)

// Config holds the OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceVersion   string
	Endpoint         string
	ConnectTimeout   time.Duration
	CollectorEnabled bool
}

// Init wires the OTLP trace and metric exporters when a collector is enabled.
// Without a collector the global no-op providers stay in place and spans are
// still safe to start. The returned func flushes and shuts everything down.
func Init(cfg Config) (func(), error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = ServiceFeed
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "0.1.0"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	var cleanup []func()
	shutdown := func(name string, fn func(context.Context) error) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
			defer cancel()
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Str("provider", name).Msg("Error shutting down provider")
			}
		}
	}

	if cfg.CollectorEnabled {
		res := initResource(cfg.ServiceName, cfg.ServiceVersion)

		tp, err := initTracerProvider(cfg, res)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracer provider, continuing without traces")
		} else {
			cleanup = append(cleanup, shutdown("tracer", tp.Shutdown))
		}

		mp, err := initMeterProvider(cfg, res)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize meter provider, continuing without metrics")
		} else {
			cleanup = append(cleanup, shutdown("meter", mp.Shutdown))
		}

		mu.Lock()
		tracerProvider = tp
		meterProvider = mp
		mu.Unlock()
	}

	tp := otel.GetTracerProvider()
	mu.Lock()
	feedTracer = tp.Tracer(ServiceFeed)
	engineTracer = tp.Tracer(ServiceEngine)
	mu.Unlock()

	return func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}, nil
}

func initResource(serviceName, serviceVersion string) *sdkresource.Resource {
	extraResources, err := sdkresource.New(
		context.Background(),
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		sdkresource.WithOS(),
		sdkresource.WithProcess(),
		sdkresource.WithHost(),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create resource")
		return sdkresource.Default()
	}

	resource, err := sdkresource.Merge(sdkresource.Default(), extraResources)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to merge resources")
		return sdkresource.Default()
	}
	return resource
}

func dialCollector(cfg Config) (*grpc.ClientConn, error) {
	return grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

func initTracerProvider(cfg Config, resource *sdkresource.Resource) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	conn, err := dialCollector(cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1))),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return tp, nil
}

func initMeterProvider(cfg Config, resource *sdkresource.Resource) (*sdkmetric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	conn, err := dialCollector(cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(5*time.Second))),
		sdkmetric.WithResource(resource),
	)
	otel.SetMeterProvider(mp)

	return mp, nil
}

// GetFeedTracer returns the tracer for the feed dispatcher
func GetFeedTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return feedTracer
}

// GetEngineTracer returns the tracer for the book engine
func GetEngineTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return engineTracer
}

// GetMeterProvider returns the SDK meter provider, or the global one when no
// collector is configured.
func GetMeterProvider() metric.MeterProvider {
	mu.RLock()
	defer mu.RUnlock()
	if meterProvider != nil {
		return meterProvider
	}
	return otel.GetMeterProvider()
}

// ResetForTesting resets the global tracers
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	feedTracer = nil
	engineTracer = nil
	tracerProvider = nil
	meterProvider = nil
}

// InitForTesting installs tracer for both services
func InitForTesting(tracer trace.Tracer) {
	mu.Lock()
	defer mu.Unlock()
	feedTracer = tracer
	engineTracer = tracer
}
