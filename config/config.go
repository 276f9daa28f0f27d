package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Feed struct {
		Path          string  `yaml:"path"`
		PipelineDepth int     `yaml:"pipeline_depth"`
		RateLimit     float64 `yaml:"rate_limit"`
		Policy        string  `yaml:"policy"`
		Backend       string  `yaml:"backend"`
	} `yaml:"feed"`

	Report struct {
		OutputDir     string   `yaml:"output_dir"`
		Watch         []string `yaml:"watch"`
		SnapshotEvery uint64   `yaml:"snapshot_every"`
	} `yaml:"report"`

	Redis struct {
		Enabled      bool   `yaml:"enabled"`
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		Prefix       string `yaml:"prefix"`
		SnapshotKeep int64  `yaml:"snapshot_keep"`
	} `yaml:"redis"`

	Kafka struct {
		Driver     string `yaml:"driver"`
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
	} `yaml:"kafka"`

	Otel struct {
		Enabled  bool   `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Kafka drivers
const (
	DriverNone    = "none"
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// Engine backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment override, e.g. ITCH_FEED_PATH.
const EnvPrefix = "ITCH"

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Feed.Policy = "halt"
	cfg.Feed.Backend = BackendMemory
	cfg.Report.OutputDir = "reports"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Prefix = "itch"
	cfg.Redis.SnapshotKeep = 100
	cfg.Kafka.Driver = DriverNone
	cfg.Kafka.BrokerAddr = "localhost:9092"
	cfg.Kafka.Topic = "itch-trades"
	cfg.Otel.Endpoint = "localhost:4317"
	return cfg
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// ITCH_* environment variables and finally the command line flags in args.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("itchreplay", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to config file (YAML)")
	feedPath := fs.String("feed", "", "Path to the ITCH 5.0 feed file")
	logLevel := fs.String("log_level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log_format", "", "Log format: json, pretty")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := Default()

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(config)

	if *feedPath != "" {
		config.Feed.Path = *feedPath
	}
	if *logLevel != "" {
		config.Log.Level = *logLevel
	}
	if *logFormat != "" {
		config.Log.Format = *logFormat
	}
	if config.Feed.Path == "" && fs.NArg() > 0 {
		config.Feed.Path = fs.Arg(0)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnv overrides cfg with any ITCH_* environment variables.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	v.SetDefault("LOG_LEVEL", cfg.Log.Level)
	v.SetDefault("LOG_FORMAT", cfg.Log.Format)
	v.SetDefault("FEED_PATH", cfg.Feed.Path)
	v.SetDefault("FEED_PIPELINE_DEPTH", cfg.Feed.PipelineDepth)
	v.SetDefault("FEED_RATE_LIMIT", cfg.Feed.RateLimit)
	v.SetDefault("FEED_POLICY", cfg.Feed.Policy)
	v.SetDefault("FEED_BACKEND", cfg.Feed.Backend)
	v.SetDefault("REPORT_OUTPUT_DIR", cfg.Report.OutputDir)
	v.SetDefault("REPORT_WATCH", strings.Join(cfg.Report.Watch, ","))
	v.SetDefault("REPORT_SNAPSHOT_EVERY", cfg.Report.SnapshotEvery)
	v.SetDefault("REDIS_ENABLED", cfg.Redis.Enabled)
	v.SetDefault("REDIS_ADDR", cfg.Redis.Addr)
	v.SetDefault("REDIS_PASSWORD", cfg.Redis.Password)
	v.SetDefault("REDIS_DB", cfg.Redis.DB)
	v.SetDefault("REDIS_PREFIX", cfg.Redis.Prefix)
	v.SetDefault("REDIS_SNAPSHOT_KEEP", cfg.Redis.SnapshotKeep)
	v.SetDefault("KAFKA_DRIVER", cfg.Kafka.Driver)
	v.SetDefault("KAFKA_BROKER_ADDR", cfg.Kafka.BrokerAddr)
	v.SetDefault("KAFKA_TOPIC", cfg.Kafka.Topic)
	v.SetDefault("OTEL_ENABLED", cfg.Otel.Enabled)
	v.SetDefault("OTEL_ENDPOINT", cfg.Otel.Endpoint)

	v.AutomaticEnv()

	cfg.Log.Level = v.GetString("LOG_LEVEL")
	cfg.Log.Format = v.GetString("LOG_FORMAT")
	cfg.Feed.Path = v.GetString("FEED_PATH")
	cfg.Feed.PipelineDepth = v.GetInt("FEED_PIPELINE_DEPTH")
	cfg.Feed.RateLimit = v.GetFloat64("FEED_RATE_LIMIT")
	cfg.Feed.Policy = v.GetString("FEED_POLICY")
	cfg.Feed.Backend = v.GetString("FEED_BACKEND")
	cfg.Report.OutputDir = v.GetString("REPORT_OUTPUT_DIR")
	cfg.Report.Watch = splitList(v.GetString("REPORT_WATCH"))
	cfg.Report.SnapshotEvery = v.GetUint64("REPORT_SNAPSHOT_EVERY")
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.Prefix = v.GetString("REDIS_PREFIX")
	cfg.Redis.SnapshotKeep = v.GetInt64("REDIS_SNAPSHOT_KEEP")
	cfg.Kafka.Driver = v.GetString("KAFKA_DRIVER")
	cfg.Kafka.BrokerAddr = v.GetString("KAFKA_BROKER_ADDR")
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Otel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.Otel.Endpoint = v.GetString("OTEL_ENDPOINT")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values the replay cannot run with.
func (c *Config) Validate() error {
	if c.Feed.Path == "" {
		return fmt.Errorf("feed path must not be empty")
	}
	if c.Feed.PipelineDepth < 0 {
		return fmt.Errorf("feed pipeline_depth must not be negative")
	}
	if c.Feed.RateLimit < 0 {
		return fmt.Errorf("feed rate_limit must not be negative")
	}
	switch c.Feed.Policy {
	case "halt", "skip":
	default:
		return fmt.Errorf("feed policy must be halt or skip, got %q", c.Feed.Policy)
	}
	switch c.Feed.Backend {
	case BackendMemory:
	case BackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("feed backend redis requires redis to be enabled")
		}
	default:
		return fmt.Errorf("feed backend must be memory or redis, got %q", c.Feed.Backend)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("log format must be json or pretty, got %q", c.Log.Format)
	}
	switch c.Kafka.Driver {
	case DriverNone:
	case DriverKafkaGo, DriverSarama:
		if c.Kafka.BrokerAddr == "" || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka driver %s needs broker_addr and topic", c.Kafka.Driver)
		}
	default:
		return fmt.Errorf("kafka driver must be none, kafka-go or sarama, got %q", c.Kafka.Driver)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr must not be empty when redis is enabled")
	}
	if len(c.Report.Watch) == 0 && c.Report.SnapshotEvery > 0 {
		return fmt.Errorf("report snapshot_every needs at least one watched symbol")
	}
	return nil
}
