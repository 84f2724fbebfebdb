package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mr1hm/disaster-watch/internal/ingestion"
	"github.com/mr1hm/disaster-watch/internal/kvstore"
)

// FileEnv names an optional YAML file layered between the defaults and the environment.
const FileEnv = "DISASTER_WATCH_CONFIG"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Worker    WorkerConfig    `koanf:"worker"`
	Sources   SourcesConfig   `koanf:"sources"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	DB        DatabaseConfig  `koanf:"db"`
	KV        KVConfig        `koanf:"kv"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type WorkerConfig struct {
	Count      int `koanf:"count"`
	BufferSize int `koanf:"buffer_size"`
}

type SourcesConfig struct {
	USGSEnabled  bool          `koanf:"usgs_enabled"`
	USGSURL      string        `koanf:"usgs_url"`
	EONETEnabled bool          `koanf:"eonet_enabled"`
	EONETURL     string        `koanf:"eonet_url"`
	Timeout      time.Duration `koanf:"timeout"` // per source, retries included
	MaxRetries   int           `koanf:"max_retries"`
}

type RefreshConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type KVConfig struct {
	Backend   string `koanf:"backend"` // sqlite | redis
	Namespace string `koanf:"namespace"`
	RedisURL  string `koanf:"redis_url"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"` // empty disables publishing
	Topic   string   `koanf:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// envKeys maps the supported environment variables onto koanf paths.
var envKeys = map[string]string{
	"SERVER_HOST":        "server.host",
	"SERVER_PORT":        "server.port",
	"LOG_LEVEL":          "logging.level",
	"LOG_FORMAT":         "logging.format",
	"USGS_ENABLED":       "sources.usgs_enabled",
	"USGS_URL":           "sources.usgs_url",
	"EONET_ENABLED":      "sources.eonet_enabled",
	"EONET_URL":          "sources.eonet_url",
	"SOURCE_TIMEOUT":     "sources.timeout",
	"SOURCE_MAX_RETRIES": "sources.max_retries",
	"REFRESH_ENABLED":    "refresh.enabled",
	"REFRESH_INTERVAL":   "refresh.interval",
	"WORKER_COUNT":       "worker.count",
	"WORKER_BUFFER_SIZE": "worker.buffer_size",
	"DB_PATH":            "db.path",
	"KV_BACKEND":         "kv.backend",
	"KV_NAMESPACE":       "kv.namespace",
	"REDIS_URL":          "kv.redis_url",
	"KAFKA_BROKERS":      "kafka.brokers",
	"KAFKA_TOPIC":        "kafka.topic",
	"RATE_LIMIT_RPS":     "rate_limit.rps",
	"RATE_LIMIT_BURST":   "rate_limit.burst",
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Worker: WorkerConfig{
			Count:      2,
			BufferSize: 100,
		},
		Sources: SourcesConfig{
			USGSEnabled:  true,
			USGSURL:      ingestion.DefaultUSGSURL,
			EONETEnabled: true,
			EONETURL:     ingestion.DefaultEONETURL,
			Timeout:      15 * time.Second,
			MaxRetries:   2,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		DB: DatabaseConfig{
			Path: "./data/disaster-watch.db",
		},
		KV: KVConfig{
			Backend:   "sqlite",
			Namespace: "preferences",
		},
		Kafka: KafkaConfig{
			Topic: "disaster-events",
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config by layering, lowest precedence first:
//  1. Default()
//  2. the YAML file named by DISASTER_WATCH_CONFIG, if set
//  3. environment variables listed in envKeys; empty values are ignored
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		path, ok := envKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		if key == "KAFKA_BROKERS" {
			return path, splitList(value)
		}
		return path, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
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

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Sources.Timeout <= 0 {
		return fmt.Errorf("source timeout must be positive")
	}
	if c.Sources.MaxRetries < 0 {
		return fmt.Errorf("source max retries must not be negative")
	}
	if c.Refresh.Interval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if !slices.Contains([]string{"sqlite", "redis"}, c.KV.Backend) {
		return fmt.Errorf("invalid kv backend: %s", c.KV.Backend)
	}
	if c.KV.Backend == "redis" && c.KV.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when KV_BACKEND=redis")
	}
	if err := kvstore.ValidateNamespace(c.KV.Namespace); err != nil {
		return err
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimit.RPS, c.RateLimit.Burst)
	}

	return nil
}
