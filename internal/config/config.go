// Package config centralises configuration parsing for the fitness tracker services.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config captures runtime configuration values.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Feed     FeedConfig     `yaml:"feed"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Address         string        `yaml:"address"          env:"HTTP_ADDRESS"          env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"HTTP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
	CORSOrigin      string        `yaml:"cors_origin"      env:"HTTP_CORS_ORIGIN"      env-default:"http://localhost:5173"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	JWTIssuer string `yaml:"jwt_issuer" env:"JWT_ISSUER" env-default:"i5e.identity"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// FeedConfig controls publishing of ledger changes.
type FeedConfig struct {
	Enabled           bool          `yaml:"enabled"             env:"FEED_ENABLED"             env-default:"false"`
	KafkaBrokers      []string      `yaml:"kafka_brokers"       env:"KAFKA_BROKERS"            env-default:"kafka:9092" env-separator:","`
	Topic             string        `yaml:"topic"               env:"FEED_TOPIC"               env-default:"ledger_events"`
	SchemaRegistryURL string        `yaml:"schema_registry_url" env:"SCHEMA_REGISTRY_URL"`
	PublishTimeout    time.Duration `yaml:"publish_timeout"     env:"FEED_PUBLISH_TIMEOUT"     env-default:"5s"`
}

// ConsumerConfig controls the feed consumer.
type ConsumerConfig struct {
	GroupID        string   `yaml:"group_id"        env:"CONSUMER_GROUP_ID" env-default:"ledger-projection"`
	Topics         []string `yaml:"topics"          env:"CONSUMER_TOPICS"   env-default:"ledger_events" env-separator:","`
	MetricsAddress string   `yaml:"metrics_address" env:"METRICS_ADDRESS"   env-default:":9195"`

	// DeadLetter parks records the projection keeps rejecting on <topic>.dlq.
	DeadLetter     bool          `yaml:"dead_letter"      env:"CONSUMER_DEAD_LETTER"      env-default:"true"`
	MaxAttempts    int           `yaml:"max_attempts"     env:"CONSUMER_MAX_ATTEMPTS"     env-default:"3"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env:"CONSUMER_RETRY_BASE_DELAY" env-default:"500ms"`
}

const maxConsumerAttempts = 20

// Load reads configuration from an optional YAML file and the environment.
// Priority: ENV > YAML > env-default tags. The file path comes from CONFIG_PATH;
// when it is unset only the environment and defaults are used.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	cfg.Feed.KafkaBrokers = splitAndTrim(cfg.Feed.KafkaBrokers)
	cfg.Consumer.Topics = splitAndTrim(cfg.Consumer.Topics)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Address) == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be > 0"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Feed.Enabled {
		if len(c.Feed.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("feed.kafka_brokers is required when the feed is enabled"))
		}
		if strings.TrimSpace(c.Feed.Topic) == "" {
			errs = append(errs, errors.New("feed.topic is required when the feed is enabled"))
		}
	}
	if c.Consumer.MaxAttempts <= 0 || c.Consumer.MaxAttempts > maxConsumerAttempts {
		errs = append(errs, fmt.Errorf("consumer.max_attempts must be between 1 and %d", maxConsumerAttempts))
	}
	return errors.Join(errs...)
}

func splitAndTrim(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
