package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"reconciler/internal/infrastructure/database"
)

type Config struct {
	HTTPPort           int
	HTTPRequestTimeout time.Duration
	CORSAllowedOrigins []string

	WebhookSecret          string
	WebhookSignatureHeader string
	WebhookMaxBodyBytes    int64

	ProviderBaseURL   string
	ProviderKeyID     string
	ProviderKeySecret string
	ProviderTimeout   time.Duration

	DB             database.DBConfig
	DBMaxRetries   int
	DBRetryDelay   time.Duration
	MigrationsPath string

	KafkaBrokerURL      string
	KafkaEventsTopic    string
	KafkaReplayTopic    string
	KafkaConsumerGroup  string
	KafkaReplayDisabled bool

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration
	OutboxBatchSize    int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 8083)
	v.SetDefault("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	v.SetDefault("WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_SIGNATURE_HEADER", "X-Razorpay-Signature")
	v.SetDefault("WEBHOOK_MAX_BODY_BYTES", 1<<20)

	v.SetDefault("PROVIDER_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("PROVIDER_KEY_ID", "")
	v.SetDefault("PROVIDER_KEY_SECRET", "")
	v.SetDefault("PROVIDER_TIMEOUT", 10*time.Second)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "reconciler_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_MAX_RETRIES", 10)
	v.SetDefault("DB_RETRY_DELAY", 5*time.Second)
	v.SetDefault("MIGRATIONS_PATH", "file:///app/migrations")

	v.SetDefault("KAFKA_BROKER_URL", "localhost:9092")
	v.SetDefault("KAFKA_EVENTS_TOPIC", "payment_reconciliation_events")
	v.SetDefault("KAFKA_REPLAY_TOPIC", "payment_notifications_replay")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "reconciler-replay-group")
	v.SetDefault("KAFKA_REPLAY_DISABLED", false)

	v.SetDefault("OUTBOX_POLL_INTERVAL", time.Second)
	v.SetDefault("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)
	v.SetDefault("OUTBOX_BATCH_SIZE", 10)
}

// LoadConfig reads defaults, then the optional config file, then environment
// variables. An empty configFile looks for ./config.yaml and ignores its
// absence; an explicit path must exist.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:           v.GetInt("HTTP_PORT"),
		HTTPRequestTimeout: v.GetDuration("HTTP_REQUEST_TIMEOUT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		WebhookSecret:          v.GetString("WEBHOOK_SECRET"),
		WebhookSignatureHeader: v.GetString("WEBHOOK_SIGNATURE_HEADER"),
		WebhookMaxBodyBytes:    v.GetInt64("WEBHOOK_MAX_BODY_BYTES"),

		ProviderBaseURL:   v.GetString("PROVIDER_BASE_URL"),
		ProviderKeyID:     v.GetString("PROVIDER_KEY_ID"),
		ProviderKeySecret: v.GetString("PROVIDER_KEY_SECRET"),
		ProviderTimeout:   v.GetDuration("PROVIDER_TIMEOUT"),

		DB: database.DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		DBMaxRetries:   v.GetInt("DB_MAX_RETRIES"),
		DBRetryDelay:   v.GetDuration("DB_RETRY_DELAY"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),

		KafkaBrokerURL:      v.GetString("KAFKA_BROKER_URL"),
		KafkaEventsTopic:    v.GetString("KAFKA_EVENTS_TOPIC"),
		KafkaReplayTopic:    v.GetString("KAFKA_REPLAY_TOPIC"),
		KafkaConsumerGroup:  v.GetString("KAFKA_CONSUMER_GROUP"),
		KafkaReplayDisabled: v.GetBool("KAFKA_REPLAY_DISABLED"),

		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxPollTimeout:  v.GetDuration("OUTBOX_POLL_TIMEOUT"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
	}
	return cfg, nil
}

// ValidateServe reports settings the serve command cannot run without.
func (c *Config) ValidateServe() error {
	var missing []string
	if c.WebhookSecret == "" {
		missing = append(missing, "WEBHOOK_SECRET")
	}
	if c.ProviderKeyID == "" {
		missing = append(missing, "PROVIDER_KEY_ID")
	}
	if c.ProviderKeySecret == "" {
		missing = append(missing, "PROVIDER_KEY_SECRET")
	}
	if len(c.GetKafkaBrokers()) == 0 {
		missing = append(missing, "KAFKA_BROKER_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokerURL)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
