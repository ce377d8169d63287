package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	// Storage selects the persistence of record: "memory" or "mongo".
	Storage  string
	MongoURI string
	MongoDB  string

	// LedgerBackend selects the availability ledger: "memory", "mongo" or "redis".
	LedgerBackend string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LedgerRetries int

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	NotifyTopic        string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	PaymentsMode     string
	PaymentsURL      string
	PaymentsAPIKey   string
	PaymentsTimeout  time.Duration
	SandboxLatency   time.Duration
	PlatformFeeRate  string
	ResourcesFixture string

	SweepInterval    time.Duration
	SweepGrace       time.Duration
	SLASweepInterval time.Duration
	ApprovalSLA      time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int
	RateLimitIdleTTL   time.Duration

	ReceiptsEnabled bool
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		Storage:          strings.ToLower(getEnv("STORAGE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "stayledger"),
		LedgerBackend:    strings.ToLower(getEnv("LEDGER_BACKEND", "")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		NotifyTopic:      getEnv("NOTIFY_TOPIC", "notifications.v1"),
		PaymentsMode:     strings.ToLower(getEnv("PAYMENTS_MODE", "sandbox")),
		PaymentsURL:      getEnv("PAYMENTS_URL", ""),
		PaymentsAPIKey:   os.Getenv("PAYMENTS_API_KEY"),
		PlatformFeeRate:  getEnv("PLATFORM_FEE_RATE", "0.15"),
		ResourcesFixture: getEnv("RESOURCES_FIXTURE", "data/resources.json"),
		S3Endpoint:       getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "stayledger-receipts"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = cfg.Storage
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"PAYMENTS_TIMEOUT", 10 * time.Second, &cfg.PaymentsTimeout},
		{"SANDBOX_LATENCY", 0, &cfg.SandboxLatency},
		{"SWEEP_INTERVAL", 2 * time.Minute, &cfg.SweepInterval},
		{"SWEEP_GRACE", 5 * time.Minute, &cfg.SweepGrace},
		{"SLA_SWEEP_INTERVAL", 15 * time.Minute, &cfg.SLASweepInterval},
		{"APPROVAL_SLA", 24 * time.Hour, &cfg.ApprovalSLA},
		{"RATE_LIMIT_IDLE_TTL", 10 * time.Minute, &cfg.RateLimitIdleTTL},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"LEDGER_RETRIES", 5, &cfg.LedgerRetries},
		{"RATE_LIMIT_PER_MINUTE", 30, &cfg.RateLimitPerMinute},
		{"RATE_LIMIT_BURST", 10, &cfg.RateLimitBurst},
	}
	for _, i := range ints {
		v, err := parseIntEnv(i.key, i.def)
		if err != nil {
			return Config{}, err
		}
		*i.dst = v
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL
	receipts, err := parseBoolEnv("RECEIPTS_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	cfg.ReceiptsEnabled = receipts

	switch cfg.Storage {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE %q", cfg.Storage)
	}
	switch cfg.LedgerBackend {
	case "memory", "redis":
	case "mongo":
		if cfg.Storage != "mongo" {
			return Config{}, fmt.Errorf("LEDGER_BACKEND=mongo requires STORAGE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid LEDGER_BACKEND %q", cfg.LedgerBackend)
	}
	switch cfg.PaymentsMode {
	case "sandbox":
	case "http":
		if cfg.PaymentsURL == "" {
			return Config{}, fmt.Errorf("PAYMENTS_URL is required when PAYMENTS_MODE=http")
		}
	default:
		return Config{}, fmt.Errorf("invalid PAYMENTS_MODE %q", cfg.PaymentsMode)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
