package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bloomly/pkg/client"
	"bloomly/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	ProcessorBaseURL       string
	ProcessorSecretKey     string
	ProcessorWebhookSecret string
	ProcessorTimeout       time.Duration

	LedgerCurrency      string
	SettlementFeeRate   float64
	PointCommissionRate float64
	MinPointCharge      int64
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	EventTopic string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		ProcessorBaseURL:       getEnvStr(EnvProcessorBaseURL, DefaultProcessorBaseURL),
		ProcessorSecretKey:     getEnvStr(EnvProcessorSecretKey, ""),
		ProcessorWebhookSecret: getEnvStr(EnvProcessorWebhookSecret, ""),
		ProcessorTimeout:       getEnvDuration(EnvProcessorTimeout, DefaultProcessorTimeout),

		LedgerCurrency:      getEnvStr(EnvLedgerCurrency, DefaultLedgerCurrency),
		SettlementFeeRate:   getEnvFloat(EnvSettlementFeeRate, DefaultSettlementFeeRate),
		PointCommissionRate: getEnvFloat(EnvPointCommissionRate, DefaultPointCommissionRate),
		MinPointCharge:      int64(getEnvNum(EnvMinPointCharge, DefaultMinPointCharge)),
		CheckoutSuccessURL:  getEnvStr(EnvCheckoutSuccessURL, DefaultCheckoutSuccessURL),
		CheckoutCancelURL:   getEnvStr(EnvCheckoutCancelURL, DefaultCheckoutCancelURL),

		EventTopic: getEnvStr(EnvEventTopic, DefaultEventTopic),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.ProcessorBaseURL) {
		errs = append(errs, fmt.Sprintf("ProcessorBaseURL must be an http(s) URL, got: %s", cfg.ProcessorBaseURL))
	}
	if cfg.ProcessorTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ProcessorTimeout must be positive, got: %s", cfg.ProcessorTimeout))
	}

	if len(cfg.LedgerCurrency) != 3 {
		errs = append(errs, fmt.Sprintf("LedgerCurrency must be a 3-letter code, got: %s", cfg.LedgerCurrency))
	}
	if cfg.SettlementFeeRate < 0 || cfg.SettlementFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("SettlementFeeRate must be in [0, 1), got: %f", cfg.SettlementFeeRate))
	}
	if cfg.PointCommissionRate < 0 || cfg.PointCommissionRate >= 1 {
		errs = append(errs, fmt.Sprintf("PointCommissionRate must be in [0, 1), got: %f", cfg.PointCommissionRate))
	}
	if cfg.MinPointCharge <= 0 {
		errs = append(errs, fmt.Sprintf("MinPointCharge must be positive, got: %d", cfg.MinPointCharge))
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"processor_base_url", cfg.ProcessorBaseURL,
		"processor_secret_set", cfg.ProcessorSecretKey != "",
		"processor_webhook_secret_set", cfg.ProcessorWebhookSecret != "",
		"processor_timeout", cfg.ProcessorTimeout,
		"ledger_currency", cfg.LedgerCurrency,
		"settlement_fee_rate", cfg.SettlementFeeRate,
		"point_commission_rate", cfg.PointCommissionRate,
		"min_point_charge", cfg.MinPointCharge,
		"event_topic", cfg.EventTopic,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
