package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvProcessorBaseURL       = "PROCESSOR_BASE_URL"
	EnvProcessorSecretKey     = "PROCESSOR_SECRET_KEY"
	EnvProcessorWebhookSecret = "PROCESSOR_WEBHOOK_SECRET"
	EnvProcessorTimeout       = "PROCESSOR_TIMEOUT"

	EnvLedgerCurrency      = "LEDGER_CURRENCY"
	EnvSettlementFeeRate   = "SETTLEMENT_FEE_RATE"
	EnvPointCommissionRate = "POINT_COMMISSION_RATE"
	EnvMinPointCharge      = "MIN_POINT_CHARGE"
	EnvCheckoutSuccessURL  = "CHECKOUT_SUCCESS_URL"
	EnvCheckoutCancelURL   = "CHECKOUT_CANCEL_URL"

	EnvEventTopic = "EVENT_TOPIC"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
