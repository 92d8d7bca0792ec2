package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bloomly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultProcessorBaseURL = "https://api.processor.local"
	DefaultProcessorTimeout = 15 * time.Second

	DefaultLedgerCurrency = "usd"

	// Platform commission on gross settlement sales. One value shared
	// by the weekly batch and the ad-hoc admin aggregation.
	DefaultSettlementFeeRate = 0.085

	// Platform commission withheld from marketing-point purchases.
	DefaultPointCommissionRate = 0.10

	// Smallest accepted point charge, in minor currency units.
	DefaultMinPointCharge = 1000

	DefaultCheckoutSuccessURL = "https://partners.bloomly.app/points/success"
	DefaultCheckoutCancelURL  = "https://partners.bloomly.app/points/cancel"

	DefaultEventTopic = "bloomly.ledger.events"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)
