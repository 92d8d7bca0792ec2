package main

import (
	bookingrepo "bloomly/internal/bookings/repository"
	partnerrepo "bloomly/internal/partners/repository"
	revenuerepo "bloomly/internal/revenue/repository"
	"bloomly/internal/settlements/handler"
	"bloomly/internal/settlements/repository"
	"bloomly/internal/settlements/service"
	"bloomly/internal/settlements/validator"
	"bloomly/pkg/app"
	"bloomly/pkg/config"
	"bloomly/pkg/events"
	"bloomly/pkg/kafka"
	kafka_config "bloomly/pkg/kafka/config"
	"bloomly/pkg/processor"
)

const ServiceName = "settlements"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	cfg.SetMongo()

	cfg.Log.Info("Starting Settlements service")
	publisher := initPublisher(cfg)
	defer publisher.Close()

	settlementService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewSettlementHandler(settlementService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.SettlementService {
	settlementValidator := validator.NewSettlementValidator(cfg.Log)
	settlementRepo := repository.NewMongoSettlementRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	partnerRepo := partnerrepo.NewMongoPartnerRepository(cfg)
	revenueRepo := revenuerepo.NewMongoRevenueRepository(cfg)
	psp := processor.NewHTTPClient(cfg.ProcessorBaseURL, cfg.ProcessorSecretKey, cfg.ProcessorTimeout, cfg.Log)

	settlementService := service.NewSettlementService(
		settlementRepo,
		bookingRepo,
		partnerRepo,
		revenueRepo,
		psp,
		publisher,
		settlementValidator,
		cfg,
	)

	cfg.Log.Info("Settlement service initialized",
		"database", cfg.MongoDatabaseName,
		"fee_rate", cfg.SettlementFeeRate,
	)
	return settlementService
}

func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventTopic)
	if err != nil {
		cfg.Log.Warn("Kafka unavailable, events disabled", "error", err)
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}
