package main

import (
	partnerrepo "bloomly/internal/partners/repository"
	"bloomly/internal/points/handler"
	"bloomly/internal/points/repository"
	"bloomly/internal/points/service"
	"bloomly/internal/points/validator"
	revenuerepo "bloomly/internal/revenue/repository"
	"bloomly/pkg/app"
	"bloomly/pkg/config"
	mongotx "bloomly/pkg/db/mongo"
	"bloomly/pkg/events"
	"bloomly/pkg/kafka"
	kafka_config "bloomly/pkg/kafka/config"
	"bloomly/pkg/processor"
)

const ServiceName = "points"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	cfg.SetMongo()

	cfg.Log.Info("Starting Points service")
	publisher := initPublisher(cfg)
	defer publisher.Close()

	pointsService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	// Inbound processor webhooks land here, so signatures are checked.
	serverApp.VerifyWebhooks = true
	serverApp.SetApp(handler.NewPointsHandler(pointsService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.PointsService {
	chargeValidator := validator.NewChargeValidator(cfg.Log)
	pointsRepo := repository.NewMongoPointTransactionRepository(cfg)
	partnerRepo := partnerrepo.NewMongoPartnerRepository(cfg)
	revenueRepo := revenuerepo.NewMongoRevenueRepository(cfg)
	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)
	psp := processor.NewHTTPClient(cfg.ProcessorBaseURL, cfg.ProcessorSecretKey, cfg.ProcessorTimeout, cfg.Log)

	pointsService := service.NewPointsService(
		pointsRepo,
		partnerRepo,
		revenueRepo,
		txManager,
		psp,
		publisher,
		chargeValidator,
		cfg,
	)

	cfg.Log.Info("Points service initialized",
		"database", cfg.MongoDatabaseName,
		"commission_rate", cfg.PointCommissionRate,
		"min_charge", cfg.MinPointCharge,
	)
	return pointsService
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
