package main

import (
	"bloomly/internal/bookings/handler"
	"bloomly/internal/bookings/repository"
	"bloomly/internal/bookings/service"
	"bloomly/internal/bookings/validator"
	"bloomly/pkg/app"
	"bloomly/pkg/config"
	"bloomly/pkg/events"
	"bloomly/pkg/kafka"
	kafka_config "bloomly/pkg/kafka/config"
	"bloomly/pkg/processor"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	publisher := initPublisher(cfg)
	defer publisher.Close()

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	transitionValidator := validator.NewTransitionValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	paymentRepo := repository.NewMongoPaymentRepository(cfg)
	psp := processor.NewHTTPClient(cfg.ProcessorBaseURL, cfg.ProcessorSecretKey, cfg.ProcessorTimeout, cfg.Log)

	bookingService := service.NewBookingService(
		bookingRepo,
		paymentRepo,
		psp,
		publisher,
		transitionValidator,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
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
