package main

import (
	"examseat/internal/reservations/handler"
	"examseat/internal/reservations/repository"
	"examseat/internal/reservations/service"
	"examseat/internal/reservations/validator"
	"examseat/pkg/app"
	"examseat/pkg/config"
	"examseat/pkg/kafka"
	kafkaconfig "examseat/pkg/kafka/config"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.Client.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service")
	bookingService, settlementService := initServices(cfg)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg,
		handler.NewReservationHandler(bookingService, cfg.Log),
		handler.NewAdminHandler(bookingService, settlementService, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) (service.BookingService, service.SettlementService) {
	reservationValidator := validator.NewReservationValidator(cfg.Log)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	ledgerRepo := repository.NewMongoLedgerRepository(cfg)
	lockRepo := repository.NewMongoSlotLockRepository(cfg)

	events := initEvents(cfg)

	bookingService := service.NewBookingService(
		reservationRepo,
		ledgerRepo,
		reservationValidator,
		events,
		cfg,
	)
	settlementService := service.NewSettlementService(
		reservationRepo,
		ledgerRepo,
		lockRepo,
		events,
		cfg,
	)

	cfg.Log.Info("Reservation services initialized", "database", cfg.MongoDatabaseName)
	return bookingService, settlementService
}

func initEvents(cfg *config.Config) service.Events {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, event publishing disabled")
		return service.NoopEvents{}
	}

	producer, err := kafka.NewProducer(kafkaconfig.Default(cfg.KafkaBrokers), cfg.KafkaTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka event publishing enabled",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
	)
	return service.NewKafkaEvents(producer, ServiceName, cfg.Log)
}
