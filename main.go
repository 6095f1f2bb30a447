package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/sala-transit/reservation-service/config"
	"github.com/sala-transit/reservation-service/internal/consumer"
	"github.com/sala-transit/reservation-service/internal/handler"
	"github.com/sala-transit/reservation-service/internal/middleware"
	"github.com/sala-transit/reservation-service/internal/repository"
	"github.com/sala-transit/reservation-service/internal/service"
	"github.com/sala-transit/reservation-service/pkg/database"
	"github.com/sala-transit/reservation-service/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: ticket events out, payment confirmations in
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	// Repositories
	seatRepo := repository.NewSeatRepository(db)
	tripRepo := repository.NewTripRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	holdRepo := repository.NewHoldRepository(db)

	// Services
	inventorySvc := service.NewInventoryService(seatRepo, tripRepo)
	bookingSvc := service.NewBookingService(tripRepo, seatRepo, ticketRepo, holdRepo, publisher, cfg.HoldTTL)

	// Payment confirmations drive ConfirmHold
	consumer.NewPaymentConsumer(bookingSvc).Start(msgs)

	// Background reclamation of lapsed holds
	sweeper := service.NewExpirySweeper(tripRepo, holdRepo, ticketRepo, publisher, cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "reservation-service"})
	})

	handler.NewInventoryHandler(inventorySvc).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)

	log.Printf("Reservation Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
