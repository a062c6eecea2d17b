package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"parkly/cmd/consumers/jobs"
	"parkly/internal/config"
	"parkly/internal/database"
	"parkly/internal/external"
	"parkly/internal/logger"
	"parkly/internal/messaging"
	"parkly/internal/models"
	"parkly/internal/repository"
	"parkly/internal/service"

	"github.com/joho/godotenv"
	"github.com/nats-io/stan.go"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.NATS.ClientID = "parkly-consumers"
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	repos := repository.NewRepositories(db)
	gateway := external.NewGatewayClient(cfg.Payment)

	services := service.NewServices(service.Deps{
		Sessions:      repos.Sessions,
		GuestSessions: repos.GuestSessions,
		Schedules:     repos.Schedules,
		Lots:          repos.Lots,
		Whitelist:     repos.Lots,
		Vehicles:      repos.Vehicles,
		Gateway:       gateway,
		Events:        natsClient,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := jobs.NewPaymentReconciliationJob(services.Sessions, 0)
	job.Start(ctx)
	defer job.Stop()

	// Audit trail: every payment outcome lands in the log regardless of
	// which API instance handled it.
	sub, err := natsClient.SubscribeQueue(models.EventPaymentConfirmed, "parkly-audit", func(m *stan.Msg) {
		var event models.PaymentConfirmedEvent
		if err := json.Unmarshal(m.Data, &event); err != nil {
			slog.Error("Failed to decode payment event", "error", err)
			return
		}
		slog.Info("Payment confirmed",
			"session_id", event.SessionID,
			"transaction_id", event.TransactionID,
			"amount", event.Amount)
	})
	if err != nil {
		logger.Fatal("Failed to subscribe to payment events", "error", err)
	}
	defer sub.Close()

	log.Info("Consumers service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")
}
