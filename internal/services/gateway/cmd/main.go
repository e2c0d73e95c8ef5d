package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/logging"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/rabbitmq"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	// .env opzionale, le variabili già esportate vincono
	_ = godotenv.Load()
	cfg := loadConfig()

	logger, closeLog := logging.Setup("gateway", cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := entities.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	gcfg := cfg.gateway()
	gcfg.Catalog = catalog
	gcfg.Logger = logger

	// Eventi su MQTT (best effort)
	if cfg.MQTT.Enabled() {
		client, err := rabbitmq.NewRabbitMQConn(ctx, &cfg.MQTT, logger)
		if err != nil {
			logger.Warn("mqtt unavailable, recommendation events disabled", "error", err)
		} else {
			pub := rabbitmq.NewPublisher(client, 2*time.Second)
			defer pub.Close()
			gcfg.Publisher = pub
		}
	}

	// Readiness via gRPC health del servizio history
	if cfg.HistoryGRPCAddr != "" {
		conn, err := grpc.NewClient(cfg.HistoryGRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			logger.Error("history grpc client", "addr", cfg.HistoryGRPCAddr, "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		gcfg.Readiness = map[string]app.ReadinessProbe{"history": app.GRPCHealthProbe(conn, "")}
	}

	gw, err := app.NewGateway(gcfg)
	if err != nil {
		logger.Error("gateway", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", "addr", srv.Addr, "advisor", cfg.AdvisorURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}
