package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/agro_advisor/internal/services/history"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/dedup"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/logging"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/rabbitmq"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	// === Config ===
	cfg := struct {
		Rabbit rabbitmq.RabbitMQConfig

		InfluxURL    string
		InfluxToken  string
		InfluxOrg    string
		InfluxBucket string

		Topics        []string
		BatchSize     int
		FlushInterval time.Duration
		DedupTTL      time.Duration

		HTTPPort       int
		GRPCPort       int
		ReadinessGrace time.Duration

		LogLevel string
		LogFile  string
	}{
		Rabbit: rabbitmq.RabbitMQConfig{
			Host:     envStr("RABBITMQ_HOST", "localhost"),
			Port:     envInt("RABBITMQ_PORT", 1883),
			User:     envStr("RABBITMQ_USER", "guest"),
			Password: envStr("RABBITMQ_PASSWORD", "guest"),
			ClientID: envStr("HOSTNAME", "history-service"),
		},

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "agro"),
		InfluxBucket: envStr("INFLUX_BUCKET", "recommendations"),

		Topics: func() []string {
			raw := envStr("EVENT_SUB_TOPICS", "event/recommendation/#")
			parts := strings.Split(raw, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if s := strings.TrimSpace(p); s != "" {
					out = append(out, s)
				}
			}
			return out
		}(),
		BatchSize:     envInt("WRITE_BATCH_SIZE", 10),
		FlushInterval: time.Duration(envInt("WRITE_FLUSH_INTERVAL_MS", 200)) * time.Millisecond,
		DedupTTL:      time.Duration(envInt("DEDUP_TTL_MIN", 10)) * time.Minute,

		HTTPPort:       envInt("HTTP_PORT", 8080),
		GRPCPort:       envInt("GRPC_PORT", 9090),
		ReadinessGrace: 5 * time.Second,

		LogLevel: envStr("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	logger, closeLog := logging.Setup("history", cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === InfluxDB ===
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	defer influx.Close()
	writer := history.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket), logger, reg)

	// === MQTT ===
	mqttClient, err := rabbitmq.NewRabbitMQConn(ctx, &cfg.Rabbit, logger)
	if err != nil {
		logger.Error("mqtt connection error", "error", err)
		os.Exit(1)
	}

	deps := history.Deps{MQTT: mqttClient, Influx: influx, Writer: writer, MinErrorAge: 2 * time.Second}

	// === HTTP ===
	router := mux.NewRouter()
	router.Handle("/healthz", history.NewHealthHandler(deps)).Methods(http.MethodGet)
	router.Handle("/readyz", history.NewReadyHandler(deps)).Methods(http.MethodGet)
	router.Handle("/history/recent", history.NewRecentHandler(history.NewInfluxStore(influx, cfg.InfluxOrg, cfg.InfluxBucket), logger)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http listening", "port", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// === gRPC health ===
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.GRPCPort))
	if err != nil {
		logger.Error("grpc listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	gs := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	go func() {
		logger.Info("grpc health listening", "port", cfg.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			logger.Error("grpc server error", "error", err)
		}
	}()
	go history.ReportHealth(ctx, healthSrv, deps, 5*time.Second, logger)

	// === Consumer ===
	handler := history.NewMQTTHandler(func(evt msg.RecommendationEvent) {
		writer.Write(evt)
	}, dedup.New(cfg.DedupTTL, 20000), logger, reg)
	consumer := rabbitmq.NewMultiConsumer(mqttClient, cfg.Topics, handler.Handle, logger)

	if err := consumer.ConsumeMessage(ctx); err != nil {
		logger.Error("subscribe error", "error", err)
	}
	logger.Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ReadinessGrace)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
	writer.Flush()
}
