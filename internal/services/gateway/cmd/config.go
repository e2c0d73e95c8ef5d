package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/rabbitmq"
)

type Config struct {
	Port            string
	AdvisorURL      string
	CropPath        string
	FertilizerPath  string
	HistoryURL      string
	HistoryGRPCAddr string
	TimeoutMs       int
	Retries         int

	CBFails      int
	CBOpenMs     int
	CBIntervalMs int

	SessionKey    string
	SessionTTLMin int
	MaxSessions   int
	SecureCookies bool
	CORSOrigins   []string
	CatalogPath   string

	LogLevel string
	LogFile  string

	MQTT rabbitmq.RabbitMQConfig
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig() Config {
	return Config{
		Port:            getenv("PORT", "5009"),
		AdvisorURL:      getenv("ADVISOR_URL", "http://localhost:5000"),
		CropPath:        getenv("CROP_PATH", "/recommend_crop"),
		FertilizerPath:  getenv("FERTILIZER_PATH", "/recommend_fertilizer"),
		HistoryURL:      getenv("HISTORY_URL", ""), // es. http://history:8080
		HistoryGRPCAddr: getenv("HISTORY_GRPC_ADDR", ""),
		TimeoutMs:       getenvInt("TIMEOUT_MS", 5000),
		Retries:         getenvInt("UPSTREAM_RETRIES", 0),

		CBFails:      getenvInt("CB_FAILS", 5),
		CBOpenMs:     getenvInt("CB_OPEN_MS", 10000),
		CBIntervalMs: getenvInt("CB_INTERVAL_MS", 60000),

		SessionKey:    getenv("SESSION_KEY", ""),
		SessionTTLMin: getenvInt("SESSION_TTL_MIN", 120),
		MaxSessions:   getenvInt("MAX_SESSIONS", 10000),
		SecureCookies: getenvBool("SECURE_COOKIES", false),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "")),
		CatalogPath:   getenv("CATALOG_PATH", ""),

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  getenv("LOG_FILE", ""),

		MQTT: rabbitmq.RabbitMQConfig{
			Host:     getenv("MQTT_HOST", ""), // vuoto = eventi disabilitati
			Port:     getenvInt("MQTT_PORT", 1883),
			User:     getenv("MQTT_USER", "guest"),
			Password: getenv("MQTT_PASSWORD", "guest"),
			ClientID: getenv("MQTT_CLIENT_ID", "advisor-gateway"),
		},
	}
}

func (c Config) gateway() app.Config {
	return app.Config{
		AdvisorBaseURL: c.AdvisorURL,
		CropPath:       c.CropPath,
		FertilizerPath: c.FertilizerPath,
		HistoryBaseURL: c.HistoryURL,
		HTTPTimeout:    time.Duration(c.TimeoutMs) * time.Millisecond,
		Retries:        c.Retries,
		Breaker: app.BreakerSettings{
			Failures: c.CBFails,
			OpenFor:  time.Duration(c.CBOpenMs) * time.Millisecond,
			Interval: time.Duration(c.CBIntervalMs) * time.Millisecond,
		},
		SessionKey:    []byte(c.SessionKey),
		SessionTTL:    time.Duration(c.SessionTTLMin) * time.Minute,
		MaxSessions:   c.MaxSessions,
		SecureCookies: c.SecureCookies,
		CORSOrigins:   c.CORSOrigins,
	}
}
