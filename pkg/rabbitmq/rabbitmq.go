package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RabbitMQConfig describes the MQTT plugin endpoint of the broker.
type RabbitMQConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	ClientID   string
	MaxRetries int           // connect attempts, default 5
	MaxElapsed time.Duration // overall connect budget, default 10s
}

// Enabled is false when no broker host is configured; publishing is then skipped.
func (c *RabbitMQConfig) Enabled() bool { return c != nil && c.Host != "" }

func (c *RabbitMQConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// NewRabbitMQConn connects with exponential backoff and disconnects when ctx ends.
func NewRabbitMQConn(ctx context.Context, cfg *RabbitMQConfig, logger *slog.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", cfg.BrokerURL(), "error", err)
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn("mqtt connect failed", "broker", cfg.BrokerURL(), "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	logger.Info("connected to MQTT broker", "broker", cfg.BrokerURL(), "client_id", cfg.ClientID)

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(client, logger)
	}()

	return client, nil
}

func CloseRabbitMQConn(client mqtt.Client, logger *slog.Logger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		if logger != nil {
			logger.Info("mqtt connection closed")
		}
	}
}
