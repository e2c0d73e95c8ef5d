package rabbitmq

import (
	"context"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes and dispatches until the context is cancelled.
type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(handler Handler)
}

// QosFor returns 1 for recommendation events (redeliveries are deduplicated
// downstream) and 0 for everything else.
func QosFor(topic string) byte {
	if strings.HasPrefix(strings.TrimSpace(topic), "event/recommendation") {
		return 1
	}
	return 0
}

// MultiConsumer subscribes one handler to several topic filters.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	logger  *slog.Logger
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler, logger *slog.Logger) *MultiConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiConsumer{client: client, topics: topics, handler: handler, logger: logger}
}

func (m *MultiConsumer) SetHandler(handler Handler) { m.handler = handler }

// ConsumeMessage blocks until ctx is done. A failed subscription aborts
// before blocking and unsubscribes whatever was already subscribed.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) error {
	var subscribed []string
	for _, topic := range m.topics {
		topic := strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		token := m.client.Subscribe(topic, QosFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if m.handler == nil {
				m.logger.Warn("no handler set", "topic", topic)
				return
			}
			if err := m.handler(topic, msg); err != nil {
				m.logger.Error("error handling message", "topic", msg.Topic(), "error", err)
			}
		})
		if token.Wait() && token.Error() != nil {
			if len(subscribed) > 0 {
				m.client.Unsubscribe(subscribed...).Wait()
			}
			return token.Error()
		}
		subscribed = append(subscribed, topic)
		m.logger.Info("subscribed", "topic", topic, "qos", QosFor(topic))
	}

	<-ctx.Done()

	if len(subscribed) > 0 {
		m.client.Unsubscribe(subscribed...).Wait()
	}
	return nil
}
