package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// IPublisher publishes JSON payloads on arbitrary topics.
type IPublisher interface {
	Publish(topic string, qos byte, payload any) error
	Close()
}

type Publisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewPublisher(client mqtt.Client, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{client: client, timeout: timeout}
}

// Publish marshals payload (strings and byte slices are sent as-is) and waits
// for the broker acknowledgement up to the publisher timeout.
func (p *Publisher) Publish(topic string, qos byte, payload any) error {
	if p == nil || p.client == nil || !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = b
	}

	token := p.client.Publish(topic, qos, false, body)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish on %s: timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish on %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
