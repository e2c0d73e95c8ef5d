package rabbitmq

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient implements the subset of mqtt.Client the publisher touches.
type fakeClient struct {
	mqtt.Client
	open  bool
	token *fakeToken
	sent  []published
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }
func (c *fakeClient) IsConnected() bool      { return c.open }
func (c *fakeClient) Disconnect(uint)        { c.open = false }
func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func TestPublishMarshalsJSON(t *testing.T) {
	c := &fakeClient{open: true, token: &fakeToken{}}
	p := NewPublisher(c, time.Second)

	require.NoError(t, p.Publish("event/recommendation/crop/s1", 1, map[string]string{"top": "rice"}))
	require.NoError(t, p.Publish("raw", 0, "hello"))

	require.Len(t, c.sent, 2)
	assert.Equal(t, "event/recommendation/crop/s1", c.sent[0].topic)
	assert.Equal(t, byte(1), c.sent[0].qos)
	assert.JSONEq(t, `{"top":"rice"}`, string(c.sent[0].payload))
	assert.Equal(t, "hello", string(c.sent[1].payload))
}

func TestPublishErrors(t *testing.T) {
	var nilPub *Publisher
	assert.ErrorIs(t, nilPub.Publish("t", 0, "x"), ErrNotConnected)

	closed := NewPublisher(&fakeClient{open: false, token: &fakeToken{}}, time.Second)
	assert.ErrorIs(t, closed.Publish("t", 0, "x"), ErrNotConnected)

	boom := errors.New("boom")
	failing := NewPublisher(&fakeClient{open: true, token: &fakeToken{err: boom}}, time.Second)
	assert.ErrorIs(t, failing.Publish("t", 0, "x"), boom)

	slow := NewPublisher(&fakeClient{open: true, token: &fakeToken{timeout: true}}, time.Millisecond)
	assert.ErrorContains(t, slow.Publish("t", 0, "x"), "timed out")
}

func TestPublisherClose(t *testing.T) {
	c := &fakeClient{open: true, token: &fakeToken{}}
	NewPublisher(c, 0).Close()
	assert.False(t, c.open)
}

func TestQosFor(t *testing.T) {
	assert.Equal(t, byte(1), QosFor("event/recommendation/#"))
	assert.Equal(t, byte(1), QosFor(" event/recommendation/crop/abc"))
	assert.Equal(t, byte(0), QosFor("sensor/data"))
}

func TestBrokerURL(t *testing.T) {
	cfg := &RabbitMQConfig{Host: "broker", Port: 1883}
	assert.Equal(t, "tcp://broker:1883", cfg.BrokerURL())
	assert.True(t, cfg.Enabled())

	var none *RabbitMQConfig
	assert.False(t, none.Enabled())
	assert.False(t, (&RabbitMQConfig{}).Enabled())
}
