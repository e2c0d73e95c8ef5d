package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/dedup"
)

const topicPrefix = "event/recommendation/"

var ErrInvalidEvent = errors.New("invalid recommendation event")

// MQTTHandler decodes recommendation events, drops redeliveries and hands the
// rest to sink (the Influx writer).
type MQTTHandler struct {
	sink    func(msg.RecommendationEvent)
	dedup   *dedup.Deduper
	logger  *slog.Logger
	now     func() time.Time
	dropped *prometheus.CounterVec
}

func NewMQTTHandler(sink func(msg.RecommendationEvent), d *dedup.Deduper, logger *slog.Logger, reg prometheus.Registerer) *MQTTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTHandler{
		sink:   sink,
		dedup:  d,
		logger: logger,
		now:    time.Now,
		dropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "events_dropped_total",
			Help:      "Events not stored, by reason.",
		}, []string{"reason"}),
	}
}

// Handle matches rabbitmq.Handler.
func (h *MQTTHandler) Handle(_ string, m mqtt.Message) error {
	topic := m.Topic()
	if !strings.HasPrefix(topic, topicPrefix) {
		return nil // ignora altri topic
	}
	payload := m.Payload()

	// QoS 1: la stessa copia può arrivare più volte
	if h.dedup != nil {
		sum := sha256.Sum256(payload)
		if !h.dedup.ShouldProcess(hex.EncodeToString(sum[:])) {
			h.dropped.WithLabelValues("duplicate").Inc()
			h.logger.Debug("duplicate event dropped", "topic", topic)
			return nil
		}
	}

	evt, err := Decode(topic, payload, h.now())
	if err != nil {
		h.dropped.WithLabelValues("invalid").Inc()
		return err
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

// Decode parses a payload. Kind and session fall back to the topic
// "event/recommendation/{kind}/{session}"; a missing timestamp becomes now.
func Decode(topic string, payload []byte, now time.Time) (msg.RecommendationEvent, error) {
	var evt msg.RecommendationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return msg.RecommendationEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	kind, session := idsFromTopic(topic)
	if strings.TrimSpace(evt.Kind) == "" {
		evt.Kind = kind
	}
	if strings.TrimSpace(evt.SessionID) == "" {
		evt.SessionID = session
	}

	switch evt.Kind {
	case msg.KindCrop:
		if evt.Top == "" {
			return msg.RecommendationEvent{}, fmt.Errorf("%w: crop event without top crop", ErrInvalidEvent)
		}
	case msg.KindFertilizer:
		if evt.Fertilizer == "" {
			return msg.RecommendationEvent{}, fmt.Errorf("%w: fertilizer event without fertilizer", ErrInvalidEvent)
		}
	default:
		return msg.RecommendationEvent{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, evt.Kind)
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = now
	}
	return evt, nil
}

func idsFromTopic(topic string) (kind, session string) {
	parts := strings.SplitN(strings.TrimPrefix(topic, topicPrefix), "/", 2)
	if len(parts) > 0 {
		kind = parts[0]
	}
	if len(parts) > 1 {
		session = parts[1]
	}
	return kind, session
}
