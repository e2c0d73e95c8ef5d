package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/rabbitmq"
)

const recommendationTopicTmpl = "event/recommendation/%s/%s"

// EventSink forwards recommendation events to the broker. Publishing is best
// effort: failures are logged and counted, never surfaced to the user.
type EventSink struct {
	pub     rabbitmq.IPublisher
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewEventSink(pub rabbitmq.IPublisher, logger *slog.Logger, m *Metrics) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{pub: pub, logger: logger, metrics: m, now: time.Now}
}

func RecommendationTopic(kind, session string) string {
	if session == "" {
		session = "anonymous"
	}
	return fmt.Sprintf(recommendationTopicTmpl, kind, session)
}

func (s *EventSink) CropRecommended(session string, resp messages.CropResponse, n entities.Nutrients) {
	s.publish(messages.RecommendationEvent{
		Kind:        messages.KindCrop,
		SessionID:   session,
		Top:         resp.Top(),
		Probability: resp.TopProbability(),
		N:           n.N,
		P:           n.P,
		K:           n.K,
	})
}

func (s *EventSink) FertilizerRecommended(session string, req messages.FertilizerRequest, resp messages.FertilizerResponse) {
	s.publish(messages.RecommendationEvent{
		Kind:         messages.KindFertilizer,
		SessionID:    session,
		CropType:     req.CropType,
		SoilType:     req.SoilType,
		Fertilizer:   resp.Fertilizer,
		Deficiencies: resp.Deficiencies,
		N:            float64(resp.SoilHealth.N),
		P:            float64(resp.SoilHealth.P),
		K:            float64(resp.SoilHealth.K),
	})
}

func (s *EventSink) publish(evt messages.RecommendationEvent) {
	if s == nil || s.pub == nil {
		return
	}
	evt.Timestamp = s.now().UTC()
	topic := RecommendationTopic(evt.Kind, evt.SessionID)
	if err := s.pub.Publish(topic, rabbitmq.QosFor(topic), evt); err != nil {
		s.logger.Warn("recommendation event not published", "topic", topic, "error", err)
		s.metrics.eventPublished(evt.Kind, "error")
		return
	}
	s.logger.Debug("recommendation event published", "topic", topic)
	s.metrics.eventPublished(evt.Kind, "ok")
}
