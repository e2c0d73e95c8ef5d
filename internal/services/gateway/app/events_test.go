package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	topic string
	qos   byte
	evt   messages.RecommendationEvent
}

type recordingPublisher struct {
	mu   sync.Mutex
	err  error
	sent []publishedEvent
}

func (p *recordingPublisher) Publish(topic string, qos byte, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	evt, _ := payload.(messages.RecommendationEvent)
	p.sent = append(p.sent, publishedEvent{topic: topic, qos: qos, evt: evt})
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.sent...)
}

func TestRecommendationTopic(t *testing.T) {
	assert.Equal(t, "event/recommendation/crop/abc", RecommendationTopic("crop", "abc"))
	assert.Equal(t, "event/recommendation/fertilizer/anonymous", RecommendationTopic("fertilizer", ""))
}

func TestCropRecommendedEvent(t *testing.T) {
	pub := &recordingPublisher{}
	sink := NewEventSink(pub, nil, nil)
	sink.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	sink.CropRecommended("s1", messages.CropResponse{
		Recommendations: []messages.Recommendation{{Crop: "rice", Probability: 0.8}},
	}, entities.Nutrients{N: 90, P: 42, K: 43})

	sent := pub.events()
	require.Len(t, sent, 1)
	assert.Equal(t, "event/recommendation/crop/s1", sent[0].topic)
	assert.Equal(t, byte(1), sent[0].qos)
	assert.Equal(t, messages.RecommendationEvent{
		Kind: "crop", SessionID: "s1", Top: "rice", Probability: 0.8,
		N: 90, P: 42, K: 43,
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, sent[0].evt)
}

func TestFertilizerRecommendedEvent(t *testing.T) {
	pub := &recordingPublisher{}
	NewEventSink(pub, nil, nil).FertilizerRecommended("s2",
		messages.FertilizerRequest{SoilType: "Sandy", CropType: "Maize"},
		messages.FertilizerResponse{
			Fertilizer:   "Urea",
			Deficiencies: []string{"Nitrogen (N)"},
			SoilHealth:   messages.SoilHealth{N: 10, P: 20, K: 30},
		})

	sent := pub.events()
	require.Len(t, sent, 1)
	evt := sent[0].evt
	assert.Equal(t, "fertilizer", evt.Kind)
	assert.Equal(t, "Maize", evt.CropType)
	assert.Equal(t, "Sandy", evt.SoilType)
	assert.Equal(t, "Urea", evt.Fertilizer)
	assert.Equal(t, []string{"Nitrogen (N)"}, evt.Deficiencies)
	assert.Equal(t, 10.0, evt.N)
}

func TestPublishFailuresAreCounted(t *testing.T) {
	m := NewMetrics()
	sink := NewEventSink(&recordingPublisher{err: errors.New("not connected")}, nil, m)

	sink.CropRecommended("s1", messages.CropResponse{}, entities.Nutrients{})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("crop", "error")))
}

func TestNilSinkAndPublisher(t *testing.T) {
	var sink *EventSink
	sink.CropRecommended("s", messages.CropResponse{}, entities.Nutrients{})
	NewEventSink(nil, nil, nil).FertilizerRecommended("s", messages.FertilizerRequest{}, messages.FertilizerResponse{})
}
