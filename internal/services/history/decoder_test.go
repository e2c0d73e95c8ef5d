package history

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/LeonardoBeccarini/agro_advisor/pkg/dedup"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDecodeCrop(t *testing.T) {
	evt, err := Decode("event/recommendation/crop/s1",
		[]byte(`{"kind":"crop","session_id":"s1","top":"rice","probability":0.92,"n":90,"p":42,"k":43,"timestamp":"2024-05-01T10:00:00Z"}`),
		fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "rice", evt.Top)
	assert.Equal(t, 0.92, evt.Probability)
	assert.Equal(t, 90.0, evt.N)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), evt.Timestamp)
}

func TestDecodeFallsBackToTopic(t *testing.T) {
	evt, err := Decode("event/recommendation/fertilizer/abc-123", []byte(`{"fertilizer":"Urea"}`), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, msg.KindFertilizer, evt.Kind)
	assert.Equal(t, "abc-123", evt.SessionID)
	assert.Equal(t, fixedNow, evt.Timestamp)
}

func TestDecodeRejects(t *testing.T) {
	for name, tc := range map[string]struct {
		topic   string
		payload string
	}{
		"not json":         {"event/recommendation/crop/s", `{`},
		"crop without":     {"event/recommendation/crop/s", `{"probability":0.5}`},
		"fert without":     {"event/recommendation/fertilizer/s", `{}`},
		"unknown kind":     {"event/recommendation/weather/s", `{"top":"x"}`},
		"no kind anywhere": {"event/recommendation/", `{"top":"x"}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tc.topic, []byte(tc.payload), fixedNow)
			require.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestHandlerDropsDuplicatesAndForeignTopics(t *testing.T) {
	var got []msg.RecommendationEvent
	reg := prometheus.NewRegistry()
	h := NewMQTTHandler(func(e msg.RecommendationEvent) { got = append(got, e) }, dedup.New(time.Minute, 100), discard, reg)

	m := fakeMessage{topic: "event/recommendation/crop/s1", payload: []byte(`{"top":"rice"}`)}
	require.NoError(t, h.Handle("event/recommendation/#", m))
	require.NoError(t, h.Handle("event/recommendation/#", m))
	require.NoError(t, h.Handle("event/other", fakeMessage{topic: "event/other/x", payload: []byte(`{}`)}))

	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.dropped.WithLabelValues("duplicate")))

	err := h.Handle("", fakeMessage{topic: "event/recommendation/crop/s2", payload: []byte(`nope`)})
	require.ErrorIs(t, err, ErrInvalidEvent)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.dropped.WithLabelValues("invalid")))
}

func TestHandlerWithoutDeduper(t *testing.T) {
	n := 0
	h := NewMQTTHandler(func(msg.RecommendationEvent) { n++ }, nil, nil, nil)
	m := fakeMessage{topic: "event/recommendation/fertilizer/s", payload: []byte(`{"fertilizer":"DAP"}`)}
	require.NoError(t, h.Handle("", m))
	require.NoError(t, h.Handle("", m))
	assert.Equal(t, 2, n)
}
