package history

import (
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

const measurement = "recommendation"

// EventToPoint maps a recommendation to one point of the "recommendation"
// measurement. Low-cardinality names go in tags; the per-browser session id
// and the numbers go in fields.
func EventToPoint(evt msg.RecommendationEvent) *write.Point {
	tags := map[string]string{
		"kind": evt.Kind,
	}
	for k, v := range map[string]string{
		"top":        evt.Top,
		"fertilizer": evt.Fertilizer,
		"crop_type":  evt.CropType,
		"soil_type":  evt.SoilType,
	} {
		if v != "" {
			tags[k] = v
		}
	}

	fields := map[string]interface{}{
		"n":                evt.N,
		"p":                evt.P,
		"k":                evt.K,
		"deficiency_count": int64(len(evt.Deficiencies)),
		"count":            int64(1),
	}
	if evt.SessionID != "" {
		fields["session"] = evt.SessionID
	}
	if evt.Kind == msg.KindCrop {
		fields["probability"] = evt.Probability
	}
	if len(evt.Deficiencies) > 0 {
		fields["deficiencies"] = strings.Join(evt.Deficiencies, ",")
	}

	return influxdb2.NewPoint(measurement, tags, fields, evt.Timestamp)
}
