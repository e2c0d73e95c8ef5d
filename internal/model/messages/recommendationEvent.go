package messages

import "time"

const (
	KindCrop       = "crop"
	KindFertilizer = "fertilizer"
)

// RecommendationEvent is published on event/recommendation/{kind}/{session}
// after every successful recommendation.
type RecommendationEvent struct {
	Kind         string    `json:"kind"` // crop | fertilizer
	SessionID    string    `json:"session_id"`
	Top          string    `json:"top,omitempty"`         // crop flow
	Probability  float64   `json:"probability,omitempty"` // crop flow
	CropType     string    `json:"crop_type,omitempty"`   // fertilizer flow
	SoilType     string    `json:"soil_type,omitempty"`   // fertilizer flow
	Fertilizer   string    `json:"fertilizer,omitempty"`  // fertilizer flow
	Deficiencies []string  `json:"deficiencies,omitempty"`
	N            float64   `json:"n"`
	P            float64   `json:"p"`
	K            float64   `json:"k"`
	Timestamp    time.Time `json:"timestamp"`
}
