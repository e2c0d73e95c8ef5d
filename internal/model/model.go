package model

import (
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

// Alias per esporre tipi comuni ai servizi

type (
	CropRequest         = messages.CropRequest
	CropResponse        = messages.CropResponse
	Recommendation      = messages.Recommendation
	FertilizerRequest   = messages.FertilizerRequest
	FertilizerResponse  = messages.FertilizerResponse
	SoilHealth          = messages.SoilHealth
	RecommendationEvent = messages.RecommendationEvent
	Nutrients           = entities.Nutrients
	Catalog             = entities.Catalog
)

const (
	KindCrop       = messages.KindCrop
	KindFertilizer = messages.KindFertilizer
)

// NutrientsOf converts the backend's soil_health echo.
func NutrientsOf(h SoilHealth) Nutrients {
	return Nutrients{N: float64(h.N), P: float64(h.P), K: float64(h.K)}
}
