package app

import (
	"net/url"
	"strings"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
)

// Form control names. The fertilizer ones keep the "f" prefix so both forms
// can live on one page.
const (
	fieldN           = "N"
	fieldP           = "P"
	fieldK           = "K"
	fieldTemperature = "temperature"
	fieldHumidity    = "humidity"
	fieldPh          = "ph"
	fieldRainfall    = "rainfall"

	fieldFTemperature = "fTemperature"
	fieldFHumidity    = "fHumidity"
	fieldFMoisture    = "fMoisture"
	fieldSoilType     = "soilType"
	fieldCropType     = "cropType"
	fieldFN           = "fN"
	fieldFP           = "fP"
	fieldFK           = "fK"
)

// Slider describes a range input of the crop form.
type Slider struct {
	ID    string
	Label string
	Min   float64
	Max   float64
	Step  float64
	Unit  string
}

// CropSliders follow the ranges of the crop dataset the model was trained on.
var CropSliders = []Slider{
	{ID: fieldN, Label: "Nitrogen (N)", Min: 0, Max: 140, Step: 1, Unit: "kg/ha"},
	{ID: fieldP, Label: "Phosphorus (P)", Min: 5, Max: 145, Step: 1, Unit: "kg/ha"},
	{ID: fieldK, Label: "Potassium (K)", Min: 5, Max: 205, Step: 1, Unit: "kg/ha"},
	{ID: fieldTemperature, Label: "Temperature", Min: 8, Max: 44, Step: 0.1, Unit: "°C"},
	{ID: fieldHumidity, Label: "Humidity", Min: 14, Max: 100, Step: 0.1, Unit: "%"},
	{ID: fieldPh, Label: "pH", Min: 3.5, Max: 10, Step: 0.1},
	{ID: fieldRainfall, Label: "Rainfall", Min: 20, Max: 300, Step: 0.1, Unit: "mm"},
}

// DefaultCropForm is what a fresh page shows.
var DefaultCropForm = messages.CropRequest{
	N: "50", P: "50", K: "50",
	Temperature: "25", Humidity: "70", Ph: "6.5", Rainfall: "100",
}

var DefaultFertilizerForm = messages.FertilizerRequest{
	Temperature: "26", Humidity: "52", Moisture: "38",
	SoilType: "Loamy", CropType: "",
	N: "37", P: "0", K: "0",
}

// CropRequestFromForm copies the current field values verbatim; validation
// is the advisor's job.
func CropRequestFromForm(v url.Values) messages.CropRequest {
	return messages.CropRequest{
		N:           formValue(v, fieldN),
		P:           formValue(v, fieldP),
		K:           formValue(v, fieldK),
		Temperature: formValue(v, fieldTemperature),
		Humidity:    formValue(v, fieldHumidity),
		Ph:          formValue(v, fieldPh),
		Rainfall:    formValue(v, fieldRainfall),
	}
}

func FertilizerRequestFromForm(v url.Values) messages.FertilizerRequest {
	return messages.FertilizerRequest{
		Temperature: formValue(v, fieldFTemperature),
		Humidity:    formValue(v, fieldFHumidity),
		Moisture:    formValue(v, fieldFMoisture),
		SoilType:    formValue(v, fieldSoilType),
		CropType:    formValue(v, fieldCropType),
		N:           formValue(v, fieldFN),
		P:           formValue(v, fieldFP),
		K:           formValue(v, fieldFK),
	}
}

// SliderValue returns the value of a crop field by control name.
func SliderValue(r messages.CropRequest, id string) string {
	switch id {
	case fieldN:
		return r.N
	case fieldP:
		return r.P
	case fieldK:
		return r.K
	case fieldTemperature:
		return r.Temperature
	case fieldHumidity:
		return r.Humidity
	case fieldPh:
		return r.Ph
	case fieldRainfall:
		return r.Rainfall
	}
	return ""
}

func formValue(v url.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}
