package app

import (
	"net/url"
	"testing"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/stretchr/testify/assert"
)

func TestCropRequestFromForm(t *testing.T) {
	v := url.Values{
		"N": {" 90 "}, "P": {"42"}, "K": {"43"},
		"temperature": {"20.8"}, "humidity": {"82"}, "ph": {"6.5"}, "rainfall": {"202.9"},
		"ignored": {"x"},
	}
	assert.Equal(t, messages.CropRequest{
		N: "90", P: "42", K: "43",
		Temperature: "20.8", Humidity: "82", Ph: "6.5", Rainfall: "202.9",
	}, CropRequestFromForm(v))
}

func TestFertilizerRequestFromForm(t *testing.T) {
	v := url.Values{
		"fTemperature": {"26"}, "fHumidity": {"52"}, "fMoisture": {"38"},
		"soilType": {"Sandy"}, "cropType": {"Maize"},
		"fN": {"37"}, "fP": {"0"}, "fK": {"0"},
		// crop form fields must not leak into the fertilizer request
		"N": {"999"},
	}
	assert.Equal(t, messages.FertilizerRequest{
		Temperature: "26", Humidity: "52", Moisture: "38",
		SoilType: "Sandy", CropType: "Maize",
		N: "37", P: "0", K: "0",
	}, FertilizerRequestFromForm(v))
}

func TestMissingFieldsAreSentEmpty(t *testing.T) {
	r := CropRequestFromForm(url.Values{"N": {"abc"}})
	assert.Equal(t, "abc", r.N)
	assert.Empty(t, r.Rainfall)
}

func TestSliderValue(t *testing.T) {
	for _, s := range CropSliders {
		assert.NotEmpty(t, SliderValue(DefaultCropForm, s.ID), s.ID)
		assert.Less(t, s.Min, s.Max, s.ID)
	}
	assert.Equal(t, "6.5", SliderValue(DefaultCropForm, "ph"))
	assert.Empty(t, SliderValue(DefaultCropForm, "nope"))
}
