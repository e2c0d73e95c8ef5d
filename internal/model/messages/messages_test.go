package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropResponseAccessors(t *testing.T) {
	raw := `{"top_recommendation":"rice","recommendations":[{"crop":"rice","probability":0.92},{"crop":"maize","probability":"0.05"}]}`

	var r CropResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, "rice", r.Top())
	assert.InDelta(t, 0.92, r.TopProbability(), 1e-9)
	require.Len(t, r.Others(), 1)
	assert.Equal(t, "maize", r.Others()[0].Crop)
	assert.InDelta(t, 0.05, float64(r.Others()[0].Probability), 1e-9)
}

func TestCropResponseTopFallsBackToList(t *testing.T) {
	r := CropResponse{Recommendations: []Recommendation{{Crop: "lentil", Probability: 0.6}}}
	assert.Equal(t, "lentil", r.Top())
	assert.Nil(t, r.Others())

	assert.Equal(t, "", CropResponse{}.Top())
	assert.Zero(t, CropResponse{}.TopProbability())
}

func TestErrorOnlyResponses(t *testing.T) {
	var c CropResponse
	require.NoError(t, json.Unmarshal([]byte(`{"error":"invalid input"}`), &c))
	assert.Equal(t, "invalid input", c.Error)
	assert.Empty(t, c.Recommendations)

	var f FertilizerResponse
	require.NoError(t, json.Unmarshal([]byte(`{"error":"y contains previously unseen labels: 'Peat'"}`), &f))
	assert.Contains(t, f.Error, "unseen labels")
}

func TestFertilizerResponseSoilHealth(t *testing.T) {
	raw := `{"fertilizer":"Urea","deficiencies":["Nitrogen (N)"],"soil_health":{"N":12,"P":"36.5","K":null}}`

	var f FertilizerResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	assert.Equal(t, "Urea", f.Fertilizer)
	assert.Equal(t, []string{"Nitrogen (N)"}, f.Deficiencies)
	assert.Equal(t, Float(12), f.SoilHealth.N)
	assert.Equal(t, Float(36.5), f.SoilHealth.P)
	assert.Equal(t, Float(0), f.SoilHealth.K)
}

func TestFloatRejectsGarbage(t *testing.T) {
	var f Float
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &f))
	assert.NoError(t, json.Unmarshal([]byte(`" 7 "`), &f))
	assert.Equal(t, Float(7), f)
}

func TestCropRequestWireNames(t *testing.T) {
	b, err := json.Marshal(CropRequest{N: "90", P: "42", K: "43", Temperature: "20.8", Humidity: "82", Ph: "6.5", Rainfall: "202.9"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"N":"90","P":"42","K":"43","temperature":"20.8","humidity":"82","ph":"6.5","rainfall":"202.9"}`, string(b))
}
