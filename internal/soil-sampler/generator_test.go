package soil_sampler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func within(t *testing.T, v float64, b Bound, name string) {
	t.Helper()
	assert.GreaterOrEqual(t, v, b.Min, name)
	assert.LessOrEqual(t, v, b.Max, name)
}

func TestNextStaysInBounds(t *testing.T) {
	g := NewDataGenerator(42)
	prev := g.Next()
	for i := 0; i < 2000; i++ {
		r := g.Next()
		within(t, r.N, Bounds.N, "N")
		within(t, r.P, Bounds.P, "P")
		within(t, r.K, Bounds.K, "K")
		within(t, r.Temperature, Bounds.Temperature, "temperature")
		within(t, r.Humidity, Bounds.Humidity, "humidity")
		within(t, r.Ph, Bounds.Ph, "ph")
		within(t, r.Rainfall, Bounds.Rainfall, "rainfall")
		within(t, r.Moisture, Bounds.Moisture, "moisture")

		// rounding may add half a unit on top of the step
		assert.LessOrEqual(t, abs(r.N-prev.N), Bounds.N.Step+0.5)
		assert.LessOrEqual(t, abs(r.Ph-prev.Ph), Bounds.Ph.Step+0.05)
		assert.False(t, r.Timestamp.IsZero())
		prev = r
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func TestSameSeedSameWalk(t *testing.T) {
	a, b := NewDataGenerator(7), NewDataGenerator(7)
	for i := 0; i < 10; i++ {
		ra, rb := a.Next(), b.Next()
		assert.Equal(t, ra.N, rb.N)
		assert.Equal(t, ra.Rainfall, rb.Rainfall)
	}
}

func TestExtractLayerValue(t *testing.T) {
	props := map[string]any{
		"layers": []any{map[string]any{
			"name": "phh2o",
			"depths": []any{map[string]any{
				"values": map[string]any{"mean": float64(62)},
			}},
		}},
	}
	assert.Equal(t, 62.0, extractLayerValue(map[string]any{"properties": props}))
	assert.Equal(t, 62.0, extractLayerValue(map[string]any{
		"features": []any{map[string]any{"properties": props}},
	}))
	assert.Equal(t, -1.0, extractLayerValue(map[string]any{"properties": map[string]any{}}))
	assert.Equal(t, -1.0, extractLayerValue("nope"))

	assert.Equal(t, 6.2, normalizePh(62))
	assert.Equal(t, 7.0, normalizePh(7))
}

func TestSeedFromSoilGrids(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "phh2o", r.URL.Query().Get("property"))
		_, _ = w.Write([]byte(`{"properties":{"layers":[{"name":"phh2o","depths":[{"values":{"mean":58}}]}]}}`))
	}))
	defer srv.Close()

	g := NewDataGenerator(1)
	g.soilGrids = srv.URL + "/?lat=%f&lon=%f&property=phh2o"
	require.NoError(t, g.SeedFromSoilGrids(context.Background(), 41.5, 12.4))
	assert.Equal(t, 5.8, g.cur.Ph)

	// seeding happens once
	g.soilGrids = "http://127.0.0.1:1/?%f%f"
	require.NoError(t, g.SeedFromSoilGrids(context.Background(), 0, 0))
}

func TestSeedFromSoilGridsFailureKeepsDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewDataGenerator(1)
	g.soilGrids = srv.URL + "/?lat=%f&lon=%f"
	require.Error(t, g.SeedFromSoilGrids(context.Background(), 0, 0))
	assert.Equal(t, defaultReading().Ph, g.cur.Ph)
}
