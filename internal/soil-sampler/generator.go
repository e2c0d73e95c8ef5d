package soil_sampler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// soilGridsURL: fetch singola all'avvio; NON chiamare ad ogni tick.
const soilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query?lat=%f&lon=%f&property=phh2o&depth=0-5cm&value=mean"

// Bound is the agronomic range of one reading.
type Bound struct {
	Min, Max float64
	Step     float64 // max change per sample
}

var Bounds = struct {
	N, P, K, Temperature, Humidity, Ph, Rainfall, Moisture Bound
}{
	N:           Bound{0, 140, 8},
	P:           Bound{5, 145, 8},
	K:           Bound{5, 205, 10},
	Temperature: Bound{8, 44, 1.5},
	Humidity:    Bound{14, 100, 3},
	Ph:          Bound{3.5, 10, 0.2},
	Rainfall:    Bound{20, 300, 15},
	Moisture:    Bound{0, 100, 4},
}

// Reading is one synthetic soil sample.
type Reading struct {
	N           float64   `json:"N"`
	P           float64   `json:"P"`
	K           float64   `json:"K"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Ph          float64   `json:"ph"`
	Rainfall    float64   `json:"rainfall"`
	Moisture    float64   `json:"moisture"`
	Timestamp   time.Time `json:"timestamp"`
}

// DataGenerator keeps the last reading and moves every value by a bounded
// random step on each Next.
type DataGenerator struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	cur        Reading
	seeded     bool
	now        func() time.Time
	httpClient *http.Client
	soilGrids  string
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rnd:        rand.New(rand.NewSource(seed)),
		now:        time.Now,
		httpClient: &http.Client{Timeout: 8 * time.Second},
		soilGrids:  soilGridsURL,
	}
}

func defaultReading() Reading {
	return Reading{N: 50, P: 50, K: 50, Temperature: 25, Humidity: 70, Ph: 6.5, Rainfall: 100, Moisture: 38}
}

// SeedFromSoilGrids --> singola fetch del pH del suolo all'avvio.
// Se fallisce, resta il default (6.5).
func (g *DataGenerator) SeedFromSoilGrids(ctx context.Context, lat, lon float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seeded {
		return nil
	}
	g.cur = defaultReading()
	g.seeded = true

	ph, err := g.fetchPh(ctx, lat, lon)
	if err != nil {
		return err
	}
	g.cur.Ph = clamp(ph, Bounds.Ph)
	return nil
}

// Next advances the walk and returns the new reading.
func (g *DataGenerator) Next() Reading {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seeded {
		g.cur = defaultReading()
		g.seeded = true
	}
	g.cur.N = g.walk(g.cur.N, Bounds.N, 0)
	g.cur.P = g.walk(g.cur.P, Bounds.P, 0)
	g.cur.K = g.walk(g.cur.K, Bounds.K, 0)
	g.cur.Temperature = g.walk(g.cur.Temperature, Bounds.Temperature, 1)
	g.cur.Humidity = g.walk(g.cur.Humidity, Bounds.Humidity, 1)
	g.cur.Ph = g.walk(g.cur.Ph, Bounds.Ph, 1)
	g.cur.Rainfall = g.walk(g.cur.Rainfall, Bounds.Rainfall, 1)
	g.cur.Moisture = g.walk(g.cur.Moisture, Bounds.Moisture, 0)
	g.cur.Timestamp = g.now().UTC()
	return g.cur
}

func (g *DataGenerator) walk(v float64, b Bound, decimals int) float64 {
	v += (g.rnd.Float64()*2 - 1) * b.Step
	p := math.Pow(10, float64(decimals))
	return clamp(math.Round(v*p)/p, b)
}

// ===== Helpers =====

func (g *DataGenerator) fetchPh(ctx context.Context, lat, lon float64) (float64, error) {
	url := fmt.Sprintf(g.soilGrids, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return -1, err
	}
	req.Header.Set("User-Agent", "agro-soil-sampler/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return -1, err
	}
	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("soilgrids HTTP %d", resp.StatusCode)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return -1, err
	}
	if v := extractLayerValue(parsed); v >= 0 {
		return normalizePh(v), nil
	}
	return -1, errors.New("soilgrids: phh2o value not found")
}

// Prova a trovare il valore del primo layer in strutture comuni della risposta.
//   - {"properties":{"layers":[{"name":"phh2o","depths":[{"values":{"mean":62}}]}]}}
//   - {"features":[{"properties":{"layers":[... come sopra ...]}}]}
func extractLayerValue(v any) float64 {
	m, ok := v.(map[string]any)
	if !ok {
		return -1
	}
	if feats, ok := m["features"].([]any); ok && len(feats) > 0 {
		if f0, ok := feats[0].(map[string]any); ok {
			if p, ok := f0["properties"].(map[string]any); ok {
				if x := extractFromProperties(p); x >= 0 {
					return x
				}
			}
		}
	}
	if p, ok := m["properties"].(map[string]any); ok {
		return extractFromProperties(p)
	}
	return -1
}

func extractFromProperties(p map[string]any) float64 {
	layers, ok := p["layers"].([]any)
	if !ok || len(layers) == 0 {
		return -1
	}
	l0, ok := layers[0].(map[string]any)
	if !ok {
		return -1
	}
	depths, ok := l0["depths"].([]any)
	if !ok || len(depths) == 0 {
		return -1
	}
	d0, ok := depths[0].(map[string]any)
	if !ok {
		return -1
	}
	vals, ok := d0["values"].(map[string]any)
	if !ok {
		return -1
	}
	for _, k := range []string{"mean", "Q0.5", "Q0.95", "Q0.05", "value"} {
		switch t := vals[k].(type) {
		case float64:
			return t
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		}
	}
	return -1
}

// normalizePh: SoilGrids publishes pH*10 (62 => 6.2).
func normalizePh(x float64) float64 {
	if x > 14 {
		x = x / 10
	}
	return x
}

func clamp(x float64, b Bound) float64 {
	return math.Max(b.Min, math.Min(b.Max, x))
}
