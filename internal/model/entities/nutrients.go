package entities

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Nutrients holds N/P/K soil readings in kg/ha.
type Nutrients struct {
	N float64 `json:"N" yaml:"n"`
	P float64 `json:"P" yaml:"p"`
	K float64 `json:"K" yaml:"k"`
}

// Reference levels shown next to the measured ones.
var IdealNutrients = Nutrients{N: 40, P: 30, K: 40}

// Below these values the backend flags a deficiency.
var DeficiencyThresholds = Nutrients{N: 20, P: 10, K: 15}

// Nutrient labels, in chart order.
const (
	LabelN = "Nitrogen (N)"
	LabelP = "Phosphorus (P)"
	LabelK = "Potassium (K)"
)

func Labels() []string { return []string{LabelN, LabelP, LabelK} }

func (n Nutrients) Values() []float64 { return []float64{n.N, n.P, n.K} }

// Deficiencies lists the nutrients under DeficiencyThresholds, in N, P, K order.
func (n Nutrients) Deficiencies() []string {
	var out []string
	if n.N < DeficiencyThresholds.N {
		out = append(out, LabelN)
	}
	if n.P < DeficiencyThresholds.P {
		out = append(out, LabelP)
	}
	if n.K < DeficiencyThresholds.K {
		out = append(out, LabelK)
	}
	return out
}

// ParseNutrients converts raw form strings. All three must be numbers.
func ParseNutrients(n, p, k string) (Nutrients, error) {
	var out Nutrients
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{{"N", n, &out.N}, {"P", p, &out.P}, {"K", k, &out.K}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Nutrients{}, fmt.Errorf("%s: %q is not a number", f.name, f.raw)
		}
		*f.dst = v
	}
	return out, nil
}
