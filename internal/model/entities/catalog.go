package entities

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog lists the soil and crop types the fertilizer form offers.
type Catalog struct {
	SoilTypes []string  `yaml:"soil_types"`
	CropTypes []string  `yaml:"crop_types"`
	Ideal     Nutrients `yaml:"ideal"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML catalog from path; an empty path yields the default.
// Missing sections fall back to the embedded values.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return Catalog{}, err
	}
	def := DefaultCatalog()
	if len(c.SoilTypes) == 0 {
		c.SoilTypes = def.SoilTypes
	}
	if len(c.CropTypes) == 0 {
		c.CropTypes = def.CropTypes
	}
	if c.Ideal == (Nutrients{}) {
		c.Ideal = def.Ideal
	}
	return c, nil
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	c.SoilTypes = compact(c.SoilTypes)
	c.CropTypes = compact(c.CropTypes)
	return c, nil
}

func compact(in []string) []string {
	out := in[:0]
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
