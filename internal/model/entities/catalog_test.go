package entities

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Contains(t, c.SoilTypes, "Loamy")
	assert.Contains(t, c.CropTypes, "Paddy")
	assert.Equal(t, IdealNutrients, c.Ideal)
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("soil_types: [Peat, ' Peat ', Silt]\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Peat", "Silt"}, c.SoilTypes)
	assert.Equal(t, DefaultCatalog().CropTypes, c.CropTypes)
	assert.Equal(t, IdealNutrients, c.Ideal)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("soil_types: {"), 0o644))
	_, err = LoadCatalog(path)
	assert.ErrorContains(t, err, "parse catalog")
}
