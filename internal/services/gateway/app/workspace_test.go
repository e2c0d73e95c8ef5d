package app

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/agro_advisor/internal/model/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceChartKeepsSingleChart(t *testing.T) {
	ws := newWorkspace("s1", time.Now())
	_, ok := ws.Chart()
	assert.False(t, ok)

	first := NewNutrientChart(entities.Nutrients{N: 1, P: 2, K: 3}, entities.IdealNutrients)
	assert.Nil(t, ws.ReplaceChart(first))

	second := NewNutrientChart(entities.Nutrients{N: 4, P: 5, K: 6}, entities.IdealNutrients)
	prev := ws.ReplaceChart(second)
	require.NotNil(t, prev)
	assert.Equal(t, []float64{1, 2, 3}, prev.Datasets[0].Data)

	cur, ok := ws.Chart()
	require.True(t, ok)
	assert.Equal(t, []float64{4, 5, 6}, cur.Datasets[0].Data)
	assert.Equal(t, 2, ws.Snapshot().ChartVersion)
}

func TestApplyCropPrefillsFertilizerForm(t *testing.T) {
	ws := newWorkspace("s1", time.Now())
	assert.False(t, ws.Snapshot().ShowFertilizer)

	ws.ApplyCrop(newCropView(messages.CropResponse{
		TopRecommendation: "rice",
		Recommendations: []messages.Recommendation{
			{Crop: "rice", Probability: 0.92},
			{Crop: "jute", Probability: 0.05},
		},
	}))
	v := ws.Snapshot()
	assert.True(t, v.ShowFertilizer)
	assert.Equal(t, "rice", v.FertForm.CropType)
	require.NotNil(t, v.CropPanel.Crop)
	assert.InDelta(t, 0.92, v.CropPanel.Crop.TopProbability, 1e-9)
	assert.Equal(t, []RecommendationView{{Crop: "jute", Probability: 0.05}}, v.CropPanel.Crop.Others)
}

func TestErrorReplacesPanel(t *testing.T) {
	ws := newWorkspace("s1", time.Now())
	ws.ApplyFertilizer(&FertilizerView{Fertilizer: "Urea"})
	ws.SetFertilizerError("bad soil type")

	v := ws.Snapshot()
	assert.Nil(t, v.FertPanel.Fertilizer)
	assert.Equal(t, "bad soil type", v.FertPanel.Error)
	assert.True(t, v.ShowFertilizer)
	assert.True(t, v.CropPanel.Empty())
}

func TestSnapshotIsACopy(t *testing.T) {
	ws := newWorkspace("s1", time.Now())
	ws.ReplaceChart(NewNutrientChart(entities.Nutrients{N: 1}, entities.IdealNutrients))
	v := ws.Snapshot()
	ws.ReplaceChart(NewNutrientChart(entities.Nutrients{N: 9}, entities.IdealNutrients))
	assert.Equal(t, 1.0, v.Chart.Datasets[0].Data[0])
}

func TestWorkspaceStoreExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewWorkspaceStore(time.Hour, 10)
	s.now = func() time.Time { return now }

	_, err := s.Get("")
	require.Error(t, err)

	a, err := s.Get("a")
	require.NoError(t, err)
	a.SetCropError("x")

	again, err := s.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, again)

	now = now.Add(2 * time.Hour)
	_, ok := s.Peek("a")
	assert.False(t, ok)

	fresh, err := s.Get("a")
	require.NoError(t, err)
	assert.NotSame(t, a, fresh)
	assert.True(t, fresh.Snapshot().CropPanel.Empty())
}

func TestWorkspaceStoreEvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewWorkspaceStore(time.Hour, 2)
	s.now = func() time.Time { return now }

	for _, id := range []string{"a", "b"} {
		_, err := s.Get(id)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}
	_, _ = s.Get("a") // refresh a
	now = now.Add(time.Minute)
	_, err := s.Get("c")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	_, ok := s.Peek("b")
	assert.False(t, ok)
	_, ok = s.Peek("a")
	assert.True(t, ok)
	_, ok = s.Peek("c")
	assert.True(t, ok)
}
