package sardataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAreas(t *testing.T) {
	a := GenerateAreas(10, 0.1, 100)
	require.Len(t, a, 10)
	assert.InDelta(t, 0.1, a[0], 1e-12)
	assert.InDelta(t, 100, a[9], 1e-9)
	for i := 1; i < len(a); i++ {
		assert.Greater(t, a[i], a[i-1])
	}
	// log spacing means constant ratio
	ratio := a[1] / a[0]
	for i := 2; i < len(a); i++ {
		assert.InDelta(t, ratio, a[i]/a[i-1], 1e-9)
	}
}

func TestGeneratePowerY(t *testing.T) {
	a := []float64{1, 4, 9}
	y := GeneratePowerY(a, 2, 0.5)
	expected := []float64{2, 4, 6}
	for i := range expected {
		assert.InDelta(t, expected[i], y[i], 1e-12)
	}
}

func TestGenerateNoiseReproducible(t *testing.T) {
	n1 := GenerateNoise(16, 1.5, 42)
	n2 := GenerateNoise(16, 1.5, 42)
	assert.Equal(t, []float64(n1), []float64(n2))
}

func TestSeriesAddClamp(t *testing.T) {
	y := GenerateConstY(4, 1.0).
		Add(Series([]float64{-5, 0, 1, 2})).
		ClampMin(0)
	assert.Equal(t, []float64{0, 1, 2, 3}, []float64(y))
	for _, v := range y {
		assert.False(t, math.IsNaN(v))
	}
}
