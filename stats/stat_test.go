package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// evenly spread sample: no evidence against normality at any sane alpha
	plausiblyNormal = []float64{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
		11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
	}
	// heavily right-skewed sample
	skewed = []float64{1, 1, 1, 1, 2, 2, 3, 5, 9, 17, 33, 100}
)

func TestShapiroWilk(t *testing.T) {
	testData := map[string]struct {
		x       []float64
		err     error
		minP    float64
		maxP    float64
		undefOK bool
	}{
		"uniform sequence": {x: plausiblyNormal, minP: 0.2, maxP: 1},
		"skewed":           {x: skewed, minP: 0, maxP: 0.01},
		"constant":         {x: []float64{3, 3, 3, 3, 3}, undefOK: true},
		"too small":        {x: []float64{1, 2}, err: ErrSampleTooSmall},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ShapiroWilk(td.x)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			if td.undefOK {
				assert.True(t, res.Undefined())
				return
			}
			assert.False(t, res.Undefined())
			assert.Greater(t, res.Stat, 0.0)
			assert.LessOrEqual(t, res.Stat, 1.0)
			assert.GreaterOrEqual(t, res.P, td.minP)
			assert.LessOrEqual(t, res.P, td.maxP)
		})
	}
}

func TestShapiroWilkReference(t *testing.T) {
	// shapiro.test(1:20) reports W = 0.959 with p around 0.52
	res, err := ShapiroWilk(plausiblyNormal)
	require.Nil(t, err)
	assert.InDelta(t, 0.959, res.Stat, 0.01)
	assert.InDelta(t, 0.52, res.P, 0.15)
}

func TestShapiroWilkSmallN(t *testing.T) {
	// n=3 uses the exact p-value
	res, err := ShapiroWilk([]float64{1, 2, 3})
	require.Nil(t, err)
	assert.False(t, res.Undefined())
	assert.Greater(t, res.P, 0.5)

	// n=4 and n=5 exercise the small-sample weight branch
	for _, x := range [][]float64{{1, 2, 3, 5}, {1, 2, 3, 5, 8}} {
		res, err := ShapiroWilk(x)
		require.Nil(t, err)
		assert.False(t, res.Undefined())
		assert.GreaterOrEqual(t, res.P, 0.0)
		assert.LessOrEqual(t, res.P, 1.0)
	}
}

func TestKolmogorovSmirnov(t *testing.T) {
	testData := map[string]struct {
		x       []float64
		err     error
		minP    float64
		maxP    float64
		undefOK bool
	}{
		"uniform sequence": {x: plausiblyNormal, minP: 0.5, maxP: 1},
		"skewed":           {x: skewed, minP: 0, maxP: 0.5},
		"constant":         {x: []float64{3, 3, 3, 3}, undefOK: true},
		"too small":        {x: []float64{1, 2}, err: ErrSampleTooSmall},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := KolmogorovSmirnov(td.x)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			if td.undefOK {
				assert.True(t, res.Undefined())
				return
			}
			assert.False(t, res.Undefined())
			assert.GreaterOrEqual(t, res.P, td.minP)
			assert.LessOrEqual(t, res.P, td.maxP)
		})
	}
}

func TestLilliefors(t *testing.T) {
	testData := map[string]struct {
		x       []float64
		err     error
		minP    float64
		maxP    float64
		undefOK bool
	}{
		"uniform sequence": {x: plausiblyNormal, minP: 0.3, maxP: 1},
		"skewed":           {x: skewed, minP: 0, maxP: 0.01},
		"constant":         {x: []float64{3, 3, 3, 3, 3}, undefOK: true},
		"four points":      {x: []float64{1, 2, 3, 4}, err: ErrSampleTooSmall},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Lilliefors(td.x)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			if td.undefOK {
				assert.True(t, res.Undefined())
				return
			}
			assert.False(t, res.Undefined())
			assert.GreaterOrEqual(t, res.P, td.minP)
			assert.LessOrEqual(t, res.P, td.maxP)
		})
	}
}

func TestLillieforsMinBoundary(t *testing.T) {
	// exactly 5 points is accepted
	res, err := Lilliefors([]float64{1, 2, 3, 4, 8})
	require.Nil(t, err)
	assert.False(t, math.IsNaN(res.Stat))
}

func TestPearsonTest(t *testing.T) {
	testData := map[string]struct {
		x       []float64
		y       []float64
		minP    float64
		maxP    float64
		undefOK bool
	}{
		"perfectly correlated": {
			x:    []float64{1, 2, 3, 4, 5},
			y:    []float64{2, 4, 6, 8, 10},
			minP: 0, maxP: 1e-10,
		},
		"strongly correlated": {
			x:    []float64{1, 2, 3, 4, 5, 6, 7, 8},
			y:    []float64{1.1, 2.2, 2.9, 4.1, 5.2, 5.8, 7.1, 8.2},
			minP: 0, maxP: 0.001,
		},
		"alternating": {
			x:    []float64{1, 2, 3, 4, 5, 6},
			y:    []float64{1, -1, 1, -1, 1, -1},
			minP: 0.3, maxP: 1,
		},
		"zero variance": {
			x:       []float64{1, 2, 3, 4},
			y:       []float64{7, 7, 7, 7},
			undefOK: true,
		},
		"too small": {
			x:       []float64{1, 2},
			y:       []float64{3, 4},
			undefOK: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := PearsonTest(td.x, td.y)
			if td.undefOK {
				assert.True(t, res.Undefined())
				return
			}
			assert.False(t, res.Undefined())
			assert.GreaterOrEqual(t, res.P, td.minP)
			assert.LessOrEqual(t, res.P, td.maxP)
		})
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 1.0, Quantile(0, xs))
	assert.Equal(t, 5.0, Quantile(1, xs))
	med := Quantile(0.5, xs)
	assert.GreaterOrEqual(t, med, 2.0)
	assert.LessOrEqual(t, med, 4.0)
}

func TestQuantileSkipsNonFinite(t *testing.T) {
	xs := []float64{math.NaN(), 1, math.Inf(1), 2, 3}
	assert.Equal(t, 3.0, Quantile(1, xs))

	assert.True(t, math.IsNaN(Quantile(0.5, []float64{math.NaN(), math.Inf(-1)})))
}
