package models

import (
	"math"
	"sort"
	"testing"

	"github.com/aouyang1/go-sar/sardataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(t *testing.T) *sardataset.Dataset {
	t.Helper()
	a := sardataset.GenerateAreas(12, 0.1, 500)
	r := sardataset.GeneratePowerY(a, 20, 0.3)
	ds, err := sardataset.New(a, r)
	require.Nil(t, err)
	return ds
}

func TestGet(t *testing.T) {
	testData := map[string]struct {
		name string
		err  error
	}{
		"power":   {name: "power"},
		"linear":  {name: "linear"},
		"betap":   {name: "betap"},
		"unknown": {name: "powerlaw", err: ErrUnknownModel},
		"empty":   {name: "", err: ErrUnknownModel},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			spec, err := Get(td.name)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.name, spec.Name)
		})
	}
}

func TestMustGetPanics(t *testing.T) {
	assert.Panics(t, func() { MustGet("nope") })
	assert.NotPanics(t, func() { MustGet("power") })
}

func TestList(t *testing.T) {
	names := List()
	assert.GreaterOrEqual(t, len(names), 21)
	assert.True(t, sort.StringsAreSorted(names))

	for _, expected := range []string{
		"power", "powerR", "epm1", "epm2", "p1", "p2", "loga", "koba",
		"monod", "negexpo", "chapman", "weibull3", "weibull4", "asymp",
		"ratio", "gompertz", "mmf", "logistic", "heleg", "betap", "linear",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestSpecMetadataConsistent(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			spec := MustGet(name)
			assert.Equal(t, name, spec.Name)
			assert.NotEmpty(t, spec.Formula)
			assert.NotEmpty(t, spec.Shape)
			require.Equal(t, spec.NumParams(), len(spec.Constraints))
			if spec.GridRanges != nil {
				assert.Equal(t, spec.NumParams(), len(spec.GridRanges))
			}
		})
	}
}

func TestInitSatisfiesConstraints(t *testing.T) {
	ds := testDataset(t)
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			spec := MustGet(name)
			start := spec.Init(ds)
			require.Equal(t, spec.NumParams(), len(start))
			for i, c := range spec.Constraints {
				assert.True(t, c.Contains(start[i]),
					"parameter %s value %f violates constraint", spec.Params[i], start[i])
			}
		})
	}
}

func TestFnFiniteAtStart(t *testing.T) {
	ds := testDataset(t)
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			spec := MustGet(name)
			start := spec.Init(ds)
			for _, a := range ds.A {
				v := spec.Fn(a, start)
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0),
					"non-finite value at area %f", a)
			}
		})
	}
}

func TestPowerInitRecoversCleanData(t *testing.T) {
	ds := testDataset(t)
	start := MustGet("power").Init(ds)
	assert.InDelta(t, 20, start[0], 1e-6)
	assert.InDelta(t, 0.3, start[1], 1e-9)
}

func TestInitDegenerateData(t *testing.T) {
	// all-zero richness must not panic and must return usable numbers
	ds, err := sardataset.New([]float64{1, 2, 4, 8}, []float64{0, 0, 0, 0})
	require.Nil(t, err)
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			spec := MustGet(name)
			start := spec.Init(ds)
			require.Equal(t, spec.NumParams(), len(start))
			for _, v := range start {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
		})
	}
}

func TestConstraintContains(t *testing.T) {
	testData := map[string]struct {
		c        Constraint
		val      float64
		expected bool
	}{
		"unconstrained negative": {Constraint{Kind: Unconstrained}, -5, true},
		"positive ok":            {Constraint{Kind: Positive}, 0.1, true},
		"positive zero":          {Constraint{Kind: Positive}, 0, false},
		"positive negative":      {Constraint{Kind: Positive}, -1, false},
		"bounded inside":         {Constraint{Kind: Bounded, Lo: 0, Hi: 1}, 0.5, true},
		"bounded at edge":        {Constraint{Kind: Bounded, Lo: 0, Hi: 1}, 1, false},
		"bounded outside":        {Constraint{Kind: Bounded, Lo: 0, Hi: 1}, 2, false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.c.Contains(td.val))
		})
	}
}
