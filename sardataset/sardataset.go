// Package sardataset provides the bivariate area/richness dataset consumed by
// the model fitting and averaging pipeline.
package sardataset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoObservations     = errors.New("no observations")
	ErrDatasetLenMismatch = errors.New("area feature has a different length than richness")
	ErrNonPositiveArea    = errors.New("area values must be strictly positive")
	ErrNegativeRichness   = errors.New("richness values must be non-negative")
	ErrNonFiniteValue     = errors.New("non-finite value in dataset")
)

// Dataset represents a set of area/richness observations. Area values must be
// strictly positive since several model forms operate on log(area). Both
// slices must be of the same length.
type Dataset struct {
	A []float64
	R []float64
}

// New returns an instance of a Dataset given an area and richness slice,
// validating the domain invariants.
func New(a, r []float64) (*Dataset, error) {
	if len(r) == 0 {
		return nil, ErrNoObservations
	}
	if len(a) != len(r) {
		return nil, fmt.Errorf(
			"area feature has length of %d, but richness has a length of %d, %w",
			len(a), len(r), ErrDatasetLenMismatch,
		)
	}

	for i := 0; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsInf(a[i], 0) || math.IsNaN(r[i]) || math.IsInf(r[i], 0) {
			return nil, fmt.Errorf("observation %d, %w", i, ErrNonFiniteValue)
		}
		if a[i] <= 0 {
			return nil, fmt.Errorf("observation %d has area %f, %w", i, a[i], ErrNonPositiveArea)
		}
		if r[i] < 0 {
			return nil, fmt.Errorf("observation %d has richness %f, %w", i, r[i], ErrNegativeRichness)
		}
	}

	aSeries := make([]float64, len(a))
	rSeries := make([]float64, len(r))
	copy(aSeries, a)
	copy(rSeries, r)
	ds := &Dataset{
		A: aSeries,
		R: rSeries,
	}

	return ds, nil
}

// Len returns the number of observations.
func (ds *Dataset) Len() int {
	return len(ds.A)
}

func (ds *Dataset) Copy() *Dataset {
	aSeries := make([]float64, len(ds.A))
	rSeries := make([]float64, len(ds.R))
	copy(aSeries, ds.A)
	copy(rSeries, ds.R)
	return &Dataset{
		A: aSeries,
		R: rSeries,
	}
}

// ConstantRichness reports whether all richness values are identical. Starting
// value heuristics and residual diagnostics degenerate on such data.
func (ds *Dataset) ConstantRichness() bool {
	return stat.Variance(ds.R, nil) == 0
}

// MaxRichness returns the largest observed richness.
func (ds *Dataset) MaxRichness() float64 {
	return floats.Max(ds.R)
}

// MinRichness returns the smallest observed richness.
func (ds *Dataset) MinRichness() float64 {
	return floats.Min(ds.R)
}

// MeanArea returns the mean of the observed areas.
func (ds *Dataset) MeanArea() float64 {
	return stat.Mean(ds.A, nil)
}
