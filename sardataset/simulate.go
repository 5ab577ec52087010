package sardataset

import (
	"math"
	"math/rand/v2"
)

// GenerateAreas returns n log-spaced areas between minA and maxA inclusive.
func GenerateAreas(n int, minA, maxA float64) []float64 {
	a := make([]float64, 0, n)
	if n == 1 {
		return append(a, minA)
	}
	logMin := math.Log(minA)
	logMax := math.Log(maxA)
	step := (logMax - logMin) / float64(n-1)
	for i := 0; i < n; i++ {
		a = append(a, math.Exp(logMin+step*float64(i)))
	}
	return a
}

type Series []float64

func (s Series) Add(src Series) Series {
	for i := range s {
		s[i] += src[i]
	}
	return s
}

// ClampMin floors every value of the series at val. Useful to keep simulated
// richness non-negative after adding noise.
func (s Series) ClampMin(val float64) Series {
	for i := range s {
		if s[i] < val {
			s[i] = val
		}
	}
	return s
}

// GeneratePowerY evaluates the power curve c*A^z at each area.
func GeneratePowerY(a []float64, c, z float64) Series {
	y := make([]float64, 0, len(a))
	for i := 0; i < len(a); i++ {
		y = append(y, c*math.Pow(a[i], z))
	}
	return Series(y)
}

// GenerateConstY returns a constant series of length n.
func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise scaled per point by noiseScale. A fixed
// seed keeps simulated datasets reproducible across test runs.
func GenerateNoise(n int, noiseScale float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*noiseScale)
	}
	return Series(y)
}
