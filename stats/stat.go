// Package stats provides the statistical test primitives used to screen model
// fits: residual normality tests, a correlation test for homoscedasticity, and
// empirical quantiles for bootstrap summaries.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrSampleTooSmall = errors.New("sample too small for test")
	ErrSampleTooLarge = errors.New("sample too large for test")
)

const (
	ShapiroWilkMinN = 3
	ShapiroWilkMaxN = 5000
	LillieforsMinN  = 5
)

// TestResult holds a test statistic and its p-value. P is NaN when the test is
// undefined for the input, e.g. zero-variance residuals.
type TestResult struct {
	Stat float64 `json:"statistic"`
	P    float64 `json:"p_value"`
}

// Undefined reports whether the p-value could not be computed.
func (t TestResult) Undefined() bool {
	return math.IsNaN(t.P)
}

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// ShapiroWilk computes the Shapiro-Wilk W statistic and p-value using
// Royston's AS R94 approximation. Valid for 3 <= n <= 5000.
func ShapiroWilk(x []float64) (TestResult, error) {
	n := len(x)
	if n < ShapiroWilkMinN {
		return TestResult{}, fmt.Errorf("shapiro-wilk needs at least %d observations, %w", ShapiroWilkMinN, ErrSampleTooSmall)
	}
	if n > ShapiroWilkMaxN {
		return TestResult{}, fmt.Errorf("shapiro-wilk supports at most %d observations, %w", ShapiroWilkMaxN, ErrSampleTooLarge)
	}

	xs := sortedCopy(x)
	if xs[n-1] == xs[0] {
		return TestResult{Stat: math.NaN(), P: math.NaN()}, nil
	}

	// expected normal order statistics
	m := make([]float64, n)
	var ssqm float64
	for i := 0; i < n; i++ {
		m[i] = stdNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssqm += m[i] * m[i]
	}

	// Royston's polynomial-corrected weights
	a := make([]float64, n)
	u := 1 / math.Sqrt(float64(n))
	rssqm := math.Sqrt(ssqm)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		a[2] = -a[0]
	} else {
		an := m[n-1]/rssqm + poly([]float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}, u)
		var an1, phi float64
		if n > 5 {
			an1 = m[n-2]/rssqm + poly([]float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}, u)
			phi = (ssqm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)
			a[n-2] = an1
			a[1] = -an1
		} else {
			phi = (ssqm - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		}
		a[n-1] = an
		a[0] = -an
		lo := 2
		if n <= 5 {
			lo = 1
		}
		for i := lo; i < n-lo; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	}

	mean := stat.Mean(xs, nil)
	var num, den float64
	for i := 0; i < n; i++ {
		num += a[i] * xs[i]
		den += (xs[i] - mean) * (xs[i] - mean)
	}
	w := num * num / den

	p := shapiroWilkP(w, n)
	return TestResult{Stat: w, P: p}, nil
}

func shapiroWilkP(w float64, n int) float64 {
	switch {
	case n == 3:
		// exact for n=3
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Min(math.Max(p, 0), 1)
	case n <= 11:
		fn := float64(n)
		gamma := -2.273 + 0.459*fn
		wx := -math.Log(gamma - math.Log(1-w))
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		return stdNormal.Survival((wx - mu) / sigma)
	default:
		ln := math.Log(float64(n))
		wx := math.Log(1 - w)
		mu := -1.5861 - 0.31082*ln - 0.083751*ln*ln + 0.0038915*ln*ln*ln
		sigma := math.Exp(-0.4803 - 0.082676*ln + 0.0030302*ln*ln)
		return stdNormal.Survival((wx - mu) / sigma)
	}
}

// KolmogorovSmirnov tests the sample against a normal distribution with the
// sample's own mean and standard deviation, using the asymptotic Kolmogorov
// distribution for the p-value.
func KolmogorovSmirnov(x []float64) (TestResult, error) {
	n := len(x)
	if n < 3 {
		return TestResult{}, fmt.Errorf("kolmogorov-smirnov needs at least 3 observations, %w", ErrSampleTooSmall)
	}

	d, undefined := ksStatistic(x)
	if undefined {
		return TestResult{Stat: math.NaN(), P: math.NaN()}, nil
	}

	sqrtN := math.Sqrt(float64(n))
	lambda := (sqrtN + 0.12 + 0.11/sqrtN) * d
	return TestResult{Stat: d, P: kolmogorovQ(lambda)}, nil
}

// Lilliefors is the Kolmogorov-Smirnov test with estimated parameters using
// the Dallal-Wilkinson p-value correction. Requires at least 5 observations.
func Lilliefors(x []float64) (TestResult, error) {
	n := len(x)
	if n < LillieforsMinN {
		return TestResult{}, fmt.Errorf("lilliefors needs at least %d observations, %w", LillieforsMinN, ErrSampleTooSmall)
	}

	d, undefined := ksStatistic(x)
	if undefined {
		return TestResult{Stat: math.NaN(), P: math.NaN()}, nil
	}

	fn := float64(n)
	kd := d
	nd := fn
	if n > 100 {
		kd = d * math.Pow(fn/100, 0.49)
		nd = 100
	}
	p := math.Exp(-7.01256*kd*kd*(nd+2.78019) +
		2.99587*kd*math.Sqrt(nd+2.78019) -
		0.122119 + 0.974598/math.Sqrt(nd) + 1.67997/nd)
	if p > 0.1 {
		kk := (math.Sqrt(fn) - 0.01 + 0.85/math.Sqrt(fn)) * d
		switch {
		case kk <= 0.302:
			p = 1
		case kk <= 0.5:
			p = 2.76773 - 19.828315*kk + 80.709644*kk*kk - 138.55152*kk*kk*kk + 81.218052*kk*kk*kk*kk
		case kk <= 0.9:
			p = -4.901232 + 40.662806*kk - 97.490286*kk*kk + 94.029866*kk*kk*kk - 32.355711*kk*kk*kk*kk
		case kk <= 1.31:
			p = 6.198765 - 19.558097*kk + 23.186922*kk*kk - 12.234627*kk*kk*kk + 2.423045*kk*kk*kk*kk
		default:
			p = 0
		}
	}
	return TestResult{Stat: d, P: math.Min(math.Max(p, 0), 1)}, nil
}

// ksStatistic computes the two-sided KS distance between the empirical CDF and
// a normal CDF with estimated mean and standard deviation. The second return
// is true when the sample has zero variance.
func ksStatistic(x []float64) (float64, bool) {
	n := len(x)
	xs := sortedCopy(x)
	mean, stddev := stat.MeanStdDev(xs, nil)
	if stddev == 0 || math.IsNaN(stddev) {
		return 0, true
	}
	norm := distuv.Normal{Mu: mean, Sigma: stddev}

	var d float64
	for i := 0; i < n; i++ {
		cdf := norm.CDF(xs[i])
		dPlus := float64(i+1)/float64(n) - cdf
		dMinus := cdf - float64(i)/float64(n)
		d = math.Max(d, math.Max(dPlus, dMinus))
	}
	return d, false
}

// kolmogorovQ evaluates the asymptotic Kolmogorov survival function
// Q(lambda) = 2 * sum_{j>=1} (-1)^(j-1) exp(-2 j^2 lambda^2).
func kolmogorovQ(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j*j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	return math.Min(math.Max(p, 0), 1)
}

// PearsonTest computes the Pearson correlation between x and y and the
// two-sided p-value of the t statistic under the null of zero correlation.
// The p-value is NaN if either input has zero variance.
func PearsonTest(x, y []float64) TestResult {
	n := len(x)
	if n < 3 || len(y) != n {
		return TestResult{Stat: math.NaN(), P: math.NaN()}
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return TestResult{Stat: math.NaN(), P: math.NaN()}
	}
	if r >= 1 || r <= -1 {
		return TestResult{Stat: r, P: 0}
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * dist.Survival(math.Abs(t))
	return TestResult{Stat: r, P: math.Min(p, 1)}
}

// Quantile returns the empirical p-quantile of xs, ignoring non-finite values.
// Returns NaN when no finite values remain.
func Quantile(p float64, xs []float64) float64 {
	finite := make([]float64, 0, len(xs))
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	return stat.Quantile(p, stat.Empirical, finite, nil)
}

func sortedCopy(x []float64) []float64 {
	xs := make([]float64, len(x))
	copy(xs, x)
	sort.Float64s(xs)
	return xs
}

// poly evaluates sum_i c[i]*x^i.
func poly(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
