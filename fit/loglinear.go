package fit

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-sar/models"
	"github.com/aouyang1/go-sar/sardataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrBadLogBase          = errors.New("log base must be positive and not 1")
	ErrNonPositiveRichness = errors.New("log transform requires strictly positive richness")
)

// olsSolve computes ordinary least squares of y against x with an intercept
// using QR factorization, returning the intercept and slope.
func olsSolve(x, y []float64) (intercept, slope float64) {
	m := len(x)

	ones := make([]float64, m)
	floats.AddConst(1.0, ones)

	xMx := mat.NewDense(m, 2, nil)
	xMx.SetCol(0, ones)
	xMx.SetCol(1, x)

	yMx := mat.NewDense(1, m, y)

	qr := new(mat.QR)
	qr.Factorize(xMx)

	q := new(mat.Dense)
	r := new(mat.Dense)
	qr.QTo(q)
	qr.RTo(r)

	yq := new(mat.Dense)
	yq.Mul(yMx, q)

	c := make([]float64, 2)
	for i := 1; i >= 0; i-- {
		c[i] = yq.At(0, i)
		for j := i + 1; j < 2; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		c[i] /= r.At(i, i)
	}
	return c[0], c[1]
}

// fitLinear is the closed-form path for the linear catalog model. No
// iteration, always converges.
func fitLinear(spec *models.Spec, ds *sardataset.Dataset, opt *Options) (*Result, error) {
	intercept, slope := olsSolve(ds.A, ds.R)
	return finalize(spec, ds.A, ds.R, []float64{intercept, slope}, opt)
}

// FitLogLinear fits the log-transformed power-law model: log_b(richness)
// regressed on log_b(area) by ordinary least squares. The log base used is
// recorded on the result, and fitted values and residuals live on the log
// scale. Used standalone and as a comparison baseline for the nonlinear power
// model: the slope estimates should agree up to the change of log base.
func FitLogLinear(ds *sardataset.Dataset, base float64, opt *Options) (*Result, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, ErrNoDataset
	}
	if err := validateSize(ds, opt); err != nil {
		return nil, err
	}
	if base <= 0 || base == 1 {
		return nil, fmt.Errorf("base %f, %w", base, ErrBadLogBase)
	}

	logA := make([]float64, ds.Len())
	logR := make([]float64, ds.Len())
	lnBase := math.Log(base)
	for i := 0; i < ds.Len(); i++ {
		if ds.R[i] <= 0 {
			return nil, fmt.Errorf("observation %d has richness %f, %w", i, ds.R[i], ErrNonPositiveRichness)
		}
		logA[i] = math.Log(ds.A[i]) / lnBase
		logR[i] = math.Log(ds.R[i]) / lnBase
	}

	intercept, slope := olsSolve(logA, logR)

	res, err := finalize(logLinearSpec(base), ds.A, logR, []float64{intercept, slope}, opt)
	if err != nil {
		return nil, err
	}
	res.LogBase = base
	return res, nil
}

// logLinearSpec builds a one-off model definition evaluating the fitted line
// in log space. Not part of the registry since its predictions are on the log
// scale and must not be mixed into a multi-model ensemble.
func logLinearSpec(base float64) *models.Spec {
	lnBase := math.Log(base)
	return &models.Spec{
		Name:         "loglinear",
		Formula:      "log_b(S) = c + z*log_b(A)",
		Shape:        models.ShapeLinear,
		Params:       []string{"c", "z"},
		Constraints:  []models.Constraint{{Kind: models.Unconstrained}, {Kind: models.Unconstrained}},
		GridDisabled: true,
		Fn: func(a float64, p []float64) float64 {
			return p[0] + p[1]*math.Log(a)/lnBase
		},
	}
}
