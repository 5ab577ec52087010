package fit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("fitted and observed have different lengths")

// Scores summarizes the quality of a single model fit.
type Scores struct {
	RSS   float64 `json:"rss"`
	R2    float64 `json:"r2"`
	R2Adj float64 `json:"r2_adj"`
}

// NewScores computes fit quality scores given fitted and observed values and
// the number of model parameters.
func NewScores(fitted, observed []float64, nPar int) (*Scores, error) {
	if len(fitted) != len(observed) {
		return nil, ErrResLenMismatch
	}
	n := len(observed)

	var rss float64
	for i := 0; i < n; i++ {
		d := observed[i] - fitted[i]
		rss += d * d
	}

	r2 := stat.RSquaredFrom(fitted, observed, nil)
	r2Adj := math.NaN()
	if n-nPar-1 > 0 {
		r2Adj = 1 - (1-r2)*float64(n-1)/float64(n-nPar-1)
	}
	return &Scores{
		RSS:   rss,
		R2:    r2,
		R2Adj: r2Adj,
	}, nil
}

// criteria computes the log-likelihood based information criteria from a
// residual sum of squares. k counts the model parameters plus one for the
// residual variance so criteria are comparable across all catalog models.
func criteria(rss float64, n, nPar int) (aic, aicc, bic float64) {
	fn := float64(n)
	k := float64(nPar + 1)

	logLik := -fn / 2 * (math.Log(2*math.Pi) + math.Log(rss/fn) + 1)

	aic = 2*k - 2*logLik
	if fn-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(fn-k-1)
	} else {
		aicc = math.Inf(1)
	}
	bic = k*math.Log(fn) - 2*logLik
	return aic, aicc, bic
}
