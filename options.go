package sar

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/aouyang1/go-sar/fit"
)

var ErrUnknownCriterion = errors.New("unknown information criterion")

// Criterion selects the information criterion used for model weighting.
type Criterion string

const (
	// CritInfo auto-selects AICc for small samples (n/3 < 40) and AIC
	// otherwise.
	CritInfo Criterion = "Info"
	CritAIC  Criterion = "AIC"
	CritAICc Criterion = "AICc"
	CritBIC  Criterion = "BIC"
)

// infoAutoThreshold is the n/3 cutoff below which CritInfo resolves to AICc.
const infoAutoThreshold = 40

// resolve maps the criterion to a concrete one for a dataset of n points.
func (c Criterion) resolve(n int) Criterion {
	if c != CritInfo {
		return c
	}
	if float64(n)/3 < infoAutoThreshold {
		return CritAICc
	}
	return CritAIC
}

// Options configures the multi-model pipeline: per-model fitting, screening,
// weighting, and bootstrap execution.
type Options struct {
	// FitOptions is passed through to every single-model fit.
	FitOptions *fit.Options

	// Crit selects the information criterion for weighting.
	Crit Criterion

	// NormaAlpha and HomoAlpha are the screening significance levels.
	NormaAlpha float64
	HomoAlpha  float64

	// NegCheck drops models whose fitted values include negative richness.
	NegCheck bool

	// CIAlpha is the two-sided bootstrap confidence level, e.g. 0.05 for a
	// 2.5/97.5 percentile band.
	CIAlpha float64

	// Seed drives bootstrap resampling for reproducible intervals.
	Seed uint64

	// MaxWorkers caps parallel fits and bootstrap replicates. Defaults to
	// GOMAXPROCS.
	MaxWorkers int
}

// NewDefaultOptions returns pipeline options with screening tests disabled and
// standard significance levels.
func NewDefaultOptions() *Options {
	return &Options{
		FitOptions: fit.NewDefaultOptions(),
		Crit:       CritInfo,
		NormaAlpha: 0.05,
		HomoAlpha:  0.05,
		CIAlpha:    0.05,
		MaxWorkers: runtime.GOMAXPROCS(0),
	}
}

// Validate runs basic validation on pipeline options, filling in defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}

	out := *o
	switch out.Crit {
	case "":
		out.Crit = CritInfo
	case CritInfo, CritAIC, CritAICc, CritBIC:
	default:
		return nil, fmt.Errorf("%q, %w", out.Crit, ErrUnknownCriterion)
	}

	fitOpt, err := out.FitOptions.Validate()
	if err != nil {
		return nil, err
	}
	out.FitOptions = fitOpt

	if out.NormaAlpha == 0 {
		out.NormaAlpha = 0.05
	}
	if out.HomoAlpha == 0 {
		out.HomoAlpha = 0.05
	}
	if out.CIAlpha == 0 {
		out.CIAlpha = 0.05
	}
	if out.MaxWorkers <= 0 {
		out.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	return &out, nil
}
