// Package fit fits a single species-area model to a dataset via nonlinear
// least squares and computes the fit diagnostics used by the multi-model
// averaging pipeline.
package fit

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-sar/models"
	"github.com/aouyang1/go-sar/sardataset"
	"github.com/aouyang1/go-sar/stats"
)

var (
	ErrNoDataset        = errors.New("no dataset")
	ErrNoModelSpec      = errors.New("no model spec")
	ErrTooFewPoints     = errors.New("too few data points")
	ErrLillieMinPoints  = errors.New("lilliefors test requires more data points")
	ErrBadStartLen      = errors.New("custom start length does not match model parameter count")
	ErrStartOutOfDomain = errors.New("custom start violates parameter constraint")
	ErrUnknownNormaTest = errors.New("unknown normality test")
	ErrUnknownHomoTest  = errors.New("unknown homogeneity test")
	ErrBadGridSize      = errors.New("grid sample count must be positive")
	ErrNotConverged     = errors.New("fit did not converge")
)

const (
	// MinPoints is the smallest dataset a single fit accepts.
	MinPoints = 3

	DefaultGridN         = 100
	DefaultMaxIterations = 2000
)

// NormalityTest selects the residual normality diagnostic.
type NormalityTest string

const (
	NormaNone    NormalityTest = "none"
	NormaShapiro NormalityTest = "shapiro"
	NormaKS      NormalityTest = "ks"
	NormaLillie  NormalityTest = "lillie"
)

// HomogeneityTest selects the residual homoscedasticity diagnostic. Both
// variants correlate the residuals against a target series.
type HomogeneityTest string

const (
	HomoNone   HomogeneityTest = "none"
	HomoFitted HomogeneityTest = "cor_fitted"
	HomoArea   HomogeneityTest = "cor_area"
)

// Options configures a single model fit.
type Options struct {
	// NormaTest selects the residual normality test. Defaults to none.
	NormaTest NormalityTest

	// HomoTest selects the residual homoscedasticity test. Defaults to none.
	HomoTest HomogeneityTest

	// GridStart repeats the minimization from GridN sampled starting points
	// for models that support it, keeping the converged attempt with the
	// smallest residual sum of squares.
	GridStart bool
	GridN     int

	// Seed drives grid start sampling for reproducible fits.
	Seed uint64

	// Start overrides the model's starting value heuristic.
	Start []float64

	// MaxIterations bounds the minimizer.
	MaxIterations int
}

// NewDefaultOptions returns fit options with diagnostics disabled.
func NewDefaultOptions() *Options {
	return &Options{
		NormaTest:     NormaNone,
		HomoTest:      HomoNone,
		GridN:         DefaultGridN,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate runs basic validation on fit options, filling in defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}

	switch o.NormaTest {
	case "", NormaNone, NormaShapiro, NormaKS, NormaLillie:
	default:
		return nil, fmt.Errorf("%q, %w", o.NormaTest, ErrUnknownNormaTest)
	}
	switch o.HomoTest {
	case "", HomoNone, HomoFitted, HomoArea:
	default:
		return nil, fmt.Errorf("%q, %w", o.HomoTest, ErrUnknownHomoTest)
	}

	out := *o
	if out.NormaTest == "" {
		out.NormaTest = NormaNone
	}
	if out.HomoTest == "" {
		out.HomoTest = HomoNone
	}
	if out.GridN == 0 {
		out.GridN = DefaultGridN
	}
	if out.GridStart && out.GridN < 1 {
		return nil, fmt.Errorf("grid_n of %d, %w", out.GridN, ErrBadGridSize)
	}
	if out.MaxIterations <= 0 {
		out.MaxIterations = DefaultMaxIterations
	}
	return &out, nil
}

// Result is the outcome of one fit attempt. A convergence failure is a normal
// outcome, not an error: Converged is false and RSS is NaN with all derived
// diagnostics absent.
type Result struct {
	Model *models.Spec `json:"-"`

	Name      string    `json:"name"`
	Par       []float64 `json:"parameters"`
	RSS       float64   `json:"rss"`
	Converged bool      `json:"converged"`

	Fitted    []float64 `json:"fitted,omitempty"`
	Residuals []float64 `json:"residuals,omitempty"`

	AIC  float64 `json:"aic"`
	AICc float64 `json:"aicc"`
	BIC  float64 `json:"bic"`

	Scores *Scores `json:"scores,omitempty"`

	Norma *stats.TestResult `json:"normality,omitempty"`
	Homo  *stats.TestResult `json:"homogeneity,omitempty"`

	// LogBase is the log base of the transform for the log-linear power
	// model, 0 for every other model.
	LogBase float64 `json:"log_base,omitempty"`
}

// IC returns the requested information criterion value.
func (r *Result) IC(name string) float64 {
	switch name {
	case "AICc":
		return r.AICc
	case "BIC":
		return r.BIC
	default:
		return r.AIC
	}
}

// Predict evaluates the fitted model at each area. Fails if the fit did not
// converge or any area is non-positive.
func (r *Result) Predict(areas []float64) ([]float64, error) {
	if !r.Converged {
		return nil, fmt.Errorf("model %s, %w", r.Name, ErrNotConverged)
	}
	for i, a := range areas {
		if a <= 0 {
			return nil, fmt.Errorf("area %f at %d, %w", a, i, sardataset.ErrNonPositiveArea)
		}
	}
	return r.Model.Eval(areas, r.Par), nil
}

// Fit fits one model to one dataset. The minimization starts from the model's
// heuristic starting values unless opt.Start is supplied, enforcing each
// parameter's domain constraint by reparameterization.
func Fit(spec *models.Spec, ds *sardataset.Dataset, opt *Options) (*Result, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, ErrNoModelSpec
	}
	if ds == nil {
		return nil, ErrNoDataset
	}
	if err := validateSize(ds, opt); err != nil {
		return nil, err
	}

	if ds.ConstantRichness() {
		slog.Warn("richness has zero variance; parameter estimates and residual tests require caution",
			"model", spec.Name)
	}

	start := opt.Start
	if start == nil {
		start = spec.Init(ds)
	} else {
		if len(start) != spec.NumParams() {
			return nil, fmt.Errorf("model %s expects %d parameters, got %d, %w",
				spec.Name, spec.NumParams(), len(start), ErrBadStartLen)
		}
		for i, c := range spec.Constraints {
			if !c.Contains(start[i]) {
				return nil, fmt.Errorf("model %s parameter %s value %f, %w",
					spec.Name, spec.Params[i], start[i], ErrStartOutOfDomain)
			}
		}
	}

	// the linear model has a closed form
	if spec.Name == "linear" {
		return fitLinear(spec, ds, opt)
	}

	sol := solve(spec, ds, start, opt)
	if !sol.ok {
		return &Result{
			Model:     spec,
			Name:      spec.Name,
			RSS:       math.NaN(),
			Converged: false,
			AIC:       math.NaN(),
			AICc:      math.NaN(),
			BIC:       math.NaN(),
		}, nil
	}

	return finalize(spec, ds.A, ds.R, sol.par, opt)
}

func validateSize(ds *sardataset.Dataset, opt *Options) error {
	if ds.Len() < MinPoints {
		return fmt.Errorf("have %d points, need at least %d, %w", ds.Len(), MinPoints, ErrTooFewPoints)
	}
	if opt.NormaTest == NormaLillie && ds.Len() < stats.LillieforsMinN {
		return fmt.Errorf("have %d points, need at least %d, %w", ds.Len(), stats.LillieforsMinN, ErrLillieMinPoints)
	}
	return nil
}

// finalize derives all diagnostics for a converged parameter vector: fitted
// values, residuals, information criteria, scores, and the requested residual
// tests. evalX is the series the model function is evaluated over and observed
// the series it is compared against; these differ from the raw dataset only
// for the log-linear path.
func finalize(spec *models.Spec, evalX, observed []float64, par []float64, opt *Options) (*Result, error) {
	n := len(observed)

	fitted := spec.Eval(evalX, par)
	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = observed[i] - fitted[i]
	}

	scores, err := NewScores(fitted, observed, spec.NumParams())
	if err != nil {
		return nil, fmt.Errorf("unable to compute fit scores for %s, %w", spec.Name, err)
	}
	aic, aicc, bic := criteria(scores.RSS, n, spec.NumParams())

	res := &Result{
		Model:     spec,
		Name:      spec.Name,
		Par:       par,
		RSS:       scores.RSS,
		Converged: true,
		Fitted:    fitted,
		Residuals: residuals,
		AIC:       aic,
		AICc:      aicc,
		BIC:       bic,
		Scores:    scores,
	}

	switch opt.NormaTest {
	case NormaShapiro:
		tr, err := stats.ShapiroWilk(residuals)
		if err != nil {
			return nil, fmt.Errorf("shapiro-wilk on %s residuals, %w", spec.Name, err)
		}
		res.Norma = &tr
	case NormaKS:
		tr, err := stats.KolmogorovSmirnov(residuals)
		if err != nil {
			return nil, fmt.Errorf("kolmogorov-smirnov on %s residuals, %w", spec.Name, err)
		}
		res.Norma = &tr
	case NormaLillie:
		tr, err := stats.Lilliefors(residuals)
		if err != nil {
			return nil, fmt.Errorf("lilliefors on %s residuals, %w", spec.Name, err)
		}
		res.Norma = &tr
	}
	if res.Norma != nil && res.Norma.Undefined() {
		slog.Warn("normality test p-value undefined", "model", spec.Name)
	}

	switch opt.HomoTest {
	case HomoFitted:
		tr := stats.PearsonTest(residuals, fitted)
		res.Homo = &tr
	case HomoArea:
		tr := stats.PearsonTest(residuals, evalX)
		res.Homo = &tr
	}
	if res.Homo != nil && res.Homo.Undefined() {
		slog.Warn("homogeneity test p-value undefined", "model", spec.Name)
	}

	return res, nil
}
