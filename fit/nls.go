package fit

import (
	"math"
	"math/rand/v2"

	"github.com/aouyang1/go-sar/models"
	"github.com/aouyang1/go-sar/sardataset"
	"gonum.org/v1/gonum/optimize"
)

type solution struct {
	par []float64
	rss float64
	ok  bool
}

// solve minimizes the residual sum of squares for the model starting from the
// provided parameter values. With grid start enabled on a supporting model,
// additional starts are sampled across each parameter's plausible range and
// the converged attempt with the smallest RSS wins.
func solve(spec *models.Spec, ds *sardataset.Dataset, start []float64, opt *Options) solution {
	best := minimizeFrom(spec, ds, start, opt.MaxIterations)

	if !opt.GridStart || spec.GridDisabled {
		return best
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed+1))
	for i := 0; i < opt.GridN; i++ {
		attempt := minimizeFrom(spec, ds, sampleStart(spec, start, rng), opt.MaxIterations)
		if attempt.ok && (!best.ok || attempt.rss < best.rss) {
			best = attempt
		}
	}
	return best
}

// minimizeFrom runs a single bounded Nelder-Mead minimization. Domain
// constraints are enforced by reparameterization so the optimizer always works
// in an unconstrained space.
func minimizeFrom(spec *models.Spec, ds *sardataset.Dataset, start []float64, maxIter int) solution {
	x0 := toUnconstrained(spec.Constraints, start)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := fromUnconstrained(spec.Constraints, x)
			return rss(spec, ds, p)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		FuncEvaluations: maxIter * 10,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil || res == nil {
		return solution{rss: math.NaN()}
	}
	if res.Status == optimize.IterationLimit || res.Status == optimize.FunctionEvaluationLimit || res.Status == optimize.Failure {
		return solution{rss: math.NaN()}
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return solution{rss: math.NaN()}
	}

	return solution{
		par: fromUnconstrained(spec.Constraints, res.X),
		rss: res.F,
		ok:  true,
	}
}

// rss evaluates the objective, mapping any non-finite model output to +Inf so
// the optimizer steps away from invalid parameter regions.
func rss(spec *models.Spec, ds *sardataset.Dataset, p []float64) float64 {
	var sum float64
	for i := 0; i < ds.Len(); i++ {
		v := spec.Fn(ds.A[i], p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1)
		}
		d := ds.R[i] - v
		sum += d * d
	}
	return sum
}

// toUnconstrained maps parameters into the optimizer's unconstrained space:
// log for positive parameters, logit for bounded ones. Values at or past a
// boundary are nudged inside first.
func toUnconstrained(constraints []models.Constraint, p []float64) []float64 {
	x := make([]float64, len(p))
	for i, c := range constraints {
		v := p[i]
		switch c.Kind {
		case models.Positive:
			if v <= 0 {
				v = 1e-8
			}
			x[i] = math.Log(v)
		case models.Bounded:
			span := c.Hi - c.Lo
			eps := span * 1e-8
			if v <= c.Lo {
				v = c.Lo + eps
			}
			if v >= c.Hi {
				v = c.Hi - eps
			}
			frac := (v - c.Lo) / span
			x[i] = math.Log(frac / (1 - frac))
		default:
			x[i] = v
		}
	}
	return x
}

func fromUnconstrained(constraints []models.Constraint, x []float64) []float64 {
	p := make([]float64, len(x))
	for i, c := range constraints {
		switch c.Kind {
		case models.Positive:
			p[i] = math.Exp(x[i])
		case models.Bounded:
			p[i] = c.Lo + (c.Hi-c.Lo)/(1+math.Exp(-x[i]))
		default:
			p[i] = x[i]
		}
	}
	return p
}

// sampleStart draws one grid start. A model's GridRanges hints take
// precedence; otherwise positive parameters are sampled log-uniformly around
// the heuristic start, bounded parameters uniformly within their bounds, and
// unconstrained parameters uniformly around the start.
func sampleStart(spec *models.Spec, start []float64, rng *rand.Rand) []float64 {
	s := make([]float64, len(start))
	for i, c := range spec.Constraints {
		if len(spec.GridRanges) > i {
			if gr := spec.GridRanges[i]; gr.Hi > gr.Lo {
				if gr.LogScale {
					s[i] = math.Exp(uniform(rng, math.Log(gr.Lo), math.Log(gr.Hi)))
				} else {
					s[i] = uniform(rng, gr.Lo, gr.Hi)
				}
				continue
			}
		}

		switch c.Kind {
		case models.Positive:
			base := start[i]
			if base <= 0 {
				base = 1
			}
			s[i] = math.Exp(uniform(rng, math.Log(base/100), math.Log(base*100)))
		case models.Bounded:
			s[i] = uniform(rng, c.Lo, c.Hi)
		default:
			scale := 10 * math.Max(math.Abs(start[i]), 1)
			s[i] = uniform(rng, start[i]-scale, start[i]+scale)
		}
	}
	return s
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
