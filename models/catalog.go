package models

import (
	"math"

	"github.com/aouyang1/go-sar/sardataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// registry holds the fixed catalog of model definitions keyed by name. The
// catalog is data: adding a model is adding an entry, not writing new fitting
// code.
var registry = map[string]*Spec{
	"power": {
		Name:        "power",
		Formula:     "S = c*A^z",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}},
		GridRanges:  []GridRange{{}, {Lo: -0.5, Hi: 1.5}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(a, p[1])
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z}
		},
	},
	"powerR": {
		Name:        "powerR",
		Formula:     "S = f + c*A^z",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "f"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[2] + p[0]*math.Pow(a, p[1])
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z, 0}
		},
	},
	"epm1": {
		Name:        "epm1",
		Formula:     "S = c*A^(z*A^-d)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "d"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(a, p[1]*math.Pow(a, -p[2]))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z, 0.01}
		},
	},
	"epm2": {
		Name:        "epm2",
		Formula:     "S = c*A^(z - d/A)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "d"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(a, p[1]-p[2]/a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z, 0.01}
		},
	},
	"p1": {
		Name:        "p1",
		Formula:     "S = c*A^z*exp(-d*A)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "d"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(a, p[1]) * math.Exp(-p[2]*a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z, 0.01 / ds.MeanArea()}
		},
	},
	"p2": {
		Name:        "p2",
		Formula:     "S = c*A^z*exp(-d/A)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "d"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Unconstrained}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(a, p[1]) * math.Exp(-p[2]/a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := powerStart(ds)
			return []float64{c, z, 0.01 * floats.Min(ds.A)}
		},
	},
	"loga": {
		Name:        "loga",
		Formula:     "S = c + z*log(A)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z"},
		Constraints: []Constraint{{Kind: Unconstrained}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] + p[1]*math.Log(a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := semiLogStart(ds)
			return []float64{c, z}
		},
	},
	"koba": {
		Name:        "koba",
		Formula:     "S = c*log(1 + A/z)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Log(1+a/p[1])
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := semiLogStart(ds)
			return []float64{clampPos(z, 1), floats.Min(ds.A)}
		},
	},
	"monod": {
		Name:        "monod",
		Formula:     "S = d/(1 + c*A^-1)",
		Shape:       ShapeConvex,
		Params:      []string{"d", "c"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] / (1 + p[1]/a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), ds.MeanArea()}
		},
	},
	"negexpo": {
		Name:        "negexpo",
		Formula:     "S = d*(1 - exp(-z*A))",
		Shape:       ShapeConvex,
		Params:      []string{"d", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}},
		GridRanges:  []GridRange{{}, {Lo: 1e-6, Hi: 10, LogScale: true}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * (1 - math.Exp(-p[1]*a))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea()}
		},
	},
	"chapman": {
		Name:        "chapman",
		Formula:     "S = d*(1 - exp(-z*A))^c",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "z", "c"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(1-math.Exp(-p[1]*a), p[2])
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea(), 1}
		},
	},
	"weibull3": {
		Name:        "weibull3",
		Formula:     "S = d*(1 - exp(-c*A^z))",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "c", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * (1 - math.Exp(-p[1]*math.Pow(a, p[2])))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := powerStart(ds)
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea(), clampPos(z, 0.5)}
		},
	},
	"weibull4": {
		Name:        "weibull4",
		Formula:     "S = d*(1 - exp(-c*A^z))^f",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "c", "z", "f"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Pow(1-math.Exp(-p[1]*math.Pow(a, p[2])), p[3])
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := powerStart(ds)
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea(), clampPos(z, 0.5), 1}
		},
	},
	"asymp": {
		Name:        "asymp",
		Formula:     "S = d - c*z^A",
		Shape:       ShapeConvex,
		Params:      []string{"d", "c", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Bounded, Lo: 0, Hi: 1}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] - p[1]*math.Pow(p[2], a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			d := clampPos(ds.MaxRichness(), 1)
			c := clampPos(ds.MaxRichness()-ds.MinRichness(), 1)
			return []float64{d, c, 0.5}
		},
	},
	"ratio": {
		Name:        "ratio",
		Formula:     "S = (c + z*A)/(1 + d*A)",
		Shape:       ShapeConvex,
		Params:      []string{"c", "z", "d"},
		Constraints: []Constraint{{Kind: Unconstrained}, {Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return (p[0] + p[1]*a) / (1 + p[2]*a)
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := linearStart(ds)
			return []float64{ds.MinRichness(), clampPos(z, 1), 0.01}
		},
	},
	"gompertz": {
		Name:        "gompertz",
		Formula:     "S = d*exp(-exp(-z*(A - c)))",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "z", "c"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] * math.Exp(-math.Exp(-p[1]*(a-p[2])))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea(), ds.MeanArea()}
		},
	},
	"mmf": {
		Name:        "mmf",
		Formula:     "S = d/(1 + c*A^-z)",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "c", "z"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] / (1 + p[1]*math.Pow(a, -p[2]))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := powerStart(ds)
			return []float64{clampPos(ds.MaxRichness(), 1), 1, clampPos(z, 0.5)}
		},
	},
	"logistic": {
		Name:        "logistic",
		Formula:     "S = d/(1 + exp(-z*A + c))",
		Shape:       ShapeSigmoid,
		Params:      []string{"d", "z", "c"},
		Constraints: []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Unconstrained}},
		Fn: func(a float64, p []float64) float64 {
			return p[0] / (1 + math.Exp(-p[1]*a+p[2]))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), 1 / ds.MeanArea(), 1}
		},
	},
	"heleg": {
		Name:         "heleg",
		Formula:      "S = c/(f + A^-z)",
		Shape:        ShapeSigmoid,
		Params:       []string{"c", "f", "z"},
		Constraints:  []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		GridDisabled: true,
		Fn: func(a float64, p []float64) float64 {
			return p[0] / (p[1] + math.Pow(a, -p[2]))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			_, z := powerStart(ds)
			return []float64{clampPos(ds.MaxRichness(), 1), 1, clampPos(z, 0.5)}
		},
	},
	"betap": {
		Name:         "betap",
		Formula:      "S = d*(1 - (1 + (A/c)^z)^-f)",
		Shape:        ShapeSigmoid,
		Params:       []string{"d", "c", "z", "f"},
		Constraints:  []Constraint{{Kind: Positive}, {Kind: Positive}, {Kind: Positive}, {Kind: Positive}},
		GridDisabled: true,
		Fn: func(a float64, p []float64) float64 {
			return p[0] * (1 - math.Pow(1+math.Pow(a/p[1], p[2]), -p[3]))
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			return []float64{clampPos(ds.MaxRichness(), 1), ds.MeanArea(), 1, 1}
		},
	},
	"linear": {
		Name:         "linear",
		Formula:      "S = c + z*A",
		Shape:        ShapeLinear,
		Params:       []string{"c", "z"},
		Constraints:  []Constraint{{Kind: Unconstrained}, {Kind: Unconstrained}},
		GridDisabled: true,
		Fn: func(a float64, p []float64) float64 {
			return p[0] + p[1]*a
		},
		Init: func(ds *sardataset.Dataset) []float64 {
			c, z := linearStart(ds)
			return []float64{c, z}
		},
	},
}

// powerStart estimates power-law parameters from an ordinary least squares fit
// of log richness against log area. Zero-richness observations carry no
// information on the log scale and are skipped.
func powerStart(ds *sardataset.Dataset) (c, z float64) {
	logA := make([]float64, 0, ds.Len())
	logR := make([]float64, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if ds.R[i] <= 0 {
			continue
		}
		logA = append(logA, math.Log(ds.A[i]))
		logR = append(logR, math.Log(ds.R[i]))
	}
	if len(logA) < 2 {
		return clampPos(stat.Mean(ds.R, nil), 1e-3), 0.25
	}
	alpha, beta := stat.LinearRegression(logA, logR, nil, false)
	c = math.Exp(alpha)
	if !isFinite(c) || c <= 0 {
		c = clampPos(stat.Mean(ds.R, nil), 1e-3)
	}
	if !isFinite(beta) {
		beta = 0.25
	}
	return c, beta
}

// semiLogStart regresses richness against log area.
func semiLogStart(ds *sardataset.Dataset) (c, z float64) {
	logA := make([]float64, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		logA[i] = math.Log(ds.A[i])
	}
	return stat.LinearRegression(logA, ds.R, nil, false)
}

func linearStart(ds *sardataset.Dataset) (c, z float64) {
	return stat.LinearRegression(ds.A, ds.R, nil, false)
}

func clampPos(v, fallback float64) float64 {
	if isFinite(v) && v > 0 {
		return v
	}
	return fallback
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
