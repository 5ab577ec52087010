// Package models is the static catalog of species-area relationship model
// definitions used by the fitter and the multi-model averaging pipeline.
package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aouyang1/go-sar/sardataset"
)

var ErrUnknownModel = errors.New("unknown model name")

// Shape classifies the curve family of a model.
type Shape string

const (
	ShapeConvex  Shape = "convex"
	ShapeSigmoid Shape = "sigmoid"
	ShapeLinear  Shape = "linear"
)

// ConstraintKind describes the domain of a single model parameter.
type ConstraintKind int

const (
	// Unconstrained parameters may take any real value.
	Unconstrained ConstraintKind = iota
	// Positive parameters are constrained to (0, +inf).
	Positive
	// Bounded parameters are constrained to the open interval (Lo, Hi).
	Bounded
)

// Constraint is the domain restriction of one parameter. Lo/Hi are only
// meaningful for Bounded.
type Constraint struct {
	Kind ConstraintKind
	Lo   float64
	Hi   float64
}

// Contains reports whether val lies in the constraint's domain.
func (c Constraint) Contains(val float64) bool {
	switch c.Kind {
	case Positive:
		return val > 0
	case Bounded:
		return val > c.Lo && val < c.Hi
	default:
		return true
	}
}

// GridRange is an optional per-parameter sampling hint for grid-start fitting.
// The zero value defers to the fitter's default sampling rule.
type GridRange struct {
	Lo       float64
	Hi       float64
	LogScale bool
}

// Spec is an immutable model definition: the closed-form curve, its parameter
// metadata, and the starting-value heuristic used to seed the nonlinear
// least-squares solver.
type Spec struct {
	// Name is the registry key, e.g. "power".
	Name string

	// Formula is a human readable form of the curve, e.g. "S = c*A^z".
	Formula string

	Shape Shape

	// Params holds the parameter names in the order expected by Fn.
	Params []string

	// Constraints holds one domain restriction per parameter.
	Constraints []Constraint

	// GridDisabled marks models that must always fit from the single
	// heuristic start. Grid sampling is unstable for these forms.
	GridDisabled bool

	// GridRanges optionally overrides the sampling range per parameter when
	// grid-start fitting is enabled. May be nil.
	GridRanges []GridRange

	// Fn evaluates the curve at one area given a parameter vector.
	Fn func(a float64, p []float64) float64

	// Init computes deterministic starting parameter values from a dataset.
	// The returned values satisfy Constraints for any non-degenerate dataset.
	Init func(ds *sardataset.Dataset) []float64
}

// NumParams returns the number of model parameters.
func (s *Spec) NumParams() int {
	return len(s.Params)
}

// Eval evaluates the curve at every area in a.
func (s *Spec) Eval(a []float64, p []float64) []float64 {
	out := make([]float64, len(a))
	for i, ai := range a {
		out[i] = s.Fn(ai, p)
	}
	return out
}

// Get looks up a model definition by name.
func Get(name string) (*Spec, error) {
	s, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownModel)
	}
	return s, nil
}

// MustGet looks up a model definition by name and panics if missing. Intended
// for static names known at compile time.
func MustGet(name string) *Spec {
	s, err := Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

// List returns all registered model names in lexical order.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
