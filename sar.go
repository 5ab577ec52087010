// Package sar fits species-area relationship models to area/richness datasets,
// selects among them with information criteria, and builds a weighted
// multi-model consensus curve with optional bootstrap confidence intervals.
package sar

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-sar/fit"
	"github.com/aouyang1/go-sar/models"
	"github.com/aouyang1/go-sar/sardataset"
)

var (
	ErrNoConvergence      = errors.New("no models converged")
	ErrInsufficientModels = errors.New("fewer than 2 models survived screening")
)

// ListModels returns the names of all models in the catalog.
func ListModels() []string {
	return models.List()
}

// FitOne fits a single named model to the dataset.
func FitOne(name string, ds *sardataset.Dataset, opt *fit.Options) (*fit.Result, error) {
	spec, err := models.Get(name)
	if err != nil {
		return nil, err
	}
	return fit.Fit(spec, ds, opt)
}

// AverageModels fits the named models and builds the weighted ensemble in one
// step.
func AverageModels(names []string, ds *sardataset.Dataset, opt *Options) (*EnsembleResult, error) {
	c, err := FitMany(ds, names, opt)
	if err != nil {
		return nil, err
	}
	return Average(c, ds, opt)
}

// Average screens a fit collection for statistical validity, computes
// information-criterion weights over the survivors, and builds the weighted
// ensemble prediction at the observed areas.
//
// Screening runs in a fixed order so each excluded model reports its first
// failing check: convergence, undefined normality p-value, normality alpha,
// undefined homogeneity p-value, homogeneity alpha, negative predictions.
// If the collection was built with different test selectors than requested,
// the collection's selectors win with a warning; re-deriving p-values under a
// different test than the one used to produce the collection would silently
// change which models survive.
func Average(c *Collection, ds *sardataset.Dataset, opt *Options) (*EnsembleResult, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNoCollection
	}
	if ds == nil {
		return nil, ErrNoDataset
	}

	normaTest := c.normaTest
	if opt.FitOptions.NormaTest != normaTest {
		slog.Warn("requested normality test differs from the collection's; using the collection's",
			"requested", opt.FitOptions.NormaTest, "collection", normaTest)
	}
	homoTest := c.homoTest
	if opt.FitOptions.HomoTest != homoTest {
		slog.Warn("requested homogeneity test differs from the collection's; using the collection's",
			"requested", opt.FitOptions.HomoTest, "collection", homoTest)
	}

	excluded := screen(c, normaTest, homoTest, opt)

	var notConverged int
	for _, ex := range excluded {
		if ex.Reason == ReasonNoConvergence {
			notConverged++
		}
	}
	total := c.Len() + len(excluded)
	if notConverged == total {
		return nil, ErrNoConvergence
	}
	if c.Len() < 2 {
		return nil, fmt.Errorf("%d remain of %d fits, %w",
			c.Len(), total, ErrInsufficientModels)
	}

	crit := opt.Crit.resolve(ds.Len())
	survivors := c.Results()

	ics := make([]float64, len(survivors))
	minIC := math.Inf(1)
	for i, r := range survivors {
		ics[i] = r.IC(string(crit))
		if ics[i] < minIC {
			minIC = ics[i]
		}
	}

	// Akaike weight transform: the best model has delta 0 and the largest
	// weight; weights are non-negative and sum to 1.
	weights := make([]float64, len(survivors))
	var wsum float64
	for i, ic := range ics {
		weights[i] = math.Exp(-0.5 * (ic - minIC))
		wsum += weights[i]
	}

	ranked := make([]ModelWeight, 0, len(survivors))
	for i, r := range survivors {
		ranked = append(ranked, ModelWeight{
			Name:   r.Name,
			IC:     ics[i],
			Delta:  ics[i] - minIC,
			Weight: weights[i] / wsum,
		})
	}

	fitted := make([]float64, ds.Len())
	for i, r := range survivors {
		for j := 0; j < ds.Len(); j++ {
			fitted[j] += ranked[i].Weight * r.Fitted[j]
		}
	}

	areas := make([]float64, ds.Len())
	copy(areas, ds.A)

	return &EnsembleResult{
		Areas:  areas,
		Fitted: fitted,
		Details: Details{
			Criterion: crit,
			NumPoints: ds.Len(),
			NumModels: len(survivors),
			Ranked:    ranked,
			Excluded:  excluded,
		},
		survivors: survivors,
	}, nil
}

// screen removes invalid fits from the collection in the fixed check order,
// returning the exclusion records. A model removed by an earlier check is not
// subject to later checks.
func screen(c *Collection, normaTest fit.NormalityTest, homoTest fit.HomogeneityTest, opt *Options) []ExcludedModel {
	var excluded []ExcludedModel
	drop := func(name string, reason ExclusionReason) {
		excluded = append(excluded, ExcludedModel{Name: name, Reason: reason})
		c.remove(name)
	}

	for _, r := range c.Results() {
		if !r.Converged {
			drop(r.Name, ReasonNoConvergence)
		}
	}

	if normaTest != fit.NormaNone && normaTest != "" {
		for _, r := range c.Results() {
			if r.Norma == nil || r.Norma.Undefined() {
				drop(r.Name, ReasonNormaUndefined)
			}
		}
		for _, r := range c.Results() {
			if r.Norma.P < opt.NormaAlpha {
				drop(r.Name, ReasonNormaAlpha)
			}
		}
	}

	if homoTest != fit.HomoNone && homoTest != "" {
		for _, r := range c.Results() {
			if r.Homo == nil || r.Homo.Undefined() {
				drop(r.Name, ReasonHomoUndefined)
			}
		}
		for _, r := range c.Results() {
			if r.Homo.P < opt.HomoAlpha {
				drop(r.Name, ReasonHomoAlpha)
			}
		}
	}

	if opt.NegCheck {
		for _, r := range c.Results() {
			for _, v := range r.Fitted {
				if v < 0 {
					drop(r.Name, ReasonNegativePred)
					break
				}
			}
		}
	}

	return excluded
}

// ComparePowerSlopes fits the nonlinear power model and the natural-log
// log-linear power model, returning both exponent estimates. On well behaved
// power-law data the two agree closely.
func ComparePowerSlopes(ds *sardataset.Dataset, opt *fit.Options) (nonlinear, loglinear float64, err error) {
	powerFit, err := FitOne("power", ds, opt)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to fit power model, %w", err)
	}
	if !powerFit.Converged {
		return 0, 0, fmt.Errorf("power model, %w", fit.ErrNotConverged)
	}
	logFit, err := fit.FitLogLinear(ds, math.E, opt)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to fit log-linear model, %w", err)
	}
	return powerFit.Par[1], logFit.Par[1], nil
}
