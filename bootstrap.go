package sar

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/aouyang1/go-sar/sardataset"
	"github.com/aouyang1/go-sar/stats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoEnsemble           = errors.New("no ensemble result or uninitialized")
	ErrBadReplicates        = errors.New("replicate count must be positive")
	ErrAllReplicatesFailed  = errors.New("all bootstrap replicates failed")
	ErrDatasetEnsembleMatch = errors.New("dataset length does not match ensemble areas")
)

// ConfidenceIntervals computes a residual-bootstrap confidence band around the
// ensemble prediction. Each replicate perturbs the observed richness with
// resampled centered residuals, refits the surviving models, and reruns the
// full screening and weighting pipeline; per-area bounds are empirical
// quantiles over the replicate predictions. Replicates are independent and run
// in parallel. A replicate producing a non-finite prediction at an area is
// excluded from that area's summary only.
//
// The returned interval is also attached to the ensemble.
func ConfidenceIntervals(ens *EnsembleResult, ds *sardataset.Dataset, nReplicates int, opt *Options) (*ConfidenceInterval, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if ens == nil || len(ens.survivors) == 0 {
		return nil, ErrNoEnsemble
	}
	if ds == nil {
		return nil, ErrNoDataset
	}
	if ds.Len() != len(ens.Areas) {
		return nil, fmt.Errorf("dataset has %d points but ensemble has %d areas, %w",
			ds.Len(), len(ens.Areas), ErrDatasetEnsembleMatch)
	}
	if nReplicates < 1 {
		return nil, fmt.Errorf("requested %d, %w", nReplicates, ErrBadReplicates)
	}

	n := ds.Len()
	names := make([]string, 0, len(ens.survivors))
	for _, r := range ens.survivors {
		names = append(names, r.Name)
	}

	// centered ensemble residuals to resample from
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		resid[i] = ds.R[i] - ens.Fitted[i]
	}
	mean := stat.Mean(resid, nil)
	for i := range resid {
		resid[i] -= mean
	}

	preds := make([][]float64, nReplicates)

	var wg sync.WaitGroup
	sem := make(chan struct{}, opt.MaxWorkers)
	for rep := 0; rep < nReplicates; rep++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(rep int) {
			defer func() {
				wg.Done()
				<-sem
			}()
			preds[rep] = runReplicate(ens, ds, names, resid, opt, rep)
		}(rep)
	}
	wg.Wait()

	lower := make([]float64, n)
	upper := make([]float64, n)
	var retained int
	for _, row := range preds {
		if row != nil {
			retained++
		}
	}
	vals := make([]float64, 0, retained)
	for j := 0; j < n; j++ {
		vals = vals[:0]
		for _, row := range preds {
			if row == nil {
				continue
			}
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				continue
			}
			vals = append(vals, row[j])
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("area index %d, %w", j, ErrAllReplicatesFailed)
		}
		lower[j] = stats.Quantile(opt.CIAlpha/2, vals)
		upper[j] = stats.Quantile(1-opt.CIAlpha/2, vals)
	}

	ci := &ConfidenceInterval{
		Lower:      lower,
		Upper:      upper,
		Replicates: retained,
	}
	ens.CI = ci
	return ci, nil
}

// runReplicate executes one bootstrap iteration: perturb, refit, re-average.
// Returns nil when the replicate's pipeline fails; that is a per-replicate
// outcome absorbed by the caller, not an error.
func runReplicate(ens *EnsembleResult, ds *sardataset.Dataset, names []string, resid []float64, opt *Options, rep int) []float64 {
	rng := rand.New(rand.NewPCG(opt.Seed, uint64(rep)+1))

	n := ds.Len()
	perturbed := make([]float64, n)
	for j := 0; j < n; j++ {
		v := ens.Fitted[j] + resid[rng.IntN(n)]
		if v < 0 {
			v = 0
		}
		perturbed[j] = v
	}

	bootDS, err := sardataset.New(ds.A, perturbed)
	if err != nil {
		return nil
	}
	bootEns, err := AverageModels(names, bootDS, opt)
	if err != nil {
		return nil
	}
	return bootEns.Fitted
}
