package sar

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aouyang1/go-sar/fit"
	"github.com/aouyang1/go-sar/models"
	"github.com/aouyang1/go-sar/sardataset"
	"github.com/aouyang1/go-sar/stats"
)

var (
	ErrNoDataset        = errors.New("no dataset or uninitialized")
	ErrInsufficientData = errors.New("insufficient data points")
	ErrTooFewModels     = errors.New("need at least 2 models")
	ErrNoCollection     = errors.New("no fit collection or uninitialized")
)

// MinCollectionPoints is the smallest dataset a multi-model request accepts.
const MinCollectionPoints = 4

// Collection maps model names to fit results preserving the request order.
// Entries are only ever removed during screening, never added.
type Collection struct {
	names   []string
	results map[string]*fit.Result

	// test selectors the collection was built with. Average defers to these
	// over its own options.
	normaTest fit.NormalityTest
	homoTest  fit.HomogeneityTest
}

// Names returns the model names in request order.
func (c *Collection) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.names)
}

// Get looks up the fit result for a model name.
func (c *Collection) Get(name string) (*fit.Result, bool) {
	r, exists := c.results[name]
	return r, exists
}

// Results returns the fit results in request order.
func (c *Collection) Results() []*fit.Result {
	out := make([]*fit.Result, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.results[name])
	}
	return out
}

// Predict evaluates every converged member independently, producing one
// prediction series per model name. Non-converged members are skipped.
func (c *Collection) Predict(areas []float64) (map[string][]float64, error) {
	out := make(map[string][]float64, len(c.names))
	for _, name := range c.names {
		r := c.results[name]
		if !r.Converged {
			continue
		}
		pred, err := r.Predict(areas)
		if err != nil {
			return nil, fmt.Errorf("unable to predict with %s, %w", name, err)
		}
		out[name] = pred
	}
	return out, nil
}

// remove drops a screened-out entry.
func (c *Collection) remove(name string) {
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	delete(c.results, name)
}

// FitMany fits every requested model to the dataset, accumulating results
// keyed by name in request order. Per-model convergence failures are
// represented as results with Converged=false and never abort the batch;
// only structural problems with the request itself return an error.
func FitMany(ds *sardataset.Dataset, names []string, opt *Options) (*Collection, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, ErrNoDataset
	}
	if ds.Len() < MinCollectionPoints {
		return nil, fmt.Errorf("have %d points, need at least %d, %w",
			ds.Len(), MinCollectionPoints, ErrInsufficientData)
	}
	if opt.FitOptions.NormaTest == fit.NormaLillie && ds.Len() < stats.LillieforsMinN {
		return nil, fmt.Errorf("have %d points, need at least %d, %w",
			ds.Len(), stats.LillieforsMinN, fit.ErrLillieMinPoints)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("requested %d, %w", len(names), ErrTooFewModels)
	}

	specs := make([]*models.Spec, 0, len(names))
	for _, name := range names {
		spec, err := models.Get(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if ds.ConstantRichness() {
		slog.Warn("richness values are identical; model comparison may be unreliable")
	}

	results := make([]*fit.Result, len(specs))
	errs := make([]error, len(specs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, opt.MaxWorkers)
	for i, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, spec *models.Spec) {
			defer func() {
				wg.Done()
				<-sem
			}()
			results[i], errs[i] = fit.Fit(spec, ds, opt.FitOptions)
		}(i, spec)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("unable to fit %s, %w", names[i], err)
		}
	}

	c := &Collection{
		names:     append([]string(nil), names...),
		results:   make(map[string]*fit.Result, len(names)),
		normaTest: opt.FitOptions.NormaTest,
		homoTest:  opt.FitOptions.HomoTest,
	}
	for i, name := range names {
		c.results[name] = results[i]
	}
	return c, nil
}
