package sar

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aouyang1/go-sar/fit"
	"github.com/aouyang1/go-sar/models"
	"github.com/goccy/go-json"
)

var (
	ErrCorruptEnsemble = errors.New("ensemble weights do not align with surviving models")
	ErrBoundsDisorder  = errors.New("confidence interval bounds out of order")
	ErrBoundsMismatch  = errors.New("confidence interval bounds have different lengths")
)

// ExclusionReason classifies why a model was dropped during screening. A model
// is only ever reported with its first failing check.
type ExclusionReason string

const (
	ReasonNoConvergence  ExclusionReason = "failed to converge"
	ReasonNormaUndefined ExclusionReason = "normality p-value undefined"
	ReasonNormaAlpha     ExclusionReason = "residuals non-normal"
	ReasonHomoUndefined  ExclusionReason = "homogeneity p-value undefined"
	ReasonHomoAlpha      ExclusionReason = "residuals heteroscedastic"
	ReasonNegativePred   ExclusionReason = "negative predicted richness"
)

// ExcludedModel records one model dropped during screening.
type ExcludedModel struct {
	Name   string          `json:"name"`
	Reason ExclusionReason `json:"reason"`
}

// ModelWeight is the per-model weighting detail for a surviving model.
type ModelWeight struct {
	Name   string  `json:"name"`
	IC     float64 `json:"ic"`
	Delta  float64 `json:"delta_ic"`
	Weight float64 `json:"weight"`
}

// Details describes how the ensemble was assembled.
type Details struct {
	// Criterion is the resolved information criterion, never CritInfo.
	Criterion Criterion `json:"criterion"`

	NumPoints int `json:"num_points"`
	NumModels int `json:"num_models"`

	// Ranked holds the surviving models in collection order.
	Ranked []ModelWeight `json:"ranked"`

	// Excluded lists dropped models with their first failing check.
	Excluded []ExcludedModel `json:"excluded,omitempty"`
}

// ConfidenceInterval holds per-area bootstrap bounds around the ensemble
// prediction.
type ConfidenceInterval struct {
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`

	// Replicates is the number of bootstrap replicates that produced usable
	// predictions.
	Replicates int `json:"replicates"`
}

// UnmarshalJSON validates the bound invariants when loading a serialized
// interval.
func (ci *ConfidenceInterval) UnmarshalJSON(data []byte) error {
	type alias ConfidenceInterval
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if len(a.Lower) != len(a.Upper) {
		return ErrBoundsMismatch
	}
	for i := range a.Lower {
		if a.Lower[i] > a.Upper[i] {
			return fmt.Errorf("at index %d, %w", i, ErrBoundsDisorder)
		}
	}
	*ci = ConfidenceInterval(a)
	return nil
}

// EnsembleResult is the weighted multi-model consensus built by Average.
type EnsembleResult struct {
	// Areas are the observed areas the ensemble was built over.
	Areas []float64 `json:"areas"`

	// Fitted is the weighted ensemble prediction per observed area.
	Fitted []float64 `json:"fitted"`

	Details Details `json:"details"`

	// CI is populated by ConfidenceIntervals.
	CI *ConfidenceInterval `json:"confidence_interval,omitempty"`

	survivors []*fit.Result
}

// Survivors returns the fits backing the ensemble, in collection order.
func (e *EnsembleResult) Survivors() []*fit.Result {
	return e.survivors
}

// Predict evaluates every surviving model at each area and combines them with
// the stored weights, verifying the stored model-name-to-weight association
// first.
func (e *EnsembleResult) Predict(areas []float64) ([]float64, error) {
	if len(e.survivors) != len(e.Details.Ranked) {
		return nil, ErrCorruptEnsemble
	}
	for i, mw := range e.Details.Ranked {
		if e.survivors[i].Name != mw.Name {
			return nil, fmt.Errorf("weight %d is for %s but fit is %s, %w",
				i, mw.Name, e.survivors[i].Name, ErrCorruptEnsemble)
		}
	}

	out := make([]float64, len(areas))
	for i, mw := range e.Details.Ranked {
		pred, err := e.survivors[i].Predict(areas)
		if err != nil {
			return nil, fmt.Errorf("unable to predict with %s, %w", mw.Name, err)
		}
		for j := range out {
			out[j] += mw.Weight * pred[j]
		}
	}
	return out, nil
}

// ModelSnapshot is the serializable state of one surviving model.
type ModelSnapshot struct {
	Name       string    `json:"name"`
	Parameters []float64 `json:"parameters"`
	IC         float64   `json:"ic"`
	Delta      float64   `json:"delta_ic"`
	Weight     float64   `json:"weight"`
}

// Model is a serializable representation of an ensemble. It can be used to
// initialize a new EnsembleResult for immediate predictions skipping the
// fitting step.
type Model struct {
	Criterion Criterion           `json:"criterion"`
	NumPoints int                 `json:"num_points"`
	Areas     []float64           `json:"areas"`
	Fitted    []float64           `json:"fitted"`
	Models    []ModelSnapshot     `json:"models"`
	Excluded  []ExcludedModel     `json:"excluded,omitempty"`
	CI        *ConfidenceInterval `json:"confidence_interval,omitempty"`
}

// Model generates the serializable representation of the ensemble.
func (e *EnsembleResult) Model() (Model, error) {
	if len(e.survivors) != len(e.Details.Ranked) {
		return Model{}, ErrCorruptEnsemble
	}
	snaps := make([]ModelSnapshot, 0, len(e.survivors))
	for i, mw := range e.Details.Ranked {
		snaps = append(snaps, ModelSnapshot{
			Name:       mw.Name,
			Parameters: e.survivors[i].Par,
			IC:         mw.IC,
			Delta:      mw.Delta,
			Weight:     mw.Weight,
		})
	}
	return Model{
		Criterion: e.Details.Criterion,
		NumPoints: e.Details.NumPoints,
		Areas:     e.Areas,
		Fitted:    e.Fitted,
		Models:    snaps,
		Excluded:  e.Details.Excluded,
		CI:        e.CI,
	}, nil
}

// TablePrint writes a human readable weight table to w.
func (m Model) TablePrint(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "model\t%s\tdelta\tweight\n", m.Criterion)
	for _, snap := range m.Models {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.4f\n", snap.Name, snap.IC, snap.Delta, snap.Weight)
	}
	for _, ex := range m.Excluded {
		fmt.Fprintf(tw, "%s\texcluded: %s\n", ex.Name, ex.Reason)
	}
	return tw.Flush()
}

// NewFromModel reconstructs an ensemble from its serialized representation.
// The result supports Predict but carries no residual diagnostics.
func NewFromModel(m Model) (*EnsembleResult, error) {
	survivors := make([]*fit.Result, 0, len(m.Models))
	ranked := make([]ModelWeight, 0, len(m.Models))
	for _, snap := range m.Models {
		spec, err := models.Get(snap.Name)
		if err != nil {
			return nil, fmt.Errorf("unable to load model snapshot, %w", err)
		}
		if len(snap.Parameters) != spec.NumParams() {
			return nil, fmt.Errorf("model %s expects %d parameters, got %d, %w",
				snap.Name, spec.NumParams(), len(snap.Parameters), ErrCorruptEnsemble)
		}
		survivors = append(survivors, &fit.Result{
			Model:     spec,
			Name:      snap.Name,
			Par:       snap.Parameters,
			Converged: true,
		})
		ranked = append(ranked, ModelWeight{
			Name:   snap.Name,
			IC:     snap.IC,
			Delta:  snap.Delta,
			Weight: snap.Weight,
		})
	}
	return &EnsembleResult{
		Areas:  m.Areas,
		Fitted: m.Fitted,
		Details: Details{
			Criterion: m.Criterion,
			NumPoints: m.NumPoints,
			NumModels: len(ranked),
			Ranked:    ranked,
			Excluded:  m.Excluded,
		},
		CI:        m.CI,
		survivors: survivors,
	}, nil
}
