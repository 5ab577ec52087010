package sar

import (
	"testing"

	"github.com/aouyang1/go-sar/sardataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceIntervals(t *testing.T) {
	ds := galapDataset(t)
	names := []string{"power", "loga", "monod"}
	opt := &Options{Seed: 42}

	ens, err := AverageModels(names, ds, opt)
	require.Nil(t, err)

	nReplicates := 30
	ci, err := ConfidenceIntervals(ens, ds, nReplicates, opt)
	require.Nil(t, err)
	require.Same(t, ci, ens.CI)

	require.Len(t, ci.Lower, ds.Len())
	require.Len(t, ci.Upper, ds.Len())
	assert.Greater(t, ci.Replicates, 0)
	assert.LessOrEqual(t, ci.Replicates, nReplicates)

	for i := range ci.Lower {
		assert.LessOrEqual(t, ci.Lower[i], ci.Upper[i], "area index %d", i)
	}
}

func TestConfidenceIntervalsReproducible(t *testing.T) {
	ds := galapDataset(t)
	names := []string{"power", "loga", "monod"}
	opt := &Options{Seed: 7}

	ens, err := AverageModels(names, ds, opt)
	require.Nil(t, err)

	ci1, err := ConfidenceIntervals(ens, ds, 20, opt)
	require.Nil(t, err)
	ci2, err := ConfidenceIntervals(ens, ds, 20, opt)
	require.Nil(t, err)

	assert.Equal(t, ci1.Lower, ci2.Lower)
	assert.Equal(t, ci1.Upper, ci2.Upper)
	assert.Equal(t, ci1.Replicates, ci2.Replicates)
}

func TestConfidenceIntervalsWidenWithAlpha(t *testing.T) {
	// a 50% band nests inside a 95% band built from the same replicates
	ds := galapDataset(t)
	names := []string{"power", "loga", "monod"}

	ens, err := AverageModels(names, ds, &Options{Seed: 3})
	require.Nil(t, err)

	wide, err := ConfidenceIntervals(ens, ds, 25, &Options{Seed: 3, CIAlpha: 0.05})
	require.Nil(t, err)
	narrow, err := ConfidenceIntervals(ens, ds, 25, &Options{Seed: 3, CIAlpha: 0.5})
	require.Nil(t, err)

	for i := range wide.Lower {
		assert.LessOrEqual(t, wide.Lower[i], narrow.Lower[i]+1e-12)
		assert.GreaterOrEqual(t, wide.Upper[i], narrow.Upper[i]-1e-12)
	}
}

func TestConfidenceIntervalsErrors(t *testing.T) {
	ds := galapDataset(t)
	short, err := sardataset.New([]float64{1, 2, 4, 8}, []float64{3, 5, 9, 12})
	require.Nil(t, err)

	ens, err := AverageModels([]string{"power", "loga"}, ds, nil)
	require.Nil(t, err)

	testData := map[string]struct {
		ens  *EnsembleResult
		ds   *sardataset.Dataset
		reps int
		err  error
	}{
		"nil ensemble":    {nil, ds, 10, ErrNoEnsemble},
		"empty ensemble":  {&EnsembleResult{}, ds, 10, ErrNoEnsemble},
		"nil dataset":     {ens, nil, 10, ErrNoDataset},
		"length mismatch": {ens, short, 10, ErrDatasetEnsembleMatch},
		"zero replicates": {ens, ds, 0, ErrBadReplicates},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := ConfidenceIntervals(td.ens, td.ds, td.reps, nil)
			require.ErrorIs(t, err, td.err)
		})
	}
}
