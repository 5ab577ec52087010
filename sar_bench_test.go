package sar

import (
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchPredictRes []float64

func BenchmarkAverageToModel(b *testing.B) {
	ds, err := generateExampleDataset()
	if err != nil {
		panic(err)
	}
	names := []string{"power", "loga", "monod", "negexpo", "koba", "ratio"}
	opt := &Options{Seed: 42}

	var ens *EnsembleResult

	b.ResetTimer()
	for b.Loop() {
		ens, err = AverageModels(names, ds, opt)
		if err != nil {
			panic(err)
		}
	}

	m, err := ens.Model()
	if err != nil {
		panic(err)
	}

	bytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile("benchmark_model.json", bytes, 0o644); err != nil {
		panic(err)
	}
}

func BenchmarkPredictFromModel(b *testing.B) {
	bytes, err := os.ReadFile("benchmark_model.json")
	if err != nil {
		panic(err)
	}

	var model Model
	if err := json.Unmarshal(bytes, &model); err != nil {
		panic(err)
	}
	ens, err := NewFromModel(model)
	if err != nil {
		panic(err)
	}

	input := []float64{0.1, 1, 10, 100, 1000}
	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchPredictRes, err = ens.Predict(input)
		if err != nil {
			panic(err)
		}
	}
}
