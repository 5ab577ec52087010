package sar

import (
	"fmt"
	"os"
	"runtime/debug"
	"testing"

	"github.com/aouyang1/go-sar/sardataset"
)

func generateExampleDataset() (*sardataset.Dataset, error) {
	// power-law archipelago with multiplicative noise
	a := sardataset.GenerateAreas(24, 0.05, 650)
	y := sardataset.GeneratePowerY(a, 25, 0.3).
		Add(sardataset.GenerateNoise(len(a), 1.3, 42)).
		ClampMin(0)
	return sardataset.New(a, y)
}

func runAverageExample(names []string, opt *Options, filename string) error {
	ds, err := generateExampleDataset()
	if err != nil {
		return err
	}

	ens, err := AverageModels(names, ds, opt)
	if err != nil {
		return err
	}
	if _, err := ConfidenceIntervals(ens, ds, 100, opt); err != nil {
		return err
	}

	m, err := ens.Model()
	if err != nil {
		return err
	}
	if err := m.TablePrint(os.Stderr); err != nil {
		return err
	}

	if err := os.MkdirAll("examples", 0o755); err != nil {
		return err
	}
	return ens.PlotFit(ds, filename)
}

func recoverExamplePanic(t *testing.T) {
	if r := recover(); r != nil {
		if t != nil {
			t.Errorf("panic: %v\n", r)
		} else {
			fmt.Printf("panic: %v\n", r)
		}
		debug.PrintStack()
	}
}

func Example_averageConvexModels() {
	defer recoverExamplePanic(nil)

	names := []string{"power", "loga", "monod", "negexpo", "koba", "ratio"}
	if err := runAverageExample(names, &Options{Seed: 42}, "examples/sar.html"); err != nil {
		panic(err)
	}
	// Output:
}

func Example_averageWithScreening() {
	defer recoverExamplePanic(nil)

	names := []string{"power", "loga", "monod", "negexpo", "koba", "ratio"}
	opt := NewDefaultOptions()
	opt.Seed = 42
	opt.FitOptions.NormaTest = "shapiro"
	opt.FitOptions.HomoTest = "cor_fitted"
	opt.NegCheck = true

	if err := runAverageExample(names, opt, "examples/sar_screened.html"); err != nil {
		panic(err)
	}
	// Output:
}
