package sar

import (
	"fmt"
	"io"
	"os"

	"github.com/aouyang1/go-sar/sardataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineSAR generates an echart line chart for an ensemble fit plotting the
// observed richness along with the ensemble prediction and, when present, the
// bootstrap confidence bounds over area.
func LineSAR(ds *sardataset.Dataset, ens *EnsembleResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Multi-model SAR Fit",
			},
		),
	)

	lineDataObserved := make([]opts.LineData, 0, len(ens.Areas))
	lineDataEnsemble := make([]opts.LineData, 0, len(ens.Areas))
	for i := 0; i < len(ens.Areas); i++ {
		lineDataObserved = append(lineDataObserved, opts.LineData{Value: ds.R[i]})
		lineDataEnsemble = append(lineDataEnsemble, opts.LineData{Value: ens.Fitted[i]})
	}

	line = line.SetXAxis(axisLabels(ens.Areas)).
		AddSeries("Observed", lineDataObserved).
		AddSeries("Ensemble", lineDataEnsemble)

	if ens.CI != nil {
		lineDataUpper := make([]opts.LineData, 0, len(ens.Areas))
		lineDataLower := make([]opts.LineData, 0, len(ens.Areas))
		for i := 0; i < len(ens.Areas); i++ {
			lineDataUpper = append(lineDataUpper, opts.LineData{Value: ens.CI.Upper[i]})
			lineDataLower = append(lineDataLower, opts.LineData{Value: ens.CI.Lower[i]})
		}
		line = line.AddSeries("Upper", lineDataUpper).
			AddSeries("Lower", lineDataLower)
	}

	return line
}

// LineModels generates an echart line chart with one series per surviving
// model's fitted curve at the observed areas.
func LineModels(ens *EnsembleResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Surviving Model Curves",
			},
		),
	)

	line = line.SetXAxis(axisLabels(ens.Areas))
	for _, r := range ens.survivors {
		lineData := make([]opts.LineData, 0, len(r.Fitted))
		for _, v := range r.Fitted {
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(r.Name, lineData)
	}
	return line
}

// PlotFit uses the Apache Echarts library to generate an html file showing the
// ensemble fit against the observations and the per-model curves.
func (e *EnsembleResult) PlotFit(ds *sardataset.Dataset, path string) error {
	page := components.NewPage()
	page.AddCharts(
		LineSAR(ds, e),
		LineModels(e),
	)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	return page.Render(io.MultiWriter(file))
}

func axisLabels(areas []float64) []string {
	labels := make([]string, 0, len(areas))
	for _, a := range areas {
		labels = append(labels, fmt.Sprintf("%.3g", a))
	}
	return labels
}
