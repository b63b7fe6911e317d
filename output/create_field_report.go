package output

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportInfo carries the run metadata shown in the report header.
type ReportInfo struct {
	InputFile       string
	Timestamp       time.Time
	Dimensions      [3]int
	WavelengthRange [2]float64
	SoilBrightness  float64
	SoilMoisture    float64
}

const reportMargin = 12.0

// CreateFieldReport renders the one-page PDF summary handed to agronomists:
// run metadata, the per-indicator statistics table and the index figure.
func CreateFieldReport(dir string, info ReportInfo, rows []IndexStatistics, figurePath string) (Artifact, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Hyperspectral Field Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	meta := [][2]string{
		{"Input", info.InputFile},
		{"Processed", info.Timestamp.Format(time.RFC3339)},
		{"Dimensions", fmt.Sprintf("%d x %d px, %d bands",
			info.Dimensions[0], info.Dimensions[1], info.Dimensions[2])},
		{"Wavelengths", fmt.Sprintf("%.0f - %.0f nm",
			info.WavelengthRange[0], info.WavelengthRange[1])},
		{"Soil brightness", reportFloat(info.SoilBrightness)},
		{"Soil moisture", reportFloat(info.SoilMoisture)},
	}
	for _, kv := range meta {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 6, kv[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, kv[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	headers := []string{"Index", "Mean", "Median", "Std", "Min", "Max", "P25", "P75"}
	widths := []float64{32, 22, 22, 22, 22, 22, 22, 22}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(220, 220, 220)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 6, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		cells := []string{
			row.Index,
			reportFloat(row.Mean), reportFloat(row.Median), reportFloat(row.Std),
			reportFloat(row.Min), reportFloat(row.Max),
			reportFloat(row.Percentile25), reportFloat(row.Percentile75),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	if figurePath != "" {
		pdf.ImageOptions(figurePath, reportMargin, pdf.GetY(), 186, 0, false,
			gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	path := filepath.Join(dir, "field_report.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %v", path, err)
	}
	return Artifact{Kind: KindFieldReport, Path: path}, nil
}

func reportFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
