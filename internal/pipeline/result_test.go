package pipeline

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/statistics"
	"github.com/agrimonitor/hyperspectral-pipeline/output"
)

func sampleSummary(base float64) statistics.Summary {
	return statistics.Summary{
		Mean:   base,
		Median: base,
		Std:    0.1,
		Min:    base - 1,
		Max:    base + 1,
		P25:    base - 0.5,
		P75:    base + 0.5,
	}
}

func TestDocumentSuccess(t *testing.T) {
	res := Result{
		Status:          StatusSuccess,
		Timestamp:       time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		InputFile:       "field.json",
		OutputPath:      "out",
		Dimensions:      [3]int{2, 3, 8},
		WavelengthRange: [2]float64{470, 1950},
		NDVIStats:       sampleSummary(0.5),
		SAVIStats:       sampleSummary(0.3),
		EVIStats:        sampleSummary(0.4),
		SoilBrightness:  0.1,
		SoilMoisture:    0.2,
	}
	raw, err := res.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("results document is not valid JSON: %v", err)
	}

	if got := doc["processing_status"]; got != "success" {
		t.Errorf("processing_status = %v, want success", got)
	}
	if got := doc["timestamp"]; got != "2025-03-14T09:26:53Z" {
		t.Errorf("timestamp = %v, want RFC 3339 form", got)
	}
	for _, key := range []string{
		"input_file", "output_path", "image_dimensions", "wavelength_range",
		"ndvi_stats", "savi_stats", "evi_stats",
		"soil_brightness_mean", "soil_moisture_mean",
	} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document is missing %q", key)
		}
	}
	if _, ok := doc["error_message"]; ok {
		t.Error("success document carries error_message")
	}

	stats, ok := doc["ndvi_stats"].(map[string]any)
	if !ok {
		t.Fatalf("ndvi_stats = %T, want object", doc["ndvi_stats"])
	}
	for _, key := range []string{"mean", "median", "std", "min", "max", "percentile_25", "percentile_75"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("ndvi_stats is missing %q", key)
		}
	}
	if got := stats["mean"]; got != 0.5 {
		t.Errorf("ndvi_stats.mean = %v, want 0.5", got)
	}
}

func TestDocumentErrorOmitsStatistics(t *testing.T) {
	res := Result{
		Status:       StatusError,
		Timestamp:    time.Now(),
		InputFile:    "missing.tif",
		OutputPath:   "out",
		ErrorMessage: "loading: source not found: file does not exist",
	}
	raw, err := res.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("results document is not valid JSON: %v", err)
	}
	if got := doc["processing_status"]; got != "error" {
		t.Errorf("processing_status = %v, want error", got)
	}
	if got := doc["error_message"]; got != res.ErrorMessage {
		t.Errorf("error_message = %v, want %q", got, res.ErrorMessage)
	}
	for _, key := range []string{
		"image_dimensions", "wavelength_range",
		"ndvi_stats", "savi_stats", "evi_stats",
		"soil_brightness_mean", "soil_moisture_mean",
	} {
		if _, ok := doc[key]; ok {
			t.Errorf("error document carries %q", key)
		}
	}
}

func TestDocumentEncodesNaNAsNull(t *testing.T) {
	empty := statistics.Compute(nil)
	res := Result{
		Status:          StatusSuccess,
		Timestamp:       time.Now(),
		InputFile:       "field.json",
		OutputPath:      "out",
		Dimensions:      [3]int{1, 1, 1},
		WavelengthRange: [2]float64{500, 500},
		NDVIStats:       empty,
		SAVIStats:       empty,
		EVIStats:        empty,
		SoilBrightness:  math.NaN(),
		SoilMoisture:    math.NaN(),
	}
	raw, err := res.Document()
	if err != nil {
		t.Fatalf("Document with NaN statistics: %v", err)
	}
	var doc struct {
		NDVI struct {
			Mean *float64 `json:"mean"`
			Std  *float64 `json:"std"`
		} `json:"ndvi_stats"`
		Moisture *float64 `json:"soil_moisture_mean"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.NDVI.Mean != nil {
		t.Errorf("ndvi_stats.mean = %v, want null", *doc.NDVI.Mean)
	}
	if doc.NDVI.Std != nil {
		t.Errorf("ndvi_stats.std = %v, want null", *doc.NDVI.Std)
	}
	if doc.Moisture != nil {
		t.Errorf("soil_moisture_mean = %v, want null", *doc.Moisture)
	}
}

func TestWriteDocument(t *testing.T) {
	dir := t.TempDir()
	res := Result{
		Status:       StatusError,
		Timestamp:    time.Now(),
		InputFile:    "field.json",
		OutputPath:   dir,
		ErrorMessage: "boom",
	}
	art, err := res.writeDocument(dir)
	if err != nil {
		t.Fatalf("writeDocument: %v", err)
	}
	if art.Kind != output.KindResults {
		t.Errorf("artifact kind = %s, want %s", art.Kind, output.KindResults)
	}
	if filepath.Base(art.Path) != "processing_results.json" {
		t.Errorf("artifact path = %s, want processing_results.json", art.Path)
	}
	raw, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !json.Valid(raw) {
		t.Error("document on disk is not valid JSON")
	}
	if _, err := os.Stat(art.Path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp file left behind after rename")
	}
}
