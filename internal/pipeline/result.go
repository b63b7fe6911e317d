package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/statistics"
	"github.com/agrimonitor/hyperspectral-pipeline/output"
)

// Status distinguishes the two terminal outcomes of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the record a run hands back to its caller. Run always returns
// one, regardless of what went wrong; Status separates the outcomes. The
// record is immutable once returned.
type Result struct {
	Status          Status             `json:"status"`
	Timestamp       time.Time          `json:"timestamp"`
	InputFile       string             `json:"input_file"`
	OutputPath      string             `json:"output_path"`
	Dimensions      [3]int             `json:"dimensions"`
	WavelengthRange [2]float64         `json:"wavelength_range"`
	NDVIStats       statistics.Summary `json:"ndvi_stats"`
	SAVIStats       statistics.Summary `json:"savi_stats"`
	EVIStats        statistics.Summary `json:"evi_stats"`
	SoilBrightness  float64            `json:"soil_brightness_mean"`
	SoilMoisture    float64            `json:"soil_moisture_mean"`
	ErrorMessage    string             `json:"error_message,omitempty"`
	Artifacts       []output.Artifact  `json:"artifacts,omitempty"`

	err error
}

// Err returns the failure behind an error result, nil for success. The
// returned error matches its taxonomy kind and the underlying cause under
// errors.Is.
func (r *Result) Err() error {
	return r.err
}

// jsonFloat marshals non-finite values as null, keeping the results document
// strict JSON where the statistics hold NaN.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// summaryDocument is one statistics block of the results document.
type summaryDocument struct {
	Mean         jsonFloat `json:"mean"`
	Median       jsonFloat `json:"median"`
	Std          jsonFloat `json:"std"`
	Min          jsonFloat `json:"min"`
	Max          jsonFloat `json:"max"`
	Percentile25 jsonFloat `json:"percentile_25"`
	Percentile75 jsonFloat `json:"percentile_75"`
}

func summaryOf(s statistics.Summary) *summaryDocument {
	return &summaryDocument{
		Mean:         jsonFloat(s.Mean),
		Median:       jsonFloat(s.Median),
		Std:          jsonFloat(s.Std),
		Min:          jsonFloat(s.Min),
		Max:          jsonFloat(s.Max),
		Percentile25: jsonFloat(s.P25),
		Percentile75: jsonFloat(s.P75),
	}
}

// resultDocument is the processing_results.json schema consumed downstream.
// Field names and nesting are a compatibility contract; do not rename.
// Error documents omit the fields that were never computed.
type resultDocument struct {
	ProcessingStatus   Status           `json:"processing_status"`
	Timestamp          string           `json:"timestamp"`
	InputFile          string           `json:"input_file"`
	OutputPath         string           `json:"output_path"`
	ImageDimensions    *[3]int          `json:"image_dimensions,omitempty"`
	WavelengthRange    *[2]float64      `json:"wavelength_range,omitempty"`
	NDVIStats          *summaryDocument `json:"ndvi_stats,omitempty"`
	SAVIStats          *summaryDocument `json:"savi_stats,omitempty"`
	EVIStats           *summaryDocument `json:"evi_stats,omitempty"`
	SoilBrightnessMean *jsonFloat       `json:"soil_brightness_mean,omitempty"`
	SoilMoistureMean   *jsonFloat       `json:"soil_moisture_mean,omitempty"`
	ErrorMessage       string           `json:"error_message,omitempty"`
}

// Document renders the result into the processing_results.json contract,
// byte for byte the content written by a successful run.
func (r *Result) Document() ([]byte, error) {
	doc := resultDocument{
		ProcessingStatus: r.Status,
		Timestamp:        r.Timestamp.Format(time.RFC3339),
		InputFile:        r.InputFile,
		OutputPath:       r.OutputPath,
		ErrorMessage:     r.ErrorMessage,
	}
	// A failure before the cube loads leaves the dimensions at their zero
	// value; the loader guarantees a real cube never has one.
	if r.Dimensions != [3]int{} {
		doc.ImageDimensions = &r.Dimensions
		doc.WavelengthRange = &r.WavelengthRange
	}
	if r.Status == StatusSuccess {
		doc.NDVIStats = summaryOf(r.NDVIStats)
		doc.SAVIStats = summaryOf(r.SAVIStats)
		doc.EVIStats = summaryOf(r.EVIStats)
		brightness := jsonFloat(r.SoilBrightness)
		moisture := jsonFloat(r.SoilMoisture)
		doc.SoilBrightnessMean = &brightness
		doc.SoilMoistureMean = &moisture
	}
	return json.MarshalIndent(doc, "", "  ")
}

// writeDocument persists the results document under dir. The write goes
// through a temp file and a rename so consumers never observe a torn
// contract file.
func (r *Result) writeDocument(dir string) (output.Artifact, error) {
	raw, err := r.Document()
	if err != nil {
		return output.Artifact{}, fmt.Errorf("encode results document: %w", err)
	}
	path := filepath.Join(dir, "processing_results.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return output.Artifact{}, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return output.Artifact{}, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return output.Artifact{Kind: output.KindResults, Path: path}, nil
}
