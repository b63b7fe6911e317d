package fusion

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/montanaflynn/stats"
)

// TypeSummary describes the readings of one sensor type.
type TypeSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Unit  string  `json:"unit"`
}

// QualitySummary aggregates the quality scores of one sensor type.
type QualitySummary struct {
	AvgQuality      float64 `json:"avg_quality"`
	MinQuality      float64 `json:"min_quality"`
	HighQualityPerc float64 `json:"high_quality_percentage"`
}

// TemporalCoverage describes when one sensor type reported.
type TemporalCoverage struct {
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DurationHours    float64   `json:"duration_hours"`
	FrequencyMinutes float64   `json:"reading_frequency_minutes"`
}

// Anomaly flags one suspicious reading in the report.
type Anomaly struct {
	SensorID   string    `json:"sensor_id"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// Report is the fusion summary document for one field, JSON-encodable for
// the dashboard import.
type Report struct {
	Timestamp        time.Time                   `json:"timestamp"`
	FieldID          string                      `json:"field_id"`
	TotalReadings    int                         `json:"total_readings"`
	SensorTypes      map[string]TypeSummary      `json:"sensor_types"`
	QualitySummary   map[string]QualitySummary   `json:"quality_summary"`
	TemporalCoverage map[string]TemporalCoverage `json:"temporal_coverage"`
	Anomalies        []Anomaly                   `json:"anomalies"`
	FusionSummary    map[string]float64          `json:"fusion_summary"`
}

// BuildReport analyzes the readings of one field: per-type statistics,
// quality and temporal coverage, anomalies and quality-weighted fused
// values. Empty input yields an empty but well-formed report.
func BuildReport(fieldID string, readings []Reading) Report {
	report := Report{
		Timestamp:        time.Now(),
		FieldID:          fieldID,
		TotalReadings:    len(readings),
		SensorTypes:      map[string]TypeSummary{},
		QualitySummary:   map[string]QualitySummary{},
		TemporalCoverage: map[string]TemporalCoverage{},
		Anomalies:        []Anomaly{},
		FusionSummary:    map[string]float64{},
	}
	if len(readings) == 0 {
		return report
	}

	types, groups := groupByType(readings)
	for _, sensorType := range types {
		group := groups[sensorType]
		vs := values(group)
		mean, std := meanStd(vs)
		lo, _ := stats.Min(vs)
		hi, _ := stats.Max(vs)
		report.SensorTypes[sensorType] = TypeSummary{
			Count: len(group),
			Mean:  mean,
			Std:   std,
			Min:   lo,
			Max:   hi,
			Unit:  group[0].Unit,
		}

		qualities := make([]float64, len(group))
		high := 0
		for i, r := range group {
			qualities[i] = r.QualityScore
			if r.QualityScore >= 0.8 {
				high++
			}
		}
		avgQ, _ := stats.Mean(qualities)
		minQ, _ := stats.Min(qualities)
		report.QualitySummary[sensorType] = QualitySummary{
			AvgQuality:      avgQ,
			MinQuality:      minQ,
			HighQualityPerc: float64(high) / float64(len(group)) * 100,
		}

		start, end := group[0].Timestamp, group[0].Timestamp
		for _, r := range group[1:] {
			if r.Timestamp.Before(start) {
				start = r.Timestamp
			}
			if r.Timestamp.After(end) {
				end = r.Timestamp
			}
		}
		span := end.Sub(start)
		coverage := TemporalCoverage{
			StartTime:     start,
			EndTime:       end,
			DurationHours: span.Hours(),
		}
		if len(group) > 1 {
			coverage.FrequencyMinutes = span.Minutes() / float64(len(group))
		}
		report.TemporalCoverage[sensorType] = coverage
	}

	for _, r := range DetectAnomalies(readings, DefaultAnomalyFactor) {
		report.Anomalies = append(report.Anomalies, Anomaly{
			SensorID:   r.SensorID,
			SensorType: r.SensorType,
			Value:      r.Value,
			Timestamp:  r.Timestamp,
		})
	}

	report.FusionSummary = Fuse(readings, WeightedAverage)
	return report
}

// SaveReport writes the report as indented JSON.
func SaveReport(path string, report Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fusion report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
