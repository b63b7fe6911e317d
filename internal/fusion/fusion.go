// Package fusion reconciles ground-truth sensor probes with the
// imagery-derived indicators: cleaning, per-type fusion and anomaly
// detection over field sensor readings.
package fusion

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
)

// Reading is one field-probe measurement. The csv tags define the ingest
// format; quality scores run 0..1 and weight the fusion.
type Reading struct {
	SensorID     string    `csv:"sensor_id" json:"sensor_id"`
	SensorType   string    `csv:"sensor_type" json:"sensor_type"`
	Value        float64   `csv:"value" json:"value"`
	Unit         string    `csv:"unit" json:"unit"`
	Timestamp    time.Time `csv:"timestamp" json:"timestamp"`
	Latitude     float64   `csv:"latitude" json:"latitude"`
	Longitude    float64   `csv:"longitude" json:"longitude"`
	QualityScore float64   `csv:"quality_score" json:"quality_score"`
}

// LoadReadings parses a readings CSV. Timestamps are RFC 3339.
func LoadReadings(path string) ([]Reading, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open readings %s: %w", path, err)
	}
	defer file.Close()

	var readings []Reading
	if err := gocsv.UnmarshalFile(file, &readings); err != nil {
		return nil, fmt.Errorf("parse readings %s: %w", path, err)
	}
	return readings, nil
}

const (
	// minQuality is the score below which a reading is discarded outright.
	minQuality = 0.5

	// DefaultZThreshold bounds the z-score of retained readings when
	// outlier removal is on.
	DefaultZThreshold = 3.0
)

// CleanOptions tunes Clean. A zero ZThreshold means DefaultZThreshold.
type CleanOptions struct {
	RemoveOutliers bool
	ZThreshold     float64
}

// Clean drops readings with quality below 0.5 and, when requested,
// statistical outliers per sensor type. Outlier removal needs more than
// three surviving readings of a type to say anything; a type with zero
// spread keeps all its readings. Output order is grouped by sensor type in
// first-appearance order.
func Clean(readings []Reading, opts CleanOptions) []Reading {
	threshold := opts.ZThreshold
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}

	types, groups := groupByType(readings)
	cleaned := make([]Reading, 0, len(readings))
	for _, sensorType := range types {
		kept := make([]Reading, 0, len(groups[sensorType]))
		for _, r := range groups[sensorType] {
			if r.QualityScore >= minQuality {
				kept = append(kept, r)
			}
		}
		if !opts.RemoveOutliers || len(kept) <= 3 {
			cleaned = append(cleaned, kept...)
			continue
		}

		mean, std := meanStd(values(kept))
		for _, r := range kept {
			if std > 0 && math.Abs(r.Value-mean)/std >= threshold {
				continue
			}
			cleaned = append(cleaned, r)
		}
	}
	return cleaned
}

// Method selects how readings of one sensor type collapse to a single value.
type Method string

const (
	// WeightedAverage weights each reading by its quality score.
	WeightedAverage Method = "weighted_average"
	// Median is the robust alternative for spiky sensors.
	Median Method = "median"
	// KalmanFilter folds the readings in sequence, trusting high-quality
	// measurements more (measurement noise 1/quality).
	KalmanFilter Method = "kalman_filter"
)

// Fuse collapses the readings of every sensor type to one value using the
// given method. Unknown methods fall back to the plain arithmetic mean.
func Fuse(readings []Reading, method Method) map[string]float64 {
	types, groups := groupByType(readings)
	fused := make(map[string]float64, len(types))
	for _, sensorType := range types {
		group := groups[sensorType]
		switch method {
		case WeightedAverage:
			var num, den float64
			for _, r := range group {
				num += r.Value * r.QualityScore
				den += r.QualityScore
			}
			if den > 0 {
				fused[sensorType] = num / den
			} else {
				fused[sensorType], _ = stats.Mean(values(group))
			}
		case Median:
			fused[sensorType], _ = stats.Median(values(group))
		case KalmanFilter:
			fused[sensorType] = kalman(group)
		default:
			fused[sensorType], _ = stats.Mean(values(group))
		}
	}
	return fused
}

// DefaultAnomalyFactor is the standard-deviation multiple beyond which a
// reading counts as anomalous.
const DefaultAnomalyFactor = 2.0

// DetectAnomalies returns the readings lying more than factor standard
// deviations from the mean of their sensor type. Types with fewer than five
// readings carry too little signal and are skipped.
func DetectAnomalies(readings []Reading, factor float64) []Reading {
	if factor <= 0 {
		factor = DefaultAnomalyFactor
	}
	types, groups := groupByType(readings)
	var anomalies []Reading
	for _, sensorType := range types {
		group := groups[sensorType]
		if len(group) < 5 {
			continue
		}
		mean, std := meanStd(values(group))
		for _, r := range group {
			if math.Abs(r.Value-mean) > factor*std {
				anomalies = append(anomalies, r)
			}
		}
	}
	return anomalies
}

// kalman runs a scalar Kalman filter over the readings in order. The first
// reading seeds the estimate; each update trusts the measurement in
// proportion to its quality.
func kalman(readings []Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	estimate := readings[0].Value
	estimateError := 1.0
	for _, r := range readings[1:] {
		predictedError := estimateError + 0.1
		measurementNoise := 1.0 / r.QualityScore
		gain := predictedError / (predictedError + measurementNoise)
		estimate += gain * (r.Value - estimate)
		estimateError = (1 - gain) * predictedError
	}
	return estimate
}

// groupByType buckets readings per sensor type, keeping the types in
// first-appearance order so every caller stays deterministic.
func groupByType(readings []Reading) ([]string, map[string][]Reading) {
	var types []string
	groups := make(map[string][]Reading)
	for _, r := range readings {
		if _, ok := groups[r.SensorType]; !ok {
			types = append(types, r.SensorType)
		}
		groups[r.SensorType] = append(groups[r.SensorType], r)
	}
	return types, groups
}

func values(readings []Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		out[i] = r.Value
	}
	return out
}

// meanStd is the mean and population standard deviation of vs.
func meanStd(vs []float64) (float64, float64) {
	mean, _ := stats.Mean(vs)
	std, _ := stats.StandardDeviation(vs)
	return mean, std
}
