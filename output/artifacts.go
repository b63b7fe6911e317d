package output

import "os"

// Artifact is one named file produced by a pipeline run. The kind strings
// are stable identifiers for downstream consumers; paths are absolute or
// relative to the caller's working directory, exactly as requested.
type Artifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

const (
	KindFalseColor    = "false_color"
	KindIndexFigure   = "vegetation_indices"
	KindStatisticsCSV = "index_statistics"
	KindFootprint     = "footprint"
	KindFieldReport   = "field_report"
	KindResults       = "processing_results"
)

// EnsureDir creates the run output directory if it does not exist yet.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, os.ModePerm)
}
