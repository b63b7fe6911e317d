package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// IndexStatistics is one CSV row of per-indicator statistics, mirroring the
// summary fields of the results document.
type IndexStatistics struct {
	Index        string  `csv:"index"`
	Mean         float64 `csv:"mean"`
	Median       float64 `csv:"median"`
	Std          float64 `csv:"std"`
	Min          float64 `csv:"min"`
	Max          float64 `csv:"max"`
	Percentile25 float64 `csv:"percentile_25"`
	Percentile75 float64 `csv:"percentile_75"`
}

// CreateStatisticsCSV writes one row per indicator for spreadsheet imports.
func CreateStatisticsCSV(dir string, rows []IndexStatistics) (Artifact, error) {
	path := filepath.Join(dir, "index_statistics.csv")
	file, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", path, err)
	}
	return Artifact{Kind: KindStatisticsCSV, Path: path}, nil
}
