package output

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
)

func TestCreateStatisticsCSV(t *testing.T) {
	dir := t.TempDir()
	rows := []IndexStatistics{
		{Index: "ndvi", Mean: 0.5, Median: 0.5, Std: 0.1, Min: 0.2, Max: 0.8, Percentile25: 0.4, Percentile75: 0.6},
		{Index: "savi", Mean: 0.33, Median: 0.32, Std: 0.05, Min: 0.1, Max: 0.5, Percentile25: 0.3, Percentile75: 0.4},
	}

	art, err := CreateStatisticsCSV(dir, rows)
	if err != nil {
		t.Fatalf("CreateStatisticsCSV: %v", err)
	}
	if art.Kind != KindStatisticsCSV {
		t.Errorf("artifact kind = %s, want %s", art.Kind, KindStatisticsCSV)
	}
	if filepath.Base(art.Path) != "index_statistics.csv" {
		t.Errorf("artifact path = %s", art.Path)
	}

	file, err := os.Open(art.Path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()
	var parsed []IndexStatistics
	if err := gocsv.UnmarshalFile(file, &parsed); err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(parsed) != len(rows) {
		t.Fatalf("got %d rows, want %d", len(parsed), len(rows))
	}
	for i := range rows {
		if parsed[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, parsed[i], rows[i])
		}
	}
}

func TestCreateStatisticsCSVHeader(t *testing.T) {
	dir := t.TempDir()
	art, err := CreateStatisticsCSV(dir, []IndexStatistics{{Index: "ndvi"}})
	if err != nil {
		t.Fatalf("CreateStatisticsCSV: %v", err)
	}
	raw, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(string(raw), "\n", 2)[0]
	if want := "index,mean,median,std,min,max,percentile_25,percentile_75"; strings.TrimSpace(header) != want {
		t.Errorf("header = %q, want %q", header, want)
	}
}

func TestCreateStatisticsCSVKeepsNaN(t *testing.T) {
	// An all-invalid map yields NaN statistics; the CSV spells them out
	// instead of writing zeros.
	dir := t.TempDir()
	nan := math.NaN()
	art, err := CreateStatisticsCSV(dir, []IndexStatistics{{
		Index: "soil_moisture",
		Mean:  nan, Median: nan, Std: nan, Min: nan, Max: nan,
		Percentile25: nan, Percentile75: nan,
	}})
	if err != nil {
		t.Fatalf("CreateStatisticsCSV: %v", err)
	}
	raw, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "NaN") {
		t.Errorf("csv does not spell out NaN statistics:\n%s", raw)
	}

	file, err := os.Open(art.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	var parsed []IndexStatistics
	if err := gocsv.UnmarshalFile(file, &parsed); err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if !math.IsNaN(parsed[0].Mean) {
		t.Errorf("round-tripped mean = %v, want NaN", parsed[0].Mean)
	}
}
