package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cache"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/fusion"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/pipeline"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/properties"
)

func printBanner() {
	color.Cyan(figure.NewFigure("Hyperspec", "isometric1", true).String())
	color.Cyan(figure.NewFigure("Pipeline", "isometric1", true).String())
	fmt.Println()
}

func main() {
	input := flag.String("input", "", "hyperspectral cube to process (GeoTIFF, ENVI or .json)")
	out := flag.String("out", "", "output directory for run artifacts (default under OUTPUT_ROOT)")
	noSmooth := flag.Bool("no-smooth", false, "skip spectral smoothing")
	noNormalize := flag.Bool("no-normalize", false, "skip per-band min-max normalization")
	workers := flag.Int("workers", 0, "pixel-parallel worker count (default WORKERS or CPU count)")
	noCache := flag.Bool("no-cache", false, "ignore cached results")
	quiet := flag.Bool("quiet", false, "suppress banner, logs and progress")
	fuseFile := flag.String("fuse", "", "sensor readings CSV to fuse into a report instead of processing a cube")
	flag.Parse()

	// A .env file is optional for the CLI; the pipeline itself reads no
	// globals, so nothing here is fatal.
	_ = godotenv.Load()

	if !*quiet {
		printBanner()
	}

	if *fuseFile != "" {
		os.Exit(runFusion(*fuseFile, *out))
	}
	if *input == "" {
		color.Red("missing required -input flag")
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(runPipeline(*input, *out, pipelineOptions(!*noSmooth, !*noNormalize, *workers, *quiet), !*noCache, *quiet))
}

func pipelineOptions(smooth, normalize bool, workers int, quiet bool) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Smooth = smooth
	opts.Normalize = normalize
	if workers > 0 {
		opts.Workers = workers
	}
	opts.Progress = !quiet
	if !quiet {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
		opts.Logger = &logger
	}
	return opts
}

func runPipeline(input, out string, opts pipeline.Options, useCache, quiet bool) int {
	if out == "" {
		out = filepath.Join(properties.OutputRoot(), stem(input))
	}

	resultCache := cache.NewFileCache[pipeline.Result](properties.CacheDir())
	var key string
	if useCache {
		if info, err := os.Stat(input); err == nil {
			abs, _ := filepath.Abs(input)
			key = resultCache.GenerateKey(abs, info.ModTime().UnixNano(), out, opts.Smooth, opts.Normalize)
			if cached, ok := resultCache.Get(key); ok {
				color.Yellow("Using cached result for %s", input)
				return printSummary(cached)
			}
		}
	}

	res := pipeline.Run(context.Background(), pipeline.Request{
		InputFile: input,
		OutputDir: out,
		Options:   opts,
	})
	if key != "" && res.Status == pipeline.StatusSuccess {
		// Best effort: a run with non-finite statistics cannot be encoded
		// into the JSON cache and is simply processed again next time.
		if err := resultCache.Set(key, res); err != nil && !quiet {
			color.Yellow("Result cache write failed: %v", err)
		}
	}
	return printSummary(res)
}

// printSummary renders the colored terminal summary and returns the process
// exit code for the result.
func printSummary(res pipeline.Result) int {
	fmt.Println()
	if res.Status != pipeline.StatusSuccess {
		color.Red("Processing failed")
		color.Red("  %s", res.ErrorMessage)
		return 1
	}

	color.Green("Processing succeeded")
	fmt.Printf("  Input:       %s\n", res.InputFile)
	fmt.Printf("  Dimensions:  %d x %d px, %d bands\n",
		res.Dimensions[0], res.Dimensions[1], res.Dimensions[2])
	fmt.Printf("  Wavelengths: %.0f - %.0f nm\n",
		res.WavelengthRange[0], res.WavelengthRange[1])
	fmt.Printf("  NDVI mean:   %.4f\n", res.NDVIStats.Mean)
	fmt.Printf("  SAVI mean:   %.4f\n", res.SAVIStats.Mean)
	fmt.Printf("  EVI mean:    %.4f\n", res.EVIStats.Mean)
	fmt.Printf("  Soil:        brightness %.4f, moisture %.4f\n",
		res.SoilBrightness, res.SoilMoisture)

	color.Green("Artifacts")
	for _, art := range res.Artifacts {
		fmt.Printf("  %-20s %s\n", art.Kind, art.Path)
	}
	return 0
}

func runFusion(readingsFile, out string) int {
	if out == "" {
		out = filepath.Join(properties.OutputRoot(), "fusion")
	}

	readings, err := fusion.LoadReadings(readingsFile)
	if err != nil {
		color.Red("Loading readings failed: %v", err)
		return 1
	}
	cleaned := fusion.Clean(readings, fusion.CleanOptions{RemoveOutliers: true})
	report := fusion.BuildReport(stem(readingsFile), cleaned)

	if err := os.MkdirAll(out, os.ModePerm); err != nil {
		color.Red("Creating output directory failed: %v", err)
		return 1
	}
	path := filepath.Join(out, "fusion_report.json")
	if err := fusion.SaveReport(path, report); err != nil {
		color.Red("Writing fusion report failed: %v", err)
		return 1
	}

	color.Green("Fusion report written")
	fmt.Printf("  Readings:    %d total, %d after cleaning\n", len(readings), len(cleaned))
	fmt.Printf("  Types:       %d\n", len(report.SensorTypes))
	fmt.Printf("  Anomalies:   %d\n", len(report.Anomalies))
	for sensorType, value := range report.FusionSummary {
		fmt.Printf("  Fused %-14s %.4f\n", sensorType+":", value)
	}
	fmt.Printf("  Report:      %s\n", path)
	return 0
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
