// Package pipeline sequences a full processing run over one hyperspectral
// cube: load, preprocess, derive the indicator maps, summarize them and
// write the run artifacts. Failures never escape the package boundary; every
// run ends in a Result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrimonitor/hyperspectral-pipeline/internal/cube"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/properties"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/spectral"
	"github.com/agrimonitor/hyperspectral-pipeline/internal/statistics"
	"github.com/agrimonitor/hyperspectral-pipeline/output"
)

// Options tunes one run. The zero value runs the bare pipeline: no
// smoothing, no normalization, CPU-count workers, no progress, no logging.
type Options struct {
	Smooth    bool
	Normalize bool
	Workers   int
	Progress  bool
	Logger    *zerolog.Logger
}

// DefaultOptions is the standard processing chain: both preprocessing
// transforms on, worker count from the environment.
func DefaultOptions() Options {
	return Options{Smooth: true, Normalize: true, Workers: properties.DefaultWorkers()}
}

// Request names one cube to process and the directory its artifacts go
// under. Concurrent runs need distinct output directories; that is the
// caller's responsibility.
type Request struct {
	InputFile string
	OutputDir string
	Options   Options
}

// runner holds the intermediate state of a single Run invocation. Nothing
// is shared between invocations.
type runner struct {
	req     Request
	log     zerolog.Logger
	machine *machine

	cube      *cube.Cube
	maps      map[spectral.Kind]*spectral.Map
	summaries map[spectral.Kind]statistics.Summary
	artifacts []output.Artifact
	res       Result
}

// Run processes req and always returns a Result. Internal failures, panics
// included, become a StatusError record with the failure taxonomy attached;
// no error and no panic reaches the caller. Cancellation is cooperative and
// honored at stage boundaries only.
func Run(ctx context.Context, req Request) (res Result) {
	r := &runner{req: req, log: zerolog.Nop(), machine: newMachine()}
	if req.Options.Logger != nil {
		r.log = req.Options.Logger.With().Str("component", "pipeline").Logger()
	}

	defer func() {
		if p := recover(); p != nil {
			res = r.fail(failure(ErrComputationFailure, r.machine.stage, fmt.Errorf("panic: %v", p)))
		}
	}()

	r.log.Info().
		Str("input", req.InputFile).
		Str("output", req.OutputDir).
		Msg("processing run started")

	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{StageLoading, r.load},
		{StagePreprocessing, r.preprocess},
		{StageComputingIndices, r.computeIndices},
		{StageComputingStatistics, r.computeStatistics},
		{StageWritingOutputs, r.writeOutputs},
	}
	for i, step := range steps {
		if i > 0 {
			if err := r.machine.advance(step.stage); err != nil {
				return r.fail(failure(ErrComputationFailure, r.machine.stage, err))
			}
		}
		if err := ctx.Err(); err != nil {
			return r.fail(failure(ErrCancelled, step.stage, err))
		}
		started := time.Now()
		if err := step.fn(); err != nil {
			return r.fail(failure(kindOf(step.stage), step.stage, err))
		}
		r.log.Info().
			Str("stage", string(step.stage)).
			Dur("took", time.Since(started)).
			Msg("stage complete")
	}
	_ = r.machine.advance(StageDone)

	r.res.Artifacts = r.artifacts
	r.log.Info().
		Int("artifacts", len(r.res.Artifacts)).
		Msg("processing run finished")
	return r.res
}

// fail converts a stage failure into the terminal error result.
func (r *runner) fail(stageErr *StageError) Result {
	_ = r.machine.advance(StageError)
	r.log.Error().
		Err(stageErr.Err).
		Str("stage", string(stageErr.Stage)).
		Msg("processing run failed")

	res := Result{
		Status:       StatusError,
		Timestamp:    time.Now(),
		InputFile:    r.req.InputFile,
		OutputPath:   r.req.OutputDir,
		ErrorMessage: stageErr.Error(),
		Artifacts:    r.artifacts,
		err:          stageErr,
	}
	if r.cube != nil {
		lo, hi := r.cube.WavelengthRange()
		res.Dimensions = [3]int{r.cube.Rows, r.cube.Cols, r.cube.NumBands()}
		res.WavelengthRange = [2]float64{lo, hi}
	}
	return res
}

func (r *runner) load() error {
	c, err := cube.Load(r.req.InputFile)
	if err != nil {
		return err
	}
	r.cube = c
	lo, hi := c.WavelengthRange()
	r.log.Info().
		Int("rows", c.Rows).
		Int("cols", c.Cols).
		Int("bands", c.NumBands()).
		Float64("min_nm", lo).
		Float64("max_nm", hi).
		Bool("georeferenced", c.Geo != nil).
		Msg("cube loaded")
	return nil
}

func (r *runner) preprocess() error {
	if r.req.Options.Smooth {
		c, err := spectral.SmoothBands(r.cube)
		if err != nil {
			return err
		}
		r.cube = c
	}
	if r.req.Options.Normalize {
		c, err := spectral.NormalizeBands(r.cube, r.req.Options.Workers)
		if err != nil {
			return err
		}
		r.cube = c
	}
	return nil
}

func (r *runner) computeIndices() error {
	// The degrades below are policy, not failures: the affected maps come
	// back all zero and the run continues.
	if !spectral.MoistureBandsCovered(r.cube.Wavelengths) {
		r.log.Warn().
			Err(ErrBandUnavailable).
			Str("indicator", string(spectral.SoilMoisture)).
			Msg("water-absorption bands outside spectral coverage, map degrades to zeros")
	}
	if !spectral.HasVisibleBands(r.cube.Wavelengths) {
		r.log.Warn().
			Err(ErrBandUnavailable).
			Str("indicator", string(spectral.SoilBrightness)).
			Msg("no bands in the visible window, map degrades to zeros")
	}

	calc := spectral.NewCalculator(r.req.Options.Workers, r.req.Options.Progress)
	maps, err := calc.ComputeAll(r.cube)
	if err != nil {
		return err
	}
	r.maps = maps
	return nil
}

func (r *runner) computeStatistics() error {
	r.summaries = make(map[spectral.Kind]statistics.Summary, len(r.maps))
	for kind, m := range r.maps {
		r.summaries[kind] = statistics.Compute(m.Values)
	}
	return nil
}

func (r *runner) writeOutputs() error {
	lo, hi := r.cube.WavelengthRange()
	r.res = Result{
		Status:          StatusSuccess,
		Timestamp:       time.Now(),
		InputFile:       r.req.InputFile,
		OutputPath:      r.req.OutputDir,
		Dimensions:      [3]int{r.cube.Rows, r.cube.Cols, r.cube.NumBands()},
		WavelengthRange: [2]float64{lo, hi},
		NDVIStats:       r.summaries[spectral.NDVI],
		SAVIStats:       r.summaries[spectral.SAVI],
		EVIStats:        r.summaries[spectral.EVI],
		SoilBrightness:  r.summaries[spectral.SoilBrightness].Mean,
		SoilMoisture:    r.summaries[spectral.SoilMoisture].Mean,
	}

	if err := output.EnsureDir(r.req.OutputDir); err != nil {
		return fmt.Errorf("create output directory %s: %w", r.req.OutputDir, err)
	}

	rasters, err := output.CreateIndexRasters(r.req.OutputDir, r.maps, r.cube.Geo)
	r.artifacts = append(r.artifacts, rasters...)
	if err != nil {
		return err
	}

	composite, err := output.CreateFalseColorImage(r.req.OutputDir, r.cube)
	if err != nil {
		return err
	}
	r.artifacts = append(r.artifacts, composite)

	figure, err := output.CreateIndexFigure(r.req.OutputDir, r.maps)
	if err != nil {
		return err
	}
	r.artifacts = append(r.artifacts, figure)

	rows := r.statisticsRows()
	csv, err := output.CreateStatisticsCSV(r.req.OutputDir, rows)
	if err != nil {
		return err
	}
	r.artifacts = append(r.artifacts, csv)

	if r.cube.Geo != nil {
		footprint, err := output.CreateFootprintGeoJSON(r.req.OutputDir, r.cube.Rows, r.cube.Cols, r.cube.Geo)
		if err != nil {
			return err
		}
		r.artifacts = append(r.artifacts, footprint)
	}

	report, err := output.CreateFieldReport(r.req.OutputDir, output.ReportInfo{
		InputFile:       r.res.InputFile,
		Timestamp:       r.res.Timestamp,
		Dimensions:      r.res.Dimensions,
		WavelengthRange: r.res.WavelengthRange,
		SoilBrightness:  r.res.SoilBrightness,
		SoilMoisture:    r.res.SoilMoisture,
	}, rows, figure.Path)
	if err != nil {
		return err
	}
	r.artifacts = append(r.artifacts, report)

	document, err := r.res.writeDocument(r.req.OutputDir)
	if err != nil {
		return err
	}
	r.artifacts = append(r.artifacts, document)
	return nil
}

// statisticsRows flattens the per-indicator summaries into CSV rows, in the
// fixed presentation order of the indicator kinds.
func (r *runner) statisticsRows() []output.IndexStatistics {
	rows := make([]output.IndexStatistics, 0, len(spectral.Kinds))
	for _, kind := range spectral.Kinds {
		s := r.summaries[kind]
		rows = append(rows, output.IndexStatistics{
			Index:        string(kind),
			Mean:         s.Mean,
			Median:       s.Median,
			Std:          s.Std,
			Min:          s.Min,
			Max:          s.Max,
			Percentile25: s.P25,
			Percentile75: s.P75,
		})
	}
	return rows
}
