// Package pipeline runs an ordered list of enhancement operations over one
// media file and assembles the processing report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/metrics"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrScratchSpace is returned when the run's scratch directory cannot be created.
	ErrScratchSpace = errors.New("scratch space unavailable")
)

// FrameSampler extracts still frames for scene analysis.
type FrameSampler interface {
	Sample(ctx context.Context, input string, duration float64, count int, dir string) ([]string, error)
}

// Config configures an Engine.
type Config struct {
	// Presets resolves operation parameters. Required.
	Presets *preset.Store

	// Toolchain probes inputs and runs transforms.
	// Default: ffprobe and ffmpeg from PATH.
	Toolchain operation.Toolchain

	// Provider analyzes sampled stills. Nil disables scene analysis.
	Provider scene.Provider

	// Sampler extracts the stills sent to Provider.
	// Default: media.Sampler at DefaultSampleDimension.
	Sampler FrameSampler

	// Metrics receives per-operation and per-run timings. Default: metrics.Nop.
	Metrics metrics.Sink

	// ScratchDir is the parent of per-run scratch directories.
	// Default: os.TempDir().
	ScratchDir string

	// OutputDir receives outputs for requests without an OutputPath.
	// Default: the input file's directory.
	OutputDir string

	// SampleCount is the number of stills sent for analysis. Default: 5.
	SampleCount int
}

// Request describes one run.
type Request struct {
	InputFile  string
	Operations []string
	// PresetID defaults to preset.DefaultID.
	PresetID  string
	Overrides preset.Overrides
	// OutputPath defaults to <OutputDir>/<base>_processed<ext>.
	OutputPath string
	// SkipAnalysis disables scene analysis for this run.
	SkipAnalysis bool
}

// Result is the outcome of one run.
type Result struct {
	OutputPath string
	Report     *Report
	Duration   time.Duration
}

// Engine runs requests. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine, filling unset Config fields with defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.Presets == nil {
		cfg.Presets = preset.NewStore(nil)
	}
	if cfg.Toolchain.Prober == nil || cfg.Toolchain.Executor == nil {
		def := operation.DefaultToolchain()
		if cfg.Toolchain.Prober == nil {
			cfg.Toolchain.Prober = def.Prober
		}
		if cfg.Toolchain.Executor == nil {
			cfg.Toolchain.Executor = def.Executor
		}
	}
	if cfg.Sampler == nil {
		sampler := media.Sampler{MaxDimension: media.DefaultSampleDimension}
		if ff, ok := cfg.Toolchain.Executor.(media.FFmpeg); ok {
			sampler.FFmpeg = ff
		}
		cfg.Sampler = sampler
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = media.DefaultSampleCount
	}
	return &Engine{cfg: cfg}
}

// step is one validated operation with its report key.
type step struct {
	key string
	op  operation.Operation
}

// Process runs req. Operation failures are recorded in the report and
// never abort the run; only a missing input or unusable scratch space
// return an error. Cancelling ctx stops dispatch between operations but
// never interrupts a running transform.
func (e *Engine) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := log.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	if fi, err := os.Stat(req.InputFile); err != nil || fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, req.InputFile)
	}

	report := &Report{
		RunID:           runID,
		InputFile:       req.InputFile,
		PresetRequested: req.PresetID,
		StartedAt:       start.UTC(),
	}

	effective, fellBack := e.cfg.Presets.ResolvePreset(req.PresetID)
	if fellBack {
		report.warn(&logger, fmt.Sprintf("unknown preset %q, using %q", req.PresetID, effective))
	}
	report.Preset = effective

	steps := e.plan(req.Operations, report, &logger)

	scratch, err := os.MkdirTemp(e.cfg.ScratchDir, "postrender-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScratchSpace, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn().Err(err).Str("dir", scratch).Msg("Failed to remove scratch directory")
		}
	}()

	info, err := e.cfg.Toolchain.Prober.Probe(ctx, req.InputFile)
	if err != nil {
		logger.Warn().Err(err).Str("input", req.InputFile).Msg("Probe failed")
		info = &media.FileInfo{Path: req.InputFile, Error: err.Error()}
	}
	report.FileInfo = info

	logger.Info().
		Str("input", filepath.Base(req.InputFile)).
		Str("preset", effective).
		Strs("operations", req.Operations).
		Msg("Starting processing run")

	var sc *scene.Context
	if !req.SkipAnalysis && wantsContext(steps) {
		sc = e.analyze(ctx, req.InputFile, info, scratch)
		report.SceneAnalysis = sc
	}

	cursor := req.InputFile
	ext := filepath.Ext(req.InputFile)
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			report.warn(&logger, fmt.Sprintf("run cancelled before %s: %v", s.key, err))
			break
		}

		out := filepath.Join(scratch, fmt.Sprintf("%02d_%s%s", i+1, s.op.Name(), ext))
		params := e.cfg.Presets.Resolve(s.op.Name(), effective, req.Overrides)

		res := s.op.Apply(context.WithoutCancel(ctx), cursor, out, params, sc)
		report.Operations = append(report.Operations, OperationEntry{Key: s.key, Result: res})
		e.cfg.Metrics.ObserveOperation(s.op.Name(), string(res.Status), res.Duration)

		logger.Info().
			Str("operation", s.key).
			Str("status", string(res.Status)).
			Dur("duration", res.Duration).
			Msg("Operation finished")

		if res.AdvancesCursor() {
			cursor = out
		}
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = e.defaultOutputPath(req.InputFile)
	}
	if err := placeOutput(cursor, req.InputFile, outputPath); err != nil {
		logger.Error().Err(err).Str("output", outputPath).Msg("Failed to write output")
		report.warn(&logger, fmt.Sprintf("write output: %v", err))
		outputPath = ""
	}
	report.OutputPath = outputPath

	elapsed := time.Since(start)
	report.Duration = elapsed
	report.DurationSeconds = elapsed.Seconds()
	e.cfg.Metrics.ObserveRun(effective, elapsed, report.SceneAnalyzed())

	logger.Info().
		Str("output", outputPath).
		Int("operations", len(report.Operations)).
		Bool("cancelled", report.Cancelled).
		Dur("duration", elapsed).
		Msg("Processing run complete")

	return &Result{OutputPath: outputPath, Report: report, Duration: elapsed}, nil
}

// plan validates operation names in caller order. Unknown names are
// dropped with a warning; repeated names get a "#n" suffix in the report.
func (e *Engine) plan(names []string, report *Report, logger *zerolog.Logger) []step {
	seen := make(map[string]int)
	var steps []step
	for _, name := range names {
		name = strings.TrimSpace(name)
		op, ok := operation.New(name, e.cfg.Toolchain)
		if !ok {
			report.warn(logger, fmt.Sprintf("unknown operation %q skipped", name))
			continue
		}
		seen[name]++
		key := name
		if n := seen[name]; n > 1 {
			key = fmt.Sprintf("%s#%d", name, n)
		}
		steps = append(steps, step{key: key, op: op})
	}
	return steps
}

func wantsContext(steps []step) bool {
	for _, s := range steps {
		if s.op.UsesSceneContext() {
			return true
		}
	}
	return false
}

// analyze samples stills and asks the provider for a scene context. Any
// failure yields nil and the run continues without adjustments.
func (e *Engine) analyze(ctx context.Context, input string, info *media.FileInfo, scratch string) *scene.Context {
	logger := log.Ctx(ctx)
	if e.cfg.Provider == nil {
		return nil
	}
	if !info.HasVideo {
		logger.Debug().Msg("No video stream to sample, skipping scene analysis")
		return nil
	}

	dir := filepath.Join(scratch, "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn().Err(err).Msg("Cannot create frame directory, skipping scene analysis")
		return nil
	}
	frames, err := e.cfg.Sampler.Sample(ctx, input, info.Duration, e.cfg.SampleCount, dir)
	if err != nil {
		logger.Warn().Err(err).Msg("Frame sampling failed, continuing without scene context")
		return nil
	}

	start := time.Now()
	sc, err := e.cfg.Provider.Analyze(ctx, frames, input)
	if err != nil {
		logger.Warn().Err(err).Msg("Scene analysis failed, continuing without scene context")
		return nil
	}
	if !sc.Usable() {
		logger.Warn().Str("error", sc.Error).Msg("Scene analysis unusable, continuing without adjustments")
	} else {
		logger.Info().
			Str("noise", sc.NoiseLevel()).
			Str("camera_shake", sc.CameraShake()).
			Str("temperature", sc.ColorTemperature()).
			Dur("duration", time.Since(start)).
			Msg("Scene analysis complete")
	}
	return sc
}

func (e *Engine) defaultOutputPath(input string) string {
	dir := e.cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(dir, base+"_processed"+ext)
}

// placeOutput moves the final intermediate to dst, or copies the input
// when no operation produced one. A cursor already at dst is left in place.
func placeOutput(cursor, input, dst string) error {
	if media.SameFile(cursor, dst) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if cursor == input {
		return media.CopyFile(input, dst)
	}
	return media.MoveFile(cursor, dst)
}
