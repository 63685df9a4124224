package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fpang/postrender/internal/cli"
	"github.com/fpang/postrender/internal/config"
	"github.com/fpang/postrender/internal/logging"
	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/metrics"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/pipeline"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
	"github.com/fpang/postrender/internal/storage"
)

var (
	opsFlag         string
	presetFlag      string
	paramFlags      []string
	overridesFile   string
	outputRef       string
	reportPath      string
	noAnalysis      bool
	metricsTextfile string
)

var processCmd = &cobra.Command{
	Use:   "process <input>",
	Short: "Run enhancement operations over a media file",
	Long: `Process runs the requested operations in order, each reading the previous
one's output. A failed operation is recorded and the run continues with its input.

The input and --output may be local paths, s3://bucket/key references, or
(input only) http(s) URLs. An --output ending in "/" is treated as a directory.

Operations: stabilize, denoise, artifact_removal, color_correct, or "all".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runProcess(args[0])
	},
}

func init() {
	processCmd.Flags().StringVar(&opsFlag, "ops", "all", "Comma-separated operations, run in the given order")
	processCmd.Flags().StringVarP(&presetFlag, "preset", "p", preset.DefaultID, "Preset id")
	processCmd.Flags().StringArrayVar(&paramFlags, "param", nil, "Parameter override operation.key=value (repeatable)")
	processCmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML or JSON file of per-operation overrides")
	processCmd.Flags().StringVarP(&outputRef, "output", "o", "", "Output path, directory/ or s3:// reference (default <input>_processed next to the input)")
	processCmd.Flags().StringVar(&reportPath, "report", "", "Write the processing report as JSON (.zst suffix compresses it)")
	processCmd.Flags().BoolVar(&noAnalysis, "no-analysis", false, "Skip AI scene analysis")
	processCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics for node_exporter's textfile collector")
	rootCmd.AddCommand(processCmd)
}

// loadOverrides merges the overrides file, if any, with --param assignments.
// Assignments win.
func loadOverrides(path string, assignments []string) (preset.Overrides, error) {
	overrides := preset.Overrides{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read overrides: %w", err)
		}
		// JSON is valid YAML, so one decoder serves both.
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("parse overrides %s: %w", path, err)
		}
		overrides = overrides.Normalize()
	}
	for _, a := range assignments {
		if err := overrides.ParseAssignment(a); err != nil {
			return nil, err
		}
	}
	return overrides, nil
}

// outputTarget decides where the engine writes and whether the result must
// then be stored remotely.
type outputTarget struct {
	outputDir  string
	outputPath string
	remote     string
}

func planOutput(ref string, cfg config.Config, inputIsLocal bool) (outputTarget, error) {
	t := outputTarget{outputDir: cfg.OutputDir}
	if ref == "" {
		if !inputIsLocal && t.outputDir == "" {
			t.outputDir = "."
		}
		return t, nil
	}

	loc, err := storage.ParseLocation(ref)
	if err != nil {
		return t, err
	}
	switch loc.Scheme {
	case storage.SchemeLocal:
		if storage.IsDir(ref) {
			t.outputDir = loc.Path
		} else {
			t.outputPath = loc.Path
		}
	case storage.SchemeS3:
		t.remote = ref
		t.outputDir = ""
	default:
		return t, fmt.Errorf("%w: cannot write to %s", storage.ErrUnsupportedScheme, loc.Scheme)
	}
	return t, nil
}

func runProcess(input string) {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ops, err := cli.ParseOperations(opsFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --ops")
	}
	overrides, err := loadOverrides(overridesFile, paramFlags)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid overrides")
	}

	inLoc, err := storage.ParseLocation(input)
	if err != nil {
		log.Fatal().Err(err).Str("input", input).Msg("Invalid input reference")
	}
	target, err := planOutput(outputRef, cfg, inLoc.Scheme == storage.SchemeLocal)
	if err != nil {
		log.Fatal().Err(err).Str("output", outputRef).Msg("Invalid output reference")
	}

	analysis := cfg.SceneAnalysis && !noAnalysis
	ffprobe, ffmpeg := cfg.Toolchain()
	logging.NewStartupLogger("postrender").
		Tool("ffmpeg", logging.EnvOrDefault(config.EnvFFmpeg, "ffmpeg")).
		Tool("ffprobe", logging.EnvOrDefault(config.EnvFFprobe, "ffprobe")).
		Feature("scene_analysis", analysis).
		Config("preset", presetFlag).
		Config("gemini_model", cfg.GeminiModel).
		Log()

	if err := ffmpeg.Check(); err != nil {
		log.Warn().Err(err).Msg("ffmpeg unavailable, operations will copy their input through")
	}
	if err := ffprobe.Check(); err != nil {
		log.Warn().Err(err).Msg("ffprobe unavailable, media type detection will fail")
	}

	resolver := newResolver(cfg, input, outputRef)
	localInput, cleanup, err := resolver.Fetch(ctx, input)
	if err != nil {
		log.Fatal().Err(err).Str("input", input).Msg("Failed to fetch input")
	}
	defer cleanup()
	if !media.IsSupported(localInput) {
		log.Warn().Str("input", input).Msg("Unrecognized file extension, relying on ffprobe to detect streams")
	}

	if target.remote != "" {
		dir, err := os.MkdirTemp(cfg.ScratchDir, "postrender-out-")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create staging directory")
		}
		defer os.RemoveAll(dir)
		target.outputDir = dir
	}

	var provider scene.Provider
	if analysis {
		provider = cli.InitSceneProvider(ctx, cfg.GeminiModel)
	}

	sink := metrics.NewPromSink()
	engine := pipeline.NewEngine(pipeline.Config{
		Presets:     newPresetStore(ctx, cfg),
		Toolchain:   operation.Toolchain{Prober: ffprobe, Executor: ffmpeg},
		Provider:    provider,
		Sampler:     media.Sampler{FFmpeg: ffmpeg, MaxDimension: media.DefaultSampleDimension},
		Metrics:     sink,
		ScratchDir:  cfg.ScratchDir,
		OutputDir:   target.outputDir,
		SampleCount: cfg.SampleCount,
	})

	res, err := engine.Process(ctx, pipeline.Request{
		InputFile:    localInput,
		Operations:   ops,
		PresetID:     presetFlag,
		Overrides:    overrides,
		OutputPath:   target.outputPath,
		SkipAnalysis: !analysis,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInputNotFound) {
			log.Fatal().Str("input", input).Msg("Input file not found")
		}
		log.Fatal().Err(err).Msg("Processing failed")
	}
	report := res.Report
	report.InputFile = input

	if target.remote != "" && res.OutputPath != "" {
		stored, err := resolver.Store(ctx, res.OutputPath, target.remote)
		if err != nil {
			log.Error().Err(err).Str("output", target.remote).Msg("Failed to store output")
			report.Warnings = append(report.Warnings, fmt.Sprintf("store output: %v", err))
			stored = ""
		}
		res.OutputPath = stored
		report.OutputPath = stored
	}

	if reportPath != "" {
		if err := pipeline.WriteReport(reportPath, report); err != nil {
			log.Error().Err(err).Str("path", reportPath).Msg("Failed to write report")
		} else {
			log.Info().Str("path", reportPath).Msg("Report written")
		}
	}
	if metricsTextfile != "" {
		if dir := filepath.Dir(metricsTextfile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Warn().Err(err).Msg("Failed to create metrics directory")
			}
		}
		if err := sink.WriteTextfile(metricsTextfile); err != nil {
			log.Warn().Err(err).Str("path", metricsTextfile).Msg("Failed to write metrics textfile")
		}
	}

	cli.PrintSummary(os.Stdout, report)
	if res.OutputPath == "" {
		log.Fatal().Msg("No output was produced")
	}
}
