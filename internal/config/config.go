// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/scene"
)

// Environment variables.
const (
	EnvFFmpeg           = "POSTRENDER_FFMPEG"
	EnvFFprobe          = "POSTRENDER_FFPROBE"
	EnvScratchDir       = "POSTRENDER_SCRATCH_DIR"
	EnvOutputDir        = "POSTRENDER_OUTPUT_DIR"
	EnvPresetsFile      = "POSTRENDER_PRESETS_FILE"
	EnvPresetsTable     = "PRESETS_TABLE_NAME"
	EnvSampleCount      = "POSTRENDER_SAMPLE_COUNT"
	EnvAnalysis         = "POSTRENDER_SCENE_ANALYSIS"
	EnvMetricsNamespace = "POSTRENDER_METRICS_NAMESPACE"
	EnvMediaBucket      = "MEDIA_BUCKET_NAME"
)

// DefaultMetricsNamespace is the CloudWatch namespace for EMF metrics.
const DefaultMetricsNamespace = "PostRender"

// Config holds settings shared by the CLI and the Lambda handler.
type Config struct {
	FFmpegPath  string
	FFprobePath string

	// ScratchDir is the parent of per-run scratch directories; empty means os.TempDir().
	ScratchDir string
	// OutputDir receives outputs when no explicit path is given; empty means next to the input.
	OutputDir string

	// PresetsFile is a YAML file of custom presets.
	PresetsFile string
	// PresetsTable is a DynamoDB table of custom presets. Takes precedence over PresetsFile.
	PresetsTable string

	GeminiModel   string
	SceneAnalysis bool
	SampleCount   int

	MetricsNamespace string
	MediaBucket      string
}

// Load reads configuration from the environment after applying envFiles
// (".env" when none are given). Missing env files are ignored; variables
// already set in the environment win over file values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
		log.Debug().Str("file", f).Msg("Environment file loaded")
	}

	cfg := Config{
		FFmpegPath:       os.Getenv(EnvFFmpeg),
		FFprobePath:      os.Getenv(EnvFFprobe),
		ScratchDir:       os.Getenv(EnvScratchDir),
		OutputDir:        os.Getenv(EnvOutputDir),
		PresetsFile:      os.Getenv(EnvPresetsFile),
		PresetsTable:     os.Getenv(EnvPresetsTable),
		GeminiModel:      scene.GetModelName(),
		SceneAnalysis:    true,
		SampleCount:      media.DefaultSampleCount,
		MetricsNamespace: DefaultMetricsNamespace,
		MediaBucket:      os.Getenv(EnvMediaBucket),
	}
	if ns := os.Getenv(EnvMetricsNamespace); ns != "" {
		cfg.MetricsNamespace = ns
	}

	if v := strings.TrimSpace(os.Getenv(EnvAnalysis)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s=%q: %w", EnvAnalysis, v, err)
		}
		cfg.SceneAnalysis = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvSampleCount)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s=%q: want a positive integer", EnvSampleCount, v)
		}
		cfg.SampleCount = n
	}
	return cfg, nil
}

// Toolchain returns the ffprobe and ffmpeg wrappers for the configured paths.
func (c Config) Toolchain() (media.FFprobe, media.FFmpeg) {
	return media.FFprobe{Path: c.FFprobePath}, media.FFmpeg{Path: c.FFmpegPath}
}
