// Package main provides the Lambda entry point for adaptive post-processing.
//
// The function accepts either a direct invocation (ProcessEvent) or an S3
// ObjectCreated notification. For each input it:
//
//  1. Downloads the object into /tmp
//  2. Runs the requested operations through the pipeline engine
//  3. Uploads the output and a zstd-compressed JSON report next to it
//  4. Returns the output location, a presigned download URL and per-operation statuses
//
// Container: Heavy (ffmpeg needed for every operation)
// Memory: 2 GB
// Timeout: 15 minutes
package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/auth"
	"github.com/fpang/postrender/internal/config"
	"github.com/fpang/postrender/internal/lambdaboot"
	"github.com/fpang/postrender/internal/logging"
	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/metrics"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/pipeline"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
	"github.com/fpang/postrender/internal/storage"
)

var coldStart = true

// Clients and settings initialized at cold start.
var (
	cfg      config.Config
	resolver *storage.Resolver
	engine   *pipeline.Engine
)

func init() {
	initStart := time.Now()
	logging.Init()

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}

	awsClients := lambdaboot.InitAWS()
	resolver = lambdaboot.InitStorage(awsClients.Config, cfg.ScratchDir)

	var repo preset.Repository
	if table := lambdaboot.InitPresetTable(awsClients.Config, cfg.PresetsTable); table != nil {
		repo = table
	}
	presets := preset.NewStore(repo)
	if err := presets.LoadCustom(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to load custom presets, serving built-ins only")
	}

	var provider scene.Provider
	if cfg.SceneAnalysis {
		provider = initProvider(context.Background(), awsClients)
	}

	ffprobe, ffmpeg := cfg.Toolchain()
	engine = pipeline.NewEngine(pipeline.Config{
		Presets:     presets,
		Toolchain:   operation.Toolchain{Prober: ffprobe, Executor: ffmpeg},
		Provider:    provider,
		Sampler:     media.Sampler{FFmpeg: ffmpeg, MaxDimension: media.DefaultSampleDimension},
		Metrics:     &metrics.EMFSink{Namespace: cfg.MetricsNamespace},
		ScratchDir:  cfg.ScratchDir,
		SampleCount: cfg.SampleCount,
	})

	lambdaboot.StartupLog("process-lambda", initStart).
		S3Bucket("mediaBucket", cfg.MediaBucket).
		DynamoTable("presets", cfg.PresetsTable).
		SSMParam("geminiApiKey", logging.EnvOrDefault(lambdaboot.EnvAPIKeyParam, lambdaboot.DefaultAPIKeyParam)).
		Tool("ffmpeg", logging.EnvOrDefault(config.EnvFFmpeg, "ffmpeg")).
		Feature("sceneAnalysis", provider != nil).
		Config("metricsNamespace", cfg.MetricsNamespace).
		Log()
}

// initProvider loads the Gemini key from SSM and builds the scene provider.
// Any failure disables analysis for the container's lifetime.
func initProvider(ctx context.Context, aws lambdaboot.AWSClients) scene.Provider {
	if err := lambdaboot.LoadGeminiKey(ctx, aws.SSM); err != nil {
		log.Warn().Err(err).Msg("Gemini key unavailable, scene analysis disabled")
		return nil
	}
	client, err := scene.NewGeminiClient(ctx, os.Getenv(auth.EnvAPIKey))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Gemini client, scene analysis disabled")
		return nil
	}
	return scene.NewGeminiProvider(client, cfg.GeminiModel)
}

func main() {
	lambda.Start(handler)
}
