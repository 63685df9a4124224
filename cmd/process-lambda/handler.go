package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/pipeline"
	"github.com/fpang/postrender/internal/storage"
)

const (
	// processedPrefix holds outputs; notifications for keys under it are ignored.
	processedPrefix = "processed/"

	downloadURLExpiry = time.Hour

	// envDefaultOperations lists the operations run for S3 notifications.
	envDefaultOperations = "POSTRENDER_DEFAULT_OPERATIONS"
)

var defaultOperations = []string{
	operation.NameStabilize,
	operation.NameDenoise,
	operation.NameColorCorrect,
}

func handler(ctx context.Context, raw json.RawMessage) (any, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "process-lambda").Msg("Cold start, first invocation")
	}

	var probe struct {
		Records []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && len(probe.Records) > 0 {
		var s3Event events.S3Event
		if err := json.Unmarshal(raw, &s3Event); err != nil {
			return nil, fmt.Errorf("decode S3 event: %w", err)
		}
		return handleS3Event(ctx, s3Event), nil
	}

	var event ProcessEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return processOne(ctx, event)
}

// handleS3Event processes every new object outside processedPrefix with the
// default operations. A failed record does not stop the batch.
func handleS3Event(ctx context.Context, e events.S3Event) BatchResponse {
	var out BatchResponse
	for _, record := range e.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		if strings.HasPrefix(key, processedPrefix) {
			log.Debug().Str("key", key).Msg("Skipping key: generated output")
			continue
		}
		if !media.IsSupported(key) {
			log.Debug().Str("key", key).Msg("Skipping key: not an audio or video file")
			continue
		}

		resp, err := processOne(ctx, ProcessEvent{
			Input:      "s3://" + bucket + "/" + key,
			Output:     "s3://" + bucket + "/" + processedPrefix,
			Operations: notificationOperations(),
		})
		if err != nil {
			log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to process object")
			out.Errors = append(out.Errors, fmt.Sprintf("%s/%s: %v", bucket, key, err))
			continue
		}
		out.Results = append(out.Results, *resp)
	}
	return out
}

func notificationOperations() []string {
	v := strings.TrimSpace(os.Getenv(envDefaultOperations))
	if v == "" {
		return defaultOperations
	}
	var ops []string
	for _, op := range strings.Split(v, ",") {
		if op = strings.TrimSpace(op); op != "" {
			ops = append(ops, op)
		}
	}
	return ops
}

// defaultOutput picks the processed/ prefix of the media bucket, falling
// back to the input's own bucket.
func defaultOutput(input, mediaBucket string) (string, error) {
	if mediaBucket != "" {
		return "s3://" + mediaBucket + "/" + processedPrefix, nil
	}
	loc, err := storage.ParseLocation(input)
	if err != nil {
		return "", err
	}
	if loc.Scheme != storage.SchemeS3 {
		return "", errors.New("output is required for non-S3 inputs when MEDIA_BUCKET_NAME is unset")
	}
	return "s3://" + loc.Bucket + "/" + processedPrefix, nil
}

// reportRef places the report next to the stored output.
func reportRef(outputRef string) string {
	ext := path.Ext(outputRef)
	return strings.TrimSuffix(outputRef, ext) + ".report.json.zst"
}

func processOne(ctx context.Context, event ProcessEvent) (*ProcessResponse, error) {
	if event.Input == "" {
		return nil, errors.New("input is required")
	}
	if len(event.Operations) == 0 {
		return nil, errors.New("operations is required")
	}
	output := event.Output
	if output == "" {
		var err error
		if output, err = defaultOutput(event.Input, cfg.MediaBucket); err != nil {
			return nil, err
		}
	}

	localInput, cleanup, err := resolver.Fetch(ctx, event.Input)
	if err != nil {
		return nil, fmt.Errorf("fetch input: %w", err)
	}
	defer cleanup()

	staging, err := os.MkdirTemp(cfg.ScratchDir, "postrender-out-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	res, err := engine.Process(ctx, pipeline.Request{
		InputFile:    localInput,
		Operations:   event.Operations,
		PresetID:     event.Preset,
		Overrides:    event.Parameters.Normalize(),
		OutputPath:   filepath.Join(staging, outputName(localInput)),
		SkipAnalysis: event.SkipAnalysis,
	})
	if err != nil {
		return nil, err
	}
	report := res.Report
	report.InputFile = event.Input

	resp := &ProcessResponse{
		RunID:           report.RunID,
		Input:           event.Input,
		Preset:          report.Preset,
		Operations:      make(map[string]operation.Status, len(report.Operations)),
		SceneAnalyzed:   report.SceneAnalyzed(),
		DurationSeconds: report.DurationSeconds,
	}
	for _, e := range report.Operations {
		resp.Operations[e.Key] = e.Result.Status
	}

	if res.OutputPath != "" {
		stored, err := resolver.Store(ctx, res.OutputPath, output)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("store output: %v", err))
		} else {
			resp.Output = stored
			report.OutputPath = stored
			if u, err := resolver.PresignedURL(ctx, stored, downloadURLExpiry); err == nil {
				resp.DownloadURL = u
			} else {
				log.Warn().Err(err).Str("output", stored).Msg("Failed to presign output")
			}
		}
	}

	if resp.Output != "" {
		local := filepath.Join(staging, "report.json.zst")
		if err := pipeline.WriteReport(local, report); err != nil {
			log.Warn().Err(err).Msg("Failed to write report")
		} else if ref, err := resolver.Store(ctx, local, reportRef(resp.Output)); err != nil {
			log.Warn().Err(err).Msg("Failed to store report")
		} else {
			resp.Report = ref
		}
	}
	resp.Warnings = report.Warnings

	log.Info().
		Str("runId", resp.RunID).
		Str("output", resp.Output).
		Int("warnings", len(resp.Warnings)).
		Float64("durationSeconds", resp.DurationSeconds).
		Msg("Run complete")

	if resp.Output == "" {
		return resp, errors.New("no output was produced")
	}
	return resp, nil
}

// outputName is <base>_processed<ext>.
func outputName(input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_processed" + ext
}
