package main

import (
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/preset"
)

// ProcessEvent is the direct-invocation payload.
type ProcessEvent struct {
	// Input is an s3://, http(s):// or /tmp path reference.
	Input string `json:"input"`
	// Output is an s3:// key or prefix ending in "/". Default: the
	// processed/ prefix of the media bucket, or of the input's bucket.
	Output       string           `json:"output,omitempty"`
	Operations   []string         `json:"operations"`
	Preset       string           `json:"preset,omitempty"`
	Parameters   preset.Overrides `json:"parameters,omitempty"`
	SkipAnalysis bool             `json:"skip_analysis,omitempty"`
}

// ProcessResponse summarizes one run for the caller.
type ProcessResponse struct {
	RunID           string                      `json:"run_id"`
	Input           string                      `json:"input"`
	Output          string                      `json:"output,omitempty"`
	DownloadURL     string                      `json:"download_url,omitempty"`
	Report          string                      `json:"report,omitempty"`
	Preset          string                      `json:"preset"`
	Operations      map[string]operation.Status `json:"operations"`
	SceneAnalyzed   bool                        `json:"scene_analyzed"`
	Warnings        []string                    `json:"warnings,omitempty"`
	DurationSeconds float64                     `json:"duration_seconds"`
}

// BatchResponse is returned for S3 notifications, one entry per record.
type BatchResponse struct {
	Results []ProcessResponse `json:"results"`
	Errors  []string          `json:"errors,omitempty"`
}
