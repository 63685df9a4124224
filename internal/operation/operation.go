// Package operation implements the closed set of enhancement operations.
// Each operation probes its input, resolves defaults, adapts parameters to
// the scene context, builds an ffmpeg filter graph and runs it, falling
// back to a pass-through copy when the transform fails.
package operation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

// Operation names.
const (
	NameDenoise         = "denoise"
	NameStabilize       = "stabilize"
	NameColorCorrect    = "color_correct"
	NameArtifactRemoval = "artifact_removal"
)

// Status is the outcome of one operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	// StatusError means the transform failed and the input was copied through.
	StatusError Status = "error"
	// StatusFailed means the transform and the fallback copy both failed.
	StatusFailed Status = "failed"
)

// Skip reasons.
const (
	ReasonNoVideoStream    = "no_video_stream"
	ReasonUnknownMediaType = "unknown_media_type"
)

// FallbackCopy marks a result whose output is a copy of its input.
const FallbackCopy = "copy"

// Result describes what an operation did. It is built once by Apply.
type Result struct {
	Operation      string         `json:"operation"`
	Status         Status         `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	Parameters     preset.Params  `json:"parameters,omitempty"`
	AppliedFilters []string       `json:"applied_filters,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	Error          string         `json:"error,omitempty"`
	Fallback       string         `json:"fallback,omitempty"`
	Duration       time.Duration  `json:"-"`
	DurationMS     int64          `json:"duration_ms"`
}

// AdvancesCursor reports whether the operation produced a usable output file.
func (r Result) AdvancesCursor() bool {
	return r.Status != StatusFailed
}

// Operation is one enhancement step. The set of implementations is closed.
type Operation interface {
	Name() string
	// UsesSceneContext reports whether requesting this operation warrants a
	// scene analysis pass.
	UsesSceneContext() bool
	Apply(ctx context.Context, in, out string, params preset.Params, sc *scene.Context) Result

	sealed()
}

// Toolchain bundles the external tools an operation drives.
type Toolchain struct {
	Prober   media.Prober
	Executor media.Executor
}

// DefaultToolchain uses ffprobe and ffmpeg from PATH.
func DefaultToolchain() Toolchain {
	return Toolchain{Prober: media.FFprobe{}, Executor: media.FFmpeg{}}
}

var constructors = map[string]func(Toolchain) Operation{
	NameDenoise:         func(tc Toolchain) Operation { return &Denoise{tc: tc} },
	NameStabilize:       func(tc Toolchain) Operation { return &Stabilize{tc: tc} },
	NameColorCorrect:    func(tc Toolchain) Operation { return &ColorCorrect{tc: tc} },
	NameArtifactRemoval: func(tc Toolchain) Operation { return &ArtifactRemoval{tc: tc} },
}

// New returns the operation registered under name.
func New(name string, tc Toolchain) (Operation, bool) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, false
	}
	return ctor(tc), true
}

// Names returns the known operation names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// probeVideo reports whether in has a video stream. A probe failure counts
// as no video stream.
func (tc Toolchain) probeVideo(ctx context.Context, name, in string) bool {
	info, err := tc.Prober.Probe(ctx, in)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("operation", name).Msg("Probe failed, treating input as having no video")
		return false
	}
	return info.HasVideo
}

// execute runs each transform in order. The first failure triggers the
// pass-through fallback.
func (tc Toolchain) execute(ctx context.Context, res Result, in, out string, transforms ...media.Transform) Result {
	for _, t := range transforms {
		if err := tc.Executor.Run(ctx, t); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("operation", res.Operation).Msg("Transform failed, copying input through")
			return fallback(res, in, out, err)
		}
	}
	res.Status = StatusSuccess
	return res
}

// fallback copies in to out after a transform failure.
func fallback(res Result, in, out string, cause error) Result {
	res.Error = cause.Error()
	if err := media.CopyFile(in, out); err != nil {
		res.Status = StatusFailed
		res.Error = fmt.Sprintf("%v; fallback copy failed: %v", cause, err)
		return res
	}
	res.Status = StatusError
	res.Fallback = FallbackCopy
	return res
}

// passThrough copies in to out and reports status. A failed copy is fatal.
func passThrough(res Result, in, out string, status Status, reason string) Result {
	res.Status = status
	res.Reason = reason
	if err := media.CopyFile(in, out); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
	}
	return res
}

// finish stamps the elapsed time on a result.
func finish(res Result, start time.Time) Result {
	res.Duration = time.Since(start)
	res.DurationMS = res.Duration.Milliseconds()
	return res
}
