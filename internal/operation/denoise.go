package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

// Denoise reduces video noise with spatial and temporal filters, or audio
// noise with an FFT denoiser when the input has no video.
type Denoise struct {
	tc Toolchain
}

func (*Denoise) sealed() {}

// Name returns "denoise".
func (*Denoise) Name() string { return NameDenoise }

// UsesSceneContext is true: noise level drives strength.
func (*Denoise) UsesSceneContext() bool { return true }

// Apply denoises in into out.
func (d *Denoise) Apply(ctx context.Context, in, out string, params preset.Params, sc *scene.Context) Result {
	start := time.Now()
	res := Result{Operation: NameDenoise}

	info, err := d.tc.Prober.Probe(ctx, in)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Probe failed, media type unknown")
	}
	mediaType := "unknown"
	switch {
	case info != nil && info.HasVideo:
		mediaType = "video"
	case info != nil && info.HasAudio:
		mediaType = "audio"
	}
	if mediaType == "unknown" {
		log.Ctx(ctx).Warn().Str("input", in).Msg("Unknown media type, copying without denoising")
		return finish(passThrough(res, in, out, StatusSkipped, ReasonUnknownMediaType), start)
	}

	p := AdjustDenoise(denoiseFrom(params), sc)
	res.Parameters = params.Merge(p.params())
	res.Details = map[string]any{"media_type": mediaType}

	var t media.Transform
	if mediaType == "video" {
		spatial, temporal := DenoiseStrengths(p.Strength)
		res.Details["spatial_strength"] = spatial
		res.Details["temporal_strength"] = temporal
		t = media.Transform{Input: in, Output: out, VideoFilter: DenoiseVideoFilter(p)}
	} else {
		res.Details["noise_reduction"] = AudioNoiseReduction(p.Strength)
		t = media.Transform{Input: in, Output: out, AudioFilter: DenoiseAudioFilter(p)}
	}

	log.Ctx(ctx).Info().
		Str("media_type", mediaType).
		Float64("strength", p.Strength).
		Bool("preserve_details", p.PreserveDetails).
		Bool("temporal", p.Temporal).
		Msg("Applying denoise")

	if t.VideoFilter == "" && t.AudioFilter == "" {
		return finish(passThrough(res, in, out, StatusSuccess, ""), start)
	}
	res.AppliedFilters = []string{t.VideoFilter + t.AudioFilter}
	return finish(d.tc.execute(ctx, res, in, out, t), start)
}
