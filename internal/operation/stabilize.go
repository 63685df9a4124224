package operation

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

// Stabilize removes camera shake with a two-pass vidstab run or a single
// deshake pass.
type Stabilize struct {
	tc Toolchain
}

func (*Stabilize) sealed() {}

// Name returns "stabilize".
func (*Stabilize) Name() string { return NameStabilize }

// UsesSceneContext is false: stabilization adapts to a context when one
// exists but does not justify an analysis pass on its own.
func (*Stabilize) UsesSceneContext() bool { return false }

// Apply stabilizes in into out. The vidstab motion file is written next to
// out and removed afterwards.
func (s *Stabilize) Apply(ctx context.Context, in, out string, params preset.Params, sc *scene.Context) Result {
	start := time.Now()
	res := Result{Operation: NameStabilize}

	if !s.tc.probeVideo(ctx, NameStabilize, in) {
		log.Ctx(ctx).Warn().Str("input", in).Msg("No video stream, skipping stabilization")
		return finish(passThrough(res, in, out, StatusSkipped, ReasonNoVideoStream), start)
	}

	p := AdjustStabilize(stabilizeFrom(params), sc)
	res.Parameters = params.Merge(p.params())

	log.Ctx(ctx).Info().
		Str("method", p.Method).
		Float64("strength", p.Strength).
		Float64("crop_margin", p.CropMargin).
		Msg("Applying stabilization")

	if p.Strength == 0 {
		return finish(passThrough(res, in, out, StatusSuccess, ""), start)
	}

	if p.Method == MethodDeshake {
		edge := DeshakeEdge(p.CropMargin)
		res.Details = map[string]any{"edge": edge}
		f := DeshakeFilter(edge)
		res.AppliedFilters = []string{f}
		return finish(s.tc.execute(ctx, res, in, out, media.Transform{Input: in, Output: out, VideoFilter: f}), start)
	}

	v := Vidstab(p)
	res.Details = map[string]any{
		"shakiness": v.Shakiness,
		"accuracy":  v.Accuracy,
		"smoothing": v.Smoothing,
		"zoom":      v.Zoom,
	}
	trf := out + ".trf"
	defer os.Remove(trf)

	detect := VidstabDetectFilter(v, trf)
	transform := VidstabTransformFilter(v, trf)
	res.AppliedFilters = []string{detect, transform}
	return finish(s.tc.execute(ctx, res, in, out,
		media.Transform{Input: in, Output: out, VideoFilter: detect, Analyze: true},
		media.Transform{Input: in, Output: out, VideoFilter: transform},
	), start)
}
