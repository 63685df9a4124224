package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

// ColorCorrect adjusts white balance, exposure, saturation and tone curves.
type ColorCorrect struct {
	tc Toolchain
}

func (*ColorCorrect) sealed() {}

// Name returns "color_correct".
func (*ColorCorrect) Name() string { return NameColorCorrect }

// UsesSceneContext is true: color temperature and cast drive the settings.
func (*ColorCorrect) UsesSceneContext() bool { return true }

// Apply color corrects in into out.
func (c *ColorCorrect) Apply(ctx context.Context, in, out string, params preset.Params, sc *scene.Context) Result {
	start := time.Now()
	res := Result{Operation: NameColorCorrect}

	if !c.tc.probeVideo(ctx, NameColorCorrect, in) {
		log.Ctx(ctx).Warn().Str("input", in).Msg("No video stream, skipping color correction")
		return finish(passThrough(res, in, out, StatusSkipped, ReasonNoVideoStream), start)
	}

	p := AdjustColor(colorFrom(params), sc)
	res.Parameters = params.Merge(p.params())

	log.Ctx(ctx).Info().
		Str("white_balance", p.WhiteBalance).
		Float64("saturation", p.Saturation).
		Float64("contrast", p.Contrast).
		Msg("Applying color correction")

	f := ColorFilter(p)
	if f == "" {
		return finish(passThrough(res, in, out, StatusSuccess, ""), start)
	}
	res.AppliedFilters = []string{f}
	return finish(c.tc.execute(ctx, res, in, out, media.Transform{Input: in, Output: out, VideoFilter: f}), start)
}
