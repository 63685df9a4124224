package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/preset"
	"github.com/fpang/postrender/internal/scene"
)

// ArtifactRemoval removes compression blocking, banding, moire and
// rolling-shutter judder.
type ArtifactRemoval struct {
	tc Toolchain
}

func (*ArtifactRemoval) sealed() {}

// Name returns "artifact_removal".
func (*ArtifactRemoval) Name() string { return NameArtifactRemoval }

// UsesSceneContext is false; detected artifacts are honoured when a
// context exists.
func (*ArtifactRemoval) UsesSceneContext() bool { return false }

// Apply removes artifacts from in into out.
func (a *ArtifactRemoval) Apply(ctx context.Context, in, out string, params preset.Params, sc *scene.Context) Result {
	start := time.Now()
	res := Result{Operation: NameArtifactRemoval}

	if !a.tc.probeVideo(ctx, NameArtifactRemoval, in) {
		log.Ctx(ctx).Warn().Str("input", in).Msg("No video stream, skipping artifact removal")
		return finish(passThrough(res, in, out, StatusSkipped, ReasonNoVideoStream), start)
	}

	p := AdjustArtifacts(artifactsFrom(params), sc)
	res.Parameters = params.Merge(p.params())
	if p.Banding {
		threshold, rangeVal := DebandSettings(p.Strength)
		res.Details = map[string]any{"deband_threshold": threshold, "deband_range": rangeVal}
	}

	log.Ctx(ctx).Info().
		Bool("compression", p.Compression).
		Bool("banding", p.Banding).
		Bool("moire", p.Moire).
		Bool("rolling_shutter", p.RollingShutter).
		Msg("Applying artifact removal")

	f := ArtifactFilter(p)
	if f == "" {
		return finish(passThrough(res, in, out, StatusSuccess, ""), start)
	}
	res.AppliedFilters = []string{f}
	return finish(a.tc.execute(ctx, res, in, out, media.Transform{Input: in, Output: out, VideoFilter: f}), start)
}
