package operation

import (
	"math"

	"github.com/fpang/postrender/internal/preset"
)

// DenoiseParams are the resolved denoise settings.
type DenoiseParams struct {
	Strength        float64
	PreserveDetails bool
	Temporal        bool
}

// StabilizeParams are the resolved stabilization settings.
type StabilizeParams struct {
	Strength   float64
	CropMargin float64
	Method     string
}

// ColorParams are the resolved color correction settings.
type ColorParams struct {
	WhiteBalance string
	Saturation   float64
	Contrast     float64
	Brightness   float64
	Gamma        float64
	Highlights   float64
	Shadows      float64
}

// ArtifactParams are the resolved artifact removal settings.
type ArtifactParams struct {
	Compression    bool
	Banding        bool
	Moire          bool
	RollingShutter bool
	Strength       float64
}

// Stabilization methods.
const (
	MethodVidstab = "vidstab"
	MethodDeshake = "deshake"
)

// White balance modes besides an explicit "<N>K" temperature.
const (
	WhiteBalanceAuto = "auto"
	WhiteBalanceNone = "none"
)

// Parameter bounds.
const (
	maxCropMargin = 0.25
	minAdjusted   = 0.1
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// scaled maps a normalized value onto an integer filter scale, truncating
// toward zero. The epsilon absorbs binary error such as 0.29*100 = 28.999….
func scaled(v, factor float64) int {
	return int(math.Floor(v*factor + 1e-9))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func denoiseFrom(p preset.Params) DenoiseParams {
	return DenoiseParams{
		Strength:        clamp(p.Float("strength", 0.5), 0, 1),
		PreserveDetails: p.Bool("preserve_details", true),
		Temporal:        p.Bool("temporal", true),
	}
}

func (d DenoiseParams) params() preset.Params {
	return preset.Params{
		"strength":         d.Strength,
		"preserve_details": d.PreserveDetails,
		"temporal":         d.Temporal,
	}
}

func stabilizeFrom(p preset.Params) StabilizeParams {
	method := p.String("method", MethodVidstab)
	if method != MethodDeshake {
		method = MethodVidstab
	}
	return StabilizeParams{
		Strength:   clamp(p.Float("strength", 0.5), 0, 1),
		CropMargin: clamp(p.Float("crop_margin", 0.1), 0, maxCropMargin),
		Method:     method,
	}
}

func (s StabilizeParams) params() preset.Params {
	return preset.Params{
		"strength":    s.Strength,
		"crop_margin": s.CropMargin,
		"method":      s.Method,
	}
}

func colorFrom(p preset.Params) ColorParams {
	return ColorParams{
		WhiteBalance: p.String("white_balance", WhiteBalanceAuto),
		Saturation:   clamp(p.Float("saturation", 1), 0, 3),
		Contrast:     clamp(p.Float("contrast", 1), 0, 3),
		Brightness:   clamp(p.Float("brightness", 1), 0, 2),
		Gamma:        clamp(p.Float("gamma", 1), 0.1, 10),
		Highlights:   clamp(p.Float("highlights", 0), -1, 1),
		Shadows:      clamp(p.Float("shadows", 0), -1, 1),
	}
}

func (c ColorParams) params() preset.Params {
	return preset.Params{
		"white_balance": c.WhiteBalance,
		"saturation":    c.Saturation,
		"contrast":      c.Contrast,
		"brightness":    c.Brightness,
		"gamma":         c.Gamma,
		"highlights":    c.Highlights,
		"shadows":       c.Shadows,
	}
}

func artifactsFrom(p preset.Params) ArtifactParams {
	return ArtifactParams{
		Compression:    p.Bool("compression", true),
		Banding:        p.Bool("banding", false),
		Moire:          p.Bool("moire", false),
		RollingShutter: p.Bool("rolling_shutter", false),
		Strength:       clamp(p.Float("strength", 0.5), 0, 1),
	}
}

func (a ArtifactParams) params() preset.Params {
	return preset.Params{
		"compression":     a.Compression,
		"banding":         a.Banding,
		"moire":           a.Moire,
		"rolling_shutter": a.RollingShutter,
		"strength":        a.Strength,
	}
}
