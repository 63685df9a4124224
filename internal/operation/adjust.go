package operation

import (
	"math"

	"github.com/fpang/postrender/internal/scene"
)

// Adjustment factors applied from scene signals.
const (
	denoiseHighFactor   = 1.5
	denoiseLowFactor    = 0.7
	stabilizeHighFactor = 1.3
	stabilizeLowFactor  = 0.7
	cropHighFactor      = 1.2
	saturationBoost     = 1.2
	saturationCut       = 0.8
)

// Daylight and tungsten balance used to neutralise warm and cool scenes.
const (
	whiteBalanceForWarm = "5600K"
	whiteBalanceForCool = "3200K"
)

// AdjustDenoise scales strength by the detected noise level.
func AdjustDenoise(p DenoiseParams, sc *scene.Context) DenoiseParams {
	switch sc.NoiseLevel() {
	case "high":
		p.Strength = math.Min(1, p.Strength*denoiseHighFactor)
	case "low":
		p.Strength = math.Max(minAdjusted, p.Strength*denoiseLowFactor)
	}
	return p
}

// AdjustStabilize scales strength and crop margin by detected camera shake.
func AdjustStabilize(p StabilizeParams, sc *scene.Context) StabilizeParams {
	switch sc.CameraShake() {
	case "high":
		p.Strength = math.Min(1, p.Strength*stabilizeHighFactor)
		p.CropMargin = math.Min(maxCropMargin, p.CropMargin*cropHighFactor)
	case "low":
		p.Strength = math.Max(minAdjusted, p.Strength*stabilizeLowFactor)
	}
	return p
}

// AdjustColor picks a compensating white balance when it is automatic and
// nudges saturation toward neutral for desaturated or oversaturated scenes.
func AdjustColor(p ColorParams, sc *scene.Context) ColorParams {
	if p.WhiteBalance == WhiteBalanceAuto {
		switch sc.ColorTemperature() {
		case "warm":
			p.WhiteBalance = whiteBalanceForWarm
		case "cool":
			p.WhiteBalance = whiteBalanceForCool
		}
	}
	switch sc.ColorCast() {
	case "desaturated":
		p.Saturation = math.Max(p.Saturation, p.Saturation*saturationBoost)
	case "oversaturated":
		p.Saturation = math.Min(p.Saturation, p.Saturation*saturationCut)
	}
	p.Saturation = clamp(p.Saturation, 0, 3)
	return p
}

// AdjustArtifacts enables removal for every artifact type the scene reports.
func AdjustArtifacts(p ArtifactParams, sc *scene.Context) ArtifactParams {
	for _, a := range sc.Artifacts() {
		switch a {
		case "compression":
			p.Compression = true
		case "banding":
			p.Banding = true
		case "moire":
			p.Moire = true
		case "rolling_shutter":
			p.RollingShutter = true
		}
	}
	return p
}
