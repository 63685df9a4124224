package operation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Filter scale factors from normalized strengths to native filter ranges.
const (
	denoiseSpatialScale  = 10
	denoiseTemporalScale = 7
	audioReductionScale  = 0.3

	shakinessScale = 10
	smoothingScale = 100
	edgeScale      = 100

	debandThresholdScale = 4
	debandRangeScale     = 15
	moireRadiusScale     = 2
)

// compressionDeblock is the fixed deblocking chain for compression
// artifacts. Strength does not feed into it.
const compressionDeblock = "pp=hb/vb/dr"

// formatFloat renders v with at most prec decimals and no trailing zeros.
func formatFloat(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// escapeFilterValue escapes characters with special meaning inside an
// ffmpeg filter option value.
func escapeFilterValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`).Replace(v)
}

// DenoiseStrengths returns the spatial (0–10) and temporal (0–7) filter strengths.
func DenoiseStrengths(strength float64) (spatial, temporal int) {
	return scaled(strength, denoiseSpatialScale), scaled(strength, denoiseTemporalScale)
}

// DenoiseVideoFilter builds the video denoise graph. An empty string means
// there is nothing to apply.
func DenoiseVideoFilter(p DenoiseParams) string {
	spatial, temporal := DenoiseStrengths(p.Strength)

	var chain []string
	if p.Temporal && temporal > 0 {
		chain = append(chain, fmt.Sprintf("hqdn3d=luma_spatial=0:chroma_spatial=0:luma_tmp=%d:chroma_tmp=%d", temporal, temporal))
	}
	if spatial > 0 {
		if p.PreserveDetails {
			chain = append(chain, fmt.Sprintf("nlmeans=s=%d:p=5:r=7", spatial))
		} else {
			chain = append(chain, fmt.Sprintf("hqdn3d=luma_spatial=%d:chroma_spatial=%d", spatial*4, spatial*3))
		}
	}
	return strings.Join(chain, ",")
}

// AudioNoiseReduction maps strength onto the 0–0.3 audio reduction scale.
func AudioNoiseReduction(strength float64) float64 {
	return strength * audioReductionScale
}

// DenoiseAudioFilter builds the audio denoise graph, or "" at zero strength.
func DenoiseAudioFilter(p DenoiseParams) string {
	nr := AudioNoiseReduction(p.Strength)
	if nr <= 0 {
		return ""
	}
	return fmt.Sprintf("afftdn=noise_reduction=%.3f", nr)
}

// VidstabSettings are the derived vidstab pass settings.
type VidstabSettings struct {
	Shakiness int
	Accuracy  int
	Smoothing int
	Zoom      float64
}

// Vidstab derives detection and transform settings from p.
func Vidstab(p StabilizeParams) VidstabSettings {
	accuracy := 10
	if p.Strength > 0.8 {
		accuracy = 15
	}
	return VidstabSettings{
		Shakiness: clampInt(scaled(p.Strength, shakinessScale), 1, 10),
		Accuracy:  accuracy,
		Smoothing: clampInt(scaled(p.Strength, smoothingScale), 1, 100),
		Zoom:      1 + p.CropMargin,
	}
}

// VidstabDetectFilter builds the analysis pass writing motion data to trf.
func VidstabDetectFilter(s VidstabSettings, trf string) string {
	return fmt.Sprintf("vidstabdetect=shakiness=%d:accuracy=%d:result=%s", s.Shakiness, s.Accuracy, escapeFilterValue(trf))
}

// VidstabTransformFilter builds the smoothing pass reading motion data from trf.
func VidstabTransformFilter(s VidstabSettings, trf string) string {
	return fmt.Sprintf("vidstabtransform=input=%s:smoothing=%d:optzoom=1:zoom=%s,unsharp=5:5:0.5",
		escapeFilterValue(trf), s.Smoothing, formatFloat(s.Zoom, 4))
}

// DeshakeEdge maps crop margin to the deshake search range in percent-like
// pixels, capped at the filter maximum of 64.
func DeshakeEdge(cropMargin float64) int {
	return clampInt(scaled(cropMargin, edgeScale), 0, 64)
}

// DeshakeFilter builds the single-pass deshake graph.
func DeshakeFilter(edge int) string {
	return fmt.Sprintf("deshake=rx=%d:ry=%d", edge, edge)
}

// parseKelvin parses "<N>K" white balance values.
func parseKelvin(wb string) (int, bool) {
	s := strings.TrimSpace(wb)
	if !strings.HasSuffix(strings.ToUpper(s), "K") {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return clampInt(n, 1000, 40000), true
}

// CurvePoints returns the curves point list for highlight/shadow adjustment,
// or "" when both are zero. The curve is always pinned at 0/0, 0.5/0.5 and
// 1/1; shadows move the point at x=0.3 and highlights the point at x=0.7.
func CurvePoints(highlights, shadows float64) string {
	if highlights == 0 && shadows == 0 {
		return ""
	}
	points := []string{"0/0"}
	if shadows != 0 {
		y := clamp(0.15+shadows*0.15, 0, 0.3)
		points = append(points, fmt.Sprintf("0.3/%.3f", y))
	}
	points = append(points, "0.5/0.5")
	if highlights != 0 {
		y := clamp(0.85+highlights*0.15, 0.7, 1)
		points = append(points, fmt.Sprintf("0.7/%.3f", y))
	}
	points = append(points, "1/1")
	return strings.Join(points, " ")
}

// ColorFilter builds the color correction graph, or "" when every setting
// is neutral.
func ColorFilter(p ColorParams) string {
	var chain []string

	if k, ok := parseKelvin(p.WhiteBalance); ok {
		chain = append(chain, fmt.Sprintf("colortemperature=temperature=%d", k))
	}

	var eq []string
	if p.Brightness != 1 {
		eq = append(eq, fmt.Sprintf("brightness=%.3f", (p.Brightness-1)*0.5))
	}
	if p.Contrast != 1 {
		eq = append(eq, fmt.Sprintf("contrast=%.3f", p.Contrast))
	}
	if p.Saturation != 1 {
		eq = append(eq, fmt.Sprintf("saturation=%.3f", p.Saturation))
	}
	if p.Gamma != 1 {
		eq = append(eq, fmt.Sprintf("gamma=%.3f", p.Gamma))
	}
	if len(eq) > 0 {
		chain = append(chain, "eq="+strings.Join(eq, ":"))
	}

	if curves := CurvePoints(p.Highlights, p.Shadows); curves != "" {
		chain = append(chain, fmt.Sprintf("curves=all='%s'", curves))
	}
	return strings.Join(chain, ",")
}

// DebandSettings returns the deband threshold (1–5) and range (1–16).
func DebandSettings(strength float64) (threshold, rangeVal int) {
	return scaled(strength, debandThresholdScale) + 1, scaled(strength, debandRangeScale) + 1
}

// debandPlaneThreshold converts a 1–5 threshold level into deband's
// per-plane threshold, where the filter default of 0.02 is level 2.
func debandPlaneThreshold(level int) string {
	return fmt.Sprintf("%.2f", float64(level)*0.01)
}

// ArtifactFilter builds the artifact removal graph, or "" when nothing is enabled.
func ArtifactFilter(p ArtifactParams) string {
	var chain []string
	if p.Compression {
		chain = append(chain, compressionDeblock)
	}
	if p.Banding {
		threshold, rangeVal := DebandSettings(p.Strength)
		thr := debandPlaneThreshold(threshold)
		chain = append(chain, fmt.Sprintf("deband=1thr=%s:2thr=%s:3thr=%s:range=%d", thr, thr, thr, rangeVal))
	}
	if p.Moire {
		radius := math.Max(0.1, p.Strength*moireRadiusScale)
		chain = append(chain, fmt.Sprintf("smartblur=lr=%.1f:ls=-0.5:lt=8.0:cr=%.1f:cs=0.0:ct=0.0", radius, math.Max(0.1, radius/2)))
	}
	if p.RollingShutter {
		chain = append(chain, "dejudder=cycle=2")
	}
	return strings.Join(chain, ",")
}
