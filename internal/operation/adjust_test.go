package operation

import (
	"testing"

	"github.com/fpang/postrender/internal/scene"
)

func TestAdjustDenoise(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		strength float64
		want     float64
	}{
		{"high scales up", "high", 0.5, 0.75},
		{"high capped", "high", 0.9, 1.0},
		{"low scales down", "low", 0.5, 0.35},
		{"low floored", "low", 0.1, 0.1},
		{"medium unchanged", "medium", 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := sceneWith(map[string]any{"noise_assessment": map[string]any{"level": tt.level}})
			got := AdjustDenoise(DenoiseParams{Strength: tt.strength}, sc).Strength
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Strength = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdjust_NilContextIsIdentity(t *testing.T) {
	d := DenoiseParams{Strength: 0.4, PreserveDetails: true}
	if got := AdjustDenoise(d, nil); got != d {
		t.Errorf("AdjustDenoise(nil) = %+v, want %+v", got, d)
	}
	errCtx := &scene.Context{Error: "No structured data found"}
	c := ColorParams{WhiteBalance: "auto", Saturation: 1}
	if got := AdjustColor(c, errCtx); got != c {
		t.Errorf("AdjustColor(error ctx) = %+v, want %+v", got, c)
	}
}

func TestAdjustStabilize_Clamps(t *testing.T) {
	sc := sceneWith(map[string]any{"motion_assessment": map[string]any{"camera_shake": "high"}})
	got := AdjustStabilize(StabilizeParams{Strength: 0.9, CropMargin: 0.24}, sc)
	if got.Strength != 1 || got.CropMargin != 0.25 {
		t.Errorf("AdjustStabilize() = %+v, want strength 1 crop 0.25", got)
	}

	low := sceneWith(map[string]any{"motion_assessment": map[string]any{"camera_shake": "low"}})
	got = AdjustStabilize(StabilizeParams{Strength: 0.1, CropMargin: 0.1}, low)
	if got.Strength != 0.1 || got.CropMargin != 0.1 {
		t.Errorf("AdjustStabilize(low) = %+v, want strength floored at 0.1", got)
	}
}

func TestAdjustColor(t *testing.T) {
	tests := []struct {
		name    string
		temp    string
		cast    string
		in      ColorParams
		wantWB  string
		wantSat float64
	}{
		{"warm auto", "warm", "", ColorParams{WhiteBalance: "auto", Saturation: 1}, "5600K", 1},
		{"cool auto", "cool", "", ColorParams{WhiteBalance: "auto", Saturation: 1}, "3200K", 1},
		{"explicit wb kept", "warm", "", ColorParams{WhiteBalance: "4000K", Saturation: 1}, "4000K", 1},
		{"desaturated boosts", "neutral", "desaturated", ColorParams{WhiteBalance: "auto", Saturation: 1}, "auto", 1.2},
		{"desaturated never lowers", "", "desaturated", ColorParams{WhiteBalance: "auto", Saturation: 0.9}, "auto", 1.08},
		{"oversaturated cuts", "", "oversaturated", ColorParams{WhiteBalance: "auto", Saturation: 1.1}, "auto", 0.88},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := sceneWith(map[string]any{"color_characteristics": map[string]any{"temperature": tt.temp, "color_cast": tt.cast}})
			got := AdjustColor(tt.in, sc)
			if got.WhiteBalance != tt.wantWB {
				t.Errorf("WhiteBalance = %q, want %q", got.WhiteBalance, tt.wantWB)
			}
			if diff := got.Saturation - tt.wantSat; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Saturation = %v, want %v", got.Saturation, tt.wantSat)
			}
		})
	}
}

func TestAdjust_AlwaysWithinBounds(t *testing.T) {
	levels := []string{"high", "low", "medium"}
	for _, lvl := range levels {
		sc := sceneWith(map[string]any{
			"noise_assessment":  map[string]any{"level": lvl},
			"motion_assessment": map[string]any{"camera_shake": lvl},
		})
		for i := 0; i <= 20; i++ {
			s := float64(i) / 20
			d := AdjustDenoise(DenoiseParams{Strength: s}, sc)
			if d.Strength < 0 || d.Strength > 1 {
				t.Errorf("denoise %s %.2f -> %v out of range", lvl, s, d.Strength)
			}
			st := AdjustStabilize(StabilizeParams{Strength: s, CropMargin: s / 4}, sc)
			if st.Strength < 0 || st.Strength > 1 || st.CropMargin < 0 || st.CropMargin > 0.25 {
				t.Errorf("stabilize %s %.2f -> %+v out of range", lvl, s, st)
			}
		}
	}
}
