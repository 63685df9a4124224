package assets

import (
	"strings"
	"testing"
)

func TestBuildSceneAnalysisPrompt(t *testing.T) {
	got := BuildSceneAnalysisPrompt("/tmp/run-1/holiday clip.mp4")

	if !strings.Contains(got, "Filename: holiday clip.mp4") {
		t.Errorf("prompt missing base filename:\n%s", got)
	}
	if strings.Contains(got, "/tmp/run-1") {
		t.Error("prompt leaks directory path")
	}
	for _, field := range []string{
		"lighting_conditions", "color_characteristics", "noise_assessment",
		"motion_assessment", "artifacts", "scene_type", "processing_recommendations",
	} {
		if !strings.Contains(got, field) {
			t.Errorf("prompt missing field %q", field)
		}
	}
}
