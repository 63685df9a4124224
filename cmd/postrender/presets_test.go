package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/postrender/internal/preset"
)

func TestBuildPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "night.yaml")
	doc := `id: night
name: Night
operations:
  denoise:
    strength: 1
    temporal: true
  stabilize:
    method: deshake
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := buildPreset(path, []string{"denoise.strength=0.9", "color_correct.saturation=1.1"})
	if err != nil {
		t.Fatalf("buildPreset() error = %v", err)
	}
	want := preset.Preset{
		ID:   "night",
		Name: "Night",
		Operations: map[string]preset.Params{
			"denoise":       {"strength": 0.9, "temporal": true},
			"stabilize":     {"method": "deshake"},
			"color_correct": {"saturation": 1.1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildPreset() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"color_correct", "denoise", "stabilize"}, operationKeys(got)); diff != "" {
		t.Errorf("operationKeys() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPreset_ParamsOnly(t *testing.T) {
	got, err := buildPreset("", []string{"stabilize.strength=0"})
	if err != nil {
		t.Fatalf("buildPreset() error = %v", err)
	}
	if got.Operations["stabilize"]["strength"] != 0.0 {
		t.Errorf("stabilize.strength = %#v, want 0.0", got.Operations["stabilize"]["strength"])
	}

	if _, err := buildPreset("", []string{"nodot=1"}); err == nil {
		t.Error("buildPreset() error = nil, want assignment error")
	}
}
