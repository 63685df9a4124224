package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/fpang/postrender/internal/auth"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/pipeline"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{5*time.Minute + 7*time.Second, "5:07"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseOperations(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"ordered", "stabilize, denoise,color_correct", []string{"stabilize", "denoise", "color_correct"}, false},
		{"blank entries", ",denoise,,", []string{"denoise"}, false},
		{"unknown kept", "sharpen", []string{"sharpen"}, false},
		{"all", "all", []string{"stabilize", "denoise", "artifact_removal", "color_correct"}, false},
		{"empty", " , ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperations(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOperations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseOperations() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidationHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid", &auth.ValidationError{Kind: auth.KindInvalidKey}, "Invalid API key"},
		{"quota", &auth.ValidationError{Kind: auth.KindQuota}, "API quota exceeded"},
		{"network", &auth.ValidationError{Kind: auth.KindNetwork}, "Network error"},
		{"unknown kind", &auth.ValidationError{Kind: auth.KindUnknown}, "API key validation failed"},
		{"plain error", errors.New("boom"), "Unexpected error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidationHint(tt.err); !strings.HasPrefix(got, tt.want) {
				t.Errorf("ValidationHint() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	r := &pipeline.Report{
		InputFile:       "clip.mp4",
		OutputPath:      "out/clip_processed.mp4",
		PresetRequested: "nope",
		Preset:          "standard",
		Operations: pipeline.OperationResults{
			{Key: "denoise", Result: operation.Result{Status: operation.StatusSuccess, DurationMS: 12}},
			{Key: "stabilize", Result: operation.Result{Status: operation.StatusSkipped, Reason: operation.ReasonNoVideoStream}},
		},
		Warnings: []string{"unknown preset"},
		Duration: 65 * time.Second,
	}

	var buf bytes.Buffer
	PrintSummary(&buf, r)
	out := buf.String()

	for _, want := range []string{
		"Preset:   standard (requested nope)",
		"denoise",
		"no_video_stream",
		"Warning:  unknown preset",
		"Output:   out/clip_processed.mp4",
		"Duration: 1:05",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "denoise") > strings.Index(out, "stabilize") {
		t.Errorf("summary does not keep operation order:\n%s", out)
	}
}
