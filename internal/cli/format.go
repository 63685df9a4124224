package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fpang/postrender/internal/pipeline"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// PrintSummary writes a human-readable run summary to w.
func PrintSummary(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "Input:    %s\n", r.InputFile)
	if r.PresetRequested != "" && r.PresetRequested != r.Preset {
		fmt.Fprintf(w, "Preset:   %s (requested %s)\n", r.Preset, r.PresetRequested)
	} else {
		fmt.Fprintf(w, "Preset:   %s\n", r.Preset)
	}
	switch {
	case r.SceneAnalyzed():
		fmt.Fprintln(w, "Scene:    analyzed")
	case r.SceneAnalysis != nil:
		fmt.Fprintf(w, "Scene:    unusable (%s)\n", r.SceneAnalysis.Error)
	}

	for _, e := range r.Operations {
		line := fmt.Sprintf("  %-18s %-8s %6dms", e.Key, e.Result.Status, e.Result.DurationMS)
		switch {
		case e.Result.Reason != "":
			line += "  " + e.Result.Reason
		case e.Result.Error != "":
			line += "  " + e.Result.Error
		}
		fmt.Fprintln(w, line)
	}

	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "Warning:  %s\n", msg)
	}
	if r.Cancelled {
		fmt.Fprintln(w, "Run cancelled before all operations completed")
	}
	if r.OutputPath != "" {
		fmt.Fprintf(w, "Output:   %s\n", r.OutputPath)
	}
	fmt.Fprintf(w, "Duration: %s\n", FormatDurationShort(r.Duration))
}
