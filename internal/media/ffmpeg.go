package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Output encoding for re-encoded video. CRF 20 keeps filtered output close
// to visually lossless without the size of CRF 18.
const (
	OutputVideoCodec = "libx264"
	OutputVideoCRF   = "20"
	OutputPreset     = "medium"
)

// Transform describes one ffmpeg invocation over a single input.
type Transform struct {
	Input  string
	Output string

	// VideoFilter and AudioFilter are filter graphs passed as -vf / -af.
	// An empty filter leaves that stream type copied as-is.
	VideoFilter string
	AudioFilter string

	// Analyze runs the filters for their side effects only (e.g. a
	// vidstabdetect pass) and discards the output. Output is ignored.
	Analyze bool
}

// Executor runs transforms.
type Executor interface {
	Run(ctx context.Context, t Transform) error
}

// ExecError reports a failed ffmpeg invocation with the tail of its stderr.
type ExecError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ffmpeg failed: %v", e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }

// stderrTail keeps the last lines of ffmpeg's stderr, which carry the error.
func stderrTail(s string, lines int) string {
	parts := strings.Split(strings.TrimSpace(s), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}

// FFmpeg implements Executor with the ffmpeg executable.
type FFmpeg struct {
	// Path is the ffmpeg binary; empty means "ffmpeg" from PATH.
	Path string
}

func (f FFmpeg) bin() string {
	if f.Path != "" {
		return f.Path
	}
	return "ffmpeg"
}

// Check verifies the ffmpeg binary can be found.
func (f FFmpeg) Check() error {
	path, err := exec.LookPath(f.bin())
	if err != nil {
		return fmt.Errorf("ffmpeg not found: install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffmpeg found")
	return nil
}

// Run executes the transform and waits for it to finish.
func (f FFmpeg) Run(ctx context.Context, t Transform) error {
	args := BuildArgs(t)
	start := time.Now()

	log.Debug().
		Str("input", filepath.Base(t.Input)).
		Str("output", filepath.Base(t.Output)).
		Str("vf", t.VideoFilter).
		Str("af", t.AudioFilter).
		Bool("analyze", t.Analyze).
		Msg("Running ffmpeg")

	cmd := exec.CommandContext(ctx, f.bin(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExecError{Args: args, Stderr: stderrTail(stderr.String(), 5), Err: err}
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("ffmpeg finished")
	return nil
}

// BuildArgs returns the ffmpeg arguments for t, excluding the binary name.
func BuildArgs(t Transform) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y", "-i", t.Input}

	if t.VideoFilter != "" {
		args = append(args, "-vf", t.VideoFilter)
	}
	if t.AudioFilter != "" {
		args = append(args, "-af", t.AudioFilter)
	}

	if t.Analyze {
		args = append(args, "-an", "-f", "null", "-")
		return args
	}

	switch {
	case t.VideoFilter != "":
		args = append(args, videoEncodeArgs(t.Output)...)
	case t.AudioFilter != "":
		args = append(args, "-c:v", "copy")
	}
	if t.AudioFilter == "" {
		args = append(args, "-c:a", "copy")
	}

	args = append(args, t.Output)
	return args
}

// videoEncodeArgs chooses the encoder for filtered video by output container.
// Containers without an H.264 mapping fall back to ffmpeg's default encoder.
func videoEncodeArgs(output string) []string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp4", ".mov", ".mkv", ".m4v":
		return []string{"-c:v", OutputVideoCodec, "-crf", OutputVideoCRF, "-preset", OutputPreset, "-pix_fmt", "yuv420p"}
	}
	return nil
}
