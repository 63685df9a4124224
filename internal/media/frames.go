package media

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Frame sampling defaults.
const (
	// DefaultSampleCount is the number of stills sampled for scene analysis.
	DefaultSampleCount = 5

	// DefaultSampleDimension caps the longest side of a sampled still.
	DefaultSampleDimension = 768

	// sampleJPEGQuality is the quality used when re-encoding downscaled stills.
	sampleJPEGQuality = 85

	// maxParallelSamples bounds concurrent ffmpeg processes while sampling.
	maxParallelSamples = 3
)

// Sampler extracts evenly spaced still frames from a video.
type Sampler struct {
	FFmpeg       FFmpeg
	MaxDimension int
}

// SampleTimestamps returns count timestamps spread evenly from the start of
// a clip of the given duration in seconds.
func SampleTimestamps(duration float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if duration <= 0 {
		return []float64{0}
	}
	ts := make([]float64, count)
	for i := range ts {
		ts[i] = duration * float64(i) / float64(count)
	}
	return ts
}

// Sample writes up to count JPEG stills from input into dir and returns
// their paths in timestamp order. Frames that fail to extract are skipped;
// an error is returned only when none succeed.
func (s Sampler) Sample(ctx context.Context, input string, duration float64, count int, dir string) ([]string, error) {
	timestamps := SampleTimestamps(duration, count)
	paths := make([]string, len(timestamps))

	var mu sync.Mutex
	var firstErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSamples)
	for i, ts := range timestamps {
		out := filepath.Join(dir, fmt.Sprintf("frame_%d.jpg", i))
		g.Go(func() error {
			if err := s.extract(gctx, input, ts, out); err != nil {
				log.Debug().Err(err).Float64("timestamp", ts).Msg("Frame extraction failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			paths[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var frames []string
	for _, p := range paths {
		if p != "" {
			frames = append(frames, p)
		}
	}
	if len(frames) == 0 {
		if firstErr == nil {
			firstErr = fmt.Errorf("no timestamps to sample")
		}
		return nil, fmt.Errorf("sample frames: %w", firstErr)
	}

	log.Debug().Int("requested", len(timestamps)).Int("extracted", len(frames)).Msg("Frames sampled")
	return frames, nil
}

func (s Sampler) extract(ctx context.Context, input string, ts float64, out string) error {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	}
	if output, err := exec.CommandContext(ctx, s.FFmpeg.bin(), args...).CombinedOutput(); err != nil {
		return &ExecError{Args: args, Stderr: stderrTail(string(output), 5), Err: err}
	}

	maxDim := s.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultSampleDimension
	}
	return downscaleJPEG(out, maxDim)
}

// downscaleJPEG resizes the JPEG at path in place so that its longest side
// is at most maxDim. Smaller images are left untouched.
func downscaleJPEG(path string, maxDim int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	img, err := jpeg.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	b := img.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), maxDim)
	if w == b.Dx() && h == b.Dy() {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, dst, &jpeg.Options{Quality: sampleJPEGQuality}); err != nil {
		out.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	return out.Close()
}

// ScaledSize fits w×h inside a maxDim square while keeping the aspect ratio.
func ScaledSize(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
