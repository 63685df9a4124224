package operation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/postrender/internal/media"
)

type fakeProber struct {
	info *media.FileInfo
	err  error
}

func (f fakeProber) Probe(context.Context, string) (*media.FileInfo, error) {
	return f.info, f.err
}

var (
	videoFile = &media.FileInfo{HasVideo: true, HasAudio: true}
	audioFile = &media.FileInfo{HasAudio: true}
)

// fakeExecutor records transforms and writes a marker output for each
// non-analysis transform, or fails at a chosen call index.
type fakeExecutor struct {
	calls  []media.Transform
	failAt int // 1-based; 0 never fails
}

func (f *fakeExecutor) Run(_ context.Context, t media.Transform) error {
	f.calls = append(f.calls, t)
	if f.failAt == len(f.calls) {
		// Simulate a partial write before failing.
		_ = os.WriteFile(t.Output, []byte("partial"), 0o644)
		return errors.New("exit status 1")
	}
	if t.Analyze {
		return nil
	}
	return os.WriteFile(t.Output, []byte("transformed"), 0o644)
}

func tempInput(t *testing.T, data string) (in, out string) {
	t.Helper()
	dir := t.TempDir()
	in = filepath.Join(dir, "in.mp4")
	if err := os.WriteFile(in, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return in, filepath.Join(dir, "out.mp4")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}
