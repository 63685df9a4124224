package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    Location
		wantErr bool
	}{
		{"local", "clips/a.mp4", Location{Scheme: SchemeLocal, Path: "clips/a.mp4"}, false},
		{"file uri", "file:///tmp/a.mp4", Location{Scheme: SchemeLocal, Path: "/tmp/a.mp4"}, false},
		{"s3", "s3://bucket/in/a.mp4", Location{Scheme: SchemeS3, Bucket: "bucket", Key: "in/a.mp4"}, false},
		{"https", "https://example.com/v/a.mov?x=1", Location{Scheme: SchemeHTTP, URL: "https://example.com/v/a.mov?x=1"}, false},
		{"s3 no key", "s3://bucket", Location{}, true},
		{"unknown scheme", "ftp://host/a.mp4", Location{}, true},
		{"empty", "  ", Location{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLocation() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := ParseLocation("gs://b/k"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("gs:// error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestLocationBase(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"s3://b/in/clip.mp4", "clip.mp4"},
		{"https://example.com/v/a.mov?x=1", "a.mov"},
		{"https://example.com", "download"},
		{"/tmp/x/y.wav", "y.wav"},
	}
	for _, tt := range tests {
		loc, err := ParseLocation(tt.ref)
		if err != nil {
			t.Fatal(err)
		}
		if got := loc.Base(); got != tt.want {
			t.Errorf("Base(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestResolver_FetchS3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"media/in/clip.mp4": []byte("video")}}
	r := &Resolver{S3: fake, TempDir: t.TempDir()}

	path, cleanup, err := r.Fetch(context.Background(), "s3://media/in/clip.mp4")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if filepath.Base(path) != "clip.mp4" {
		t.Errorf("path = %s, want base clip.mp4", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "video" {
		t.Errorf("content = %q", data)
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the download")
	}

	if _, _, err := r.Fetch(context.Background(), "s3://media/missing.mp4"); err == nil {
		t.Error("Fetch(missing) error = nil")
	}
}

func TestResolver_FetchWithoutS3Client(t *testing.T) {
	r := &Resolver{}
	if _, _, err := r.Fetch(context.Background(), "s3://b/k.mp4"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestResolver_FetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/clips/a.mov" {
			http.NotFound(w, req)
			return
		}
		w.Write([]byte("movie"))
	}))
	defer srv.Close()

	r := &Resolver{HTTP: srv.Client(), TempDir: t.TempDir()}
	path, cleanup, err := r.Fetch(context.Background(), srv.URL+"/clips/a.mov")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer cleanup()
	if data, _ := os.ReadFile(path); string(data) != "movie" || filepath.Ext(path) != ".mov" {
		t.Errorf("fetched %s = %q", path, data)
	}

	if _, _, err := r.Fetch(context.Background(), srv.URL+"/missing.mov"); err == nil {
		t.Error("Fetch(404) error = nil")
	}
}

func TestResolver_FetchLocal(t *testing.T) {
	r := &Resolver{}
	path, cleanup, err := r.Fetch(context.Background(), "/data/clip.mp4")
	if err != nil || path != "/data/clip.mp4" {
		t.Fatalf("Fetch() = (%q, %v)", path, err)
	}
	cleanup()
}

func TestResolver_StoreS3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	r := &Resolver{S3: fake}
	local := filepath.Join(t.TempDir(), "clip_processed.mp4")
	if err := os.WriteFile(local, []byte("out"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := r.Store(context.Background(), local, "s3://media/out/")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if got != "s3://media/out/clip_processed.mp4" {
		t.Errorf("Store() = %q", got)
	}
	if string(fake.objects["media/out/clip_processed.mp4"]) != "out" {
		t.Error("object not uploaded")
	}
	put := fake.puts[0]
	if *put.ContentType != "video/mp4" || *put.Tagging != projectTag {
		t.Errorf("ContentType = %q Tagging = %q", *put.ContentType, *put.Tagging)
	}
}

func TestResolver_StoreLocal(t *testing.T) {
	r := &Resolver{}
	dir := t.TempDir()
	local := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(local, []byte("out"), 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "nested", "b.mp4")
	got, err := r.Store(context.Background(), local, dst)
	if err != nil || got != dst {
		t.Fatalf("Store() = (%q, %v)", got, err)
	}
	if data, _ := os.ReadFile(dst); string(data) != "out" {
		t.Errorf("stored content = %q", data)
	}

	if _, err := r.Store(context.Background(), dst, "https://example.com/x.mp4"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Store(https) error = %v, want ErrUnsupportedScheme", err)
	}
}
