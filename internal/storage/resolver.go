package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/postrender/internal/media"
)

// projectTag is the URL-encoded object tagging applied to uploads for cost allocation.
const projectTag = "Project=postrender"

const defaultHTTPTimeout = 5 * time.Minute

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs GET requests for S3 objects.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver fetches inputs into local files and stores outputs.
type Resolver struct {
	// S3 enables s3:// locations. Nil rejects them.
	S3 S3API
	// Presign enables PresignedURL. Optional.
	Presign Presigner
	// HTTP is used for http(s) inputs. Default: a client with a 5 minute timeout.
	HTTP *http.Client
	// TempDir receives downloaded inputs. Default: os.TempDir().
	TempDir string
}

// NewS3Resolver creates a Resolver backed by an S3 client.
func NewS3Resolver(client *s3.Client) *Resolver {
	return &Resolver{S3: client, Presign: s3.NewPresignClient(client)}
}

// Fetch makes ref available as a local file. Remote inputs are downloaded
// to a temporary file; cleanup removes it and is a no-op for local paths.
func (r *Resolver) Fetch(ctx context.Context, ref string) (string, func(), error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return "", nil, err
	}
	noop := func() {}

	switch loc.Scheme {
	case SchemeLocal:
		return loc.Path, noop, nil
	case SchemeS3:
		if r.S3 == nil {
			return "", nil, fmt.Errorf("%w: no S3 client configured", ErrUnsupportedScheme)
		}
		log.Debug().Str("bucket", loc.Bucket).Str("key", loc.Key).Msg("Downloading from S3")
		out, err := r.S3.GetObject(ctx, &s3.GetObjectInput{Bucket: &loc.Bucket, Key: &loc.Key})
		if err != nil {
			return "", nil, fmt.Errorf("S3 GetObject: %w", err)
		}
		defer out.Body.Close()
		return r.writeTemp(loc, out.Body)
	case SchemeHTTP:
		return r.fetchHTTP(ctx, loc)
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, loc.Scheme)
}

func (r *Resolver) fetchHTTP(ctx context.Context, loc Location) (string, func(), error) {
	client := r.HTTP
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.URL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	log.Debug().Str("url", loc.URL).Msg("Downloading over HTTP")
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", loc.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download %s: status %d", loc.URL, resp.StatusCode)
	}
	return r.writeTemp(loc, resp.Body)
}

// writeTemp streams body into a temp file named after the location so the
// extension survives for probing and output naming.
func (r *Resolver) writeTemp(loc Location, body io.Reader) (string, func(), error) {
	dir, err := os.MkdirTemp(r.TempDir, "postrender-in-")
	if err != nil {
		return "", nil, fmt.Errorf("create download dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	p := filepath.Join(dir, loc.Base())
	f, err := os.Create(p)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", loc, err)
	}
	log.Debug().Str("path", p).Int64("bytes", n).Msg("Input downloaded")
	return p, cleanup, nil
}

// Store places the local file at localPath at ref and returns the final
// reference. A ref ending in "/" is treated as a directory or prefix and
// the file's base name is appended.
func (r *Resolver) Store(ctx context.Context, localPath, ref string) (string, error) {
	if IsDir(ref) {
		ref += filepath.Base(localPath)
	}
	loc, err := ParseLocation(ref)
	if err != nil {
		return "", err
	}

	switch loc.Scheme {
	case SchemeLocal:
		if loc.Path == localPath {
			return loc.Path, nil
		}
		if err := os.MkdirAll(filepath.Dir(loc.Path), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		if err := media.MoveFile(localPath, loc.Path); err != nil {
			return "", fmt.Errorf("store %s: %w", loc.Path, err)
		}
		return loc.Path, nil
	case SchemeS3:
		if r.S3 == nil {
			return "", fmt.Errorf("%w: no S3 client configured", ErrUnsupportedScheme)
		}
		if err := r.upload(ctx, localPath, loc); err != nil {
			return "", err
		}
		return loc.String(), nil
	}
	return "", fmt.Errorf("%w: cannot write to %s", ErrUnsupportedScheme, loc.Scheme)
}

func (r *Resolver) upload(ctx context.Context, localPath string, loc Location) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	contentType := media.MIMEType(localPath)
	tagging := projectTag
	_, err = r.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &loc.Bucket,
		Key:         &loc.Key,
		Body:        f,
		ContentType: &contentType,
		Tagging:     &tagging,
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", loc, err)
	}
	log.Info().Str("bucket", loc.Bucket).Str("key", loc.Key).Msg("Output uploaded to S3")
	return nil
}

// PresignedURL returns a time-limited GET URL for an s3:// reference.
func (r *Resolver) PresignedURL(ctx context.Context, ref string, expiry time.Duration) (string, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return "", err
	}
	if loc.Scheme != SchemeS3 || r.Presign == nil {
		return "", fmt.Errorf("%w: presigning needs an s3 location and client", ErrUnsupportedScheme)
	}
	out, err := r.Presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &loc.Bucket, Key: &loc.Key},
		func(opts *s3.PresignOptions) { opts.Expires = expiry })
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return out.URL, nil
}
