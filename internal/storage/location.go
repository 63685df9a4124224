// Package storage moves run inputs and outputs between the local scratch
// area and where they live: local paths, file:// URIs, S3 objects and
// plain HTTP(S) downloads.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Scheme identifies where a location lives.
type Scheme string

const (
	SchemeLocal Scheme = "local"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
)

// ErrUnsupportedScheme is returned for URIs this package cannot read or write.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// Location is a parsed input or output reference.
type Location struct {
	Scheme Scheme
	// Path is the local filesystem path for SchemeLocal.
	Path string
	// Bucket and Key address an S3 object.
	Bucket string
	Key    string
	// URL is the original reference for SchemeHTTP.
	URL string
}

// ParseLocation classifies ref. Anything without a scheme is a local path.
func ParseLocation(ref string) (Location, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		return Location{Scheme: SchemeLocal, Path: ref}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		u, err := url.Parse(ref)
		if err != nil {
			return Location{}, fmt.Errorf("parse %q: %w", ref, err)
		}
		return Location{Scheme: SchemeLocal, Path: u.Path}, nil
	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("s3 location %q: expected s3://bucket/key", ref)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case "http", "https":
		return Location{Scheme: SchemeHTTP, URL: ref}, nil
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// Base returns the file name component of the location.
func (l Location) Base() string {
	switch l.Scheme {
	case SchemeS3:
		return path.Base(l.Key)
	case SchemeHTTP:
		if u, err := url.Parse(l.URL); err == nil && u.Path != "" && u.Path != "/" {
			return path.Base(u.Path)
		}
		return "download"
	default:
		return path.Base(strings.ReplaceAll(l.Path, "\\", "/"))
	}
}

// String renders the location back as a reference.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Key
	case SchemeHTTP:
		return l.URL
	default:
		return l.Path
	}
}

// IsDir reports whether the reference names a directory-like prefix
// (trailing slash), into which a file name should be appended.
func IsDir(ref string) bool {
	return strings.HasSuffix(ref, "/")
}
