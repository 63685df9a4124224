package media

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSameFile is returned by CopyFile when src and dst name the same file.
var ErrSameFile = errors.New("source and destination are the same file")

// SameFile reports whether a and b resolve to the same existing file.
func SameFile(a, b string) bool {
	if a == b {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// CopyFile copies src to dst byte for byte, replacing dst if it exists.
// Copying a file onto itself is refused since truncating dst would empty src.
func CopyFile(src, dst string) error {
	if SameFile(src, dst) {
		return fmt.Errorf("copy %s: %w", src, ErrSameFile)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination: %w", err)
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy-and-remove when the
// rename crosses filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
