package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	// Backend is "file" or "s3".
	Backend   string
	Directory string
	Bucket    string
}

func New(ctx context.Context, c Config) (Storage, error) {
	switch c.Backend {
	case "", "file":
		return NewFileStorage(ctx, FileConfig{
			Directory: c.Directory,
		})
	case "s3":
		if c.Bucket == "" {
			return nil, xerrors.New("s3 backend requires a bucket")
		}
		return NewS3Storage(ctx, S3Config{
			Bucket: c.Bucket,
		})
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", c.Backend)
	}
}

const timestampLayout = "20060102150405"

// DiffKey names the diff image of a comparison between two sources.
func DiffKey(first string, second string, now time.Time) string {
	return fmt.Sprintf("Overlap/diff/%s/%s.png", hash(first+second), now.Format(timestampLayout))
}

// CaptureKey names a captured screenshot of url.
func CaptureKey(url string, format string, now time.Time) string {
	return fmt.Sprintf("Overlap/capture/%s/%s.%s", hash(url), now.Format(timestampLayout), strings.TrimPrefix(format, "."))
}

func hash(s string) string {
	h := sha256.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
