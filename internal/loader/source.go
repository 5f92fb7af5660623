package loader

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"overlap-diff/internal/capture"
	"overlap-diff/internal/storage"
	"strings"

	"golang.org/x/xerrors"
)

// Source is something an image can be read from.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

type FileSource struct {
	Path string
}

func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (f *FileSource) Name() string {
	return f.Path
}

type URLSource struct {
	URL    string
	Client *http.Client
}

func (u *URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "image/*")

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to fetch image: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		response.Body.Close()
		return nil, xerrors.Errorf("failed to fetch image: unexpected status %s", response.Status)
	}
	return response.Body, nil
}

func (u *URLSource) Name() string {
	return u.URL
}

type StorageSource struct {
	Storage storage.Storage
	URL     string
}

func (s *StorageSource) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.Storage.Get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *StorageSource) Name() string {
	return s.URL
}

// ReaderSource wraps an already open stream such as a multipart upload. It
// can be opened once.
type ReaderSource struct {
	Label  string
	Reader io.Reader
}

func (r *ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if rc, ok := r.Reader.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r.Reader), nil
}

func (r *ReaderSource) Name() string {
	return r.Label
}

type CaptureSource struct {
	Capturer capture.Capturer
	URL      string
	Options  capture.CaptureOptions
}

func (c *CaptureSource) Open(ctx context.Context) (io.ReadCloser, error) {
	result, err := c.Capturer.Capture(ctx, c.URL, c.Options)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(result.Screenshot)), nil
}

func (c *CaptureSource) Name() string {
	return capturePrefix + c.URL
}

const capturePrefix = "page+"

type Dependencies struct {
	Client         *http.Client
	Storage        storage.Storage
	Capturer       capture.Capturer
	CaptureOptions capture.CaptureOptions
}

// ParseSource picks a Source for s: "page+http(s)://" captures the page,
// "http(s)://" fetches the URL, "s3://" reads from storage and anything else
// is a local path.
func ParseSource(s string, deps Dependencies) (Source, error) {
	switch {
	case s == "":
		return nil, xerrors.New("empty image source")
	case strings.HasPrefix(s, capturePrefix+"http://") || strings.HasPrefix(s, capturePrefix+"https://"):
		if deps.Capturer == nil {
			return nil, xerrors.Errorf("page capture is not available for %s", s)
		}
		return &CaptureSource{
			Capturer: deps.Capturer,
			URL:      strings.TrimPrefix(s, capturePrefix),
			Options:  deps.CaptureOptions,
		}, nil
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		return &URLSource{
			URL:    s,
			Client: deps.Client,
		}, nil
	case strings.HasPrefix(s, "s3://"):
		if deps.Storage == nil {
			return nil, xerrors.Errorf("storage is not available for %s", s)
		}
		return &StorageSource{
			Storage: deps.Storage,
			URL:     s,
		}, nil
	default:
		return &FileSource{
			Path: s,
		}, nil
	}
}
