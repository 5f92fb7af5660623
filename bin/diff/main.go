package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"overlap-diff/internal/capture"
	"overlap-diff/internal/comparison"
	diffimage "overlap-diff/internal/diff/image"
	"overlap-diff/internal/env"
	"overlap-diff/internal/loader"
	"overlap-diff/internal/retry"
	"overlap-diff/internal/storage"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	defaults := comparison.DefaultOptions()

	var directory string
	var storageBackend string
	var bucket string
	var format string
	var container string
	var highConfidenceThreshold float64
	var colorThreshold float64
	var highConfidencePolicy string
	var colorMetric string
	var callbackURL string
	var timeout time.Duration
	var verbose bool
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&bucket, "bucket", env.OrDefault("BUCKET", ""), "S3 bucket for the s3 storage backend")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", defaults.Format), "Output format (pixel or rectangle)")
	flag.StringVar(&container, "container", env.OrDefault("CONTAINER", string(defaults.Container)), "Image to search in (auto, first or second)")
	flag.Float64Var(&highConfidenceThreshold, "high-confidence-threshold", env.OrDefault("HIGH_CONFIDENCE_THRESHOLD", defaults.Config.HighConfidenceThreshold), "Match score above which the overlap is compared with the high confidence policy")
	flag.Float64Var(&colorThreshold, "color-threshold", env.OrDefault("COLOR_THRESHOLD", defaults.Config.ColorThreshold), "Colour distance above which a pixel differs on lower-confidence matches")
	flag.StringVar(&highConfidencePolicy, "high-confidence-policy", env.OrDefault("HIGH_CONFIDENCE_POLICY", defaults.Config.HighConfidencePolicy.String()), "Per-pixel test on high-confidence matches (exact or structural)")
	flag.StringVar(&colorMetric, "color-metric", env.OrDefault("COLOR_METRIC", defaults.Config.ColorMetric.String()), "Colour distance on lower-confidence matches (euclidean or ciede2000)")
	flag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "URL to PATCH the result to")
	flag.DurationVar(&timeout, "timeout", env.OrDefault("TIMEOUT", 2*time.Minute), "Overall timeout")
	flag.BoolVar(&verbose, "v", env.OrDefault("VERBOSE", false), "Log search progress")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("first, second not specified")
	}

	options, err := comparison.ParseOptions(func(key string) string {
		switch key {
		case "format":
			return format
		case "container":
			return container
		case "high-confidence-threshold":
			return fmt.Sprint(highConfidenceThreshold)
		case "color-threshold":
			return fmt.Sprint(colorThreshold)
		case "high-confidence-policy":
			return highConfidencePolicy
		case "color-metric":
			return colorMetric
		}
		return ""
	}, defaults)
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := storage.New(ctx, storage.Config{
		Backend:   storageBackend,
		Directory: directory,
		Bucket:    bucket,
	})
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	deps, err := dependencies(ctx, s, storageBackend, args[:2])
	if err != nil {
		log.Fatalf("Failed to prepare image sources: %v", err)
	}

	session := loader.NewSession(logr.FromSlogHandler(logger.Handler()))
	defer session.Close()

	var first, second *diffimage.PixelBuffer
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			b, err := load(ctx, session, "first", args[0], deps)
			first = b
			return err
		})

		eg.Go(func() error {
			b, err := load(ctx, session, "second", args[1], deps)
			second = b
			return err
		})

		if err := eg.Wait(); err != nil {
			log.Fatalf("Failed to load images: %v", err)
		}
	}

	outcome, err := comparison.Run(first, second, options, logr.FromSlogHandler(logger.Handler()))
	if err != nil {
		var overlapErr *diffimage.OverlapError
		if errors.As(err, &overlapErr) {
			log.Fatalf("Cannot overlap images: %v", overlapErr)
		}
		log.Fatalf("Failed to compare images: %v", err)
	}

	data, err := comparison.EncodePNG(outcome.Image)
	if err != nil {
		log.Fatalf("Failed to encode diff image: %v", err)
	}

	output := outcome.Output
	output.DiffPath, err = s.Put(ctx, storage.DiffKey(args[0], args[1], time.Now()), data)
	if err != nil {
		log.Fatalf("Failed to save diff image: %v", err)
	}

	if callbackURL != "" {
		if err := callback(ctx, deps.Client, callbackURL, output); err != nil {
			log.Fatalf("Failed to send result: %v", err)
		}
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func dependencies(ctx context.Context, s storage.Storage, storageBackend string, sources []string) (loader.Dependencies, error) {
	deps := loader.Dependencies{
		Client: retry.NewClient(30*time.Second, 3),
	}

	for _, source := range sources {
		switch {
		case strings.HasPrefix(source, "s3://") && deps.Storage == nil:
			if storageBackend == "s3" {
				deps.Storage = s
				continue
			}
			s3Storage, err := storage.NewS3Storage(ctx, storage.S3Config{})
			if err != nil {
				return deps, err
			}
			deps.Storage = s3Storage
		case strings.HasPrefix(source, "page+") && deps.Capturer == nil:
			config := capture.DefaultPlaywrightConfig()
			config.Delay = env.OrDefault("DELAY", config.Delay)
			config.ChromeDevtoolsProtocolURL = env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", "")
			if os.Getenv("DISPLAY") != "" {
				config.Headless = false
			}
			capturer, err := capture.NewPlaywrightCapturer(ctx, config)
			if err != nil {
				return deps, err
			}
			deps.Capturer = capturer
			deps.CaptureOptions = capture.CaptureOptions{
				MaskSelectors: capture.SplitSelectors(env.OrDefault("MASK_SELECTORS", "")),
			}
		}
	}
	return deps, nil
}

func load(ctx context.Context, session *loader.Session, slot string, s string, deps loader.Dependencies) (*diffimage.PixelBuffer, error) {
	source, err := loader.ParseSource(s, deps)
	if err != nil {
		return nil, err
	}
	return session.Load(ctx, slot, source)
}

func callback(ctx context.Context, client *http.Client, url string, output comparison.Output) error {
	body, err := json.Marshal(output)
	if err != nil {
		return xerrors.Errorf("failed to marshal result: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return xerrors.Errorf("unexpected callback status: %s", response.Status)
	}
	return nil
}
