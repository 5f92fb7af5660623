package capture

import (
	"context"
	"strings"
)

type CaptureResult struct {
	Screenshot []byte
	// Format is the image encoding of Screenshot, "png" or "jpeg".
	Format string
}

type CaptureOptions struct {
	// Selector limits the screenshot to the first matching element.
	Selector      string
	MaskSelectors []string
	Headers       map[string]string
}

type Capturer interface {
	Capture(ctx context.Context, url string, captureOptions CaptureOptions) (*CaptureResult, error)
}

// ParseHeaders turns "Key: Value" pairs into a header map. Malformed entries
// are skipped.
func ParseHeaders(headers []string) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	parsed := make(map[string]string, len(headers))
	for _, header := range headers {
		key, value, ok := strings.Cut(header, ":")
		if !ok {
			continue
		}
		parsed[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return parsed
}

// SplitSelectors splits a comma-separated selector list, dropping blanks.
func SplitSelectors(s string) []string {
	var selectors []string
	for _, selector := range strings.Split(s, ",") {
		if selector = strings.TrimSpace(selector); selector != "" {
			selectors = append(selectors, selector)
		}
	}
	return selectors
}
