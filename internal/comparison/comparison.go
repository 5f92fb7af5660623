// Package comparison runs a full overlap comparison of two loaded images and
// shapes the outcome for the command line and HTTP front ends.
package comparison

import (
	"bytes"
	"image"
	"image/png"
	diffimage "overlap-diff/internal/diff/image"
	"overlap-diff/internal/fingerprint"
	"strconv"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

// Container says which image is searched in. Auto picks by dimensions.
type Container string

const (
	ContainerAuto   Container = "auto"
	ContainerFirst  Container = "first"
	ContainerSecond Container = "second"
)

func ParseContainer(s string) (Container, error) {
	switch c := Container(s); c {
	case "":
		return ContainerAuto, nil
	case ContainerAuto, ContainerFirst, ContainerSecond:
		return c, nil
	default:
		return "", xerrors.Errorf("unknown container: %q", s)
	}
}

type Options struct {
	Config diffimage.Config
	// Format is "pixel" or "rectangle".
	Format    string
	Container Container
}

func DefaultOptions() Options {
	return Options{
		Config:    diffimage.DefaultConfig(),
		Format:    "pixel",
		Container: ContainerAuto,
	}
}

// ParseOptions overrides defaults with the non-empty values returned by get
// for the keys format, container, high-confidence-threshold, color-threshold,
// high-confidence-policy and color-metric.
func ParseOptions(get func(key string) string, defaults Options) (Options, error) {
	o := defaults

	if v := get("format"); v != "" {
		o.Format = v
	}
	if v := get("container"); v != "" {
		c, err := ParseContainer(v)
		if err != nil {
			return o, err
		}
		o.Container = c
	}
	if v := get("high-confidence-threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, xerrors.Errorf("invalid high-confidence-threshold: %w", err)
		}
		o.Config.HighConfidenceThreshold = f
	}
	if v := get("color-threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return o, xerrors.Errorf("invalid color-threshold: %w", err)
		}
		o.Config.ColorThreshold = f
	}
	if v := get("high-confidence-policy"); v != "" {
		p, err := diffimage.ParsePolicy(v)
		if err != nil {
			return o, err
		}
		o.Config.HighConfidencePolicy = p
	}
	if v := get("color-metric"); v != "" {
		m, err := diffimage.ParseMetric(v)
		if err != nil {
			return o, err
		}
		o.Config.ColorMetric = m
	}

	if _, ok := diffimage.NewDiffer(o.Format, o.Config, logr.Discard()); !ok {
		return o, xerrors.Errorf("unknown format: %q", o.Format)
	}
	return o, o.Config.Validate()
}

type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Output is the JSON document printed by the CLI and returned by the server.
type Output struct {
	DiffPath           string                `json:"diffPath,omitempty"`
	DiffData           string                `json:"diffData,omitempty"`
	DiffAmount         float64               `json:"diffAmount"`
	Percent            float64               `json:"percent"`
	Offset             Offset                `json:"offset"`
	Score              float64               `json:"score"`
	HighConfidence     bool                  `json:"highConfidence"`
	SameSize           bool                  `json:"sameSize"`
	DifferingPixels    uint64                `json:"differingPixels"`
	TotalPixels        uint64                `json:"totalPixels"`
	LargeIsA           bool                  `json:"largeIsA"`
	AspectMismatch     bool                  `json:"aspectMismatch"`
	PerceptualDistance int                   `json:"perceptualDistance"`
	Rectangles         []diffimage.Rectangle `json:"rectangles,omitempty"`
	Status             string                `json:"status"`
}

type Outcome struct {
	Result *diffimage.Result
	// Image is the rendered diff in the requested format.
	Image  image.Image
	Output Output
}

// Run compares first and second according to o.
func Run(first *diffimage.PixelBuffer, second *diffimage.PixelBuffer, o Options, log logr.Logger) (*Outcome, error) {
	differ, ok := diffimage.NewDiffer(o.Format, o.Config, log)
	if !ok {
		return nil, xerrors.Errorf("unknown format: %q", o.Format)
	}
	comparer := diffimage.NewComparer(o.Config, log)

	var result *diffimage.Result
	var err error
	switch o.Container {
	case ContainerFirst:
		result, err = comparer.Locate(first, second)
	case ContainerSecond:
		result, err = comparer.Locate(second, first)
		if result != nil {
			result.LargeIsA = false
		}
	default:
		result, err = comparer.Compare(first, second)
	}
	if err != nil {
		return nil, err
	}

	small := second
	if !result.LargeIsA {
		small = first
	}
	if small.Width != result.Overlap.Width || small.Height != result.Overlap.Height {
		small = small.Region(0, 0, result.Overlap.Width, result.Overlap.Height)
	}
	distance, err := fingerprint.Distance(result.Overlap.Image(), small.Image())
	if err != nil {
		return nil, err
	}

	report := result.Report
	output := Output{
		DiffAmount:         report.Ratio(),
		Percent:            report.Percent,
		Offset:             Offset{X: report.Offset.X, Y: report.Offset.Y},
		Score:              report.Score,
		HighConfidence:     report.HighConfidence,
		SameSize:           report.SameSize,
		DifferingPixels:    report.DifferingPixels,
		TotalPixels:        report.TotalPixels,
		LargeIsA:           result.LargeIsA,
		AspectMismatch:     result.AspectMismatch,
		PerceptualDistance: distance,
		Status:             report.String(),
	}
	if o.Format == "rectangle" {
		output.Rectangles = result.Rectangles()
	}

	return &Outcome{
		Result: result,
		Image:  differ.Render(result),
		Output: output,
	}, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}
	return buffer.Bytes(), nil
}
