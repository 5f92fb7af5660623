package image

import (
	"image"

	"github.com/go-logr/logr"
)

type DiffResult struct {
	Image image.Image
	// DiffAmount is the ratio of differing pixels, 0.0 to 1.0.
	DiffAmount float64
	Report     DiffReport
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) (*DiffResult, error)
	// Render draws the output image of an existing comparison.
	Render(result *Result) image.Image
}

// OverlapDiff renders the per-pixel diff of the overlap.
type OverlapDiff struct {
	comparer *Comparer
}

func NewOverlapDiff(config Config, log logr.Logger) *OverlapDiff {
	return &OverlapDiff{
		comparer: NewComparer(config, log),
	}
}

func (o *OverlapDiff) Calculate(baseline image.Image, target image.Image) (*DiffResult, error) {
	result, err := o.comparer.Compare(FromImage(baseline), FromImage(target))
	if err != nil {
		return nil, err
	}
	return &DiffResult{
		Image:      o.Render(result),
		DiffAmount: result.Report.Ratio(),
		Report:     result.Report,
	}, nil
}

func (o *OverlapDiff) Render(result *Result) image.Image {
	return result.Diff.Image()
}

// RectangleDiff frames the differing areas of the overlap instead of
// painting individual pixels.
type RectangleDiff struct {
	comparer *Comparer
}

func NewRectangleDiff(config Config, log logr.Logger) *RectangleDiff {
	return &RectangleDiff{
		comparer: NewComparer(config, log),
	}
}

func (r *RectangleDiff) Calculate(baseline image.Image, target image.Image) (*DiffResult, error) {
	result, err := r.comparer.Compare(FromImage(baseline), FromImage(target))
	if err != nil {
		return nil, err
	}
	return &DiffResult{
		Image:      r.Render(result),
		DiffAmount: result.Report.Ratio(),
		Report:     result.Report,
	}, nil
}

func (r *RectangleDiff) Render(result *Result) image.Image {
	return result.Outlined().Image()
}

// NewDiffer returns the Differ for format, "pixel" or "rectangle".
func NewDiffer(format string, config Config, log logr.Logger) (Differ, bool) {
	switch format {
	case "pixel":
		return NewOverlapDiff(config, log), true
	case "rectangle":
		return NewRectangleDiff(config, log), true
	default:
		return nil, false
	}
}
