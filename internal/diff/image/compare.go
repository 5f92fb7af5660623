package image

import (
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/xerrors"
)

type Result struct {
	// Diff has the overlap's dimensions; differing pixels are pure red.
	Diff *PixelBuffer
	// Overlap is the part of the larger image aligned with the smaller one.
	Overlap *PixelBuffer
	Report  DiffReport
	// LargeIsA reports whether the first argument played the container.
	LargeIsA       bool
	AspectMismatch bool

	mask []bool
}

// Comparer locates the smaller of two images inside the larger one and
// classifies the overlapping pixels. A Comparer holds no per-call state and
// may be shared.
type Comparer struct {
	Config Config
	Log    logr.Logger
	// Workers bounds the goroutines used by the search. Zero means GOMAXPROCS.
	Workers int
}

func NewComparer(config Config, log logr.Logger) *Comparer {
	return &Comparer{
		Config: config,
		Log:    log,
	}
}

// Compare decides which image contains the other, finds the best alignment and
// diffs the overlap. Equal-sized images are compared directly.
func (c *Comparer) Compare(a *PixelBuffer, b *PixelBuffer) (*Result, error) {
	if err := c.validate(a, b); err != nil {
		return nil, err
	}

	resolution, err := Resolve(a, b)
	if err != nil {
		return nil, err
	}

	if resolution.SameSize {
		cl := classify(a, b, exactDifferent)
		report := cl.sameSizeReport()
		c.log().V(1).Info("compared same-size images", "width", a.Width, "height", a.Height, "percent", report.Percent)
		return &Result{
			Diff:     cl.diff,
			Overlap:  a,
			Report:   report,
			LargeIsA: true,
			mask:     cl.mask,
		}, nil
	}

	result := c.overlap(resolution.Large, resolution.Small)
	result.LargeIsA = resolution.LargeIsA
	result.AspectMismatch = resolution.AspectMismatch
	return result, nil
}

// Locate searches for template inside container without deciding the roles
// from the dimensions. It fails with ErrTooLarge when template exceeds
// container on both axes.
func (c *Comparer) Locate(container *PixelBuffer, template *PixelBuffer) (*Result, error) {
	if err := c.validate(container, template); err != nil {
		return nil, err
	}

	mismatch, err := Fit(container, template)
	if err != nil {
		return nil, err
	}
	if mismatch {
		c.log().Info("aspect ratios differ, searching with the part of the template that fits",
			"container", fmt.Sprintf("%dx%d", container.Width, container.Height),
			"template", fmt.Sprintf("%dx%d", template.Width, template.Height))
	}

	result := c.overlap(container, template)
	result.LargeIsA = true
	result.AspectMismatch = mismatch
	return result, nil
}

func (c *Comparer) overlap(large *PixelBuffer, small *PixelBuffer) *Result {
	c.log().V(1).Info("template matching",
		"large", fmt.Sprintf("%dx%d", large.Width, large.Height),
		"small", fmt.Sprintf("%dx%d", small.Width, small.Height))

	match := (&Matcher{Log: c.Log, Workers: c.Workers}).Match(large, small)

	width := min(small.Width, large.Width)
	height := min(small.Height, large.Height)
	largeRegion := large.Region(match.Offset.X, match.Offset.Y, width, height)
	smallRegion := small
	if width != small.Width || height != small.Height {
		smallRegion = small.Region(0, 0, width, height)
	}

	cl := classifyOverlap(largeRegion, smallRegion, match.Score, c.Config)
	report := cl.report(match.Score, c.Config)
	report.Offset = match.Offset

	c.log().V(1).Info("compared overlap", "x", match.Offset.X, "y", match.Offset.Y, "score", match.Score, "percent", report.Percent)

	return &Result{
		Diff:    cl.diff,
		Overlap: largeRegion,
		Report:  report,
		mask:    cl.mask,
	}
}

func (c *Comparer) validate(a *PixelBuffer, b *PixelBuffer) error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return xerrors.Errorf("invalid first image: %w", err)
	}
	if err := b.Validate(); err != nil {
		return xerrors.Errorf("invalid second image: %w", err)
	}
	return nil
}

func (c *Comparer) log() logr.Logger {
	if c.Log.GetSink() == nil {
		return logr.Discard()
	}
	return c.Log
}

// String renders the report as a one-line status message.
func (r DiffReport) String() string {
	if r.SameSize {
		return fmt.Sprintf("diff: %.2f%%", r.Percent)
	}
	quality := fmt.Sprintf(" (NCC score: %.3f)", r.Score)
	if r.HighConfidence {
		quality = " (high-confidence match)"
	}
	return fmt.Sprintf("diff: %.2f%%%s (position in larger image: %d, %d)", r.Percent, quality, r.Offset.X, r.Offset.Y)
}
