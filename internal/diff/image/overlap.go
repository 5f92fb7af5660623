package image

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrIncompatible = errors.New("neither image can contain the other")
	ErrTooLarge     = errors.New("the smaller image exceeds the larger one in both dimensions")
)

// OverlapError reports why two images cannot be overlapped. Large and Small
// are the dimensions in the roles the comparison tried to give them.
type OverlapError struct {
	Err   error
	Large image.Point
	Small image.Point
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %dx%d vs %dx%d", e.Err, e.Large.X, e.Large.Y, e.Small.X, e.Small.Y)
}

func (e *OverlapError) Unwrap() error {
	return e.Err
}

type Resolution struct {
	Large    *PixelBuffer
	Small    *PixelBuffer
	LargeIsA bool
	// SameSize selects the full-buffer comparison without matching.
	SameSize bool
	// AspectMismatch is set when Small exceeds Large on exactly one axis.
	AspectMismatch bool
}

// Resolve decides which of a and b contains the other. The pairing does not
// depend on argument order; only LargeIsA does.
func Resolve(a *PixelBuffer, b *PixelBuffer) (*Resolution, error) {
	if a.Width == b.Width && a.Height == b.Height {
		return &Resolution{
			Large:    a,
			Small:    b,
			LargeIsA: true,
			SameSize: true,
		}, nil
	}

	aContainsB := a.Width >= b.Width && a.Height >= b.Height
	bContainsA := b.Width >= a.Width && b.Height >= a.Height

	var largeIsA bool
	switch {
	case aContainsB && bContainsA:
		largeIsA = a.Width*a.Height >= b.Width*b.Height
	case aContainsB:
		largeIsA = true
	case bContainsA:
		largeIsA = false
	default:
		return nil, &OverlapError{
			Err:   ErrIncompatible,
			Large: a.Size(),
			Small: b.Size(),
		}
	}

	r := &Resolution{
		Large:    b,
		Small:    a,
		LargeIsA: largeIsA,
	}
	if largeIsA {
		r.Large, r.Small = a, b
	}

	mismatch, err := Fit(r.Large, r.Small)
	if err != nil {
		return nil, err
	}
	r.AspectMismatch = mismatch

	return r, nil
}

// Fit checks that small can be searched for inside large. Exceeding large on
// a single axis is tolerated and reported as an aspect mismatch.
func Fit(large *PixelBuffer, small *PixelBuffer) (bool, error) {
	widthExceeds := small.Width > large.Width
	heightExceeds := small.Height > large.Height

	if widthExceeds && heightExceeds {
		return false, &OverlapError{
			Err:   ErrTooLarge,
			Large: large.Size(),
			Small: small.Size(),
		}
	}
	return widthExceeds || heightExceeds, nil
}
