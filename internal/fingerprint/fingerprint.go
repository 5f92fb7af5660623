// Package fingerprint compares images by perceptual hash, as a coarse
// second opinion next to the per-pixel diff.
package fingerprint

import (
	"image"

	"github.com/corona10/goimagehash"
	"golang.org/x/xerrors"
)

// Bits is the length of a perception hash.
const Bits = 64

// Distance returns the Hamming distance between the perception hashes of a
// and b, from 0 (alike) to Bits.
func Distance(a image.Image, b image.Image) (int, error) {
	ha, err := goimagehash.PerceptionHash(a)
	if err != nil {
		return 0, xerrors.Errorf("failed to hash first image: %w", err)
	}
	hb, err := goimagehash.PerceptionHash(b)
	if err != nil {
		return 0, xerrors.Errorf("failed to hash second image: %w", err)
	}

	distance, err := ha.Distance(hb)
	if err != nil {
		return 0, xerrors.Errorf("failed to compare hashes: %w", err)
	}
	return distance, nil
}

func Similarity(distance int) float64 {
	return 1 - float64(distance)/Bits
}
