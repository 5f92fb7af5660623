// Package loader turns files, URLs, stored objects, uploads and page
// captures into pixel buffers.
package loader

import (
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	diffimage "overlap-diff/internal/diff/image"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// MaxDimension caps the longest side of a decoded image.
const MaxDimension = 4096

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode reads a PNG, JPEG, GIF, BMP, TIFF or WebP image and returns its
// pixels, downscaled to fit MaxDimension, along with the format name.
func Decode(r io.Reader) (*diffimage.PixelBuffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", xerrors.Errorf("failed to decode image: %w", ErrUnsupportedFormat)
		}
		return nil, "", xerrors.Errorf("failed to decode image: %w", err)
	}

	return diffimage.FromImage(Fit(img, MaxDimension)), format, nil
}

// Fit scales img down uniformly so that neither side exceeds maxDimension.
// New sides are rounded down. Images already within bounds are returned as is.
func Fit(img image.Image, maxDimension int) image.Image {
	width, height := FitSize(img.Bounds().Dx(), img.Bounds().Dy(), maxDimension)
	if width == img.Bounds().Dx() && height == img.Bounds().Dy() {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

func FitSize(width int, height int, maxDimension int) (int, int) {
	longest := max(width, height)
	if longest <= maxDimension {
		return width, height
	}
	return max(1, width*maxDimension/longest), max(1, height*maxDimension/longest)
}
