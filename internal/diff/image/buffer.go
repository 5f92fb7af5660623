package image

import (
	"errors"
	"image"
	"image/draw"
)

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrInvalidBuffer = errors.New("pixel buffer length does not match its dimensions")
)

// PixelBuffer holds non-premultiplied RGBA samples in row-major order with a
// top-left origin.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelBuffer(width int, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

func (b *PixelBuffer) Validate() error {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return ErrEmptyImage
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return ErrInvalidBuffer
	}
	return nil
}

func (b *PixelBuffer) Size() image.Point {
	return image.Point{X: b.Width, Y: b.Height}
}

func (b *PixelBuffer) PixOffset(x int, y int) int {
	return (y*b.Width + x) * 4
}

func (b *PixelBuffer) InBounds(x int, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Region copies the w×h rectangle at (x, y) into a new buffer. Parts of the
// rectangle outside b are left transparent black.
func (b *PixelBuffer) Region(x int, y int, w int, h int) *PixelBuffer {
	region := NewPixelBuffer(w, h)
	for dy := 0; dy < h; dy++ {
		sy := y + dy
		if sy < 0 || sy >= b.Height {
			continue
		}
		startX := max(x, 0)
		endX := min(x+w, b.Width)
		if startX >= endX {
			continue
		}
		copy(region.Pix[region.PixOffset(startX-x, dy):], b.Pix[b.PixOffset(startX, sy):b.PixOffset(endX, sy)])
	}
	return region
}

func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{
		Width:  b.Width,
		Height: b.Height,
		Pix:    pix,
	}
}

// Image returns an *image.NRGBA view sharing b's storage.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage converts a decoded image into a PixelBuffer whose origin is the
// image's Bounds().Min.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	b := NewPixelBuffer(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		rowBytes := b.Width * 4
		for y := 0; y < b.Height; y++ {
			offset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(b.Pix[y*rowBytes:(y+1)*rowBytes], src.Pix[offset:offset+rowBytes])
		}
	case *image.RGBA:
		for y := 0; y < b.Height; y++ {
			offset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			for x := 0; x < b.Width; x++ {
				s := offset + x*4
				d := b.PixOffset(x, y)
				r, g, bl, a := src.Pix[s], src.Pix[s+1], src.Pix[s+2], src.Pix[s+3]
				if a != 0 && a != 255 {
					r = uint8(uint32(r) * 255 / uint32(a))
					g = uint8(uint32(g) * 255 / uint32(a))
					bl = uint8(uint32(bl) * 255 / uint32(a))
				}
				b.Pix[d] = r
				b.Pix[d+1] = g
				b.Pix[d+2] = bl
				b.Pix[d+3] = a
			}
		}
	default:
		draw.Draw(b.Image(), b.Image().Bounds(), img, bounds.Min, draw.Src)
	}

	return b
}
