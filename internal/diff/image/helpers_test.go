package image

import (
	"image/color"
	"math"
)

func solidBuffer(width int, height int, c color.NRGBA) *PixelBuffer {
	b := NewPixelBuffer(width, height)
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
	return b
}

type blob struct {
	fx        float64
	fy        float64
	sigma     float64
	amplitude float64
}

// templateBlobs are well separated so that shifting the template onto
// itself only correlates strongly near the zero shift.
var templateBlobs = []blob{
	{0.28, 0.24, 7, 100},
	{0.72, 0.32, 6, -90},
	{0.36, 0.72, 8, -70},
	{0.76, 0.76, 6, 110},
}

// blobBuffer renders smooth gaussian blobs over a flat background. Blob
// positions and widths scale with the buffer size.
func blobBuffer(width int, height int) *PixelBuffer {
	b := NewPixelBuffer(width, height)
	scale := float64(min(width, height)) / 50
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 120.0
			for _, bl := range templateBlobs {
				dx := float64(x) - bl.fx*float64(width)
				dy := float64(y) - bl.fy*float64(height)
				sigma := bl.sigma * scale
				v += bl.amplitude * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			}
			g := uint8(math.Max(0, math.Min(255, math.Round(v))))
			i := b.PixOffset(x, y)
			b.Pix[i] = g
			b.Pix[i+1] = uint8(int(g) * 3 / 4)
			b.Pix[i+2] = 255 - g
			b.Pix[i+3] = 255
		}
	}
	return b
}

func paste(dst *PixelBuffer, src *PixelBuffer, x int, y int) {
	for dy := 0; dy < src.Height; dy++ {
		copy(dst.Pix[dst.PixOffset(x, y+dy):dst.PixOffset(x+src.Width, y+dy)], src.Pix[src.PixOffset(0, dy):src.PixOffset(src.Width, dy)])
	}
}

// sceneWithTemplate returns a flat large buffer holding an exact copy of a
// blob template at (x, y).
func sceneWithTemplate(largeWidth int, largeHeight int, smallWidth int, smallHeight int, x int, y int) (*PixelBuffer, *PixelBuffer) {
	large := solidBuffer(largeWidth, largeHeight, color.NRGBA{R: 120, G: 90, B: 135, A: 255})
	small := blobBuffer(smallWidth, smallHeight)
	paste(large, small, x, y)
	return large, small
}
