package image

// GrayValue returns the luminance proxy (R+G+B)/3 of the pixel at (x, y).
// Alpha is ignored.
func GrayValue(b *PixelBuffer, x int, y int) float64 {
	i := b.PixOffset(x, y)
	return (float64(b.Pix[i]) + float64(b.Pix[i+1]) + float64(b.Pix[i+2])) / 3
}

// RegionStats averages GrayValue over the w×h region at (originX, originY),
// visiting every sampleStride(stride)-th row and column and skipping samples
// outside b. A zero count means the region is degenerate and the mean is 0.
func RegionStats(b *PixelBuffer, originX int, originY int, w int, h int, stride int) (float64, int) {
	step := sampleStride(stride)

	var sum float64
	var count int
	for dy := 0; dy < h; dy += step {
		for dx := 0; dx < w; dx += step {
			x := originX + dx
			y := originY + dy
			if !b.InBounds(x, y) {
				continue
			}
			sum += GrayValue(b, x, y)
			count++
		}
	}

	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}

// sampleStride separates per-pixel sampling density from the offset scan
// step: full resolution for stride 1, never denser than every other pixel
// otherwise.
func sampleStride(stride int) int {
	if stride <= 1 {
		return 1
	}
	return max(2, stride)
}

// channelSums holds R+G+B per pixel. The sum fits a uint16 and divides to the
// same float64 as GrayValue.
type channelSums struct {
	width  int
	height int
	sums   []uint16
}

func newChannelSums(b *PixelBuffer) *channelSums {
	sums := make([]uint16, b.Width*b.Height)
	for i := range sums {
		p := i * 4
		sums[i] = uint16(b.Pix[p]) + uint16(b.Pix[p+1]) + uint16(b.Pix[p+2])
	}
	return &channelSums{
		width:  b.Width,
		height: b.Height,
		sums:   sums,
	}
}

func (c *channelSums) gray(x int, y int) float64 {
	return float64(c.sums[y*c.width+x]) / 3
}

func (c *channelSums) inBounds(x int, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func (c *channelSums) stats(originX int, originY int, w int, h int, step int) (float64, int) {
	var sum float64
	var count int
	for dy := 0; dy < h; dy += step {
		for dx := 0; dx < w; dx += step {
			x := originX + dx
			y := originY + dy
			if !c.inBounds(x, y) {
				continue
			}
			sum += c.gray(x, y)
			count++
		}
	}

	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
