package image

type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

var outlineColor = [4]uint8{255, 0, 0, 255}

const (
	outlineThickness   = 3
	rectangleMergeGap  = 10
	minRectangleExtent = 2
)

// Rectangles groups the differing pixels of r into 8-connected regions and
// returns their merged bounding boxes in overlap coordinates. Regions no
// larger than 2 pixels on a side are dropped as noise.
func (r *Result) Rectangles() []Rectangle {
	width := r.Diff.Width
	height := r.Diff.Height
	visited := make([]bool, len(r.mask))

	var rectangles []Rectangle
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if r.mask[i] && !visited[i] {
				rect := findBoundingBox(r.mask, visited, x, y, width, height)
				if rect.Width > minRectangleExtent && rect.Height > minRectangleExtent {
					rectangles = append(rectangles, rect)
				}
			}
		}
	}

	return mergeRectangles(rectangles)
}

// Outlined returns a copy of the overlap with each difference rectangle framed
// in red.
func (r *Result) Outlined() *PixelBuffer {
	out := r.Overlap.Clone()
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}

	for _, rect := range r.Rectangles() {
		for thickness := 0; thickness < outlineThickness; thickness++ {
			top := rect.Y - thickness - 1
			bottom := rect.Y + rect.Height + thickness
			left := rect.X - thickness - 1
			right := rect.X + rect.Width + thickness

			for x := left; x <= right; x++ {
				setPixel(out, x, top)
				setPixel(out, x, bottom)
			}
			for y := top; y <= bottom; y++ {
				setPixel(out, left, y)
				setPixel(out, right, y)
			}
		}
	}

	return out
}

func setPixel(b *PixelBuffer, x int, y int) {
	if !b.InBounds(x, y) {
		return
	}
	offset := b.PixOffset(x, y)
	copy(b.Pix[offset:offset+4], outlineColor[:])
}

func findBoundingBox(mask []bool, visited []bool, startX int, startY int, width int, height int) Rectangle {
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	queue := []int{startY*width + startX}
	visited[startY*width+startX] = true

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%width, i/width

		minX = min(minX, x)
		maxX = max(maxX, x)
		minY = min(minY, y)
		maxY = max(maxY, y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				n := ny*width + nx
				if mask[n] && !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
	}

	return Rectangle{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + 1,
		Height: maxY - minY + 1,
	}
}

func mergeRectangles(rects []Rectangle) []Rectangle {
	if len(rects) <= 1 {
		return rects
	}

	merged := make([]Rectangle, 0, len(rects))
	used := make([]bool, len(rects))

	for i := range rects {
		if used[i] {
			continue
		}

		current := rects[i]
		for mergedAny := true; mergedAny; {
			mergedAny = false
			for j := i + 1; j < len(rects); j++ {
				if used[j] {
					continue
				}
				if current.near(rects[j], rectangleMergeGap) {
					current = current.union(rects[j])
					used[j] = true
					mergedAny = true
				}
			}
		}

		merged = append(merged, current)
	}

	return merged
}

func (r Rectangle) overlaps(o Rectangle) bool {
	return !(r.X+r.Width <= o.X || o.X+o.Width <= r.X ||
		r.Y+r.Height <= o.Y || o.Y+o.Height <= r.Y)
}

func (r Rectangle) near(o Rectangle, gap int) bool {
	return r.grow(gap).overlaps(o.grow(gap))
}

func (r Rectangle) grow(n int) Rectangle {
	return Rectangle{
		X:      r.X - n,
		Y:      r.Y - n,
		Width:  r.Width + 2*n,
		Height: r.Height + 2*n,
	}
}

func (r Rectangle) union(o Rectangle) Rectangle {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.Width, o.X+o.Width)
	maxY := max(r.Y+r.Height, o.Y+o.Height)
	return Rectangle{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
