package image

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// maskedResult returns a Result over a flat overlap whose mask is set inside
// the given rectangles.
func maskedResult(width int, height int, rects ...Rectangle) *Result {
	r := &Result{
		Diff:    NewPixelBuffer(width, height),
		Overlap: solidBuffer(width, height, color.NRGBA{R: 200, G: 200, B: 200, A: 100}),
		mask:    make([]bool, width*height),
	}
	for _, rect := range rects {
		for y := rect.Y; y < rect.Y+rect.Height; y++ {
			for x := rect.X; x < rect.X+rect.Width; x++ {
				r.mask[y*width+x] = true
			}
		}
	}
	return r
}

func TestResult_Rectangles(t *testing.T) {
	t.Run("NoDifference", func(t *testing.T) {
		r := maskedResult(100, 100)
		if got := r.Rectangles(); len(got) != 0 {
			t.Errorf("Expected no rectangles, got %v", got)
		}
	})

	t.Run("SeparateRegions", func(t *testing.T) {
		r := maskedResult(100, 100,
			Rectangle{X: 20, Y: 20, Width: 10, Height: 10},
			Rectangle{X: 60, Y: 60, Width: 10, Height: 10},
		)

		want := []Rectangle{
			{X: 20, Y: 20, Width: 10, Height: 10},
			{X: 60, Y: 60, Width: 10, Height: 10},
		}
		if diff := cmp.Diff(want, r.Rectangles()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NearbyRegionsMerge", func(t *testing.T) {
		r := maskedResult(100, 100,
			Rectangle{X: 20, Y: 20, Width: 10, Height: 10},
			Rectangle{X: 35, Y: 20, Width: 4, Height: 4},
		)

		want := []Rectangle{
			{X: 20, Y: 20, Width: 19, Height: 10},
		}
		if diff := cmp.Diff(want, r.Rectangles()); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("NoiseDropped", func(t *testing.T) {
		r := maskedResult(100, 100,
			Rectangle{X: 80, Y: 10, Width: 2, Height: 2},
			Rectangle{X: 10, Y: 80, Width: 30, Height: 1},
		)
		if got := r.Rectangles(); len(got) != 0 {
			t.Errorf("Expected no rectangles, got %v", got)
		}
	})
}

func TestResult_Outlined(t *testing.T) {
	r := maskedResult(100, 100, Rectangle{X: 20, Y: 20, Width: 10, Height: 10})

	out := r.Outlined()

	cases := []struct {
		x    int
		y    int
		want []uint8
	}{
		{19, 19, []uint8{255, 0, 0, 255}},
		{17, 25, []uint8{255, 0, 0, 255}},
		{32, 32, []uint8{255, 0, 0, 255}},
		{16, 25, []uint8{200, 200, 200, 255}},
		{25, 25, []uint8{200, 200, 200, 255}},
	}
	for _, c := range cases {
		i := out.PixOffset(c.x, c.y)
		if diff := cmp.Diff(c.want, out.Pix[i:i+4]); diff != "" {
			t.Errorf("pixel (%d, %d) (-want +got):\n%s", c.x, c.y, diff)
		}
	}

	if r.Overlap.Pix[3] != 100 {
		t.Errorf("Expected the overlap to be left untouched")
	}
}
