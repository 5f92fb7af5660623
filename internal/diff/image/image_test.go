package image

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/go-logr/logr"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestOverlapDiff_Calculate(t *testing.T) {
	od := NewOverlapDiff(DefaultConfig(), logr.Discard())

	t.Run("NoDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		result, err := od.Calculate(img1, img2)
		if err != nil {
			t.Fatal(err)
		}

		if result.DiffAmount != 0.0 {
			t.Errorf("Expected DiffAmount to be 0.0, got %f", result.DiffAmount)
		}
	})

	t.Run("CompleteDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.Black)

		result, err := od.Calculate(img1, img2)
		if err != nil {
			t.Fatal(err)
		}

		if result.DiffAmount != 1.0 {
			t.Errorf("Expected DiffAmount to be 1.0, got %f", result.DiffAmount)
		}
	})

	t.Run("PartialDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		for y := 0; y < 50; y++ {
			for x := 0; x < 100; x++ {
				img2.Set(x, y, color.Black)
			}
		}

		result, err := od.Calculate(img1, img2)
		if err != nil {
			t.Fatal(err)
		}

		if result.DiffAmount != 0.5 {
			t.Errorf("Expected DiffAmount to be 0.5, got %f", result.DiffAmount)
		}
		if result.Report.Percent != 50 {
			t.Errorf("Expected Percent to be 50, got %f", result.Report.Percent)
		}
	})

	t.Run("Incompatible", func(t *testing.T) {
		img1 := createTestImage(100, 40, color.White)
		img2 := createTestImage(50, 60, color.White)

		_, err := od.Calculate(img1, img2)
		if !errors.Is(err, ErrIncompatible) {
			t.Errorf("Expected ErrIncompatible, got %v", err)
		}
	})
}

func TestRectangleDiff_Calculate(t *testing.T) {
	rd := NewRectangleDiff(DefaultConfig(), logr.Discard())

	t.Run("PartialDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		for y := 40; y < 60; y++ {
			for x := 40; x < 60; x++ {
				img2.Set(x, y, color.Black)
			}
		}

		result, err := rd.Calculate(img1, img2)
		if err != nil {
			t.Fatal(err)
		}

		if result.DiffAmount != 0.04 {
			t.Errorf("Expected DiffAmount to be 0.04, got %f", result.DiffAmount)
		}
		if got := result.Image.Bounds(); got != image.Rect(0, 0, 100, 100) {
			t.Errorf("Expected 100x100 image, got %v", got)
		}
		r, g, b, _ := result.Image.At(38, 38).RGBA()
		if r>>8 != 255 || g != 0 || b != 0 {
			t.Errorf("Expected a red frame at (38, 38)")
		}
	})
}

func TestNewDiffer(t *testing.T) {
	for _, format := range []string{"pixel", "rectangle"} {
		if _, ok := NewDiffer(format, DefaultConfig(), logr.Discard()); !ok {
			t.Errorf("Expected a differ for %q", format)
		}
	}
	if _, ok := NewDiffer("unknown", DefaultConfig(), logr.Discard()); ok {
		t.Errorf("Expected no differ for an unknown format")
	}
}

func BenchmarkOverlapDiff_Calculate(b *testing.B) {
	od := NewOverlapDiff(DefaultConfig(), logr.Discard())
	img1 := createTestImage(1920, 1080, color.White)
	img2 := createTestImage(1920, 1080, color.White)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := od.Calculate(img1, img2); err != nil {
			b.Fatal(err)
		}
	}
}
