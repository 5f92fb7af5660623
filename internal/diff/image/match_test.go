package image

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"runtime"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
)

func TestCoarseStep(t *testing.T) {
	type in struct {
		width  int
		height int
	}

	type want struct {
		step   int
		radius int
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{200, 200},
			want{4, 8},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{800, 600},
			want{7, 14},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{4096, 2304},
			want{28, 56},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			step := CoarseStep(in.width, in.height)
			if diff := cmp.Diff(want.step, step); diff != "" {
				t.Errorf("step (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.radius, FineRadius(step)); diff != "" {
				t.Errorf("radius (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	type in struct {
		largeWidth  int
		largeHeight int
		smallWidth  int
		smallHeight int
		offset      image.Point
	}

	tests := []struct {
		name string
		in   in
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{200, 200, 50, 50, image.Point{X: 30, Y: 40}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{200, 200, 50, 50, image.Point{}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{200, 200, 50, 50, image.Point{X: 150, Y: 150}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{200, 120, 60, 40, image.Point{X: 37, Y: 73}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{800, 600, 120, 90, image.Point{X: 333, Y: 271}},
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			large, small := sceneWithTemplate(in.largeWidth, in.largeHeight, in.smallWidth, in.smallHeight, in.offset.X, in.offset.Y)

			got := NewMatcher(logr.Discard()).Match(large, small)
			if diff := cmp.Diff(in.offset, got.Offset); diff != "" {
				t.Errorf("offset (-want +got):\n%s", diff)
			}
			if math.Abs(got.Score-1) > scoreTolerance {
				t.Errorf("Expected score 1.0, got %.12f", got.Score)
			}
		})
	}
}

func TestMatcher_TieBreak(t *testing.T) {
	t.Run("FlatImageKeepsFirstOffset", func(t *testing.T) {
		large := solidBuffer(120, 100, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		small := blobBuffer(30, 30)

		got := NewMatcher(logr.Discard()).Match(large, small)
		if diff := cmp.Diff(MatchResult{}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("DuplicateKeepsEarliest", func(t *testing.T) {
		large, small := sceneWithTemplate(160, 80, 50, 50, 8, 8)
		paste(large, small, 80, 8)

		got := NewMatcher(logr.Discard()).Match(large, small)
		if diff := cmp.Diff(image.Point{X: 8, Y: 8}, got.Offset); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestMatcher_WorkersAgree(t *testing.T) {
	large, small := sceneWithTemplate(240, 180, 60, 45, 101, 67)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < len(large.Pix); i += 4 {
		large.Pix[i] ^= uint8(r.Intn(8))
	}

	want := (&Matcher{Workers: 1}).Match(large, small)
	for _, workers := range []int{2, 3, 16, 64} {
		got := (&Matcher{Workers: workers}).Match(large, small)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("workers %d (-want +got):\n%s", workers, diff)
		}
	}
}

func TestMatcher_ClipsOversizedTemplate(t *testing.T) {
	large := solidBuffer(100, 40, color.NRGBA{R: 120, G: 90, B: 135, A: 255})
	small := blobBuffer(50, 60)
	paste(large, small.Region(0, 0, 50, 40), 20, 0)

	got := NewMatcher(logr.Discard()).Match(large, small)
	if diff := cmp.Diff(image.Point{X: 20, Y: 0}, got.Offset); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSpan(t *testing.T) {
	if diff := cmp.Diff([]int{2, 6, 10}, span{2, 11, 4}.values()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0}, span{0, 0, 4}.values()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if !(span{5, 4, 1}).empty() {
		t.Errorf("Expected span to be empty")
	}
}

func BenchmarkMatcher_Match(b *testing.B) {
	large, small := sceneWithTemplate(1280, 720, 320, 180, 611, 402)
	m := NewMatcher(logr.Discard())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Match(large, small)
	}
}
