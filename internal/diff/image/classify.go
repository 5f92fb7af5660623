package image

import (
	"image"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lucasb-eyer/go-colorful"
)

// DiffReport summarizes a comparison. Offset and Score are zero on the
// same-size path.
type DiffReport struct {
	DifferingPixels uint64
	TotalPixels     uint64
	Percent         float64
	Offset          image.Point
	Score           float64
	SameSize        bool
	HighConfidence  bool
}

func (r DiffReport) Ratio() float64 {
	if r.TotalPixels == 0 {
		return 0
	}
	return float64(r.DifferingPixels) / float64(r.TotalPixels)
}

// ClassifyExact compares two equally sized buffers pixel by pixel; any RGB
// difference counts. Alpha is ignored.
func ClassifyExact(a *PixelBuffer, b *PixelBuffer) (*PixelBuffer, DiffReport) {
	c := classify(a, b, exactDifferent)
	return c.diff, c.sameSizeReport()
}

// Classify compares two equally sized regions taken at a matched offset. The
// test is picked by comparing matchScore with cfg.HighConfidenceThreshold.
func Classify(largeRegion *PixelBuffer, smallRegion *PixelBuffer, matchScore float64, cfg Config) (*PixelBuffer, DiffReport) {
	c := classifyOverlap(largeRegion, smallRegion, matchScore, cfg)
	return c.diff, c.report(matchScore, cfg)
}

type classification struct {
	diff      *PixelBuffer
	mask      []bool
	differing uint64
}

func (c *classification) total() uint64 {
	return uint64(c.diff.Width * c.diff.Height)
}

func (c *classification) sameSizeReport() DiffReport {
	return DiffReport{
		DifferingPixels: c.differing,
		TotalPixels:     c.total(),
		Percent:         roundPercent(c.differing, c.total()),
		SameSize:        true,
	}
}

func (c *classification) report(matchScore float64, cfg Config) DiffReport {
	return DiffReport{
		DifferingPixels: c.differing,
		TotalPixels:     c.total(),
		Percent:         roundPercent(c.differing, c.total()),
		Score:           matchScore,
		HighConfidence:  matchScore > cfg.HighConfidenceThreshold,
	}
}

func classifyOverlap(largeRegion *PixelBuffer, smallRegion *PixelBuffer, matchScore float64, cfg Config) *classification {
	if matchScore > cfg.HighConfidenceThreshold {
		if cfg.HighConfidencePolicy == PolicyStructural {
			return classify(largeRegion, smallRegion, structuralDifferent)
		}
		return classify(largeRegion, smallRegion, exactDifferent)
	}

	threshold := cfg.ColorThreshold
	if cfg.ColorMetric == MetricCIEDE2000 {
		return classify(largeRegion, smallRegion, func(p1 []uint8, p2 []uint8) bool {
			return ciede2000Distance(p1, p2) > threshold
		})
	}
	return classify(largeRegion, smallRegion, func(p1 []uint8, p2 []uint8) bool {
		return euclideanDistance(p1, p2) > threshold
	})
}

// classify writes red for differing pixels and the first buffer's colour
// otherwise, always fully opaque.
func classify(a *PixelBuffer, b *PixelBuffer, different func(p1 []uint8, p2 []uint8) bool) *classification {
	c := &classification{
		diff: NewPixelBuffer(a.Width, a.Height),
		mask: make([]bool, a.Width*a.Height),
	}
	if a.Height == 0 || a.Width == 0 {
		return c
	}

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := min(runtime.GOMAXPROCS(0), a.Height)
	rowsPerWorker := a.Height / numWorkers

	var differing atomic.Uint64
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = a.Height
		}

		go func(startY int, endY int) {
			defer wg.Done()

			var local uint64
			for y := startY; y < endY; y++ {
				for x := 0; x < a.Width; x++ {
					offset := a.PixOffset(x, y)
					p1 := a.Pix[offset : offset+4 : offset+4]
					p2 := b.Pix[offset : offset+4 : offset+4]
					d := c.diff.Pix[offset : offset+4 : offset+4]

					if different(p1, p2) {
						d[0], d[1], d[2], d[3] = 255, 0, 0, 255
						c.mask[y*a.Width+x] = true
						local++
					} else {
						d[0], d[1], d[2], d[3] = p1[0], p1[1], p1[2], 255
					}
				}
			}
			differing.Add(local)
		}(startY, endY)
	}

	wg.Wait()
	c.differing = differing.Load()

	return c
}

func exactDifferent(p1 []uint8, p2 []uint8) bool {
	return p1[0] != p2[0] || p1[1] != p2[1] || p1[2] != p2[2]
}

func structuralDifferent(p1 []uint8, p2 []uint8) bool {
	return isLight(p1) != isLight(p2)
}

func isLight(p []uint8) bool {
	return (float64(p[0])+float64(p[1])+float64(p[2]))/3 > 128
}

func euclideanDistance(p1 []uint8, p2 []uint8) float64 {
	dr := float64(p1[0]) - float64(p2[0])
	dg := float64(p1[1]) - float64(p2[1])
	db := float64(p1[2]) - float64(p2[2])
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func ciede2000Distance(p1 []uint8, p2 []uint8) float64 {
	c1 := colorful.Color{
		R: float64(p1[0]) / 255.0,
		G: float64(p1[1]) / 255.0,
		B: float64(p1[2]) / 255.0,
	}
	c2 := colorful.Color{
		R: float64(p2[0]) / 255.0,
		G: float64(p2[1]) / 255.0,
		B: float64(p2[2]) / 255.0,
	}
	return c1.DistanceCIEDE2000(c2) * 100
}

// roundPercent rounds differing/total as a percentage to two decimals.
func roundPercent(differing uint64, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(differing)/float64(total)*10000) / 100
}
