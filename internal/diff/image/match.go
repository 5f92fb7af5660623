package image

import (
	"image"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
)

type MatchResult struct {
	Offset image.Point
	Score  float64
}

// Matcher finds where a small buffer sits inside a large one with a coarse
// grid search followed by a full-resolution search around the coarse optimum.
type Matcher struct {
	Log     logr.Logger
	Workers int
}

func NewMatcher(log logr.Logger) *Matcher {
	return &Matcher{
		Log: log,
	}
}

// CoarseStep is the offset step (and sampling stride) of the coarse search.
func CoarseStep(largeWidth int, largeHeight int) int {
	return max(4, min(largeWidth, largeHeight)/80)
}

// FineRadius is the half-width of the neighbourhood searched pixel by pixel
// around the coarse optimum.
func FineRadius(step int) int {
	return max(step*2, 8)
}

// Match returns the best-scoring top-left offset of small inside large. When
// small exceeds large on an axis, only the part of small that fits is used as
// the template and the offset on that axis is 0.
func (m *Matcher) Match(large *PixelBuffer, small *PixelBuffer) MatchResult {
	width := min(small.Width, large.Width)
	height := min(small.Height, large.Height)
	maxX := large.Width - width
	maxY := large.Height - height

	s := newScorer(large, small, width, height)

	step := CoarseStep(large.Width, large.Height)
	s.prepare(step)
	coarse := m.scan(s, span{0, maxX, step}, span{0, maxY, step}, step, -1)
	result := MatchResult{Score: -1}
	if coarse.found {
		result = MatchResult{Offset: coarse.offset, Score: coarse.score}
	}
	m.log().V(1).Info("coarse search finished", "step", step, "x", result.Offset.X, "y", result.Offset.Y, "score", result.Score)

	radius := FineRadius(step)
	xs := span{max(0, result.Offset.X-radius), min(maxX, result.Offset.X+radius), 1}
	ys := span{max(0, result.Offset.Y-radius), min(maxY, result.Offset.Y+radius), 1}
	if xs.empty() || ys.empty() {
		m.log().V(1).Info("fine search window is empty, keeping coarse result", "radius", radius)
		return result
	}

	s.prepare(1)
	fine := m.scan(s, xs, ys, 1, result.Score)
	if fine.found {
		m.log().V(1).Info("fine search improved match", "x", fine.offset.X, "y", fine.offset.Y, "score", fine.score, "improvement", fine.score-result.Score)
		result = MatchResult{Offset: fine.offset, Score: fine.score}
	}

	return result
}

// span is the inclusive range start, start+step, ..., <= end.
type span struct {
	start int
	end   int
	step  int
}

func (s span) empty() bool {
	return s.start > s.end
}

func (s span) values() []int {
	if s.empty() {
		return nil
	}
	values := make([]int, 0, (s.end-s.start)/s.step+1)
	for v := s.start; v <= s.end; v += s.step {
		values = append(values, v)
	}
	return values
}

type candidate struct {
	offset image.Point
	score  float64
	found  bool
}

// scan scores every offset of xs×ys in row-major order and returns the first
// offset holding the maximum score strictly above seed. Rows are split into
// contiguous bands per worker and the band results are reduced in scan order,
// which gives the same answer as a sequential scan.
func (m *Matcher) scan(s *scorer, xs span, ys span, stride int, seed float64) candidate {
	rows := ys.values()
	columns := xs.values()
	if len(rows) == 0 || len(columns) == 0 {
		return candidate{score: seed}
	}

	numWorkers := min(m.workers(), len(rows))
	rowsPerWorker := len(rows) / numWorkers
	results := make([]candidate, numWorkers)

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		start := i * rowsPerWorker
		end := start + rowsPerWorker
		if i == numWorkers-1 {
			end = len(rows)
		}

		go func(i int, band []int) {
			defer wg.Done()
			best := candidate{score: seed}
			for _, y := range band {
				for _, x := range columns {
					score := s.score(x, y, stride)
					if score > best.score {
						best = candidate{offset: image.Point{X: x, Y: y}, score: score, found: true}
					}
				}
			}
			results[i] = best
		}(i, rows[start:end])
	}

	wg.Wait()

	best := candidate{score: seed}
	for _, r := range results {
		if r.found && r.score > best.score {
			best = r
		}
	}
	return best
}

func (m *Matcher) workers() int {
	if m.Workers > 0 {
		return m.Workers
	}
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	return runtime.GOMAXPROCS(0)
}

func (m *Matcher) log() logr.Logger {
	if m.Log.GetSink() == nil {
		return logr.Discard()
	}
	return m.Log
}
