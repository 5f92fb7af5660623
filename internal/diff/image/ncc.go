package image

import "math"

// Score returns the normalized cross-correlation between small and the region
// of large whose top-left corner is (offsetX, offsetY), sampling every
// sampleStride(stride)-th pixel. A zero-variance region scores 0.
func Score(large *PixelBuffer, small *PixelBuffer, offsetX int, offsetY int, stride int) float64 {
	return newScorer(large, small, small.Width, small.Height).score(offsetX, offsetY, stride)
}

// scorer caches the channel sums of both buffers and the template mean per
// sampling step. The template is the top-left width×height extent of small.
type scorer struct {
	large  *channelSums
	small  *channelSums
	width  int
	height int
	means  map[int]smallStats
}

type smallStats struct {
	mean  float64
	count int
}

func newScorer(large *PixelBuffer, small *PixelBuffer, width int, height int) *scorer {
	return &scorer{
		large:  newChannelSums(large),
		small:  newChannelSums(small),
		width:  width,
		height: height,
		means:  map[int]smallStats{},
	}
}

// prepare caches the template mean for stride. Calls must not overlap with
// concurrent score calls.
func (s *scorer) prepare(stride int) smallStats {
	step := sampleStride(stride)
	if st, ok := s.means[step]; ok {
		return st
	}
	mean, count := s.small.stats(0, 0, s.width, s.height, step)
	st := smallStats{mean: mean, count: count}
	s.means[step] = st
	return st
}

func (s *scorer) score(offsetX int, offsetY int, stride int) float64 {
	step := sampleStride(stride)
	st, ok := s.means[step]
	if !ok {
		mean, count := s.small.stats(0, 0, s.width, s.height, step)
		st = smallStats{mean: mean, count: count}
	}
	if st.count == 0 {
		return 0
	}

	largeMean, largeCount := s.large.stats(offsetX, offsetY, s.width, s.height, step)
	if largeCount == 0 {
		return 0
	}

	var numerator float64
	var largeSumSq float64
	var smallSumSq float64
	for dy := 0; dy < s.height; dy += step {
		for dx := 0; dx < s.width; dx += step {
			lx := offsetX + dx
			ly := offsetY + dy
			if !s.large.inBounds(lx, ly) || !s.small.inBounds(dx, dy) {
				continue
			}

			largeDiff := s.large.gray(lx, ly) - largeMean
			smallDiff := s.small.gray(dx, dy) - st.mean

			numerator += largeDiff * smallDiff
			largeSumSq += largeDiff * largeDiff
			smallSumSq += smallDiff * smallDiff
		}
	}

	denominator := math.Sqrt(largeSumSq * smallSumSq)
	if denominator > 0 {
		return numerator / denominator
	}
	return 0
}
