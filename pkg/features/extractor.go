package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"scrollink/internal/grid"
	"scrollink/pkg/volume"
)

// NumChannels is the number of feature channels in an extracted image:
// six single-profile statistics and four neighborhood aggregates.
const NumChannels = 10

// Params control a feature extraction run. CutIn, CutBack and
// NeighborRadius together determine the cache key.
type Params struct {
	// CutIn is the length of the depth window taken into the fragment
	// from the (possibly backed-up) surface.
	CutIn int

	// CutBack is how far behind the detected surface the depth window
	// starts. The start is clamped at zero rather than going negative.
	CutBack int

	// NeighborRadius is the spatial radius of the neighborhood
	// aggregates.
	NeighborRadius int

	// Threshold is the intensity threshold for the depth-count
	// channels.
	Threshold float64
}

// Extractor computes feature images, memoizing results through an
// optional store.
type Extractor struct {
	store Store
}

// NewExtractor creates an extractor. A nil store disables memoization.
func NewExtractor(store Store) *Extractor {
	return &Extractor{store: store}
}

// Extract computes the per-pixel feature image for a (row, col, depth)
// volume and its surface map.
//
// For every (row, col), six statistics are taken over the depth window
// [max(surface-CutBack, 0), start+CutIn): the count of samples above
// Threshold, mean, sum, min, max and standard deviation. For every
// (row, col) with a full NeighborRadius margin, four more aggregates
// (mean, sum, standard deviation and below-threshold count) are taken
// over the flattened spatial-neighborhood block spanning the same depth
// windows. Each channel is normalized to unit L2 norm as one flattened
// vector, with non-finite values coerced to zero first, and the channels
// are stacked into a (rows, cols, NumChannels) image.
//
// Results are memoized by (CutIn, CutBack, NeighborRadius); a cached
// image is returned unchanged.
func (e *Extractor) Extract(vol *volume.Volume, surf *grid.IntGrid, p Params) (*FeatureImage, error) {
	key := CacheKey(p.CutIn, p.CutBack, p.NeighborRadius)
	if e.store != nil {
		if img, ok := e.store.Get(key); ok {
			return img, nil
		}
	}

	shape := vol.Shape()
	rows, cols, depth := shape[0], shape[1], shape[2]

	depthVals := make([]float64, rows*cols)
	avgVals := make([]float64, rows*cols)
	sumVals := make([]float64, rows*cols)
	minVals := make([]float64, rows*cols)
	maxVals := make([]float64, rows*cols)
	stdVals := make([]float64, rows*cols)

	window := make([]float64, 0, p.CutIn)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			start, end := depthWindow(surf.At(i, j), p.CutIn, p.CutBack, depth)
			if end <= start {
				continue // empty window, all statistics stay zero
			}

			window = window[:0]
			above := 0
			for d := start; d < end; d++ {
				v := vol.At(i, j, d)
				window = append(window, v)
				if v > p.Threshold && v != 0 {
					above++
				}
			}

			idx := i*cols + j
			depthVals[idx] = float64(above)
			avgVals[idx] = stat.Mean(window, nil)
			sumVals[idx] = floats.Sum(window)
			minVals[idx] = floats.Min(window)
			maxVals[idx] = floats.Max(window)
			stdVals[idx] = stat.PopStdDev(window, nil)
		}
	}

	meanNeigh := make([]float64, rows*cols)
	sumNeigh := make([]float64, rows*cols)
	stdNeigh := make([]float64, rows*cols)
	depthNeigh := make([]float64, rows*cols)

	nr := p.NeighborRadius
	block := make([]float64, 0, (2*nr+1)*(2*nr+1)*p.CutIn)
	for i := nr; i < rows-nr; i++ {
		for j := nr; j < cols-nr; j++ {
			start, end := depthWindow(surf.At(i, j), p.CutIn, p.CutBack, depth)
			if end <= start {
				continue
			}

			block = block[:0]
			below := 0
			for ni := i - nr; ni <= i+nr; ni++ {
				for nj := j - nr; nj <= j+nr; nj++ {
					for d := start; d < end; d++ {
						v := vol.At(ni, nj, d)
						block = append(block, v)
						if v < p.Threshold && v != 0 {
							below++
						}
					}
				}
			}

			idx := i*cols + j
			meanNeigh[idx] = stat.Mean(block, nil)
			sumNeigh[idx] = floats.Sum(block)
			stdNeigh[idx] = stat.PopStdDev(block, nil)
			depthNeigh[idx] = float64(below)
		}
	}

	channels := [][]float64{
		sumVals, depthVals, avgVals, minVals, maxVals, stdVals,
		meanNeigh, sumNeigh, stdNeigh, depthNeigh,
	}
	for _, ch := range channels {
		normalize(ch)
	}

	img := NewFeatureImage(rows, cols, len(channels))
	for ch, m := range channels {
		for idx, v := range m {
			img.Data[idx*img.Channels+ch] = v
		}
	}

	if e.store != nil {
		// Best effort: a cache that cannot be written only costs a
		// recompute next run.
		_ = e.store.Put(key, img)
	}
	return img, nil
}

// depthWindow returns the half-open depth interval anchored at a surface
// index. The back-cut is clamped at zero and the end is clamped at the
// volume's depth, so the window may be shorter than CutIn or empty.
func depthWindow(surf, cutIn, cutBack, depth int) (start, end int) {
	start = surf - cutBack
	if start < 0 {
		start = 0
	}
	end = start + cutIn
	if end > depth {
		end = depth
	}
	return start, end
}

// normalize scales a feature map to unit L2 norm in place, treating it
// as one flattened vector. Non-finite entries are coerced to zero before
// the norm is taken so a degenerate window cannot poison the channel.
func normalize(m []float64) {
	for i, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m[i] = 0
		}
	}
	norm := floats.Norm(m, 2)
	if norm > 0 {
		floats.Scale(1/norm, m)
	}
}
