// Package surface locates the fragment surface within a volume. For each
// (row, col) column of the volume it finds the depth at which the
// intensity first rises above a threshold, and classifies whether the
// column sits inside the scanned fragment rather than in background.
package surface

import (
	"scrollink/internal/grid"
	"scrollink/pkg/volume"
)

// DefaultFragmentBuffer is the neighborhood radius used to verify that a
// point is surrounded by fragment material.
const DefaultFragmentBuffer = 4

// FindSurface scans a (row, col, depth) volume for the fragment surface.
//
// A point is inside the fragment only if, within a
// (2*fragmentBuffer+1)-wide spatial neighborhood, the depth-axis maximum
// at every neighbor exceeds the threshold. Requiring the whole
// neighborhood guards against single noisy voxels at the fragment edge.
// For points inside the fragment, the surface index is the first depth
// index whose intensity exceeds the threshold, not the argmax.
//
// Both returned grids are zero outside the fragment and within
// fragmentBuffer of the volume edge.
func FindSurface(vol *volume.Volume, threshold float64, fragmentBuffer int) (*grid.BoolGrid, *grid.IntGrid) {
	shape := vol.Shape()
	rows, cols, depth := shape[0], shape[1], shape[2]

	// Depth maxima for every column, computed once up front.
	maxes := grid.NewFloatGrid(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			max := vol.At(i, j, 0)
			for d := 1; d < depth; d++ {
				if v := vol.At(i, j, d); v > max {
					max = v
				}
			}
			maxes.Set(i, j, max)
		}
	}

	mask := grid.NewBoolGrid(rows, cols)
	surf := grid.NewIntGrid(rows, cols)

	n := fragmentBuffer
	for i := n; i < rows-n; i++ {
		for j := n; j < cols-n; j++ {
			if !neighborhoodAbove(maxes, i, j, n, threshold) {
				continue
			}
			mask.Set(i, j, true)
			for d := 0; d < depth; d++ {
				if vol.At(i, j, d) > threshold {
					surf.Set(i, j, d)
					break
				}
			}
		}
	}

	return mask, surf
}

// neighborhoodAbove reports whether every depth maximum in the
// (2n+1)x(2n+1) neighborhood of (i, j) exceeds the threshold.
func neighborhoodAbove(maxes *grid.FloatGrid, i, j, n int, threshold float64) bool {
	for di := -n; di <= n; di++ {
		for dj := -n; dj <= n; dj++ {
			if maxes.At(i+di, j+dj) <= threshold {
				return false
			}
		}
	}
	return true
}
