// Package training adapts a raw volume and its ground-truth ink
// annotation into fixed-shape training examples for a classifier. A
// sampler owns a shuffled pool of fragment-valid surface points and a
// cursor into it; batches of (input window, one-hot label) pairs are
// drawn from the pool, with the pool reshuffled at each epoch boundary.
package training

import (
	"fmt"
	"math/rand"

	"scrollink/internal/grid"
	"scrollink/pkg/surface"
	"scrollink/pkg/volume"
)

// inkLabel is the probability assigned to confidently-inked points.
// Slightly under 1 so a sigmoid consumer is not driven into saturation.
const inkLabel = 0.99

// Params control the windowing of training examples. They mirror the
// feature-extraction parameters: each example is a
// (2*NeighborRadius, CutIn+CutBack) crop around a surface point.
type Params struct {
	CutIn, CutBack, NeighborRadius int

	// Threshold is the intensity threshold for surface detection.
	Threshold float64
}

// Batch holds a batch of training examples as flat arrays. Inputs is
// Size windows of WindowRows x WindowCols values; Labels is Size
// two-element vectors [ink, 1-ink], nil for prediction batches.
type Batch struct {
	Inputs []float64
	Labels []float64

	Size, WindowRows, WindowCols int
}

// Input returns the window of one example as a flat slice.
func (b *Batch) Input(i int) []float64 {
	n := b.WindowRows * b.WindowCols
	return b.Inputs[i*n : (i+1)*n]
}

// Label returns the two-element label of one example.
func (b *Batch) Label(i int) []float64 {
	return b.Labels[i*2 : (i+1)*2]
}

// Sampler emits training batches from a volume and ground truth. The
// cursor and pool are mutated by NextBatch and must not be shared
// between goroutines without external locking.
type Sampler struct {
	vol    *volume.Volume  // (row, col, depth)
	truth  *grid.FloatGrid // conservative labels
	mask   *grid.BoolGrid
	surf   *grid.IntGrid
	params Params

	pool   []int
	cursor int
	epoch  int
	style  string
	rng    *rand.Rand
}

// NewSampler builds a sampler from a raw (row, col, depth) volume and a
// raw 0/1 ink annotation of matching (row, col) shape.
//
// The annotation is clamped to {0, 1} and then relabeled conservatively:
// a point is labeled ink (0.99) only if its entire NeighborRadius-wide
// spatial neighborhood is uniformly ink-positive, else not ink (0). The
// fragment surface is detected with the standard fragment buffer.
func NewSampler(vol *volume.Volume, rawTruth *grid.FloatGrid, p Params, seed int64) (*Sampler, error) {
	shape := vol.Shape()
	rows, cols := shape[0], shape[1]
	if rawTruth.Rows != rows || rawTruth.Cols != cols {
		return nil, fmt.Errorf("ground truth shape %dx%d does not match volume %dx%d",
			rawTruth.Rows, rawTruth.Cols, rows, cols)
	}

	s := &Sampler{
		vol:    vol,
		truth:  relabelConservative(rawTruth, p.NeighborRadius),
		params: p,
		rng:    rand.New(rand.NewSource(seed)),
	}
	s.mask, s.surf = surface.FindSurface(vol, p.Threshold, surface.DefaultFragmentBuffer)
	return s, nil
}

// relabelConservative derives the label map from a raw annotation.
// The raw values are clamped to {0, 1}; a point is positive only when
// the nr-wide neighborhood mean is exactly 1.
func relabelConservative(raw *grid.FloatGrid, nr int) *grid.FloatGrid {
	rows, cols := raw.Rows, raw.Cols

	clamped := grid.NewFloatGrid(rows, cols)
	for idx, v := range raw.Data {
		if v > 0 {
			clamped.Data[idx] = 1
		}
	}

	truth := grid.NewFloatGrid(rows, cols)
	for i := nr; i < rows-nr; i++ {
		for j := nr; j < cols-nr; j++ {
			allInk := true
			for ni := i - nr; allInk && ni < i+nr; ni++ {
				for nj := j - nr; nj < j+nr; nj++ {
					if clamped.At(ni, nj) != 1 {
						allInk = false
						break
					}
				}
			}
			if allInk {
				truth.Set(i, j, inkLabel)
			}
		}
	}
	return truth
}

// SelectTrainingPolicy builds the active index pool from the
// fragment-valid points and the given style, then shuffles it and
// resets the cursor.
//
// Styles:
//   - "drop": keep a random dropout fraction of the pool; dropout
//     must be in [0, 1].
//   - "rhalf": keep only points in the right half of the width.
//   - "lhalf": keep only points in the left half of the width.
//
// The half splits are by column against width/2.
func (s *Sampler) SelectTrainingPolicy(style string, dropout float64) error {
	rows, cols := s.mask.Rows, s.mask.Cols

	var pool []int
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if s.mask.At(i, j) {
				pool = append(pool, i*cols+j)
			}
		}
	}

	switch style {
	case "drop":
		if dropout < 0 || dropout > 1 {
			return fmt.Errorf("dropout %v outside [0, 1]", dropout)
		}
		s.rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
		pool = pool[:int(dropout*float64(len(pool)))]
	case "rhalf":
		pool = filterByColumn(pool, cols, func(col int) bool { return col >= cols/2 })
	case "lhalf":
		pool = filterByColumn(pool, cols, func(col int) bool { return col < cols/2 })
	default:
		return fmt.Errorf("unknown training style %q", style)
	}

	s.rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
	s.pool = pool
	s.style = style
	s.cursor = 0
	s.epoch = 0
	return nil
}

func filterByColumn(pool []int, cols int, keep func(col int) bool) []int {
	out := pool[:0]
	for _, ind := range pool {
		if keep(ind % cols) {
			out = append(out, ind)
		}
	}
	return out
}

// NextBatch draws batchSize examples from the active pool. When the
// cursor would run past the pool, it wraps to zero and the pool is
// reshuffled first, marking an epoch boundary. Each example is flipped
// vertically with 50% probability as augmentation. A point whose window
// falls outside the sampling bounds stays a zero example; the batch
// arrays are pre-zeroed and only overwritten on a full in-bounds window.
func (s *Sampler) NextBatch(batchSize int) (*Batch, error) {
	if len(s.pool) == 0 {
		return nil, fmt.Errorf("no training pool selected; call SelectTrainingPolicy first")
	}

	b := s.newBatch(batchSize, true)

	if s.cursor+batchSize > len(s.pool) {
		s.cursor = 0
		s.rng.Shuffle(len(s.pool), func(x, y int) { s.pool[x], s.pool[y] = s.pool[y], s.pool[x] })
		s.epoch++
	}

	for c := 0; c < batchSize && s.cursor+c < len(s.pool); c++ {
		ind := s.pool[s.cursor+c]
		if s.fillExample(b, c, ind) {
			if s.rng.Intn(2) == 0 {
				flipVertical(b.Input(c), b.WindowRows, b.WindowCols)
			}
			row, col := ind/s.mask.Cols, ind%s.mask.Cols
			label := b.Label(c)
			label[0] = s.truth.At(row, col)
			label[1] = 1 - s.truth.At(row, col)
		}
	}

	s.cursor += batchSize
	return b, nil
}

// PredictBatch windows every (row, col) point exactly once in row-major
// order, without shuffling or augmentation, for full-surface inference.
func (s *Sampler) PredictBatch() *Batch {
	rows, cols := s.mask.Rows, s.mask.Cols
	b := s.newBatch(rows*cols, false)
	for ind := 0; ind < rows*cols; ind++ {
		s.fillExample(b, ind, ind)
	}
	return b
}

func (s *Sampler) newBatch(size int, labeled bool) *Batch {
	b := &Batch{
		Size:       size,
		WindowRows: 2 * s.params.NeighborRadius,
		WindowCols: s.params.CutIn + s.params.CutBack,
	}
	b.Inputs = make([]float64, size*b.WindowRows*b.WindowCols)
	if labeled {
		b.Labels = make([]float64, size*2)
	}
	return b
}

// fillExample copies the window for a linear index into slot c of the
// batch, reporting whether the window was fully in bounds. Out-of-bounds
// windows leave the slot zeroed.
func (s *Sampler) fillExample(b *Batch, c, ind int) bool {
	shape := s.vol.Shape()
	cols, depth := shape[1], shape[2]
	row, col := ind/cols, ind%cols

	nr := s.params.NeighborRadius
	surf := s.surf.At(row, col)
	dLo := surf - s.params.CutBack
	dHi := surf + s.params.CutIn

	if col-nr < 0 || col+nr > cols || dLo < 0 || dHi > depth {
		return false
	}

	dst := b.Input(c)
	for w := 0; w < b.WindowRows; w++ {
		for h := 0; h < b.WindowCols; h++ {
			dst[w*b.WindowCols+h] = s.vol.At(row, col-nr+w, dLo+h)
		}
	}
	return true
}

// flipVertical reverses the spatial axis of a window in place.
func flipVertical(win []float64, rows, cols int) {
	for top, bot := 0, rows-1; top < bot; top, bot = top+1, bot-1 {
		for h := 0; h < cols; h++ {
			win[top*cols+h], win[bot*cols+h] = win[bot*cols+h], win[top*cols+h]
		}
	}
}

// Epoch returns how many times the pool has wrapped and reshuffled.
func (s *Sampler) Epoch() int { return s.epoch }

// PoolSize returns the size of the active training pool.
func (s *Sampler) PoolSize() int { return len(s.pool) }

// Pool returns a copy of the active index pool in its current order.
func (s *Sampler) Pool() []int {
	out := make([]int, len(s.pool))
	copy(out, s.pool)
	return out
}

// OutputShape returns the (rows, cols) shape of per-point outputs.
func (s *Sampler) OutputShape() (rows, cols int) {
	return s.mask.Rows, s.mask.Cols
}

// FragmentMask returns the detected fragment validity mask.
func (s *Sampler) FragmentMask() *grid.BoolGrid { return s.mask }

// SurfaceMap returns the detected surface index map.
func (s *Sampler) SurfaceMap() *grid.IntGrid { return s.surf }

// Labels returns the conservative label map.
func (s *Sampler) Labels() *grid.FloatGrid { return s.truth }

// ExcludePoints removes active pool entries whose sampling windows of
// the given side length overlap any of the listed (row, col) points,
// and resets the cursor. Applied after SelectTrainingPolicy, it keeps
// training windows disjoint from held-out evaluation points.
func (s *Sampler) ExcludePoints(points [][2]int, side int) {
	cols := s.mask.Cols
	kept := s.pool[:0]
	for _, ind := range s.pool {
		row, col := ind/cols, ind%cols
		overlaps := false
		for _, p := range points {
			if WindowsOverlap(row, col, p[0], p[1], side) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, ind)
		}
	}
	s.pool = kept
	s.cursor = 0
}

// WindowsOverlap reports whether square sampling windows of the given
// side length centered at two (row, col) points would overlap.
func WindowsOverlap(r1, c1, r2, c2, side int) bool {
	return abs(r1-r2) < side && abs(c1-c2) < side
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
