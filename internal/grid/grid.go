// Package grid provides the 2D array types shared by the surface,
// features and training packages. Each grid stores its values in a flat
// slice in row-major order with explicit dimensions, matching the layout
// used for volume data.
package grid

// FloatGrid is a dense 2D array of float64 values.
type FloatGrid struct {
	// Data holds the values in row-major order
	Data []float64

	// Rows and Cols are the grid dimensions
	Rows, Cols int
}

// NewFloatGrid creates a zero-filled FloatGrid with the given dimensions.
func NewFloatGrid(rows, cols int) *FloatGrid {
	return &FloatGrid{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// At returns the value at (row, col).
func (g *FloatGrid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores a value at (row, col).
func (g *FloatGrid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// IntGrid is a dense 2D array of integer values, used for surface index
// maps where each entry is a depth index into a volume.
type IntGrid struct {
	Data       []int
	Rows, Cols int
}

// NewIntGrid creates a zero-filled IntGrid with the given dimensions.
func NewIntGrid(rows, cols int) *IntGrid {
	return &IntGrid{
		Data: make([]int, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// At returns the value at (row, col).
func (g *IntGrid) At(row, col int) int {
	return g.Data[row*g.Cols+col]
}

// Set stores a value at (row, col).
func (g *IntGrid) Set(row, col int, v int) {
	g.Data[row*g.Cols+col] = v
}

// BoolGrid is a dense 2D array of booleans, used for fragment masks.
type BoolGrid struct {
	Data       []bool
	Rows, Cols int
}

// NewBoolGrid creates a false-filled BoolGrid with the given dimensions.
func NewBoolGrid(rows, cols int) *BoolGrid {
	return &BoolGrid{
		Data: make([]bool, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

// At returns the value at (row, col).
func (g *BoolGrid) At(row, col int) bool {
	return g.Data[row*g.Cols+col]
}

// Set stores a value at (row, col).
func (g *BoolGrid) Set(row, col int, v bool) {
	g.Data[row*g.Cols+col] = v
}

// Count returns the number of true entries in the grid.
func (g *BoolGrid) Count() int {
	n := 0
	for _, v := range g.Data {
		if v {
			n++
		}
	}
	return n
}
