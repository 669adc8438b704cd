// Package features computes per-surface-point statistical descriptors
// from depth profiles anchored at a detected surface, and stacks them
// into a per-pixel feature image for ink classification.
package features

// FeatureImage is a (rows, cols, channels) array of feature values with
// each channel independently normalized to unit L2 norm. Channels
// computed outside the valid fragment region are background noise but
// are still present; masking is the consumer's responsibility.
type FeatureImage struct {
	// Data holds the values with channel varying fastest:
	// Data[(row*Cols+col)*Channels+ch]
	Data []float64

	Rows, Cols, Channels int
}

// NewFeatureImage creates a zero-filled feature image.
func NewFeatureImage(rows, cols, channels int) *FeatureImage {
	return &FeatureImage{
		Data:     make([]float64, rows*cols*channels),
		Rows:     rows,
		Cols:     cols,
		Channels: channels,
	}
}

// At returns the value of one channel at (row, col).
func (f *FeatureImage) At(row, col, ch int) float64 {
	return f.Data[(row*f.Cols+col)*f.Channels+ch]
}

// Channel returns one channel as a flat row-major slice.
func (f *FeatureImage) Channel(ch int) []float64 {
	out := make([]float64, f.Rows*f.Cols)
	for i := range out {
		out[i] = f.Data[i*f.Channels+ch]
	}
	return out
}
