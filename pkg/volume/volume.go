// Package volume provides the dense 3D intensity field underlying the
// feature-extraction pipeline. It supports direct voxel access, trilinear
// interpolation at subvoxel positions, and extraction of subvolumes at
// arbitrary orientations.
package volume

import (
	"fmt"
	"math"
)

// Volume is a dense 3D array of scalar intensities stored in a flat slice
// in row-major order with explicit dimensions. The shape is fixed at
// construction.
//
// A volume built from a slice stack is indexed (z, y, x) with z the slice
// index; the surface-relative components instead treat the three axes as
// (row, col, depth), with the depth profile running along the last axis.
// Both views share the same storage, so axis order is a documentation
// convention of each call site, as with any dense array.
type Volume struct {
	data  []float64
	shape [3]int
}

// New creates a zero-filled volume with the given shape.
func New(shape [3]int) *Volume {
	return &Volume{
		data:  make([]float64, shape[0]*shape[1]*shape[2]),
		shape: shape,
	}
}

// NewFromData creates a volume wrapping the given flat data. The data
// length must match the product of the shape dimensions.
func NewFromData(data []float64, shape [3]int) (*Volume, error) {
	if len(data) != shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("data length %d does not match shape %v", len(data), shape)
	}
	return &Volume{data: data, shape: shape}, nil
}

// Shape returns the volume dimensions along the three axes.
func (v *Volume) Shape() [3]int {
	return v.shape
}

// Data returns the flat backing slice. Callers must treat it as
// read-only once the volume is built.
func (v *Volume) Data() []float64 {
	return v.data
}

// At returns the voxel value at integer indices along the three storage
// axes. Indices must be in bounds; the flat index computed from
// out-of-range indices would alias another voxel, so bounds are checked
// explicitly.
func (v *Volume) At(i, j, k int) float64 {
	if i < 0 || i >= v.shape[0] || j < 0 || j >= v.shape[1] || k < 0 || k >= v.shape[2] {
		panic(fmt.Sprintf("volume: index (%d, %d, %d) out of range for shape %v", i, j, k, v.shape))
	}
	return v.data[(i*v.shape[1]+j)*v.shape[2]+k]
}

// Set stores a voxel value at integer indices along the storage axes.
func (v *Volume) Set(i, j, k int, val float64) {
	if i < 0 || i >= v.shape[0] || j < 0 || j >= v.shape[1] || k < 0 || k >= v.shape[2] {
		panic(fmt.Sprintf("volume: index (%d, %d, %d) out of range for shape %v", i, j, k, v.shape))
	}
	v.data[(i*v.shape[1]+j)*v.shape[2]+k] = val
}

// IntensityAt returns the raw voxel value at a position given in (x, y, z)
// order against a (z, y, x) volume. Each coordinate is truncated to an
// integer index. Out-of-range positions return an error.
func (v *Volume) IntensityAt(x, y, z float64) (float64, error) {
	xi, yi, zi := int(x), int(y), int(z)
	if zi < 0 || zi >= v.shape[0] || yi < 0 || yi >= v.shape[1] || xi < 0 || xi >= v.shape[2] {
		return 0, fmt.Errorf("position (%g, %g, %g) outside volume of shape %v", x, y, z, v.shape)
	}
	return v.data[(zi*v.shape[1]+yi)*v.shape[2]+xi], nil
}

// InterpolateAt returns the trilinearly interpolated intensity at a
// subvoxel position given in (x, y, z) order. Each coordinate is split
// into an integer lattice index and a fractional remainder, and the eight
// lattice neighbors are blended along x, then y, then z. With all
// fractional parts zero this degenerates to IntensityAt.
func (v *Volume) InterpolateAt(x, y, z float64) (float64, error) {
	x0, dx := math.Floor(x), x-math.Floor(x)
	y0, dy := math.Floor(y), y-math.Floor(y)
	z0, dz := math.Floor(z), z-math.Floor(z)

	// An exact lattice coordinate must not reach for the neighbor
	// above it, so the upper corner collapses onto the lower one at
	// zero fraction. This also makes the final lattice plane of the
	// volume addressable.
	x1, y1, z1 := x0+1, y0+1, z0+1
	if dx == 0 {
		x1 = x0
	}
	if dy == 0 {
		y1 = y0
	}
	if dz == 0 {
		z1 = z0
	}

	var vals [8]float64
	corners := [8][3]float64{
		{x0, y0, z0}, {x1, y0, z0},
		{x0, y1, z0}, {x1, y1, z0},
		{x0, y0, z1}, {x1, y0, z1},
		{x0, y1, z1}, {x1, y1, z1},
	}
	for i, c := range corners {
		val, err := v.IntensityAt(c[0], c[1], c[2])
		if err != nil {
			return 0, err
		}
		vals[i] = val
	}

	c00 := vals[0]*(1-dx) + vals[1]*dx
	c10 := vals[2]*(1-dx) + vals[3]*dx
	c01 := vals[4]*(1-dx) + vals[5]*dx
	c11 := vals[6]*(1-dx) + vals[7]*dx

	c0 := c00*(1-dy) + c10*dy
	c1 := c01*(1-dy) + c11*dy

	return c0*(1-dz) + c1*dz, nil
}

// identityFrame reports whether the three axis vectors are the canonical
// basis, in which case subvolume extraction reduces to an axis-aligned
// crop.
func identityFrame(xVec, yVec, zVec [3]float64) bool {
	return xVec == [3]float64{1, 0, 0} &&
		yVec == [3]float64{0, 1, 0} &&
		zVec == [3]float64{0, 0, 1}
}

// Subvolume extracts a block of the given (z, y, x) shape centered at a
// position given in (x, y, z) order, oriented along the three axis
// vectors. The axis vectors should be normalized if one subvolume unit is
// to represent one volume unit.
//
// With the canonical identity frame this is an axis-aligned crop; a crop
// that does not fit entirely within the volume yields an all-zero block
// of the requested shape. With a general frame, every output voxel is
// sampled by interpolation at its transformed position, and samples
// falling outside the volume are zero.
func (v *Volume) Subvolume(center [3]float64, shape [3]int, xVec, yVec, zVec [3]float64) *Volume {
	if identityFrame(xVec, yVec, zVec) {
		return v.cropAligned(center, shape)
	}

	sub := New(shape)
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[2]; x++ {
				// Offset of this voxel from the block center in local
				// axis units. The center may fall between voxels when a
				// side length is even.
				xOff := float64(x) - float64(shape[2]-1)/2.0
				yOff := float64(y) - float64(shape[1]-1)/2.0
				zOff := float64(z) - float64(shape[0]-1)/2.0

				px := center[0] + xOff*xVec[0] + yOff*yVec[0] + zOff*zVec[0]
				py := center[1] + xOff*xVec[1] + yOff*yVec[1] + zOff*zVec[1]
				pz := center[2] + xOff*xVec[2] + yOff*yVec[2] + zOff*zVec[2]

				val, err := v.InterpolateAt(px, py, pz)
				if err != nil {
					continue // outside the volume, leave zero
				}
				sub.Set(z, y, x, val)
			}
		}
	}
	return sub
}

// cropAligned extracts an axis-aligned block centered at the truncated
// center position. If the attempted crop's shape does not equal the
// requested shape, an all-zero block of the requested shape is returned
// instead of a partial one.
func (v *Volume) cropAligned(center [3]float64, shape [3]int) *Volume {
	cx, cy, cz := int(center[0]), int(center[1]), int(center[2])

	z0 := cz - shape[0]/2
	y0 := cy - shape[1]/2
	x0 := cx - shape[2]/2

	if z0 < 0 || z0+shape[0] > v.shape[0] ||
		y0 < 0 || y0+shape[1] > v.shape[1] ||
		x0 < 0 || x0+shape[2] > v.shape[2] {
		return New(shape)
	}

	sub := New(shape)
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			srcBase := ((z0+z)*v.shape[1]+(y0+y))*v.shape[2] + x0
			dstBase := (z*shape[1] + y) * shape[2]
			copy(sub.data[dstBase:dstBase+shape[2]], v.data[srcBase:srcBase+shape[2]])
		}
	}
	return sub
}

// SubvolumeFromNormal extracts a subvolume oriented by a surface normal.
// The rotation aligning the canonical z axis with the normalized normal
// vector is applied to all three canonical axes to obtain the local frame,
// which is then passed to Subvolume. A zero-length normal is an error.
func (v *Volume) SubvolumeFromNormal(center [3]float64, shape [3]int, normal [3]float64) (*Volume, error) {
	rot, err := RotationFromZ(normal)
	if err != nil {
		return nil, err
	}

	xVec := applyRotation(rot, [3]float64{1, 0, 0})
	yVec := applyRotation(rot, [3]float64{0, 1, 0})
	zVec := applyRotation(rot, [3]float64{0, 0, 1})

	return v.Subvolume(center, shape, xVec, yVec, zVec), nil
}
