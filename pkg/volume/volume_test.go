package volume

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

// rampVolume builds a volume whose value at (z, y, x) is x + 2y + 3z.
// A trilinear interpolant reproduces a linear field exactly, so expected
// values at fractional positions can be computed in closed form.
func rampVolume(nz, ny, nx int) *Volume {
	v := New([3]int{nz, ny, nx})
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				v.Set(z, y, x, float64(x)+2*float64(y)+3*float64(z))
			}
		}
	}
	return v
}

// TestInterpolateConstantVolume verifies that interpolation of a
// uniform-intensity volume returns the constant everywhere
func TestInterpolateConstantVolume(t *testing.T) {
	v := New([3]int{4, 4, 4})
	for i := range v.Data() {
		v.Data()[i] = 7.5
	}

	positions := [][3]float64{
		{0, 0, 0},
		{1.5, 2.25, 0.75},
		{3, 3, 3},
		{0.1, 2.9, 1.5},
	}
	for _, p := range positions {
		got, err := v.InterpolateAt(p[0], p[1], p[2])
		if err != nil {
			t.Fatalf("InterpolateAt(%v) returned error: %v", p, err)
		}
		if math.Abs(got-7.5) > 1e-12 {
			t.Errorf("Expected 7.5 at %v, got %v", p, got)
		}
	}
}

// TestInterpolateAtLatticePoints verifies that interpolation at exact
// integer positions equals the raw voxel value
func TestInterpolateAtLatticePoints(t *testing.T) {
	v := rampVolume(4, 5, 6)
	for z := 0; z < 4; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 6; x++ {
				want, err := v.IntensityAt(float64(x), float64(y), float64(z))
				if err != nil {
					t.Fatalf("IntensityAt(%d, %d, %d) returned error: %v", x, y, z, err)
				}
				got, err := v.InterpolateAt(float64(x), float64(y), float64(z))
				if err != nil {
					t.Fatalf("InterpolateAt(%d, %d, %d) returned error: %v", x, y, z, err)
				}
				if got != want {
					t.Errorf("Expected interpolate(%d, %d, %d)=%v, got %v", x, y, z, want, got)
				}
			}
		}
	}
}

// TestInterpolateLinearField verifies the interpolation against the
// closed-form value of a linear intensity field
func TestInterpolateLinearField(t *testing.T) {
	v := rampVolume(4, 4, 4)

	positions := [][3]float64{
		{1.5, 1.25, 0.5},
		{0.25, 2.75, 1.9},
		{2.5, 0.5, 2.5},
	}
	for _, p := range positions {
		want := p[0] + 2*p[1] + 3*p[2]
		got, err := v.InterpolateAt(p[0], p[1], p[2])
		if err != nil {
			t.Fatalf("InterpolateAt(%v) returned error: %v", p, err)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Expected %v at %v, got %v", want, p, got)
		}
	}
}

// TestIntensityAtOutOfRange verifies that out-of-range access fails
// explicitly instead of clamping or wrapping
func TestIntensityAtOutOfRange(t *testing.T) {
	v := New([3]int{2, 2, 2})

	bad := [][3]float64{
		{-1, 0, 0},
		{0, 0, 2},
		{0, 5, 0},
	}
	for _, p := range bad {
		if _, err := v.IntensityAt(p[0], p[1], p[2]); err == nil {
			t.Errorf("Expected error for position %v, got none", p)
		}
	}
}

// TestSubvolumeIdentityCrop verifies that extraction with the canonical
// frame equals a direct slice of the source array
func TestSubvolumeIdentityCrop(t *testing.T) {
	v := rampVolume(6, 6, 6)

	sub := v.Subvolume([3]float64{3, 3, 3}, [3]int{4, 4, 4},
		[3]float64{1, 0, 0}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1})

	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				want := v.At(1+z, 1+y, 1+x)
				if got := sub.At(z, y, x); got != want {
					t.Errorf("Expected sub(%d, %d, %d)=%v, got %v", z, y, x, want, got)
				}
			}
		}
	}
}

// TestSubvolumeZeroFill verifies the edge policy: an axis-aligned crop
// that does not fit yields an all-zero block of the requested shape
func TestSubvolumeZeroFill(t *testing.T) {
	v := rampVolume(6, 6, 6)

	sub := v.Subvolume([3]float64{0, 0, 0}, [3]int{4, 4, 4},
		[3]float64{1, 0, 0}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1})

	if sub.Shape() != [3]int{4, 4, 4} {
		t.Fatalf("Expected shape [4 4 4], got %v", sub.Shape())
	}
	want := New([3]int{4, 4, 4})
	if diff := cmp.Diff(want.Data(), sub.Data()); diff != "" {
		t.Errorf("Expected all-zero subvolume (-want +got):\n%s", diff)
	}
}

// TestSubvolumeRotatedOutOfBounds verifies that a rotated frame samples
// zero outside the volume rather than failing
func TestSubvolumeRotatedOutOfBounds(t *testing.T) {
	v := New([3]int{4, 4, 4})
	for i := range v.Data() {
		v.Data()[i] = 1.0
	}

	// A large rotated block centered at a corner reaches outside the
	// volume; those voxels must be zero while interior samples keep
	// the constant value.
	sub := v.Subvolume([3]float64{0, 0, 0}, [3]int{5, 5, 5},
		[3]float64{0, 1, 0}, [3]float64{1, 0, 0}, [3]float64{0, 0, 1})

	if got := sub.At(0, 0, 0); got != 0 {
		t.Errorf("Expected zero at out-of-bounds corner, got %v", got)
	}
	if got := sub.At(3, 3, 3); got != 1.0 {
		t.Errorf("Expected 1.0 at interior voxel, got %v", got)
	}
}

// TestSubvolumeFromNormalIdentity verifies that the canonical normal
// reduces to the axis-aligned crop
func TestSubvolumeFromNormalIdentity(t *testing.T) {
	v := rampVolume(8, 8, 8)

	sub, err := v.SubvolumeFromNormal([3]float64{4, 4, 4}, [3]int{3, 3, 3}, [3]float64{0, 0, 1})
	if err != nil {
		t.Fatalf("SubvolumeFromNormal returned error: %v", err)
	}

	direct := v.Subvolume([3]float64{4, 4, 4}, [3]int{3, 3, 3},
		[3]float64{1, 0, 0}, [3]float64{0, 1, 0}, [3]float64{0, 0, 1})

	if diff := cmp.Diff(direct.Data(), sub.Data()); diff != "" {
		t.Errorf("Normal-oriented subvolume differs from identity crop (-want +got):\n%s", diff)
	}
}

// TestSubvolumeFromNormalConstant verifies that reorientation inside a
// uniform volume still samples the constant
func TestSubvolumeFromNormalConstant(t *testing.T) {
	v := New([3]int{9, 9, 9})
	for i := range v.Data() {
		v.Data()[i] = 3.25
	}

	sub, err := v.SubvolumeFromNormal([3]float64{4, 4, 4}, [3]int{3, 3, 3}, [3]float64{1, 0, 0})
	if err != nil {
		t.Fatalf("SubvolumeFromNormal returned error: %v", err)
	}

	for i, got := range sub.Data() {
		if math.Abs(got-3.25) > 1e-12 {
			t.Errorf("Expected 3.25 at flat index %d, got %v", i, got)
		}
	}
}

// TestSubvolumeFromNormalZeroNormal verifies that a zero-length normal
// is rejected
func TestSubvolumeFromNormalZeroNormal(t *testing.T) {
	v := New([3]int{4, 4, 4})
	if _, err := v.SubvolumeFromNormal([3]float64{2, 2, 2}, [3]int{2, 2, 2}, [3]float64{0, 0, 0}); err == nil {
		t.Errorf("Expected error for zero-length normal, got none")
	}
}

// TestRotationFromZ verifies the rotation takes the canonical z axis
// onto the target direction and stays orthonormal
func TestRotationFromZ(t *testing.T) {
	normals := [][3]float64{
		{0, 0, 1},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, -1},
		{1, 1, 1},
		{-2, 0.5, 3},
	}

	for _, n := range normals {
		rot, err := RotationFromZ(n)
		if err != nil {
			t.Fatalf("RotationFromZ(%v) returned error: %v", n, err)
		}

		// R applied to z must give the normalized normal.
		got := applyRotation(rot, [3]float64{0, 0, 1})
		length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		for i := 0; i < 3; i++ {
			want := n[i] / length
			if math.Abs(got[i]-want) > 1e-12 {
				t.Errorf("RotationFromZ(%v): expected z->%v, got %v", n, [3]float64{n[0] / length, n[1] / length, n[2] / length}, got)
				break
			}
		}

		// R^T R must be the identity.
		var prod mat.Dense
		prod.Mul(rot.T(), rot)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				want := 0.0
				if i == j {
					want = 1.0
				}
				if math.Abs(prod.At(i, j)-want) > 1e-12 {
					t.Errorf("RotationFromZ(%v): R^T R not identity at (%d, %d): %v", n, i, j, prod.At(i, j))
				}
			}
		}
	}
}

// TestRotationFromZIdentity verifies that the canonical z normal gives
// the exact identity matrix, so identity-frame crops stay exact
func TestRotationFromZIdentity(t *testing.T) {
	rot, err := RotationFromZ([3]float64{0, 0, 1})
	if err != nil {
		t.Fatalf("RotationFromZ returned error: %v", err)
	}
	want := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if !mat.Equal(rot, want) {
		t.Errorf("Expected exact identity rotation, got %v", mat.Formatted(rot))
	}
}
