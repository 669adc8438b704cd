package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RotationFromZ returns the 3x3 rotation matrix taking the canonical
// z axis onto the given vector, which is normalized first. The rotation
// is built from the quaternion between the two directions, so it is the
// minimal-angle rotation. A zero-length vector has no direction and is
// an error.
func RotationFromZ(normal [3]float64) (*mat.Dense, error) {
	length := math.Sqrt(normal[0]*normal[0] + normal[1]*normal[1] + normal[2]*normal[2])
	if length == 0 {
		return nil, fmt.Errorf("cannot orient along a zero-length normal")
	}

	nx := normal[0] / length
	ny := normal[1] / length
	nz := normal[2] / length

	// Quaternion rotating z = (0, 0, 1) onto n: the vector part is
	// z x n and the scalar part is 1 + z.n, normalized. When n is
	// antiparallel to z that quaternion vanishes, and any axis in the
	// xy plane gives the 180 degree rotation; x is used.
	qw := 1 + nz
	qx := -ny
	qy := nx
	qz := 0.0

	norm := math.Sqrt(qw*qw + qx*qx + qy*qy + qz*qz)
	if norm < 1e-12 {
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, -1, 0,
			0, 0, -1,
		}), nil
	}
	qw, qx, qy, qz = qw/norm, qx/norm, qy/norm, qz/norm

	return mat.NewDense(3, 3, []float64{
		1 - 2*(qy*qy+qz*qz), 2 * (qx*qy - qz*qw), 2 * (qx*qz + qy*qw),
		2 * (qx*qy + qz*qw), 1 - 2*(qx*qx+qz*qz), 2 * (qy*qz - qx*qw),
		2 * (qx*qz - qy*qw), 2 * (qy*qz + qx*qw), 1 - 2*(qx*qx+qy*qy),
	}), nil
}

// applyRotation multiplies a rotation matrix with a vector.
func applyRotation(rot *mat.Dense, vec [3]float64) [3]float64 {
	var out mat.VecDense
	out.MulVec(rot, mat.NewVecDense(3, vec[:]))
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
