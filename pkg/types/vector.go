package types

import "math"

// Float is the element type of vectors and quaternions
type Float interface {
	~float32 | ~float64
}

// Vec3f is a 3-vector of float32
type Vec3f = [3]float32

// Vec3d is a 3-vector of float64
type Vec3d = [3]float64

// Quatf is a quaternion of float32, scalar last
type Quatf = [4]float32

// Quatd is a quaternion of float64, scalar last
type Quatd = [4]float64

// Norm returns the Euclidean norm of v
func Norm[F Float](v []F) float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit norm in place. A zero vector is left unchanged.
func Normalize[F Float](v []F) {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	for i := range v {
		v[i] = F(float64(v[i]) / n)
	}
}
