package spatialmath

import "github.com/golang/geo/r3"

const defaultEpsilon = 1e-8

// Float64AlmostEqual compares two float64s and returns if their difference is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return (a-b) < epsilon && (b-a) < epsilon
}

// R3VectorAlmostEqual compares two r3.Vectors and returns if the all elementwise differences
// are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return Float64AlmostEqual(a.X, b.X, epsilon) &&
		Float64AlmostEqual(a.Y, b.Y, epsilon) &&
		Float64AlmostEqual(a.Z, b.Z, epsilon)
}
