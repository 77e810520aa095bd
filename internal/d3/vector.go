package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector routines used by the spherical geometry packages.

func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// IsUnit reports whether a has magnitude 1 within tol.
func IsUnit(a r3.Vec, tol float64) bool {
	return math.Abs(r3.Norm(a)-1) <= tol
}

// RightHanded reports whether x, y and z form an orthonormal right-handed
// frame, that is x and y are unit and perpendicular and x cross y equals z.
func RightHanded(x, y, z r3.Vec, tol float64) bool {
	if !IsUnit(x, tol) || !IsUnit(y, tol) || !IsUnit(z, tol) {
		return false
	}
	if math.Abs(r3.Dot(x, y)) > tol {
		return false
	}
	return EqualWithin(r3.Cross(x, y), z, tol)
}

// Perpendicular returns a unit vector perpendicular to a. The choice is
// deterministic: the cross product of a with the coordinate axis it is least
// aligned with.
func Perpendicular(a r3.Vec) r3.Vec {
	abs := AbsElem(a)
	var axis r3.Vec
	switch {
	case abs.X <= abs.Y && abs.X <= abs.Z:
		axis = r3.Vec{X: 1}
	case abs.Y <= abs.Z:
		axis = r3.Vec{Y: 1}
	default:
		axis = r3.Vec{Z: 1}
	}
	return r3.Unit(r3.Cross(a, axis))
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}

func AbsElem(a r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Abs(a.X),
		Y: math.Abs(a.Y),
		Z: math.Abs(a.Z),
	}
}
