// Package rotation models plate motion as finite rotations about Euler poles.
//
// A total reconstruction sequence gives the rotation of a moving plate
// relative to a fixed plate at a set of sample times. A Model collects
// sequences and builds the reconstruction Tree that yields the rotation of
// any plate relative to an anchor plate at a given time.
package rotation

import (
	"math"

	"github.com/soypat/tectonic"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Finite is a rotation of the sphere about its centre stored as a unit
// quaternion. The zero value is the identity rotation.
type Finite struct {
	q quat.Number
}

// Identity returns the rotation that leaves every point in place.
func Identity() Finite { return Finite{q: quat.Number{Real: 1}} }

// FromEulerPole returns the rotation of angle degrees counter-clockwise
// about the pole, as seen from outside the sphere looking down on the pole.
func FromEulerPole(pole tectonic.LatLon, angle float64) Finite {
	axis := tectonic.PointFromLatLon(pole).Vec()
	return Finite{q: quat.Number(r3.NewRotation(tectonic.DtoR(angle), axis))}
}

func (f Finite) quat() quat.Number {
	if f.q == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return f.q
}

// IsIdentity reports whether f leaves points in place within tectonic.Tolerance.
func (f Finite) IsIdentity() bool {
	q := f.quat()
	return math.Abs(q.Imag) <= tectonic.Tolerance &&
		math.Abs(q.Jmag) <= tectonic.Tolerance &&
		math.Abs(q.Kmag) <= tectonic.Tolerance
}

// Compose returns the rotation that applies g first and then f.
func (f Finite) Compose(g Finite) Finite {
	return Finite{q: normalize(quat.Mul(f.quat(), g.quat()))}
}

// Inverse returns the rotation that undoes f.
func (f Finite) Inverse() Finite {
	return Finite{q: quat.Conj(f.quat())}
}

// Rotate returns p rotated by f.
func (f Finite) Rotate(p tectonic.PointOnSphere) tectonic.PointOnSphere {
	return tectonic.NewPointOnSphere(f.RotateVec(p.Vec()))
}

// RotateVec rotates an arbitrary vector, such as a velocity, by f.
func (f Finite) RotateVec(v r3.Vec) r3.Vec {
	return r3.Rotation(f.quat()).Rotate(v)
}

// EulerPole returns the pole and angle in degrees of f. The angle is in
// [0, 180]. ok is false for the identity rotation which has no pole.
func (f Finite) EulerPole() (pole tectonic.LatLon, angle float64, ok bool) {
	q := f.quat()
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	axis := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	sinHalf := r3.Norm(axis)
	if sinHalf < tectonic.Epsilon {
		return tectonic.LatLon{}, 0, false
	}
	angle = tectonic.RtoD(2 * math.Atan2(sinHalf, q.Real))
	return tectonic.NewPointOnSphere(axis).LatLon(), angle, true
}

// Equal reports whether f and g rotate every point to within tol of each other.
func (f Finite) Equal(g Finite, tol float64) bool {
	rel := quat.Mul(quat.Conj(f.quat()), g.quat())
	if rel.Real < 0 {
		rel = quat.Scale(-1, rel)
	}
	return Finite{q: rel}.angleRadians() <= tol
}

func (f Finite) angleRadians() float64 {
	q := f.quat()
	return 2 * math.Atan2(math.Sqrt(q.Imag*q.Imag+q.Jmag*q.Jmag+q.Kmag*q.Kmag), math.Abs(q.Real))
}

// Interpolate returns the spherical linear interpolation between a and b.
// Position 0 returns a and 1 returns b; the shortest arc between the two is
// followed.
func Interpolate(a, b Finite, position float64) Finite {
	qa, qb := a.quat(), b.quat()
	rel := quat.Mul(quat.Conj(qa), qb)
	if rel.Real < 0 {
		rel = quat.Scale(-1, rel)
	}
	if math.Abs(rel.Imag)+math.Abs(rel.Jmag)+math.Abs(rel.Kmag) < tectonic.Epsilon {
		return Finite{q: qa}
	}
	step := quat.Pow(rel, quat.Number{Real: position})
	return Finite{q: normalize(quat.Mul(qa, step))}
}

func normalize(q quat.Number) quat.Number {
	return quat.Scale(1/quat.Abs(q), q)
}
