// Package strain accumulates finite deformation along a point's motion
// history from the velocity spatial gradient sampled at successive times.
//
// Tensors are 2x2 and expressed in the local (colatitude, longitude) basis
// of the point. The deformation gradient F obeys dF/dt = L F which is
// integrated with the implicit trapezoidal (Crank-Nicolson) rule.
package strain

import (
	"math"
)

// Epsilon is the determinant magnitude below which the accumulation matrix
// is treated as singular.
const Epsilon = 1e-12

// Gradient is the deformation gradient tensor F.
//
//	| TT TP |
//	| PT PP |
//
// where T is the colatitude (theta) direction and P the longitude (phi) direction.
type Gradient struct {
	TT, TP, PT, PP float64
}

// Identity is the deformation gradient of an undeformed patch.
var Identity = Gradient{TT: 1, PP: 1}

// Det returns the determinant of the gradient, the ratio of deformed to
// undeformed area.
func (g Gradient) Det() float64 { return g.TT*g.PP - g.TP*g.PT }

// Mul returns the matrix product g*b.
func (g Gradient) Mul(b Gradient) Gradient {
	return Gradient{
		TT: g.TT*b.TT + g.TP*b.PT,
		TP: g.TT*b.TP + g.TP*b.PP,
		PT: g.PT*b.TT + g.PP*b.PT,
		PP: g.PT*b.TP + g.PP*b.PP,
	}
}

// inverse returns the closed form inverse of g. ok is false if |det| < Epsilon.
func (g Gradient) inverse() (inv Gradient, ok bool) {
	det := g.Det()
	if math.Abs(det) < Epsilon {
		return Gradient{}, false
	}
	invDet := 1 / det
	return Gradient{
		TT: g.PP * invDet,
		TP: -g.TP * invDet,
		PT: -g.PT * invDet,
		PP: g.TT * invDet,
	}, true
}

func (g Gradient) add(b Gradient) Gradient {
	return Gradient{TT: g.TT + b.TT, TP: g.TP + b.TP, PT: g.PT + b.PT, PP: g.PP + b.PP}
}

func (g Gradient) scale(f float64) Gradient {
	return Gradient{TT: f * g.TT, TP: f * g.TP, PT: f * g.PT, PP: f * g.PP}
}

// Strain is the accumulated deformation of a surface patch since a reference
// time. Strain values are immutable; every operation returns a new value.
type Strain struct {
	f Gradient
}

// New returns the strain of the argument deformation gradient.
func New(f Gradient) Strain { return Strain{f: f} }

// Undeformed returns the strain at the reference time (identity gradient).
func Undeformed() Strain { return Strain{f: Identity} }

// Gradient returns the deformation gradient tensor.
func (s Strain) Gradient() Gradient { return s.f }

// Dilatation returns the relative area change (det F - 1).
func (s Strain) Dilatation() float64 { return s.f.Det() - 1 }

// Principal holds the principal strains and the direction of the maximum
// principal strain measured in radians from the colatitude axis towards the
// longitude axis.
type Principal struct {
	// Strain1 is the maximum and Strain2 the minimum principal strain,
	// both expressed as stretch minus one.
	Strain1, Strain2 float64
	Angle            float64
}

// Principal returns the principal strains of s. These are the singular
// values of F minus one.
func (s Strain) Principal() Principal {
	a, b, c, d := s.f.TT, s.f.TP, s.f.PT, s.f.PP
	fsq := a*a + b*b + c*c + d*d
	fdet := a*d - b*c
	// Rounding can push the radicand of a near-isotropic gradient slightly
	// below zero, clamp it so the principal strains stay finite.
	radicand := fsq*fsq - 4*fdet*fdet
	variation := math.Sqrt(math.Max(radicand, 0))
	return Principal{
		Strain1: math.Sqrt(0.5*(fsq+variation)) - 1,
		Strain2: math.Sqrt(math.Max(0.5*(fsq-variation), 0)) - 1,
		Angle:   0.5 * math.Atan2(2*(a*c+b*d), a*a+b*b-c*c-d*d),
	}
}

// Accumulate integrates dF/dt = L F over a time step dt, where L is
// previousRate at the start of the step and currentRate at its end:
//
//	(I - L(t+dt) dt/2) F(t+dt) = (I + L(t) dt/2) F(t)
//
// If I - L(t+dt) dt/2 is singular the previous strain is returned unchanged.
// dt may be negative to integrate backwards in time.
func Accumulate(previous Strain, previousRate, currentRate Rate, dt float64) Strain {
	half := 0.5 * dt
	lhs := Identity.add(currentRate.l.scale(-half))
	inv, ok := lhs.inverse()
	if !ok {
		return previous
	}
	rhs := Identity.add(previousRate.l.scale(half))
	return Strain{f: inv.Mul(rhs).Mul(previous.f)}
}

// Interpolate linearly interpolates each component of the deformation
// gradient: (1-position)*first + position*second. Positions outside [0, 1]
// extrapolate.
func Interpolate(first, second Strain, position float64) Strain {
	return Strain{f: first.f.scale(1 - position).add(second.f.scale(position))}
}
