package strain

import "math"

// Rate is the velocity spatial gradient L at a point and time, in the same
// (colatitude, longitude) basis as Gradient. Units are per unit of time used
// for the accumulation time step.
type Rate struct {
	l Gradient
}

// NewRate returns the rate of the velocity spatial gradient l.
func NewRate(l Gradient) Rate { return Rate{l: l} }

// VelocityGradient returns L.
func (r Rate) VelocityGradient() Gradient { return r.l }

// RateOfDeformation returns the symmetric part of L, D = (L + L^T)/2.
func (r Rate) RateOfDeformation() Gradient {
	offdiag := 0.5 * (r.l.TP + r.l.PT)
	return Gradient{TT: r.l.TT, TP: offdiag, PT: offdiag, PP: r.l.PP}
}

// Dilatation returns the trace of the rate of deformation, the rate of relative area change.
func (r Rate) Dilatation() float64 { return r.l.TT + r.l.PP }

// SecondInvariant returns sqrt(D:D), a scalar measure of the deformation rate.
func (r Rate) SecondInvariant() float64 {
	d := r.RateOfDeformation()
	return math.Sqrt(d.TT*d.TT + d.PP*d.PP + 2*d.TP*d.TP)
}

// PrincipalRates returns the eigenvalues of the rate of deformation,
// largest first.
func (r Rate) PrincipalRates() (rate1, rate2 float64) {
	d := r.RateOfDeformation()
	mean := 0.5 * (d.TT + d.PP)
	radius := math.Hypot(0.5*(d.TT-d.PP), d.TP)
	return mean + radius, mean - radius
}

// Style classifies the deformation regime: -1 for pure contraction, 0 for
// pure strike-slip and +1 for pure extension. Zero rates have style 0.
func (r Rate) Style() float64 {
	r1, r2 := r.PrincipalRates()
	m := math.Abs(r1) + math.Abs(r2)
	if m == 0 {
		return 0
	}
	return (r1 + r2) / m
}
