package mustproj

import (
	"fmt"
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/internal/d3"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// PreconditionViolation is the panic value of constructors called with
// arguments that break their documented preconditions.
type PreconditionViolation struct {
	Func string
	Msg  string
}

func (p *PreconditionViolation) Error() string {
	return fmt.Sprintf("%s: precondition violated: %s", p.Func, p.Msg)
}

func violate(fn, format string, args ...any) {
	panic(&PreconditionViolation{Func: fn, Msg: fmt.Sprintf(format, args...)})
}

// frameTolerance bounds the error allowed in the orthonormality of a user supplied frame.
const frameTolerance = 1e-6

// Gnomonic is a central projection of the sphere onto the plane tangent to it
// at a point. Great circle arcs map to straight line segments. Points further
// than the maximum projection angle from the tangent point are rejected.
type Gnomonic struct {
	// x and y span the tangent plane, z is the tangent point (plane normal).
	x, y, z  r3.Vec
	maxAngle tectonic.AngularDistance
	minCos   float64
}

// NewGnomonic returns the gnomonic projection tangent to the sphere at the
// argument point. It panics with *PreconditionViolation if maxAngle is not
// strictly less than 90 degrees or is negative.
func NewGnomonic(tangent tectonic.PointOnSphere, maxAngle tectonic.AngularDistance) *Gnomonic {
	checkAngle("NewGnomonic", maxAngle)
	z := tangent.Vec()
	x := d3.Perpendicular(z)
	y := r3.Cross(z, x)
	return &Gnomonic{x: x, y: y, z: z, maxAngle: maxAngle, minCos: maxAngle.Cos()}
}

// NewGnomonicFromFrame returns the gnomonic projection tangent at normal with
// the projected coordinates expressed along xAxis and yAxis. The three axes
// must form a right-handed orthonormal frame (xAxis cross yAxis == normal),
// else NewGnomonicFromFrame panics with *PreconditionViolation.
func NewGnomonicFromFrame(normal, xAxis, yAxis r3.Vec, maxAngle tectonic.AngularDistance) *Gnomonic {
	checkAngle("NewGnomonicFromFrame", maxAngle)
	if !d3.RightHanded(xAxis, yAxis, normal, frameTolerance) {
		violate("NewGnomonicFromFrame", "axes x=%v y=%v normal=%v are not a right-handed orthonormal frame", xAxis, yAxis, normal)
	}
	return &Gnomonic{x: xAxis, y: yAxis, z: normal, maxAngle: maxAngle, minCos: maxAngle.Cos()}
}

func checkAngle(fn string, maxAngle tectonic.AngularDistance) {
	if maxAngle.Radians() >= math.Pi/2 {
		violate(fn, "maximum projection angle %.6g degrees must be less than 90 degrees", maxAngle.Degrees())
	}
	if maxAngle < 0 {
		violate(fn, "negative maximum projection angle %.6g degrees", maxAngle.Degrees())
	}
}

// Project returns the tangent plane coordinates of p. ok is false if p is
// further from the tangent point than the maximum projection angle.
func (g *Gnomonic) Project(p tectonic.PointOnSphere) (xy r2.Vec, ok bool) {
	v := p.Vec()
	cos := r3.Dot(v, g.z)
	if cos < g.minCos {
		return r2.Vec{}, false
	}
	v = r3.Scale(1/cos, v)
	return r2.Vec{X: r3.Dot(v, g.x), Y: r3.Dot(v, g.y)}, true
}

// Unproject returns the point on the sphere that projects to xy.
// Every point of the plane has an inverse so Unproject cannot fail.
func (g *Gnomonic) Unproject(xy r2.Vec) tectonic.PointOnSphere {
	v := r3.Add(g.z, r3.Add(r3.Scale(xy.X, g.x), r3.Scale(xy.Y, g.y)))
	return tectonic.NewPointOnSphere(v)
}

// TangentPoint returns the point where the projection plane touches the sphere.
func (g *Gnomonic) TangentPoint() tectonic.PointOnSphere { return tectonic.NewPointOnSphere(g.z) }

// Axes returns the x and y axes of the tangent plane and its normal.
func (g *Gnomonic) Axes() (x, y, normal r3.Vec) { return g.x, g.y, g.z }

// MaxAngle returns the maximum distance from the tangent point a projected point may have.
func (g *Gnomonic) MaxAngle() tectonic.AngularDistance { return g.maxAngle }

// ProjectTangent expresses a vector tangent to the sphere at the tangent
// point in plane coordinates. The component along the normal is discarded.
func (g *Gnomonic) ProjectTangent(v r3.Vec) r2.Vec {
	return r2.Vec{X: r3.Dot(v, g.x), Y: r3.Dot(v, g.y)}
}
