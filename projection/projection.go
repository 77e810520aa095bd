// Package projection provides error returning constructors for the tangent
// plane projections of package mustproj.
package projection

import (
	"fmt"
	"runtime/debug"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/projection/mustproj"
	"gonum.org/v1/gonum/spatial/r3"
)

// Gnomonic is the gnomonic projection type returned by the constructors.
type Gnomonic = mustproj.Gnomonic

type projectionErr struct {
	panicObj interface{}
	stack    string
}

func (s *projectionErr) Error() string {
	return fmt.Sprintf("%s", s.panicObj)
}

// Unwrap returns the *mustproj.PreconditionViolation that caused the error, if any.
func (s *projectionErr) Unwrap() error {
	err, _ := s.panicObj.(error)
	return err
}

// NewGnomonic returns the gnomonic projection tangent to the sphere at the
// argument point. The error wraps a *mustproj.PreconditionViolation when
// maxAngle is not less than 90 degrees.
func NewGnomonic(tangent tectonic.PointOnSphere, maxAngle tectonic.AngularDistance) (g *Gnomonic, err error) {
	defer func() {
		if a := recover(); a != nil {
			err = &projectionErr{
				panicObj: a,
				stack:    string(debug.Stack()),
			}
		}
	}()
	return mustproj.NewGnomonic(tangent, maxAngle), err
}

// NewGnomonicFromFrame returns the gnomonic projection with an explicit
// right-handed orthonormal frame.
func NewGnomonicFromFrame(normal, xAxis, yAxis r3.Vec, maxAngle tectonic.AngularDistance) (g *Gnomonic, err error) {
	defer func() {
		if a := recover(); a != nil {
			err = &projectionErr{
				panicObj: a,
				stack:    string(debug.Stack()),
			}
		}
	}()
	return mustproj.NewGnomonicFromFrame(normal, xAxis, yAxis, maxAngle), err
}
