// Package polygon computes the orientation and signed area of polygons on
// the unit sphere.
//
// Orientation is computed in the gnomonic tangent plane at the polygon's
// boundary centroid, where great circle edges are straight and the planar
// shoelace sum has the same sign as the spherical area. Vertices too far
// from the tangent point fall back to the exact spherical triangle area sum.
package polygon

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/internal/d2"
	"github.com/soypat/tectonic/projection/mustproj"
	"gonum.org/v1/gonum/spatial/r3"
)

// OrientationProjectionAngle is the maximum distance from the boundary
// centroid a vertex may have to take part in the projected area calculation.
const OrientationProjectionAngle tectonic.AngularDistance = 45 * math.Pi / 180

// Orientation is the winding of a ring as seen from outside the sphere.
type Orientation int

const (
	CounterClockwise Orientation = iota
	Clockwise
)

func (o Orientation) String() string {
	switch o {
	case CounterClockwise:
		return "counter-clockwise"
	case Clockwise:
		return "clockwise"
	}
	return "unknown orientation"
}

// Reverse returns the opposite orientation.
func (o Orientation) Reverse() Orientation {
	if o == Clockwise {
		return CounterClockwise
	}
	return Clockwise
}

// Ring is a closed sequence of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Ring []tectonic.PointOnSphere

// Reverse returns a copy of the ring with the vertex order reversed.
func (r Ring) Reverse() Ring {
	rev := make(Ring, len(r))
	for i := range r {
		rev[i] = r[len(r)-1-i]
	}
	return rev
}

// Polygon is an exterior ring with zero or more interior rings (holes).
type Polygon struct {
	Exterior  Ring
	Interiors []Ring
}

// NumVertices returns the number of vertices in all rings.
func (p Polygon) NumVertices() int {
	n := len(p.Exterior)
	for _, r := range p.Interiors {
		n += len(r)
	}
	return n
}

// BoundaryCentroid returns the centroid of the ring's edges, each edge
// contributing its midpoint weighted by its arc length. Rings with no
// measurable edges use the centroid of the vertices instead.
func BoundaryCentroid(ring Ring) (tectonic.PointOnSphere, bool) {
	if len(ring) == 0 {
		return tectonic.PointOnSphere{}, false
	}
	var sum r3.Vec
	prev := ring[len(ring)-1]
	for _, v := range ring {
		arc := prev.Distance(v).Radians()
		if arc > 0 {
			mid := r3.Add(prev.Vec(), v.Vec())
			if n := r3.Norm(mid); n > tectonic.Epsilon {
				sum = r3.Add(sum, r3.Scale(arc/n, mid))
			}
		}
		prev = v
	}
	if r3.Norm(sum) < tectonic.Epsilon {
		return tectonic.Centroid(ring)
	}
	return tectonic.NewPointOnSphere(sum), true
}

// ProjectedSignedArea returns the signed area of the ring in the plane of g.
// Counter-clockwise rings have positive area. ok is false if any vertex
// lies outside the projection's maximum angle.
func ProjectedSignedArea(ring Ring, g *mustproj.Gnomonic) (area float64, ok bool) {
	projected := make(d2.Set, len(ring))
	for i, v := range ring {
		projected[i], ok = g.Project(v)
		if !ok {
			return 0, false
		}
	}
	return projected.ShoelaceSum() / 2, true
}

// SphericalSignedArea returns the exact signed area of the ring on the unit
// sphere in steradians, summing the triangles fanned from the first vertex.
// Counter-clockwise rings have positive area.
func SphericalSignedArea(ring Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	ref := ring[0].S2()
	area := 0.0
	for i := 1; i < len(ring)-1; i++ {
		area += s2.SignedArea(ref, ring[i].S2(), ring[i+1].S2())
	}
	return area
}

// SphericalPolygonSignedArea returns the exact signed area of the polygon.
// Interior ring areas are counted with the sign opposite to the exterior.
func SphericalPolygonSignedArea(p Polygon) float64 {
	exterior := SphericalSignedArea(p.Exterior)
	total := exterior
	for _, interior := range p.Interiors {
		total = subtractHole(total, exterior, SphericalSignedArea(interior))
	}
	return total
}

// subtractHole adds the hole's area magnitude to total with the sign opposite
// the exterior ring's area. The winding of interior rings in input data is
// arbitrary so only the magnitude is used. A zero exterior counts as
// counter-clockwise.
func subtractHole(total, exterior, hole float64) float64 {
	sign := tectonic.Sign(exterior)
	if sign == 0 {
		sign = 1
	}
	return total - sign*math.Abs(hole)
}

func orientationOf(area float64) Orientation {
	if area < 0 {
		return Clockwise
	}
	return CounterClockwise
}

// ProjectedPolygonSignedArea returns the signed area of the polygon in the
// tangent plane of g. ok is false if any vertex of any ring fails to project.
func ProjectedPolygonSignedArea(p Polygon, g *mustproj.Gnomonic) (float64, bool) {
	exterior, ok := ProjectedSignedArea(p.Exterior, g)
	if !ok {
		return 0, false
	}
	total := exterior
	for _, interior := range p.Interiors {
		area, ok := ProjectedSignedArea(interior, g)
		if !ok {
			return 0, false
		}
		total = subtractHole(total, exterior, area)
	}
	return total, true
}

// CalculateOrientation returns the orientation of the polygon's exterior
// ring taking its holes into account. A polygon with zero area is
// counter-clockwise.
func CalculateOrientation(p Polygon) Orientation {
	centroid, ok := BoundaryCentroid(p.Exterior)
	if !ok {
		return orientationOf(SphericalPolygonSignedArea(p))
	}
	g := mustproj.NewGnomonic(centroid, OrientationProjectionAngle)
	area, ok := ProjectedPolygonSignedArea(p, g)
	if !ok {
		return orientationOf(SphericalPolygonSignedArea(p))
	}
	return orientationOf(area)
}

// RingOrientation returns the orientation of a single ring.
func RingOrientation(ring Ring) Orientation {
	centroid, ok := BoundaryCentroid(ring)
	if !ok {
		return orientationOf(SphericalSignedArea(ring))
	}
	g := mustproj.NewGnomonic(centroid, OrientationProjectionAngle)
	area, ok := ProjectedSignedArea(ring, g)
	if !ok {
		return orientationOf(SphericalSignedArea(ring))
	}
	return orientationOf(area)
}

// ExteriorRingOrientation returns the orientation of the exterior ring alone.
func ExteriorRingOrientation(p Polygon) Orientation {
	return RingOrientation(p.Exterior)
}

// InteriorRingOrientation returns the orientation of the i'th interior ring alone.
func InteriorRingOrientation(p Polygon, i int) Orientation {
	return RingOrientation(p.Interiors[i])
}

// WithOrientation returns a copy of p whose exterior ring has orientation o
// and whose interior rings have the opposite orientation.
func (p Polygon) WithOrientation(o Orientation) Polygon {
	out := Polygon{Exterior: p.Exterior}
	if CalculateOrientation(p) != o {
		out.Exterior = p.Exterior.Reverse()
	}
	if len(p.Interiors) > 0 {
		out.Interiors = make([]Ring, len(p.Interiors))
	}
	for i, interior := range p.Interiors {
		out.Interiors[i] = interior
		if RingOrientation(interior) == o {
			out.Interiors[i] = interior.Reverse()
		}
	}
	return out
}

// Contains reports whether point lies inside the exterior ring and outside
// every interior ring. Ring orientation does not matter.
func (p Polygon) Contains(point tectonic.PointOnSphere) bool {
	outer := makeLoop(p.Exterior)
	if outer == nil {
		return false
	}
	sp := point.S2()
	if !outer.ContainsPoint(sp) {
		return false
	}
	for _, interior := range p.Interiors {
		if hole := makeLoop(interior); hole != nil && hole.ContainsPoint(sp) {
			return false
		}
	}
	return true
}

func makeLoop(ring Ring) *s2.Loop {
	// s2.Loop interior is to the left of its edges, so it needs counter-clockwise rings.
	if RingOrientation(ring) == Clockwise {
		ring = ring.Reverse()
	}
	points := make([]s2.Point, 0, len(ring))
	for i, v := range ring {
		if i > 0 && v == ring[i-1] {
			continue
		}
		points = append(points, v.S2())
	}
	if len(points) > 1 && points[0] == points[len(points)-1] {
		points = points[:len(points)-1]
	}
	if len(points) < 3 {
		return nil
	}
	return s2.LoopFromPoints(points)
}
