// Package tectonic holds the spherical primitives shared by the plate
// reconstruction and deformation packages.
package tectonic

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/soypat/tectonic/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointOnSphere is a position on the unit sphere. The zero value is not a
// valid point; construct points with NewPointOnSphere or PointFromLatLon.
type PointOnSphere struct {
	v r3.Vec
}

// NewPointOnSphere normalizes v and returns it as a point on the unit sphere.
// v must not be the zero vector.
func NewPointOnSphere(v r3.Vec) PointOnSphere {
	n := r3.Norm(v)
	if n == 0 {
		panic("zero vector is not a point on the sphere")
	}
	return PointOnSphere{v: r3.Scale(1/n, v)}
}

// PointFromLatLon converts geographic coordinates in degrees to a point on the sphere.
func PointFromLatLon(ll LatLon) PointOnSphere {
	lat := DtoR(ll.Lat)
	lon := DtoR(ll.Lon)
	slat, clat := math.Sincos(lat)
	slon, clon := math.Sincos(lon)
	return PointOnSphere{v: r3.Vec{X: clat * clon, Y: clat * slon, Z: slat}}
}

// PointFromS2 converts an s2 point.
func PointFromS2(p s2.Point) PointOnSphere {
	return NewPointOnSphere(r3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// Vec returns the unit vector of the point.
func (p PointOnSphere) Vec() r3.Vec { return p.v }

// S2 returns the point as an s2.Point for use with the s2 geometry predicates.
func (p PointOnSphere) S2() s2.Point { return s2.PointFromCoords(p.v.X, p.v.Y, p.v.Z) }

// LatLon returns the geographic coordinates of the point in degrees.
func (p PointOnSphere) LatLon() LatLon {
	lat := math.Asin(Clamp(p.v.Z, -1, 1))
	lon := math.Atan2(p.v.Y, p.v.X)
	return LatLon{Lat: RtoD(lat), Lon: RtoD(lon)}
}

// IsValid reports whether the point has unit magnitude within Tolerance.
func (p PointOnSphere) IsValid() bool {
	return math.Abs(r3.Norm2(p.v)-1) <= 2*Tolerance
}

// Antipode returns the point diametrically opposite p.
func (p PointOnSphere) Antipode() PointOnSphere {
	return PointOnSphere{v: r3.Scale(-1, p.v)}
}

// Dot returns the cosine of the angle between p and q.
func (p PointOnSphere) Dot(q PointOnSphere) float64 { return r3.Dot(p.v, q.v) }

// Distance returns the great circle distance between p and q. It uses the
// atan2 formulation so it is accurate for both small and near-antipodal points.
func (p PointOnSphere) Distance(q PointOnSphere) AngularDistance {
	c := r3.Norm(r3.Cross(p.v, q.v))
	return AngularDistance(math.Atan2(c, r3.Dot(p.v, q.v)))
}

// Equal reports whether p and q are within tol of each other component-wise.
func (p PointOnSphere) Equal(q PointOnSphere, tol float64) bool {
	return d3.EqualWithin(p.v, q.v, tol)
}

func (p PointOnSphere) String() string {
	ll := p.LatLon()
	return fmt.Sprintf("(%.6f, %.6f)", ll.Lat, ll.Lon)
}

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat, Lon float64
}

// Valid reports whether the latitude is within [-90, 90] and longitude within [-360, 360].
func (ll LatLon) Valid() bool {
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lon >= -360 && ll.Lon <= 360
}

// AngularDistance is an angle subtended at the centre of the unit sphere, in radians.
type AngularDistance s1.Angle

// Degrees returns an AngularDistance from degrees.
func Degrees(deg float64) AngularDistance { return AngularDistance(s1.Angle(deg) * s1.Degree) }

// Radians returns the angle in radians.
func (a AngularDistance) Radians() float64 { return s1.Angle(a).Radians() }

// Degrees returns the angle in degrees.
func (a AngularDistance) Degrees() float64 { return s1.Angle(a).Degrees() }

// Cos returns the cosine of the angle. Comparing cosines avoids an arccos
// when testing whether two points are within a distance of each other.
func (a AngularDistance) Cos() float64 { return math.Cos(float64(a)) }

// Within reports whether q is no further than a from p.
func (a AngularDistance) Within(p, q PointOnSphere) bool {
	return p.Dot(q) >= a.Cos()
}

// Centroid returns the normalized sum of the points. ok is false when the
// points sum to (nearly) the zero vector, e.g. for an empty slice.
func Centroid(points []PointOnSphere) (c PointOnSphere, ok bool) {
	var sum r3.Vec
	for _, p := range points {
		sum = r3.Add(sum, p.v)
	}
	if r3.Norm(sum) < Epsilon {
		return PointOnSphere{}, false
	}
	return NewPointOnSphere(sum), true
}

// LocalBasis returns the unit vectors pointing south (increasing colatitude)
// and east (increasing longitude) at p. Together with p they form a
// right-handed frame. ok is false at the poles where longitude is undefined.
func (p PointOnSphere) LocalBasis() (colatitude, longitude r3.Vec, ok bool) {
	rho := math.Hypot(p.v.X, p.v.Y)
	if rho < Tolerance {
		return r3.Vec{}, r3.Vec{}, false
	}
	longitude = r3.Vec{X: -p.v.Y / rho, Y: p.v.X / rho}
	colatitude = r3.Cross(longitude, p.v)
	return colatitude, longitude, true
}
