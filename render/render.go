// Package render exports reconstructed geometries for viewers and printers:
// triangle meshes of resolved boundaries, float32 vertex buffers for GPU
// consumers and plots of strain histories.
package render

import (
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/polygon"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle3 is a 3D triangle with counter-clockwise vertices when seen
// from the side its normal points to.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle.
func (t Triangle3) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Degenerate reports whether two vertices of the triangle coincide within tol.
func (t Triangle3) Degenerate(tol float64) bool {
	return r3.Norm(r3.Sub(t.V[0], t.V[1])) <= tol ||
		r3.Norm(r3.Sub(t.V[1], t.V[2])) <= tol ||
		r3.Norm(r3.Sub(t.V[2], t.V[0])) <= tol
}

// Renderer streams triangles. ReadTriangles returns io.EOF once every
// triangle has been read.
type Renderer interface {
	ReadTriangles(t []Triangle3) (int, error)
}

// TriangulateBoundaries fans the exterior ring of each polygon around its
// boundary centroid. Vertices are scaled by radius. Interior rings are not
// cut out. Polygons whose centroid is undefined are skipped.
func TriangulateBoundaries(polygons []polygon.Polygon, radius float64) []Triangle3 {
	var out []Triangle3
	for _, p := range polygons {
		ring := p.Exterior
		c, ok := polygon.BoundaryCentroid(ring)
		if !ok || len(ring) < 3 {
			continue
		}
		center := r3.Scale(radius, c.Vec())
		for i := range ring {
			a := ring[i].Vec()
			b := ring[(i+1)%len(ring)].Vec()
			t := Triangle3{V: [3]r3.Vec{center, r3.Scale(radius, a), r3.Scale(radius, b)}}
			if !t.Degenerate(tectonic.Epsilon * radius) {
				out = append(out, t)
			}
		}
	}
	return out
}

// VertexBuffer returns the points as float32 positions on a sphere of the
// given radius, ready to upload to a GPU vertex buffer.
func VertexBuffer(points []tectonic.PointOnSphere, radius float32) []ms3.Vec {
	out := make([]ms3.Vec, len(points))
	for i, p := range points {
		ll := p.LatLon()
		slat, clat := math32.Sincos(float32(tectonic.DtoR(ll.Lat)))
		slon, clon := math32.Sincos(float32(tectonic.DtoR(ll.Lon)))
		out[i] = ms3.Scale(radius, ms3.Vec{X: clat * clon, Y: clat * slon, Z: slat})
	}
	return out
}

// VertexBounds returns the axis aligned box containing every vertex. ok is
// false for an empty buffer.
func VertexBounds(vb []ms3.Vec) (box ms3.Box, ok bool) {
	if len(vb) == 0 {
		return ms3.Box{}, false
	}
	box = ms3.Box{Min: vb[0], Max: vb[0]}
	for _, v := range vb[1:] {
		box.Min = ms3.MinElem(box.Min, v)
		box.Max = ms3.MaxElem(box.Max, v)
	}
	return box, true
}
