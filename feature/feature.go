// Package feature is a minimal in-memory feature store: features carry a
// plate, a valid time span and a list of typed property values.
//
// Property values form a closed set of types implementing Value; code that
// interprets them switches on the concrete type.
package feature

import (
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/rotation"
)

// ID uniquely identifies a feature.
type ID string

// Type names the kind of geological feature, e.g. "Coastline" or "TopologicalClosedPlateBoundary".
type Type string

// Feature is a named set of property values attached to a plate.
type Feature struct {
	ID         ID
	Type       Type
	PlateID    rotation.PlateID
	ValidTime  TimeSpan
	Properties []Property
}

// Property is a named property value.
type Property struct {
	Name  string
	Value Value
}

// TimeSpan is a closed interval of geological time. Begin is the older time.
// The zero TimeSpan covers all time.
type TimeSpan struct {
	Begin, End float64
}

// Always covers all time.
var Always = TimeSpan{Begin: math.Inf(1), End: math.Inf(-1)}

// Contains reports whether the feature exists at time.
func (s TimeSpan) Contains(time float64) bool {
	if s == (TimeSpan{}) {
		return true
	}
	return time <= s.Begin && time >= s.End
}

// Value is a property value. The set of implementations is closed.
type Value interface {
	isValue()
}

// GeometryKind enumerates the geometry shapes.
type GeometryKind int

const (
	PointGeometry GeometryKind = iota
	MultiPointGeometry
	PolylineGeometry
	PolygonGeometry
)

func (k GeometryKind) String() string {
	switch k {
	case PointGeometry:
		return "point"
	case MultiPointGeometry:
		return "multipoint"
	case PolylineGeometry:
		return "polyline"
	case PolygonGeometry:
		return "polygon"
	}
	return "unknown geometry"
}

// Geometry is a present day geometry. Points holds the vertices of point,
// multipoint and polyline geometries; Polygon holds polygon geometries.
type Geometry struct {
	Kind    GeometryKind
	Points  []tectonic.PointOnSphere
	Polygon polygon.Polygon
}

// Vertices returns every vertex of the geometry.
func (g Geometry) Vertices() []tectonic.PointOnSphere {
	if g.Kind != PolygonGeometry {
		return g.Points
	}
	out := make([]tectonic.PointOnSphere, 0, g.Polygon.NumVertices())
	out = append(out, g.Polygon.Exterior...)
	for _, r := range g.Polygon.Interiors {
		out = append(out, r...)
	}
	return out
}

// RotationSequence is a total reconstruction sequence property.
type RotationSequence struct {
	rotation.Sequence
}

// SectionReferences lists, in boundary order, the features whose
// reconstructed geometries make up a topological boundary or network.
type SectionReferences struct {
	Sections []ID
}

// ScalarFieldFile references a file holding a 3D scalar field.
type ScalarFieldFile struct {
	Path string
}

// Scalar is a numeric property.
type Scalar float64

// Text is a string property.
type Text string

func (Geometry) isValue()          {}
func (RotationSequence) isValue()  {}
func (SectionReferences) isValue() {}
func (ScalarFieldFile) isValue()   {}
func (Scalar) isValue()            {}
func (Text) isValue()              {}

// Property returns the value of the first property with the given name.
func (f *Feature) Property(name string) (Value, bool) {
	for _, p := range f.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Geometries returns the feature's geometry properties.
func (f *Feature) Geometries() []Geometry {
	var out []Geometry
	for _, p := range f.Properties {
		if g, ok := p.Value.(Geometry); ok {
			out = append(out, g)
		}
	}
	return out
}

// Sections returns the feature's topological section references.
func (f *Feature) Sections() (SectionReferences, bool) {
	for _, p := range f.Properties {
		if s, ok := p.Value.(SectionReferences); ok {
			return s, true
		}
	}
	return SectionReferences{}, false
}

// ScalarField returns the feature's scalar field file reference.
func (f *Feature) ScalarField() (ScalarFieldFile, bool) {
	for _, p := range f.Properties {
		if s, ok := p.Value.(ScalarFieldFile); ok {
			return s, true
		}
	}
	return ScalarFieldFile{}, false
}

// RotationSequences returns the feature's rotation sequences.
func (f *Feature) RotationSequences() []rotation.Sequence {
	var out []rotation.Sequence
	for _, p := range f.Properties {
		if s, ok := p.Value.(RotationSequence); ok {
			out = append(out, s.Sequence)
		}
	}
	return out
}
