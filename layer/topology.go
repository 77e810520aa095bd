package layer

import (
	"log/slog"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/rotation"
)

// sectionIndex maps feature ids to the first reconstructed geometry of the feature.
type sectionIndex map[feature.ID]ReconstructedGeometry

func indexSections(inputs proxySet[*ReconstructProxy], time float64) sectionIndex {
	index := make(sectionIndex)
	for _, in := range inputs {
		geoms, ok := in.proxy.ReconstructedGeometries(time)
		if !ok {
			continue
		}
		for _, g := range geoms {
			if _, dup := index[g.Feature.ID]; !dup {
				index[g.Feature.ID] = g
			}
		}
	}
	return index
}

// boundaryVertex is a vertex of a resolved boundary and the plate of the
// section it came from.
type boundaryVertex struct {
	point tectonic.PointOnSphere
	plate rotation.PlateID
}

// sectionVertices returns the vertices a section contributes to a boundary.
func sectionVertices(g ReconstructedGeometry) []boundaryVertex {
	var pts []tectonic.PointOnSphere
	if g.Geometry.Kind == feature.PolygonGeometry {
		pts = g.Geometry.Polygon.Exterior
	} else {
		pts = g.Geometry.Points
	}
	out := make([]boundaryVertex, len(pts))
	for i, p := range pts {
		out[i] = boundaryVertex{point: p, plate: g.PlateID}
	}
	return out
}

func reverseVertices(v []boundaryVertex) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

// nearestEnd returns the smaller distance from p to either end of v.
func nearestEnd(p tectonic.PointOnSphere, v []boundaryVertex) tectonic.AngularDistance {
	d0 := p.Distance(v[0].point)
	d1 := p.Distance(v[len(v)-1].point)
	if d1 < d0 {
		return d1
	}
	return d0
}

// resolveBoundary joins the referenced sections end to end into a closed
// ring. Each section is reversed when its last vertex lies closer to the
// previous section than its first vertex. Missing sections are skipped; ok
// is false if fewer than three distinct vertices remain.
func resolveBoundary(refs feature.SectionReferences, index sectionIndex) (ring []boundaryVertex, missing int, ok bool) {
	var sections [][]boundaryVertex
	for _, id := range refs.Sections {
		g, found := index[id]
		if !found {
			missing++
			continue
		}
		if v := sectionVertices(g); len(v) > 0 {
			sections = append(sections, v)
		}
	}
	if len(sections) == 0 {
		return nil, missing, false
	}
	if len(sections) > 1 {
		first, next := sections[0], sections[1]
		if nearestEnd(first[0].point, next) < nearestEnd(first[len(first)-1].point, next) {
			reverseVertices(first)
		}
	}
	for i, s := range sections {
		if i > 0 {
			prev := ring[len(ring)-1].point
			if prev.Distance(s[len(s)-1].point) < prev.Distance(s[0].point) {
				reverseVertices(s)
			}
		}
		for _, v := range s {
			if len(ring) > 0 && ring[len(ring)-1].point.Equal(v.point, tectonic.Tolerance) {
				continue
			}
			ring = append(ring, v)
		}
	}
	if n := len(ring); n > 1 && ring[0].point.Equal(ring[n-1].point, tectonic.Tolerance) {
		ring = ring[:n-1]
	}
	return ring, missing, len(ring) >= 3
}

// orientRing returns the boundary as a counter-clockwise polygon, with the
// vertices reordered to match.
func orientRing(ring []boundaryVertex) (polygon.Polygon, []boundaryVertex) {
	pts := make(polygon.Ring, len(ring))
	for i, v := range ring {
		pts[i] = v.point
	}
	if polygon.RingOrientation(pts) == polygon.Clockwise {
		reversed := make([]boundaryVertex, len(ring))
		copy(reversed, ring)
		reverseVertices(reversed)
		return polygon.Polygon{Exterior: pts.Reverse()}, reversed
	}
	return polygon.Polygon{Exterior: pts}, ring
}

// ResolvedBoundary is a closed plate boundary resolved from its topological sections.
type ResolvedBoundary struct {
	Feature *feature.Feature
	PlateID rotation.PlateID
	// Polygon is counter-clockwise.
	Polygon polygon.Polygon
	// Plates holds the plate of the section each exterior vertex came from.
	Plates []rotation.PlateID
}

// TopologyGeometryProxy resolves closed plate boundaries from the
// reconstructed geometries of its section inputs.
type TopologyGeometryProxy struct {
	subject     Subject
	log         *slog.Logger
	collections collectionSet
	sections    proxySet[*ReconstructProxy]

	cached     bool
	cachedTime float64
	boundaries []ResolvedBoundary
}

// NewTopologyGeometryProxy returns a proxy with no inputs. A nil logger uses slog.Default.
func NewTopologyGeometryProxy(logger *slog.Logger) *TopologyGeometryProxy {
	return &TopologyGeometryProxy{log: loggerOrDefault(logger)}
}

func (p *TopologyGeometryProxy) Kind() Kind { return KindTopologyGeometry }

func (p *TopologyGeometryProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *TopologyGeometryProxy) checkInputs() {
	changed := p.collections.changed()
	if p.sections.changed() {
		changed = true
	}
	if changed {
		p.invalidate()
	}
}

func (p *TopologyGeometryProxy) invalidate() {
	p.cached = false
	p.boundaries = nil
	p.subject.Invalidate()
}

// AddCollection adds a collection of topological boundary features.
func (p *TopologyGeometryProxy) AddCollection(c *feature.Collection) {
	if p.collections.add(c) {
		p.invalidate()
	}
}

// RemoveCollection removes a collection added with AddCollection.
func (p *TopologyGeometryProxy) RemoveCollection(c *feature.Collection) {
	if p.collections.remove(c) {
		p.invalidate()
	}
}

// AddSectionInput adds a proxy whose reconstructed geometries may be
// referenced as boundary sections.
func (p *TopologyGeometryProxy) AddSectionInput(r *ReconstructProxy) {
	if p.sections.add(r) {
		p.invalidate()
	}
}

// RemoveSectionInput removes a proxy added with AddSectionInput.
func (p *TopologyGeometryProxy) RemoveSectionInput(r *ReconstructProxy) {
	if p.sections.remove(r) {
		p.invalidate()
	}
}

// ResolvedBoundaries returns the boundaries of the topological features
// that exist at time. ok is false if no collection is connected. Features
// whose sections do not form a ring are left out.
func (p *TopologyGeometryProxy) ResolvedBoundaries(time float64) ([]ResolvedBoundary, bool) {
	p.checkInputs()
	if len(p.collections) == 0 {
		return nil, false
	}
	if p.cached && p.cachedTime == time {
		cacheHit(KindTopologyGeometry)
		return p.boundaries, true
	}
	cacheMiss(KindTopologyGeometry)
	index := indexSections(p.sections, time)
	var out []ResolvedBoundary
	for _, f := range p.collections.features(time) {
		refs, ok := f.Sections()
		if !ok {
			continue
		}
		ring, missing, ok := resolveBoundary(refs, index)
		if missing > 0 {
			p.log.Debug("topology sections missing", "feature", f.ID, "time", time, "missing", missing)
		}
		if !ok {
			continue
		}
		poly, ring := orientRing(ring)
		plates := make([]rotation.PlateID, len(ring))
		for i, v := range ring {
			plates[i] = v.plate
		}
		out = append(out, ResolvedBoundary{Feature: f, PlateID: f.PlateID, Polygon: poly, Plates: plates})
	}
	p.cached = true
	p.cachedTime = time
	p.boundaries = out
	return out, true
}
