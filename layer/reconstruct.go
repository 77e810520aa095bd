package layer

import (
	"log/slog"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/rotation"
)

// ReconstructedGeometry is a feature geometry moved to its position at a
// reconstruction time.
type ReconstructedGeometry struct {
	Feature  *feature.Feature
	PlateID  rotation.PlateID
	Present  feature.Geometry
	Geometry feature.Geometry
}

// ReconstructGeometry rotates every vertex of g by r.
func ReconstructGeometry(g feature.Geometry, r rotation.Finite) feature.Geometry {
	out := feature.Geometry{Kind: g.Kind}
	if g.Kind != feature.PolygonGeometry {
		out.Points = rotatePoints(g.Points, r)
		return out
	}
	out.Polygon.Exterior = rotatePoints(g.Polygon.Exterior, r)
	if len(g.Polygon.Interiors) > 0 {
		out.Polygon.Interiors = make([]polygon.Ring, len(g.Polygon.Interiors))
		for i, ring := range g.Polygon.Interiors {
			out.Polygon.Interiors[i] = rotatePoints(ring, r)
		}
	}
	return out
}

func rotatePoints(points []tectonic.PointOnSphere, r rotation.Finite) []tectonic.PointOnSphere {
	if points == nil {
		return nil
	}
	out := make([]tectonic.PointOnSphere, len(points))
	for i, p := range points {
		out[i] = r.Rotate(p)
	}
	return out
}

// ReconstructProxy reconstructs the geometries of its feature collections
// using the rotations of a ReconstructionProxy.
type ReconstructProxy struct {
	subject        Subject
	log            *slog.Logger
	reconstruction *proxyInput[*ReconstructionProxy]
	collections    collectionSet

	cached     bool
	cachedTime float64
	geometries []ReconstructedGeometry
}

// NewReconstructProxy returns a proxy with no inputs. A nil logger uses slog.Default.
func NewReconstructProxy(logger *slog.Logger) *ReconstructProxy {
	return &ReconstructProxy{log: loggerOrDefault(logger)}
}

func (p *ReconstructProxy) Kind() Kind { return KindReconstruct }

func (p *ReconstructProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *ReconstructProxy) checkInputs() {
	changed := p.collections.changed()
	if p.reconstruction.changed() {
		changed = true
	}
	if changed {
		p.invalidate()
	}
}

func (p *ReconstructProxy) invalidate() {
	p.cached = false
	p.geometries = nil
	p.subject.Invalidate()
}

// SetReconstructionInput sets the proxy supplying rotations. A nil r disconnects it.
func (p *ReconstructProxy) SetReconstructionInput(r *ReconstructionProxy) {
	if r == nil {
		p.reconstruction = nil
	} else {
		p.reconstruction = newProxyInput(r)
	}
	p.invalidate()
}

// AddCollection adds a collection of features to reconstruct.
func (p *ReconstructProxy) AddCollection(c *feature.Collection) {
	if p.collections.add(c) {
		p.invalidate()
	}
}

// RemoveCollection removes a collection added with AddCollection.
func (p *ReconstructProxy) RemoveCollection(c *feature.Collection) {
	if p.collections.remove(c) {
		p.invalidate()
	}
}

// ReconstructedGeometries returns every geometry of the features that exist
// at time, reconstructed to time. ok is false without a reconstruction input.
// The returned slice is shared with the cache and must not be modified.
func (p *ReconstructProxy) ReconstructedGeometries(time float64) ([]ReconstructedGeometry, bool) {
	p.checkInputs()
	if p.reconstruction == nil {
		return nil, false
	}
	if p.cached && p.cachedTime == time {
		cacheHit(KindReconstruct)
		return p.geometries, true
	}
	cacheMiss(KindReconstruct)
	tree, ok := p.reconstruction.proxy.Tree(time)
	if !ok {
		return nil, false
	}
	var out []ReconstructedGeometry
	for _, f := range p.collections.features(time) {
		r := tree.Rotation(f.PlateID)
		for _, g := range f.Geometries() {
			out = append(out, ReconstructedGeometry{
				Feature:  f,
				PlateID:  f.PlateID,
				Present:  g,
				Geometry: ReconstructGeometry(g, r),
			})
		}
	}
	p.log.Debug("reconstructed geometries", "time", time, "count", len(out))
	p.cached = true
	p.cachedTime = time
	p.geometries = out
	return out, true
}
