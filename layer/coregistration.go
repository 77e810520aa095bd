package layer

import (
	"log/slog"
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultRegionOfInterest is the search radius of a new CoRegistrationProxy.
const DefaultRegionOfInterest tectonic.AngularDistance = 5 * math.Pi / 180

// Association pairs a seed geometry with the nearest target geometry.
type Association struct {
	Seed   ReconstructedGeometry
	Target ReconstructedGeometry
	// Distance between the closest vertices of the two geometries.
	Distance tectonic.AngularDistance
}

// CoRegistrationProxy associates each reconstructed seed geometry with the
// nearest reconstructed target geometry within a region of interest.
// Distances are measured between geometry vertices.
type CoRegistrationProxy struct {
	subject Subject
	log     *slog.Logger
	seeds   *proxyInput[*ReconstructProxy]
	targets proxySet[*ReconstructProxy]
	roi     tectonic.AngularDistance

	cached       bool
	cachedTime   float64
	associations []Association
}

// NewCoRegistrationProxy returns a proxy with no inputs searching within
// DefaultRegionOfInterest. A nil logger uses slog.Default.
func NewCoRegistrationProxy(logger *slog.Logger) *CoRegistrationProxy {
	return &CoRegistrationProxy{log: loggerOrDefault(logger), roi: DefaultRegionOfInterest}
}

func (p *CoRegistrationProxy) Kind() Kind { return KindCoRegistration }

func (p *CoRegistrationProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *CoRegistrationProxy) checkInputs() {
	changed := p.seeds.changed()
	if p.targets.changed() {
		changed = true
	}
	if changed {
		p.invalidate()
	}
}

func (p *CoRegistrationProxy) invalidate() {
	p.cached = false
	p.associations = nil
	p.subject.Invalidate()
}

// SetSeedInput sets the proxy whose geometries are associated. A nil r disconnects it.
func (p *CoRegistrationProxy) SetSeedInput(r *ReconstructProxy) {
	if r == nil {
		p.seeds = nil
	} else {
		p.seeds = newProxyInput(r)
	}
	p.invalidate()
}

// AddTargetInput adds a proxy whose geometries seeds may be associated with.
func (p *CoRegistrationProxy) AddTargetInput(r *ReconstructProxy) {
	if p.targets.add(r) {
		p.invalidate()
	}
}

// RemoveTargetInput removes a proxy added with AddTargetInput.
func (p *CoRegistrationProxy) RemoveTargetInput(r *ReconstructProxy) {
	if p.targets.remove(r) {
		p.invalidate()
	}
}

// RegionOfInterest returns the largest distance at which geometries are associated.
func (p *CoRegistrationProxy) RegionOfInterest() tectonic.AngularDistance { return p.roi }

// SetRegionOfInterest sets the largest distance at which geometries are
// associated. It panics if roi is negative.
func (p *CoRegistrationProxy) SetRegionOfInterest(roi tectonic.AngularDistance) {
	if roi < 0 {
		panic(tectonic.ErrMsg("negative region of interest"))
	}
	if roi != p.roi {
		p.roi = roi
		p.invalidate()
	}
}

// Associations returns the association of every seed geometry that has a
// target within the region of interest at time. ok is false without a seed
// input or if the seeds cannot be reconstructed.
func (p *CoRegistrationProxy) Associations(time float64) ([]Association, bool) {
	p.checkInputs()
	if p.seeds == nil {
		return nil, false
	}
	if p.cached && p.cachedTime == time {
		cacheHit(KindCoRegistration)
		return p.associations, true
	}
	cacheMiss(KindCoRegistration)
	seeds, ok := p.seeds.proxy.ReconstructedGeometries(time)
	if !ok {
		return nil, false
	}
	var targets []ReconstructedGeometry
	for _, in := range p.targets {
		geoms, ok := in.proxy.ReconstructedGeometries(time)
		if ok {
			targets = append(targets, geoms...)
		}
	}
	var out []Association
	if index := newVertexIndex(targets); index != nil {
		for _, s := range seeds {
			target, dist, found := index.nearest(s.Geometry.Vertices())
			if found && dist <= p.roi {
				out = append(out, Association{Seed: s, Target: targets[target], Distance: dist})
			}
		}
	}
	p.log.Debug("co-registered", "time", time, "seeds", len(seeds), "targets", len(targets), "associations", len(out))
	p.cached = true
	p.cachedTime = time
	p.associations = out
	return out, true
}

// vertexIndex is a kd-tree over the vertices of a set of geometries.
type vertexIndex struct {
	tree *kdtree.Tree
}

func newVertexIndex(geoms []ReconstructedGeometry) *vertexIndex {
	var vs vertices
	for i, g := range geoms {
		for _, p := range g.Geometry.Vertices() {
			vs = append(vs, vertex{v: p.Vec(), geometry: i})
		}
	}
	if len(vs) == 0 {
		return nil
	}
	return &vertexIndex{tree: kdtree.New(vs, true)}
}

// nearest returns the geometry holding the vertex closest to any of points.
func (x *vertexIndex) nearest(points []tectonic.PointOnSphere) (geometry int, dist tectonic.AngularDistance, ok bool) {
	best := math.Inf(1)
	for _, p := range points {
		c, d2 := x.tree.Nearest(&vertex{v: p.Vec()})
		if c != nil && d2 < best {
			best = d2
			geometry = c.(*vertex).geometry
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return geometry, chordAngle(math.Sqrt(best)), true
}

// chordAngle converts a chord length on the unit sphere to the angle it subtends.
func chordAngle(chord float64) tectonic.AngularDistance {
	return tectonic.AngularDistance(2 * math.Asin(math.Min(chord/2, 1)))
}

// vertex is a kdtree.Comparable point on the unit sphere.
type vertex struct {
	v        r3.Vec
	geometry int
}

func (p *vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*vertex)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	}
	panic("unreachable")
}

func (p *vertex) Dims() int { return 3 }

func (p *vertex) Distance(c kdtree.Comparable) float64 {
	q := c.(*vertex)
	return r3.Norm2(r3.Sub(p.v, q.v))
}

// vertices implements kdtree.Interface.
type vertices []vertex

func (vs vertices) Index(i int) kdtree.Comparable { return &vs[i] }

func (vs vertices) Len() int { return len(vs) }

func (vs vertices) Pivot(d kdtree.Dim) int {
	p := vertexPlane{dim: d, vertices: vs}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (vs vertices) Slice(start, end int) kdtree.Interface { return vs[start:end] }

// Bounds implements kdtree.Bounder.
func (vs vertices) Bounds() *kdtree.Bounding {
	min := vertex{v: r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}}
	max := vertex{v: r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64}}
	for _, p := range vs {
		min.v = d3.MinElem(min.v, p.v)
		max.v = d3.MaxElem(max.v, p.v)
	}
	return &kdtree.Bounding{Min: &min, Max: &max}
}

type vertexPlane struct {
	dim      kdtree.Dim
	vertices vertices
}

func (p vertexPlane) Less(i, j int) bool {
	return p.vertices[i].Compare(&p.vertices[j], p.dim) < 0
}

func (p vertexPlane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

func (p vertexPlane) Len() int { return len(p.vertices) }

func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	p.vertices = p.vertices[start:end]
	return p
}
