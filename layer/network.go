package layer

import (
	"log/slog"
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/projection"
	"github.com/soypat/tectonic/rotation"
	"github.com/soypat/tectonic/strain"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// networkProjectionAngle bounds the size of networks whose velocity
	// field can be fitted in the tangent plane.
	networkProjectionAngle tectonic.AngularDistance = 80 * math.Pi / 180
	// DefaultVelocityInterval is the stage rotation interval in Myr used for velocities.
	DefaultVelocityInterval = 1.0
)

// Velocity is the surface velocity of a point on a plate in cm/yr.
type Velocity struct {
	Point   tectonic.PointOnSphere
	PlateID rotation.PlateID
	Vector  r3.Vec
}

// ResolvedNetwork is a deforming network at one reconstruction time. Its
// velocity field is the affine field v(x) = v0 + L x fitted in the gnomonic
// plane tangent at the boundary centroid, with axes pointing towards
// increasing colatitude and longitude.
type ResolvedNetwork struct {
	Feature  *feature.Feature
	PlateID  rotation.PlateID
	Boundary polygon.Polygon
	// Velocities sampled at the boundary vertices.
	Velocities []Velocity
	// Rate is the velocity spatial gradient in 1/Myr.
	Rate strain.Rate

	frame *projection.Gnomonic
	v0    r2.Vec // radians per Myr
}

// Contains reports whether p lies inside the network boundary.
func (n *ResolvedNetwork) Contains(p tectonic.PointOnSphere) bool {
	return n.Boundary.Contains(p)
}

// VelocityAt evaluates the fitted velocity field at p in cm/yr. ok is false
// if p is too far from the network to be projected.
func (n *ResolvedNetwork) VelocityAt(p tectonic.PointOnSphere) (r3.Vec, bool) {
	xy, ok := n.frame.Project(p)
	if !ok {
		return r3.Vec{}, false
	}
	l := n.Rate.VelocityGradient()
	u := n.v0.X + l.TT*xy.X + l.TP*xy.Y
	w := n.v0.Y + l.PT*xy.X + l.PP*xy.Y
	x, y, _ := n.frame.Axes()
	v := r3.Add(r3.Scale(u, x), r3.Scale(w, y))
	// Keep the velocity tangent at p rather than at the tangent point.
	pv := p.Vec()
	v = r3.Sub(v, r3.Scale(r3.Dot(v, pv), pv))
	return r3.Scale(rotation.CmPerYear, v), true
}

// networkFrame returns the gnomonic projection tangent at c whose axes point
// south and east. Near the poles an arbitrary frame is used.
func networkFrame(c tectonic.PointOnSphere) (*projection.Gnomonic, error) {
	south, east, ok := c.LocalBasis()
	if !ok {
		return projection.NewGnomonic(c, networkProjectionAngle)
	}
	return projection.NewGnomonicFromFrame(c.Vec(), south, east, networkProjectionAngle)
}

// fitVelocityGradient fits the affine field v = v0 + L x to the velocities
// (in radians per Myr) of the points by least squares. ok is false if fewer
// than three points project or they are collinear.
func fitVelocityGradient(frame *projection.Gnomonic, points []tectonic.PointOnSphere, velocities []r3.Vec) (l strain.Gradient, v0 r2.Vec, ok bool) {
	a := make([]float64, 0, 3*len(points))
	b := make([]float64, 0, 2*len(points))
	for i, p := range points {
		xy, ok := frame.Project(p)
		if !ok {
			continue
		}
		uv := frame.ProjectTangent(velocities[i])
		a = append(a, 1, xy.X, xy.Y)
		b = append(b, uv.X, uv.Y)
	}
	n := len(a) / 3
	if n < 3 {
		return strain.Gradient{}, r2.Vec{}, false
	}
	var x mat.Dense
	if err := x.Solve(mat.NewDense(n, 3, a), mat.NewDense(n, 2, b)); err != nil {
		return strain.Gradient{}, r2.Vec{}, false
	}
	l = strain.Gradient{
		TT: x.At(1, 0), TP: x.At(2, 0),
		PT: x.At(1, 1), PP: x.At(2, 1),
	}
	return l, r2.Vec{X: x.At(0, 0), Y: x.At(0, 1)}, true
}

// TopologyNetworkProxy resolves deforming networks: a boundary resolved
// from topological sections and the velocity gradient across it derived
// from the stage rotations of the plates of its sections.
type TopologyNetworkProxy struct {
	subject        Subject
	log            *slog.Logger
	collections    collectionSet
	sections       proxySet[*ReconstructProxy]
	reconstruction *proxyInput[*ReconstructionProxy]
	interval       float64

	cached     bool
	cachedTime float64
	networks   []ResolvedNetwork
}

// NewTopologyNetworkProxy returns a proxy with no inputs. A nil logger uses slog.Default.
func NewTopologyNetworkProxy(logger *slog.Logger) *TopologyNetworkProxy {
	return &TopologyNetworkProxy{log: loggerOrDefault(logger), interval: DefaultVelocityInterval}
}

func (p *TopologyNetworkProxy) Kind() Kind { return KindTopologyNetwork }

func (p *TopologyNetworkProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *TopologyNetworkProxy) checkInputs() {
	changed := p.collections.changed()
	if p.sections.changed() {
		changed = true
	}
	if p.reconstruction.changed() {
		changed = true
	}
	if changed {
		p.invalidate()
	}
}

func (p *TopologyNetworkProxy) invalidate() {
	p.cached = false
	p.networks = nil
	p.subject.Invalidate()
}

// AddCollection adds a collection of network topology features.
func (p *TopologyNetworkProxy) AddCollection(c *feature.Collection) {
	if p.collections.add(c) {
		p.invalidate()
	}
}

// RemoveCollection removes a collection added with AddCollection.
func (p *TopologyNetworkProxy) RemoveCollection(c *feature.Collection) {
	if p.collections.remove(c) {
		p.invalidate()
	}
}

// AddSectionInput adds a proxy whose reconstructed geometries may be
// referenced as network boundary sections.
func (p *TopologyNetworkProxy) AddSectionInput(r *ReconstructProxy) {
	if p.sections.add(r) {
		p.invalidate()
	}
}

// RemoveSectionInput removes a proxy added with AddSectionInput.
func (p *TopologyNetworkProxy) RemoveSectionInput(r *ReconstructProxy) {
	if p.sections.remove(r) {
		p.invalidate()
	}
}

// SetReconstructionInput sets the proxy whose rotation model supplies
// velocities. A nil r disconnects it.
func (p *TopologyNetworkProxy) SetReconstructionInput(r *ReconstructionProxy) {
	if r == nil {
		p.reconstruction = nil
	} else {
		p.reconstruction = newProxyInput(r)
	}
	p.invalidate()
}

// SetVelocityInterval sets the stage rotation interval in Myr. It panics if
// dt is not positive.
func (p *TopologyNetworkProxy) SetVelocityInterval(dt float64) {
	if dt <= 0 {
		panic(tectonic.ErrMsg("velocity interval must be positive"))
	}
	if dt != p.interval {
		p.interval = dt
		p.invalidate()
	}
}

// ResolvedNetworks returns the networks that exist at time. ok is false if
// no collection or no reconstruction input is connected.
func (p *TopologyNetworkProxy) ResolvedNetworks(time float64) ([]ResolvedNetwork, bool) {
	p.checkInputs()
	if len(p.collections) == 0 || p.reconstruction == nil {
		return nil, false
	}
	if p.cached && p.cachedTime == time {
		cacheHit(KindTopologyNetwork)
		return p.networks, true
	}
	cacheMiss(KindTopologyNetwork)
	model, ok := p.reconstruction.proxy.Model()
	if !ok {
		return nil, false
	}
	anchor := p.reconstruction.proxy.AnchorPlate()
	index := indexSections(p.sections, time)
	var out []ResolvedNetwork
	for _, f := range p.collections.features(time) {
		refs, ok := f.Sections()
		if !ok {
			continue
		}
		ring, missing, ok := resolveBoundary(refs, index)
		if missing > 0 {
			p.log.Debug("network sections missing", "feature", f.ID, "time", time, "missing", missing)
		}
		if !ok {
			continue
		}
		boundary, ring := orientRing(ring)
		net := ResolvedNetwork{Feature: f, PlateID: f.PlateID, Boundary: boundary}
		points := make([]tectonic.PointOnSphere, len(ring))
		radians := make([]r3.Vec, len(ring))
		for i, v := range ring {
			vel := model.Velocity(v.point, v.plate, anchor, time, p.interval)
			net.Velocities = append(net.Velocities, Velocity{Point: v.point, PlateID: v.plate, Vector: vel})
			points[i] = v.point
			radians[i] = r3.Scale(1/rotation.CmPerYear, vel)
		}
		centroid, ok := polygon.BoundaryCentroid(boundary.Exterior)
		if !ok {
			continue
		}
		frame, err := networkFrame(centroid)
		if err != nil {
			p.log.Warn("network frame", "feature", f.ID, "error", err)
			continue
		}
		l, v0, ok := fitVelocityGradient(frame, points, radians)
		if !ok {
			p.log.Debug("network velocity fit failed", "feature", f.ID, "time", time)
		}
		net.Rate = strain.NewRate(l)
		net.frame = frame
		net.v0 = v0
		out = append(out, net)
	}
	p.cached = true
	p.cachedTime = time
	p.networks = out
	return out, true
}
