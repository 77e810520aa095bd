package layer

import (
	"log/slog"
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/rotation"
	"github.com/soypat/tectonic/strain"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDeformationStep is the time step in Myr between strain samples.
const DefaultDeformationStep = 1.0

// DeformedPoint is a seed carried from the reference time through the
// deforming networks, with the strain it accumulated on the way.
type DeformedPoint struct {
	// Seed indexes the seeds passed to SetSeeds.
	Seed      int
	Point     tectonic.PointOnSphere
	Strain    strain.Strain
	Principal strain.Principal
	// Network contains Point at the requested time; nil outside every network.
	Network *feature.Feature
}

// deformationWalk carries every seed away from the reference time one step
// at a time, in one direction.
type deformationWalk struct {
	dir       float64 // -1 towards the present, +1 into the past
	times     []float64
	positions [][]tectonic.PointOnSphere // by sample, then seed
	histories []*strain.History
	// velocities of each seed at the last sample in cm/yr.
	velocities []r3.Vec
}

func (w *deformationWalk) last() float64 { return w.times[len(w.times)-1] }

func (w *deformationWalk) reached(time float64) bool {
	if w.dir < 0 {
		return w.last() <= time
	}
	return w.last() >= time
}

// DeformationProxy carries seed points through time over the networks of a
// TopologyNetworkProxy, accumulating strain where they lie inside a network.
// Seeds outside every network keep their position and accumulate no strain.
//
// Strain histories are kept across calls while the network input's token
// is unchanged, so walking further away from the reference time only
// computes the new steps.
type DeformationProxy struct {
	subject   Subject
	log       *slog.Logger
	networks  *proxyInput[*TopologyNetworkProxy]
	reference float64
	step      float64
	seeds     []tectonic.PointOnSphere

	walks      [2]*deformationWalk
	cached     bool
	cachedTime float64
	points     []DeformedPoint
}

// NewDeformationProxy returns a proxy that starts undeformed at reference
// and samples strain every step Myr. It panics if step is not positive.
// A nil logger uses slog.Default.
func NewDeformationProxy(reference, step float64, logger *slog.Logger) *DeformationProxy {
	if step <= 0 {
		panic(tectonic.ErrMsg("deformation step must be positive"))
	}
	return &DeformationProxy{reference: reference, step: step, log: loggerOrDefault(logger)}
}

func (p *DeformationProxy) Kind() Kind { return KindDeformation }

func (p *DeformationProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *DeformationProxy) checkInputs() {
	if p.networks.changed() {
		p.invalidate()
	}
}

func (p *DeformationProxy) invalidate() {
	p.walks = [2]*deformationWalk{}
	p.cached = false
	p.points = nil
	p.subject.Invalidate()
}

// SetNetworkInput sets the proxy supplying deforming networks. A nil n disconnects it.
func (p *DeformationProxy) SetNetworkInput(n *TopologyNetworkProxy) {
	if n == nil {
		p.networks = nil
	} else {
		p.networks = newProxyInput(n)
	}
	p.invalidate()
}

// SetSeeds replaces the points carried through time. Their positions are
// taken at the reference time.
func (p *DeformationProxy) SetSeeds(seeds []tectonic.PointOnSphere) {
	p.seeds = append(p.seeds[:0], seeds...)
	p.invalidate()
}

// Seeds returns the seed positions at the reference time.
func (p *DeformationProxy) Seeds() []tectonic.PointOnSphere { return p.seeds }

// ReferenceTime returns the time at which seeds are undeformed.
func (p *DeformationProxy) ReferenceTime() float64 { return p.reference }

// SetReferenceTime changes the time at which seeds are undeformed.
func (p *DeformationProxy) SetReferenceTime(reference float64) {
	if reference != p.reference {
		p.reference = reference
		p.invalidate()
	}
}

// Step returns the time between strain samples in Myr.
func (p *DeformationProxy) Step() float64 { return p.step }

// DeformedPoints returns every seed carried to time. ok is false without a
// network input or if the networks could not be resolved at some step.
func (p *DeformationProxy) DeformedPoints(time float64) ([]DeformedPoint, bool) {
	p.checkInputs()
	if p.networks == nil || math.IsNaN(time) {
		return nil, false
	}
	if p.cached && p.cachedTime == time {
		cacheHit(KindDeformation)
		return p.points, true
	}
	cacheMiss(KindDeformation)
	w, ok := p.walk(time)
	if !ok {
		return nil, false
	}
	nets, ok := p.networks.proxy.ResolvedNetworks(time)
	if !ok {
		return nil, false
	}
	i, frac := w.bracket(time)
	out := make([]DeformedPoint, len(p.seeds))
	for s := range p.seeds {
		pt := w.positions[i][s]
		if frac > 0 {
			pt = mixPoints(w.positions[i-1][s], pt, frac)
		}
		st, _ := w.histories[s].At(time)
		dp := DeformedPoint{Seed: s, Point: pt, Strain: st, Principal: st.Principal()}
		if n := networkContaining(nets, pt); n != nil {
			dp.Network = n.Feature
		}
		out[s] = dp
	}
	p.cached = true
	p.cachedTime = time
	p.points = out
	return out, true
}

// History returns the strain history of seed after walking it to time. The
// history covers the reference time up to the first sample at or beyond
// time and must not be modified.
func (p *DeformationProxy) History(seed int, time float64) (*strain.History, bool) {
	p.checkInputs()
	if p.networks == nil || seed < 0 || seed >= len(p.seeds) || math.IsNaN(time) {
		return nil, false
	}
	w, ok := p.walk(time)
	if !ok {
		return nil, false
	}
	return w.histories[seed], true
}

// bracket returns the index of the first sample at or beyond time and the
// position of time between the previous sample and that one, measured from
// the sample itself (0 when time is a sample time).
func (w *deformationWalk) bracket(time float64) (i int, frac float64) {
	ref := w.times[0]
	step := math.Abs(w.times[min(1, len(w.times)-1)] - ref)
	if step == 0 {
		return 0, 0
	}
	k := math.Abs(time-ref) / step
	i = int(math.Ceil(k - tectonic.Tolerance))
	if i >= len(w.times) {
		i = len(w.times) - 1
	}
	if i == 0 {
		return 0, 0
	}
	frac = float64(i) - k
	if frac < tectonic.Tolerance {
		return i, 0
	}
	return i, frac
}

// walk extends the walk in the direction of time until it reaches time.
func (p *DeformationProxy) walk(time float64) (*deformationWalk, bool) {
	idx, dir := 0, -1.0
	if time > p.reference {
		idx, dir = 1, 1
	}
	w := p.walks[idx]
	if w == nil {
		nets, ok := p.networks.proxy.ResolvedNetworks(p.reference)
		if !ok {
			return nil, false
		}
		w = &deformationWalk{
			dir:        dir,
			times:      []float64{p.reference},
			positions:  [][]tectonic.PointOnSphere{append([]tectonic.PointOnSphere(nil), p.seeds...)},
			histories:  make([]*strain.History, len(p.seeds)),
			velocities: make([]r3.Vec, len(p.seeds)),
		}
		for s, seed := range p.seeds {
			rate, vel := sampleNetworks(nets, seed)
			w.histories[s] = strain.NewHistory(p.reference)
			w.histories[s].SetInitialRate(rate)
			w.velocities[s] = vel
		}
		p.walks[idx] = w
	}
	steps := 0
	for !w.reached(time) {
		if !p.advance(w) {
			return nil, false
		}
		steps++
	}
	if steps > 0 {
		p.log.Debug("deformation walk", "time", time, "steps", steps, "samples", len(w.times))
	}
	return w, true
}

// advance moves every seed of w one step further from the reference time.
func (p *DeformationProxy) advance(w *deformationWalk) bool {
	from := w.last()
	to := from + w.dir*p.step
	nets, ok := p.networks.proxy.ResolvedNetworks(to)
	if !ok {
		return false
	}
	// Geological time runs backwards, so the elapsed time is from-to.
	dt := from - to
	prev := w.positions[len(w.positions)-1]
	next := make([]tectonic.PointOnSphere, len(prev))
	for s, x := range prev {
		next[s] = displace(x, w.velocities[s], dt)
		rate, vel := sampleNetworks(nets, next[s])
		w.histories[s].Step(to, rate)
		w.velocities[s] = vel
	}
	w.times = append(w.times, to)
	w.positions = append(w.positions, next)
	return true
}

func networkContaining(nets []ResolvedNetwork, x tectonic.PointOnSphere) *ResolvedNetwork {
	for i := range nets {
		if nets[i].Contains(x) {
			return &nets[i]
		}
	}
	return nil
}

// sampleNetworks returns the velocity gradient and velocity at x of the
// first network containing it, or zero values outside every network.
func sampleNetworks(nets []ResolvedNetwork, x tectonic.PointOnSphere) (strain.Rate, r3.Vec) {
	n := networkContaining(nets, x)
	if n == nil {
		return strain.Rate{}, r3.Vec{}
	}
	v, ok := n.VelocityAt(x)
	if !ok {
		return strain.Rate{}, r3.Vec{}
	}
	return n.Rate, v
}

// displace moves x along its velocity v (cm/yr) for dt Myr.
func displace(x tectonic.PointOnSphere, v r3.Vec, dt float64) tectonic.PointOnSphere {
	if v == (r3.Vec{}) || dt == 0 {
		return x
	}
	return tectonic.NewPointOnSphere(r3.Add(x.Vec(), r3.Scale(dt/rotation.CmPerYear, v)))
}

// mixPoints returns the normalised mix of b and a, t of the way from b to a.
func mixPoints(a, b tectonic.PointOnSphere, t float64) tectonic.PointOnSphere {
	va, vb := a.Vec(), b.Vec()
	v := r3.Vec{
		X: tectonic.Mix(vb.X, va.X, t),
		Y: tectonic.Mix(vb.Y, va.Y, t),
		Z: tectonic.Mix(vb.Z, va.Z, t),
	}
	if r3.Norm(v) < tectonic.Epsilon {
		return b
	}
	return tectonic.NewPointOnSphere(v)
}
