package rotation

import (
	"fmt"
	"sort"

	"github.com/soypat/tectonic"
	"gonum.org/v1/gonum/spatial/r3"
)

// PlateID identifies a tectonic plate.
type PlateID uint64

// Sample is a finite rotation at a time in Ma.
type Sample struct {
	Time  float64
	Pole  tectonic.LatLon
	Angle float64 // degrees
}

// Rotation returns the sample as a finite rotation.
func (s Sample) Rotation() Finite { return FromEulerPole(s.Pole, s.Angle) }

// Sequence is a total reconstruction sequence: the rotation of MovingPlate
// relative to FixedPlate sampled at increasing times.
type Sequence struct {
	MovingPlate PlateID
	FixedPlate  PlateID
	Samples     []Sample
}

// Sort orders the samples by increasing time.
func (s *Sequence) Sort() {
	sort.SliceStable(s.Samples, func(i, j int) bool { return s.Samples[i].Time < s.Samples[j].Time })
}

// Span returns the youngest and oldest sample times.
func (s *Sequence) Span() (youngest, oldest float64, ok bool) {
	if len(s.Samples) == 0 {
		return 0, 0, false
	}
	return s.Samples[0].Time, s.Samples[len(s.Samples)-1].Time, true
}

// Contains reports whether time lies within the sequence's sampled span.
func (s *Sequence) Contains(time float64) bool {
	young, old, ok := s.Span()
	return ok && time >= young && time <= old
}

// At returns the rotation at time, interpolating between the samples that
// bracket it. ok is false outside the sampled span.
func (s *Sequence) At(time float64) (Finite, bool) {
	if !s.Contains(time) {
		return Finite{}, false
	}
	i := sort.Search(len(s.Samples), func(i int) bool { return s.Samples[i].Time >= time })
	b := s.Samples[i]
	if b.Time == time || i == 0 {
		return b.Rotation(), true
	}
	a := s.Samples[i-1]
	position := (time - a.Time) / (b.Time - a.Time)
	return Interpolate(a.Rotation(), b.Rotation(), position), true
}

func (s *Sequence) String() string {
	young, old, _ := s.Span()
	return fmt.Sprintf("%d rel %d [%g, %g]Ma", s.MovingPlate, s.FixedPlate, young, old)
}

// Model is a set of total reconstruction sequences.
type Model struct {
	sequences []Sequence
}

// NewModel returns a model holding copies of the sequences with their
// samples sorted.
func NewModel(sequences ...Sequence) *Model {
	m := &Model{}
	for _, s := range sequences {
		m.Add(s)
	}
	return m
}

// Add appends a copy of the sequence to the model.
func (m *Model) Add(s Sequence) {
	s.Samples = append([]Sample(nil), s.Samples...)
	s.Sort()
	m.sequences = append(m.sequences, s)
}

// Len returns the number of sequences.
func (m *Model) Len() int { return len(m.sequences) }

// Sequences returns the model's sequences. Callers must not modify them.
func (m *Model) Sequences() []Sequence { return m.sequences }

// Tree returns the reconstruction tree at time relative to the anchor plate.
func (m *Model) Tree(time float64, anchor PlateID) *Tree {
	t := &Tree{
		time:   time,
		anchor: anchor,
		edges:  make(map[PlateID]edge),
		cache:  make(map[PlateID]Finite),
	}
	for i := range m.sequences {
		s := &m.sequences[i]
		if _, seen := t.edges[s.MovingPlate]; seen || s.MovingPlate == s.FixedPlate {
			// The first sequence covering the time wins, as in rotation files
			// where crossovers list the younger sequence first.
			continue
		}
		if r, ok := s.At(time); ok {
			t.edges[s.MovingPlate] = edge{fixed: s.FixedPlate, rotation: r}
		}
	}
	return t
}

type edge struct {
	fixed    PlateID
	rotation Finite
}

// Tree holds the total rotations of all plates at one time relative to an
// anchor plate. Rotations are computed on first request. A Tree is not safe
// for concurrent use.
type Tree struct {
	time   float64
	anchor PlateID
	edges  map[PlateID]edge
	cache  map[PlateID]Finite
}

// Time returns the reconstruction time of the tree.
func (t *Tree) Time() float64 { return t.time }

// Anchor returns the anchor plate.
func (t *Tree) Anchor() PlateID { return t.anchor }

// HasPlate reports whether the plate moves relative to another plate at the tree's time.
func (t *Tree) HasPlate(plate PlateID) bool {
	_, ok := t.edges[plate]
	return ok || plate == t.anchor
}

// Plates returns the moving plates with a rotation at the tree's time, sorted.
func (t *Tree) Plates() []PlateID {
	plates := make([]PlateID, 0, len(t.edges))
	for p := range t.edges {
		plates = append(plates, p)
	}
	sort.Slice(plates, func(i, j int) bool { return plates[i] < plates[j] })
	return plates
}

// Rotation returns the total rotation of plate relative to the anchor.
// Plates unknown to the model get the identity rotation.
func (t *Tree) Rotation(plate PlateID) Finite {
	if plate == t.anchor {
		return Identity()
	}
	if r, ok := t.cache[plate]; ok {
		return r
	}
	r := t.absolute(t.anchor).Inverse().Compose(t.absolute(plate))
	t.cache[plate] = r
	return r
}

// absolute walks the moving to fixed chain from plate up to the root of
// its chain. Cycles end the walk.
func (t *Tree) absolute(plate PlateID) Finite {
	r := Identity()
	visited := map[PlateID]bool{}
	for cur := plate; !visited[cur]; {
		visited[cur] = true
		e, ok := t.edges[cur]
		if !ok {
			break
		}
		r = e.rotation.Compose(r)
		cur = e.fixed
	}
	return r
}

// Reconstruct returns p, given at present day on plate, moved to its
// position at the tree's time.
func (t *Tree) Reconstruct(plate PlateID, p tectonic.PointOnSphere) tectonic.PointOnSphere {
	return t.Rotation(plate).Rotate(p)
}

// StageRotation returns the rotation that carries positions of plate at
// time from to its positions at time to, relative to anchor.
func (m *Model) StageRotation(plate, anchor PlateID, from, to float64) Finite {
	rFrom := m.Tree(from, anchor).Rotation(plate)
	rTo := m.Tree(to, anchor).Rotation(plate)
	return rTo.Compose(rFrom.Inverse())
}

// CmPerYear converts a unit sphere velocity in radians per Myr to cm/yr at
// the Earth's surface.
const CmPerYear = tectonic.EarthRadius * 1e5 / 1e6

// Velocity returns the surface velocity in cm/yr of point p on plate at
// time, from the stage rotation over the interval [time, time+dt]. The
// velocity is tangent to the sphere at p.
func (m *Model) Velocity(p tectonic.PointOnSphere, plate, anchor PlateID, time, dt float64) r3.Vec {
	if dt <= 0 {
		panic(tectonic.ErrMsg("velocity time interval must be positive"))
	}
	stage := m.StageRotation(plate, anchor, time+dt, time)
	pole, angle, ok := stage.EulerPole()
	if !ok {
		return r3.Vec{}
	}
	// Angular velocity vector in radians per Myr.
	omega := r3.Scale(tectonic.DtoR(angle)/dt, tectonic.PointFromLatLon(pole).Vec())
	return r3.Scale(CmPerYear, r3.Cross(omega, p.Vec()))
}
