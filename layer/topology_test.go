package layer

import (
	"math"
	"testing"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// triangleSections returns three polyline sections that join into the
// triangle (0,0) (0,10) (10,5). Section b is stored back to front and lies
// on the moving plate; the others are on plate 0.
func triangleSections() *feature.Collection {
	return feature.NewCollection("sections", feature.FormatGeoJSON,
		geometryFeature("a", 0, feature.PolylineGeometry, ll(0, 0), ll(0, 10)),
		geometryFeature("b", movingPlate, feature.PolylineGeometry, ll(10, 5), ll(0, 10)),
		geometryFeature("c", 0, feature.PolylineGeometry, ll(10, 5), ll(0, 0)),
	)
}

type topologyFixture struct {
	rotations *feature.Collection
	recon     *ReconstructionProxy
	sections  *ReconstructProxy
}

func newTopologyFixture() topologyFixture {
	f := topologyFixture{rotations: rotationCollection(50)}
	f.recon = NewReconstructionProxy(0, nil)
	f.recon.AddCollection(f.rotations)
	f.sections = NewReconstructProxy(nil)
	f.sections.SetReconstructionInput(f.recon)
	f.sections.AddCollection(triangleSections())
	return f
}

func TestResolveBoundaryReversesSections(t *testing.T) {
	index := sectionIndex{}
	for _, f := range triangleSections().Features() {
		index[f.ID] = ReconstructedGeometry{Feature: f, PlateID: f.PlateID, Geometry: f.Geometries()[0]}
	}
	ring, missing, ok := resolveBoundary(feature.SectionReferences{Sections: []feature.ID{"a", "b", "missing", "c"}}, index)
	require.True(t, ok)
	assert.Equal(t, 1, missing)
	require.Len(t, ring, 3)
	want := []tectonic.PointOnSphere{ll(0, 0), ll(0, 10), ll(10, 5)}
	for i := range want {
		assert.True(t, want[i].Equal(ring[i].point, 1e-12), "vertex %d: %v", i, ring[i].point)
	}
	assert.Equal(t, []rotation.PlateID{0, 0, movingPlate}, []rotation.PlateID{ring[0].plate, ring[1].plate, ring[2].plate})

	_, _, ok = resolveBoundary(feature.SectionReferences{Sections: []feature.ID{"a"}}, index)
	assert.False(t, ok, "a single segment is not a ring")
}

func TestTopologyGeometryProxy(t *testing.T) {
	fx := newTopologyFixture()
	topo := NewTopologyGeometryProxy(nil)
	_, ok := topo.ResolvedBoundaries(0)
	assert.False(t, ok, "resolved without collections")

	// Listed clockwise so the output must be reoriented.
	topo.AddCollection(feature.NewCollection("plates", feature.FormatGeoJSON, sectionFeature("plate", "c", "b", "a")))
	topo.AddSectionInput(fx.sections)
	boundaries, ok := topo.ResolvedBoundaries(0)
	require.True(t, ok)
	require.Len(t, boundaries, 1)
	b := boundaries[0]
	assert.Equal(t, feature.ID("plate"), b.Feature.ID)
	assert.Equal(t, polygon.CounterClockwise, polygon.RingOrientation(b.Polygon.Exterior))
	assert.Len(t, b.Plates, 3)
	assert.True(t, b.Polygon.Contains(ll(3, 5)))
	assert.False(t, b.Polygon.Contains(ll(-3, 5)))

	token := topo.SubjectToken()
	h := hits(KindTopologyGeometry)
	topo.ResolvedBoundaries(0)
	assert.Equal(t, h+1, hits(KindTopologyGeometry))
	assert.Equal(t, token, topo.SubjectToken())

	// Moving the rotation file moves section b and the resolved boundary.
	fx.rotations.Replace(rotationCollection(80).Features()...)
	assert.NotEqual(t, token, topo.SubjectToken())
	moved, ok := topo.ResolvedBoundaries(50)
	require.True(t, ok)
	require.Len(t, moved, 1)
	assert.Greater(t, moved[0].Polygon.NumVertices(), 3, "rotated section did not split the triangle")
}

func newNetworkFixture() (topologyFixture, *TopologyNetworkProxy) {
	fx := newTopologyFixture()
	net := NewTopologyNetworkProxy(nil)
	net.AddCollection(feature.NewCollection("networks", feature.FormatGeoJSON, sectionFeature("net", "a", "b", "c")))
	net.AddSectionInput(fx.sections)
	net.SetReconstructionInput(fx.recon)
	return fx, net
}

func TestTopologyNetworkVelocityFit(t *testing.T) {
	fx, net := newNetworkFixture()
	networks, ok := net.ResolvedNetworks(0)
	require.True(t, ok)
	require.Len(t, networks, 1)
	n := networks[0]
	require.Len(t, n.Velocities, 3)

	model, _ := fx.recon.Model()
	for _, v := range n.Velocities {
		want := model.Velocity(v.Point, v.PlateID, 0, 0, DefaultVelocityInterval)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, v.Vector)), 1e-9)
		// Three vertices determine the affine field exactly.
		got, ok := n.VelocityAt(v.Point)
		require.True(t, ok)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(want, got)), 1e-6, "velocity at %v", v.Point)
	}
	// Only the apex moves, parallel to the fixed base: simple shear.
	assert.InDelta(t, 0, n.Rate.Dilatation(), 1e-9)
	assert.Greater(t, n.Rate.SecondInvariant(), 0.0)
	assert.True(t, n.Contains(ll(3, 5)))

	_, ok = n.VelocityAt(ll(-60, 180))
	assert.False(t, ok, "velocity evaluated on the far side of the sphere")
}

func TestTopologyNetworkInputs(t *testing.T) {
	fx, net := newNetworkFixture()
	net.SetReconstructionInput(nil)
	_, ok := net.ResolvedNetworks(0)
	assert.False(t, ok, "resolved without a reconstruction input")
	net.SetReconstructionInput(fx.recon)

	token := net.SubjectToken()
	net.SetVelocityInterval(2)
	assert.NotEqual(t, token, net.SubjectToken())
	token = net.SubjectToken()
	net.SetVelocityInterval(2)
	assert.Equal(t, token, net.SubjectToken())
	assert.Panics(t, func() { net.SetVelocityInterval(0) })

	net.RemoveSectionInput(fx.sections)
	networks, ok := net.ResolvedNetworks(0)
	require.True(t, ok)
	assert.Empty(t, networks, "network resolved without sections")
}

func TestDeformationAccumulatesStrain(t *testing.T) {
	_, net := newNetworkFixture()
	def := NewDeformationProxy(10, 1, nil)
	inside, outside := ll(2, 6), ll(-60, 100)
	def.SetSeeds([]tectonic.PointOnSphere{inside, outside})

	_, ok := def.DeformedPoints(0)
	assert.False(t, ok, "deformed without a network input")
	def.SetNetworkInput(net)

	start, ok := def.DeformedPoints(10)
	require.True(t, ok)
	require.Len(t, start, 2)
	assert.True(t, start[0].Point.Equal(inside, 1e-12))
	assert.InDelta(t, 0, start[0].Principal.Strain1, 1e-12)

	points, ok := def.DeformedPoints(0)
	require.True(t, ok)
	require.Len(t, points, 2)
	in, out := points[0], points[1]
	assert.Equal(t, 0, in.Seed)
	assert.Greater(t, in.Principal.Strain1, 0.01, "shear did not stretch the seed")
	assert.Less(t, in.Principal.Strain2, 0.0)
	assert.Greater(t, in.Point.Distance(inside).Radians(), 0.0, "seed did not move")
	require.NotNil(t, in.Network)
	assert.Equal(t, feature.ID("net"), in.Network.ID)

	assert.True(t, out.Point.Equal(outside, 1e-12), "seed outside every network moved")
	assert.InDelta(t, 0, out.Principal.Strain1, 1e-12)
	assert.InDelta(t, 0, out.Principal.Strain2, 1e-12)
	assert.Nil(t, out.Network)

	history, ok := def.History(0, 0)
	require.True(t, ok)
	assert.Equal(t, 11, history.Len())
	assert.Equal(t, 10.0, history.Reference())

	// Between samples the strain is interpolated.
	half, ok := def.DeformedPoints(4.5)
	require.True(t, ok)
	s4, _ := history.At(4)
	s5, _ := history.At(5)
	want := 0.5 * (s4.Gradient().TP + s5.Gradient().TP)
	assert.InDelta(t, want, half[0].Strain.Gradient().TP, 1e-12)

	h := hits(KindDeformation)
	def.DeformedPoints(4.5)
	assert.Equal(t, h+1, hits(KindDeformation))

	// Upstream changes discard the histories.
	token := def.SubjectToken()
	net.SetVelocityInterval(0.5)
	assert.NotEqual(t, token, def.SubjectToken())
	history, ok = def.History(0, 9)
	require.True(t, ok)
	assert.Equal(t, 2, history.Len())
}

func TestDeformationWalksIntoThePast(t *testing.T) {
	_, net := newNetworkFixture()
	def := NewDeformationProxy(0, 2, nil)
	def.SetNetworkInput(net)
	def.SetSeeds([]tectonic.PointOnSphere{ll(3, 5)})

	points, ok := def.DeformedPoints(6)
	require.True(t, ok)
	assert.False(t, math.IsNaN(points[0].Principal.Strain1))
	history, ok := def.History(0, 6)
	require.True(t, ok)
	assert.Equal(t, 4, history.Len())
	assert.Equal(t, 6.0, history.Last().Time)

	// Walking the other way keeps the past history.
	_, ok = def.DeformedPoints(-4)
	require.True(t, ok)
	again, _ := def.History(0, 6)
	assert.Same(t, history, again)
}

func TestDeformationStepPanics(t *testing.T) {
	assert.Panics(t, func() { NewDeformationProxy(0, 0, nil) })
}
