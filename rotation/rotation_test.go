package rotation

import (
	"math"
	"testing"

	"github.com/soypat/tectonic"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func ll(lat, lon float64) tectonic.PointOnSphere {
	return tectonic.PointFromLatLon(tectonic.LatLon{Lat: lat, Lon: lon})
}

func TestFromEulerPoleRotatesCounterClockwise(t *testing.T) {
	// 90 degrees about the north pole takes lon 0 to lon 90.
	r := FromEulerPole(tectonic.LatLon{Lat: 90}, 90)
	got := r.Rotate(ll(0, 0))
	if !got.Equal(ll(0, 90), tol) {
		t.Errorf("got %v", got)
	}
	if !r.Rotate(ll(90, 0)).Equal(ll(90, 0), tol) {
		t.Error("pole moved")
	}
}

func TestZeroValueIsIdentity(t *testing.T) {
	var f Finite
	p := ll(12, 34)
	if !f.Rotate(p).Equal(p, tol) {
		t.Error("zero value rotated point")
	}
	if !f.IsIdentity() || !f.Equal(Identity(), tol) {
		t.Error("zero value is not identity")
	}
	if _, _, ok := f.EulerPole(); ok {
		t.Error("identity has no pole")
	}
}

func TestComposeAndInverse(t *testing.T) {
	a := FromEulerPole(tectonic.LatLon{Lat: 30, Lon: 40}, 25)
	b := FromEulerPole(tectonic.LatLon{Lat: -10, Lon: 120}, 60)
	p := ll(5, -70)
	want := a.Rotate(b.Rotate(p))
	if got := a.Compose(b).Rotate(p); !got.Equal(want, tol) {
		t.Errorf("compose: want %v got %v", want, got)
	}
	if got := a.Compose(a.Inverse()); !got.IsIdentity() {
		t.Errorf("a a^-1 is not identity: %v", got.q)
	}
}

func TestEulerPoleRoundTrip(t *testing.T) {
	pole := tectonic.LatLon{Lat: 48, Lon: -33}
	r := FromEulerPole(pole, 17.5)
	gotPole, angle, ok := r.EulerPole()
	if !ok {
		t.Fatal("no pole")
	}
	if math.Abs(angle-17.5) > tol {
		t.Errorf("angle %g", angle)
	}
	if !tectonic.PointFromLatLon(gotPole).Equal(tectonic.PointFromLatLon(pole), tol) {
		t.Errorf("pole %v", gotPole)
	}
	// A negative angle about a pole is a positive angle about its antipode.
	neg := FromEulerPole(pole, -17.5)
	gotPole, angle, _ = neg.EulerPole()
	if math.Abs(angle-17.5) > tol || !tectonic.PointFromLatLon(gotPole).Equal(tectonic.PointFromLatLon(pole).Antipode(), tol) {
		t.Errorf("negative angle: pole %v angle %g", gotPole, angle)
	}
}

func TestInterpolate(t *testing.T) {
	pole := tectonic.LatLon{Lat: 10, Lon: 20}
	a := FromEulerPole(pole, 10)
	b := FromEulerPole(pole, 30)
	if got := Interpolate(a, b, 0); !got.Equal(a, tol) {
		t.Error("position 0")
	}
	if got := Interpolate(a, b, 1); !got.Equal(b, tol) {
		t.Error("position 1")
	}
	if got := Interpolate(a, b, 0.25); !got.Equal(FromEulerPole(pole, 15), tol) {
		_, angle, _ := got.EulerPole()
		t.Errorf("position 0.25: angle %g", angle)
	}
	if got := Interpolate(a, a, 0.5); !got.Equal(a, tol) {
		t.Error("equal endpoints")
	}
}

func testModel() *Model {
	return NewModel(
		Sequence{MovingPlate: 101, FixedPlate: 0, Samples: []Sample{
			{Time: 100, Pole: tectonic.LatLon{Lat: 90}, Angle: 50},
			{Time: 0},
		}},
		Sequence{MovingPlate: 201, FixedPlate: 101, Samples: []Sample{
			{Time: 0},
			{Time: 100, Pole: tectonic.LatLon{Lat: 0, Lon: 0}, Angle: 20},
		}},
	)
}

func TestSequenceAt(t *testing.T) {
	m := testModel()
	s := m.Sequences()[0]
	if s.Samples[0].Time != 0 {
		t.Fatal("samples not sorted")
	}
	r, ok := s.At(50)
	if !ok {
		t.Fatal("50 within span")
	}
	_, angle, _ := r.EulerPole()
	if math.Abs(angle-25) > tol {
		t.Errorf("angle at 50: %g", angle)
	}
	if _, ok := s.At(100.5); ok {
		t.Error("outside span")
	}
	if r, ok := s.At(0); !ok || !r.IsIdentity() {
		t.Error("present day")
	}
}

func TestTreeChain(t *testing.T) {
	m := testModel()
	tree := m.Tree(100, 0)
	p := ll(0, 90)
	want := FromEulerPole(tectonic.LatLon{Lat: 90}, 50).Rotate(
		FromEulerPole(tectonic.LatLon{}, 20).Rotate(p))
	if got := tree.Reconstruct(201, p); !got.Equal(want, tol) {
		t.Errorf("chain: want %v got %v", want, got)
	}
	if !tree.Rotation(999).IsIdentity() {
		t.Error("unknown plate")
	}
	if got := tree.Plates(); len(got) != 2 || got[0] != 101 || got[1] != 201 {
		t.Errorf("plates: %v", got)
	}
	if !tree.Rotation(0).IsIdentity() {
		t.Error("anchor")
	}
	// Anchored on 101 the plate 201 only carries its relative rotation.
	rel := m.Tree(100, 101).Rotation(201)
	if !rel.Equal(FromEulerPole(tectonic.LatLon{}, 20), tol) {
		t.Error("relative to 101")
	}
	// And 0 moves by the inverse of 101.
	if got := m.Tree(100, 101).Rotation(0); !got.Equal(FromEulerPole(tectonic.LatLon{Lat: 90}, -50), tol) {
		t.Error("anchor plate moves inversely")
	}
}

func TestTreeCycleTerminates(t *testing.T) {
	m := NewModel(
		Sequence{MovingPlate: 1, FixedPlate: 2, Samples: []Sample{{Time: 0}, {Time: 10, Pole: tectonic.LatLon{Lat: 90}, Angle: 1}}},
		Sequence{MovingPlate: 2, FixedPlate: 1, Samples: []Sample{{Time: 0}, {Time: 10, Pole: tectonic.LatLon{Lat: 90}, Angle: 1}}},
	)
	_ = m.Tree(5, 0).Rotation(1)
}

func TestStageRotationAndVelocity(t *testing.T) {
	m := testModel()
	stage := m.StageRotation(101, 0, 100, 0)
	if !stage.Equal(FromEulerPole(tectonic.LatLon{Lat: 90}, -50), tol) {
		t.Error("stage from 100 to 0")
	}
	// Plate 101 spins about the north pole at 0.5 deg/Myr going back in
	// time, so today it moves west at the equator.
	v := m.Velocity(ll(0, 0), 101, 0, 10, 1)
	want := CmPerYear * tectonic.DtoR(0.5)
	if math.Abs(r3.Norm(v)-want) > 1e-6 {
		t.Errorf("speed want %g got %g", want, r3.Norm(v))
	}
	if v.Y >= 0 {
		t.Errorf("expected westward velocity, got %v", v)
	}
	if math.Abs(r3.Dot(v, ll(0, 0).Vec())) > 1e-9 {
		t.Error("velocity not tangent")
	}
	if v := m.Velocity(ll(0, 0), 999, 0, 10, 1); v != (r3.Vec{}) {
		t.Errorf("unknown plate velocity %v", v)
	}
}

func BenchmarkTreeRotation(b *testing.B) {
	m := testModel()
	for i := 0; i < b.N; i++ {
		m.Tree(float64(i%100), 0).Rotation(201)
	}
}
