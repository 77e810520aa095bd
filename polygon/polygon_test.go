package polygon

import (
	"math"
	"testing"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/projection/mustproj"
)

func ringFromLatLon(lls ...tectonic.LatLon) Ring {
	r := make(Ring, len(lls))
	for i, ll := range lls {
		r[i] = tectonic.PointFromLatLon(ll)
	}
	return r
}

// square returns a counter-clockwise square (seen from outside the sphere)
// centred on (lat, lon) with the given half side in degrees.
func square(lat, lon, half float64) Ring {
	return ringFromLatLon(
		tectonic.LatLon{Lat: lat - half, Lon: lon - half},
		tectonic.LatLon{Lat: lat - half, Lon: lon + half},
		tectonic.LatLon{Lat: lat + half, Lon: lon + half},
		tectonic.LatLon{Lat: lat + half, Lon: lon - half},
	)
}

func TestOrientationKnownShapes(t *testing.T) {
	ccw := Polygon{Exterior: square(0, 0, 1)}
	if got := CalculateOrientation(ccw); got != CounterClockwise {
		t.Errorf("ccw square: got %v", got)
	}
	cw := Polygon{Exterior: ccw.Exterior.Reverse()}
	if got := CalculateOrientation(cw); got != Clockwise {
		t.Errorf("reversed square: got %v", got)
	}
	if got := ExteriorRingOrientation(cw); got != Clockwise {
		t.Errorf("reversed square exterior ring: got %v", got)
	}
}

func TestOrientationSmallHoleDoesNotFlip(t *testing.T) {
	for _, exterior := range []Ring{square(10, 20, 5), square(10, 20, 5).Reverse()} {
		want := RingOrientation(exterior)
		// The hole winds the same way as the exterior. Its area must be
		// subtracted, not added, and must never dominate.
		hole := square(10, 20, 0.5)
		if want == Clockwise {
			hole = hole.Reverse()
		}
		p := Polygon{Exterior: exterior, Interiors: []Ring{hole}}
		if got := CalculateOrientation(p); got != want {
			t.Errorf("hole flipped orientation: want %v got %v", want, got)
		}
		if got := InteriorRingOrientation(p, 0); got != want {
			t.Errorf("interior ring orientation: want %v got %v", want, got)
		}
	}
}

func TestHolesTakeSignOppositeExterior(t *testing.T) {
	// Three holes as large as the exterior: every hole is subtracted with the
	// exterior's sign even after the running total changes sign.
	for _, exterior := range []Ring{square(0, 0, 5), square(0, 0, 5).Reverse()} {
		p := Polygon{Exterior: exterior, Interiors: []Ring{square(0, 0, 5), square(0, 0, 5).Reverse(), square(0, 0, 5)}}
		c, _ := BoundaryCentroid(exterior)
		g := mustproj.NewGnomonic(c, OrientationProjectionAngle)
		ext, ok := ProjectedSignedArea(exterior, g)
		if !ok {
			t.Fatal("exterior failed to project")
		}
		total, ok := ProjectedPolygonSignedArea(p, g)
		if !ok {
			t.Fatal("polygon failed to project")
		}
		if math.Abs(total+2*ext) > 1e-12 {
			t.Errorf("projected area: want %g got %g", -2*ext, total)
		}
		if got := SphericalPolygonSignedArea(p); math.Abs(got+2*SphericalSignedArea(exterior)) > 1e-12 {
			t.Errorf("spherical area: want %g got %g", -2*SphericalSignedArea(exterior), got)
		}
		want := Clockwise
		if RingOrientation(exterior) == Clockwise {
			want = CounterClockwise
		}
		if got := CalculateOrientation(p); got != want {
			t.Errorf("dominating holes: want %v got %v", want, got)
		}
	}
}

func TestOrientationFallbackLargePolygon(t *testing.T) {
	// Vertices span more than 45 degrees from the boundary centroid so the
	// projection fails and the exact spherical area decides.
	big := ringFromLatLon(
		tectonic.LatLon{Lat: -10, Lon: -80},
		tectonic.LatLon{Lat: -10, Lon: 80},
		tectonic.LatLon{Lat: 60, Lon: 80},
		tectonic.LatLon{Lat: 60, Lon: -80},
	)
	c, ok := BoundaryCentroid(big)
	if !ok {
		t.Fatal("no centroid")
	}
	g := mustproj.NewGnomonic(c, OrientationProjectionAngle)
	if _, ok := ProjectedSignedArea(big, g); ok {
		t.Fatal("expected projection of large ring to fail")
	}
	if got := CalculateOrientation(Polygon{Exterior: big}); got != CounterClockwise {
		t.Errorf("large ccw: got %v", got)
	}
	if got := CalculateOrientation(Polygon{Exterior: big.Reverse()}); got != Clockwise {
		t.Errorf("large cw: got %v", got)
	}
}

func TestOrientationInteriorFallback(t *testing.T) {
	exterior := square(0, 0, 30)
	// A hole with a vertex far outside the 45 degree range forces the whole
	// polygon onto the spherical area path.
	hole := ringFromLatLon(
		tectonic.LatLon{Lat: -1, Lon: -1},
		tectonic.LatLon{Lat: -1, Lon: 60},
		tectonic.LatLon{Lat: 1, Lon: 1},
	)
	p := Polygon{Exterior: exterior, Interiors: []Ring{hole}}
	if got := CalculateOrientation(p); got != CounterClockwise {
		t.Errorf("got %v", got)
	}
	p.Exterior = exterior.Reverse()
	if got := CalculateOrientation(p); got != Clockwise {
		t.Errorf("got %v", got)
	}
}

func TestZeroAreaIsCounterClockwise(t *testing.T) {
	degenerate := ringFromLatLon(
		tectonic.LatLon{Lat: 0, Lon: 0},
		tectonic.LatLon{Lat: 0, Lon: 1},
		tectonic.LatLon{Lat: 0, Lon: 2},
	)
	if got := RingOrientation(degenerate); got != CounterClockwise {
		t.Errorf("degenerate ring: got %v", got)
	}
}

func TestProjectedAreaMatchesSpherical(t *testing.T) {
	r := square(-30, 100, 0.5)
	c, _ := BoundaryCentroid(r)
	g := mustproj.NewGnomonic(c, OrientationProjectionAngle)
	projected, ok := ProjectedSignedArea(r, g)
	if !ok {
		t.Fatal("projection failed")
	}
	exact := SphericalSignedArea(r)
	if exact <= 0 || projected <= 0 {
		t.Fatalf("expected positive areas, got %g %g", exact, projected)
	}
	if rel := math.Abs(projected-exact) / exact; rel > 1e-3 {
		t.Errorf("projected %g vs spherical %g, relative error %g", projected, exact, rel)
	}
}

func TestSphericalSignedAreaHemisphereStrip(t *testing.T) {
	// One degree square at the equator: area is about (pi/180)^2.
	r := square(0, 0, 0.5)
	want := math.Pow(math.Pi/180, 2)
	got := SphericalSignedArea(r)
	if math.Abs(got-want)/want > 1e-3 {
		t.Errorf("want %g got %g", want, got)
	}
	if got := SphericalSignedArea(r.Reverse()); math.Abs(got+want)/want > 1e-3 {
		t.Errorf("reversed: want %g got %g", -want, got)
	}
}

func TestWithOrientation(t *testing.T) {
	p := Polygon{
		Exterior:  square(0, 0, 5).Reverse(),
		Interiors: []Ring{square(0, 0, 1).Reverse()},
	}
	out := p.WithOrientation(CounterClockwise)
	if got := RingOrientation(out.Exterior); got != CounterClockwise {
		t.Errorf("exterior: %v", got)
	}
	if got := RingOrientation(out.Interiors[0]); got != Clockwise {
		t.Errorf("interior: %v", got)
	}
	// Input is left untouched.
	if RingOrientation(p.Exterior) != Clockwise {
		t.Error("input mutated")
	}
}

func TestContains(t *testing.T) {
	p := Polygon{
		Exterior:  square(0, 0, 5).Reverse(),
		Interiors: []Ring{square(0, 0, 1)},
	}
	cases := []struct {
		ll   tectonic.LatLon
		want bool
	}{
		{tectonic.LatLon{Lat: 3, Lon: 3}, true},
		{tectonic.LatLon{Lat: 0, Lon: 0}, false},
		{tectonic.LatLon{Lat: 10, Lon: 0}, false},
		{tectonic.LatLon{Lat: -4, Lon: 2}, true},
	}
	for _, c := range cases {
		if got := p.Contains(tectonic.PointFromLatLon(c.ll)); got != c.want {
			t.Errorf("contains %v: want %v got %v", c.ll, c.want, got)
		}
	}
}

func TestBoundaryCentroid(t *testing.T) {
	c, ok := BoundaryCentroid(square(20, 40, 2))
	if !ok {
		t.Fatal("no centroid")
	}
	ll := c.LatLon()
	if math.Abs(ll.Lon-40) > 1e-9 || math.Abs(ll.Lat-20) > 0.1 {
		t.Errorf("centroid %v far from (20, 40)", ll)
	}
	if _, ok := BoundaryCentroid(nil); ok {
		t.Error("empty ring has a centroid")
	}
}

func BenchmarkCalculateOrientation(b *testing.B) {
	p := Polygon{Exterior: square(10, 10, 3), Interiors: []Ring{square(10, 10, 1)}}
	for i := 0; i < b.N; i++ {
		CalculateOrientation(p)
	}
}
