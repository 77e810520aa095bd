package d2

import "gonum.org/v1/gonum/spatial/r2"

// Cross returns the z component of the cross product of a and b,
// the signed area of the parallelogram spanned by them.
func Cross(a, b r2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}

// Set is a ring of projected vertices.
type Set []r2.Vec

// ShoelaceSum returns twice the signed area of the closed ring of vertices.
// Counter-clockwise rings have positive area.
func (a Set) ShoelaceSum() float64 {
	if len(a) < 3 {
		return 0
	}
	sum := 0.0
	prev := a[len(a)-1]
	for _, v := range a {
		sum += Cross(prev, v)
		prev = v
	}
	return sum
}
