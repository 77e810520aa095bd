// Package scalarfield reads and writes 3D scalar field files.
//
// A field is stored as a netCDF classic file with dimensions "layer" and
// "point". Variables "depth" (layer), "lat" and "lon" (point) locate the
// samples held by the "field" variable (layer, point). Global attributes
// record the format version and the depth range.
package scalarfield

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/soypat/tectonic"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Version is the file format version written and understood by this package.
const Version = 1

// UnsupportedVersionError is returned when a file's format version is not Version.
type UnsupportedVersionError struct {
	Path    string
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("scalar field %s: unsupported file version %d, want %d", e.Path, e.Version, Version)
}

// ErrMalformed is wrapped by errors describing files that lack a required
// attribute or variable.
var ErrMalformed = errors.New("malformed scalar field file")

// Statistics summarises the valid (non-NaN) values of a field.
type Statistics struct {
	Min, Max     float64
	Mean, StdDev float64
	Count        int
}

// Field is a scalar field sampled at Points on each of the depth layers.
type Field struct {
	Version int
	// Depths of each layer in km, and the depth range they span.
	Depths             []float64
	DepthMin, DepthMax float64
	Points             []tectonic.PointOnSphere
	// Values holds len(Depths)*len(Points) samples, layer by layer.
	Values []float64
}

// Value returns the sample of point i on layer l.
func (f *Field) Value(l, i int) float64 { return f.Values[l*len(f.Points)+i] }

// Statistics computes the statistics of the field's values.
func (f *Field) Statistics() Statistics { return ComputeStatistics(f.Values) }

// ComputeStatistics returns the statistics of the non-NaN values.
func ComputeStatistics(values []float64) Statistics {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return Statistics{}
	}
	s := Statistics{
		Min:   floats.Min(valid),
		Max:   floats.Max(valid),
		Count: len(valid),
	}
	if len(valid) == 1 {
		s.Mean = valid[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)
	return s
}

// Read reads the scalar field file at path.
func Read(path string) (*Field, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	nc, err := cdf.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}
	h := nc.Header
	version, ok := h.GetAttribute("", "version").([]int32)
	if !ok || len(version) != 1 {
		return nil, fmt.Errorf("scalar field %s: missing version attribute: %w", path, ErrMalformed)
	}
	if version[0] != Version {
		return nil, &UnsupportedVersionError{Path: path, Version: int(version[0])}
	}
	field := &Field{Version: int(version[0])}
	field.DepthMin, err = scalarAttribute(h, "depth_min")
	if err == nil {
		field.DepthMax, err = scalarAttribute(h, "depth_max")
	}
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}

	field.Depths, err = readVariable(nc, "depth")
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}
	lats, err := readVariable(nc, "lat")
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}
	lons, err := readVariable(nc, "lon")
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("scalar field %s: %d latitudes and %d longitudes: %w", path, len(lats), len(lons), ErrMalformed)
	}
	field.Points = make([]tectonic.PointOnSphere, len(lats))
	for i := range lats {
		field.Points[i] = tectonic.PointFromLatLon(tectonic.LatLon{Lat: lats[i], Lon: lons[i]})
	}
	field.Values, err = readVariable(nc, "field")
	if err != nil {
		return nil, fmt.Errorf("scalar field %s: %w", path, err)
	}
	if len(field.Values) != len(field.Depths)*len(field.Points) {
		return nil, fmt.Errorf("scalar field %s: field has %d values for %d layers of %d points: %w",
			path, len(field.Values), len(field.Depths), len(field.Points), ErrMalformed)
	}
	return field, nil
}

func scalarAttribute(h *cdf.Header, name string) (float64, error) {
	v, ok := h.GetAttribute("", name).([]float64)
	if !ok || len(v) != 1 {
		return 0, fmt.Errorf("missing %s attribute: %w", name, ErrMalformed)
	}
	return v[0], nil
}

func readVariable(nc *cdf.File, name string) ([]float64, error) {
	lengths := nc.Header.Lengths(name)
	if lengths == nil {
		return nil, fmt.Errorf("missing variable %s: %w", name, ErrMalformed)
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}
	buf := make([]float64, n)
	r := nc.Reader(name, nil, nil)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return buf, nil
}

// Write writes f to path, creating or truncating the file. A zero
// f.Version writes the current Version.
func Write(path string, f *Field) error {
	if len(f.Depths) == 0 || len(f.Points) == 0 {
		return errors.New("scalar field needs at least one layer and one point")
	}
	if len(f.Values) != len(f.Depths)*len(f.Points) {
		return fmt.Errorf("scalar field has %d values for %d layers of %d points", len(f.Values), len(f.Depths), len(f.Points))
	}
	version := f.Version
	if version == 0 {
		version = Version
	}
	h := cdf.NewHeader([]string{"layer", "point"}, []int{len(f.Depths), len(f.Points)})
	h.AddAttribute("", "comment", "tectonic 3D scalar field")
	h.AddAttribute("", "version", []int32{int32(version)})
	h.AddAttribute("", "depth_min", []float64{f.DepthMin})
	h.AddAttribute("", "depth_max", []float64{f.DepthMax})
	h.AddVariable("depth", []string{"layer"}, []float64{0})
	h.AddAttribute("depth", "units", "km")
	h.AddVariable("lat", []string{"point"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", []string{"point"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("field", []string{"layer", "point"}, []float64{0})
	h.Define()

	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	nc, err := cdf.Create(fp, h)
	if err != nil {
		return fmt.Errorf("scalar field %s: %w", path, err)
	}
	lats := make([]float64, len(f.Points))
	lons := make([]float64, len(f.Points))
	for i, p := range f.Points {
		ll := p.LatLon()
		lats[i], lons[i] = ll.Lat, ll.Lon
	}
	vars := []struct {
		name string
		data []float64
	}{
		{"depth", f.Depths},
		{"lat", lats},
		{"lon", lons},
		{"field", f.Values},
	}
	for _, v := range vars {
		end := nc.Header.Lengths(v.name)
		w := nc.Writer(v.name, make([]int, len(end)), end)
		if _, err := w.Write(v.data); err != nil {
			return fmt.Errorf("scalar field %s: writing %s: %w", path, v.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(fp); err != nil {
		return err
	}
	return fp.Close()
}
