package feature

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/rotation"
)

// GeoJSON feature property names with a special meaning. Other numeric and
// string properties are loaded as Scalar and Text values.
const (
	KeyFeatureType = "feature_type"
	KeyPlateID     = "plate_id"
	KeyBegin       = "begin"
	KeyEnd         = "end"
	KeyMovingPlate = "moving_plate"
	KeyFixedPlate  = "fixed_plate"
	KeyRotation    = "rotation" // [[time, lat, lon, angle], ...]
	KeySections    = "sections" // ["feature id", ...]
	KeyScalarField = "scalar_field"
)

// PropertyGeometry names the properties holding the GeoJSON geometry.
const PropertyGeometry = "geometry"

// LoadGeoJSONFile reads a GeoJSON feature collection from path. Relative
// scalar field paths are resolved against the file's directory.
func LoadGeoJSONFile(path string) (*Collection, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	c, err := LoadGeoJSON(fp, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for _, f := range c.features {
		for i, p := range f.Properties {
			if sf, ok := p.Value.(ScalarFieldFile); ok && !filepath.IsAbs(sf.Path) {
				f.Properties[i].Value = ScalarFieldFile{Path: filepath.Join(dir, sf.Path)}
			}
		}
	}
	return c, nil
}

// LoadGeoJSON decodes a GeoJSON feature collection. Features without an id
// are given a random UUID.
func LoadGeoJSON(r io.Reader, name string) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	features := make([]*Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		f, err := decodeFeature(gf)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features = append(features, f)
	}
	return NewCollection(name, FormatGeoJSON, features...), nil
}

func decodeFeature(gf *geojson.Feature) (*Feature, error) {
	f := &Feature{ValidTime: Always}
	switch id := gf.ID.(type) {
	case string:
		f.ID = ID(id)
	case float64:
		f.ID = ID(strconv.FormatFloat(id, 'f', -1, 64))
	case nil:
		f.ID = ID(uuid.NewString())
	default:
		return nil, fmt.Errorf("unsupported id type %T", gf.ID)
	}
	if gf.Geometry != nil {
		geoms, err := decodeGeometry(gf.Geometry)
		if err != nil {
			return nil, err
		}
		for _, g := range geoms {
			f.Properties = append(f.Properties, Property{Name: PropertyGeometry, Value: g})
		}
	}
	keys := make([]string, 0, len(gf.Properties))
	for key := range gf.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var seq *rotation.Sequence
	for _, key := range keys {
		raw := gf.Properties[key]
		switch key {
		case KeyFeatureType:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a string", key)
			}
			f.Type = Type(s)
		case KeyPlateID:
			n, ok := raw.(float64)
			if !ok || n < 0 {
				return nil, fmt.Errorf("%s must be a non-negative number", key)
			}
			f.PlateID = rotation.PlateID(n)
		case KeyBegin, KeyEnd:
			n, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("%s must be a number", key)
			}
			if key == KeyBegin {
				f.ValidTime.Begin = n
			} else {
				f.ValidTime.End = n
			}
		case KeyMovingPlate, KeyFixedPlate, KeyRotation:
			if seq == nil {
				seq = &rotation.Sequence{}
			}
			if err := decodeSequenceField(seq, key, raw); err != nil {
				return nil, err
			}
		case KeySections:
			refs, err := decodeSections(raw)
			if err != nil {
				return nil, err
			}
			f.Properties = append(f.Properties, Property{Name: key, Value: refs})
		case KeyScalarField:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be a path string", key)
			}
			f.Properties = append(f.Properties, Property{Name: key, Value: ScalarFieldFile{Path: s}})
		default:
			switch v := raw.(type) {
			case float64:
				f.Properties = append(f.Properties, Property{Name: key, Value: Scalar(v)})
			case string:
				f.Properties = append(f.Properties, Property{Name: key, Value: Text(v)})
			}
		}
	}
	if seq != nil {
		if len(seq.Samples) == 0 {
			return nil, fmt.Errorf("rotation sequence of feature %s has no samples", f.ID)
		}
		seq.Sort()
		f.Properties = append(f.Properties, Property{Name: KeyRotation, Value: RotationSequence{Sequence: *seq}})
	}
	return f, nil
}

func decodeSequenceField(seq *rotation.Sequence, key string, raw interface{}) error {
	switch key {
	case KeyMovingPlate, KeyFixedPlate:
		n, ok := raw.(float64)
		if !ok || n < 0 {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
		if key == KeyMovingPlate {
			seq.MovingPlate = rotation.PlateID(n)
		} else {
			seq.FixedPlate = rotation.PlateID(n)
		}
		return nil
	}
	rows, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of [time, lat, lon, angle]", key)
	}
	for i, row := range rows {
		vals, ok := row.([]interface{})
		if !ok || len(vals) != 4 {
			return fmt.Errorf("%s sample %d must have 4 numbers", key, i)
		}
		var nums [4]float64
		for j, v := range vals {
			nums[j], ok = v.(float64)
			if !ok {
				return fmt.Errorf("%s sample %d: element %d is not a number", key, i, j)
			}
		}
		seq.Samples = append(seq.Samples, rotation.Sample{
			Time:  nums[0],
			Pole:  tectonic.LatLon{Lat: nums[1], Lon: nums[2]},
			Angle: nums[3],
		})
	}
	return nil
}

func decodeSections(raw interface{}) (SectionReferences, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return SectionReferences{}, fmt.Errorf("%s must be an array of feature ids", KeySections)
	}
	refs := SectionReferences{Sections: make([]ID, len(list))}
	for i, v := range list {
		s, ok := v.(string)
		if !ok {
			return SectionReferences{}, fmt.Errorf("%s element %d is not a string", KeySections, i)
		}
		refs.Sections[i] = ID(s)
	}
	return refs, nil
}

func decodeGeometry(g *geojson.Geometry) ([]Geometry, error) {
	switch g.Type {
	case geojson.GeometryPoint:
		p, err := point(g.Point)
		if err != nil {
			return nil, err
		}
		return []Geometry{{Kind: PointGeometry, Points: []tectonic.PointOnSphere{p}}}, nil
	case geojson.GeometryMultiPoint:
		pts, err := points(g.MultiPoint)
		if err != nil {
			return nil, err
		}
		return []Geometry{{Kind: MultiPointGeometry, Points: pts}}, nil
	case geojson.GeometryLineString:
		pts, err := points(g.LineString)
		if err != nil {
			return nil, err
		}
		return []Geometry{{Kind: PolylineGeometry, Points: pts}}, nil
	case geojson.GeometryMultiLineString:
		out := make([]Geometry, 0, len(g.MultiLineString))
		for _, line := range g.MultiLineString {
			pts, err := points(line)
			if err != nil {
				return nil, err
			}
			out = append(out, Geometry{Kind: PolylineGeometry, Points: pts})
		}
		return out, nil
	case geojson.GeometryPolygon:
		p, err := decodePolygon(g.Polygon)
		if err != nil {
			return nil, err
		}
		return []Geometry{{Kind: PolygonGeometry, Polygon: p}}, nil
	case geojson.GeometryMultiPolygon:
		out := make([]Geometry, 0, len(g.MultiPolygon))
		for _, poly := range g.MultiPolygon {
			p, err := decodePolygon(poly)
			if err != nil {
				return nil, err
			}
			out = append(out, Geometry{Kind: PolygonGeometry, Polygon: p})
		}
		return out, nil
	case geojson.GeometryCollection:
		var out []Geometry
		for _, sub := range g.Geometries {
			geoms, err := decodeGeometry(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, geoms...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported geometry: %s", g.Type)
}

func decodePolygon(rings [][][]float64) (polygon.Polygon, error) {
	if len(rings) == 0 {
		return polygon.Polygon{}, fmt.Errorf("polygon has no rings")
	}
	var p polygon.Polygon
	for i, coords := range rings {
		pts, err := points(coords)
		if err != nil {
			return polygon.Polygon{}, err
		}
		// GeoJSON rings repeat the first vertex at the end.
		if n := len(pts); n > 1 && pts[0].Equal(pts[n-1], tectonic.Tolerance) {
			pts = pts[:n-1]
		}
		if len(pts) < 3 {
			return polygon.Polygon{}, fmt.Errorf("ring %d has fewer than 3 distinct vertices", i)
		}
		if i == 0 {
			p.Exterior = pts
		} else {
			p.Interiors = append(p.Interiors, pts)
		}
	}
	return p, nil
}

func points(coords [][]float64) ([]tectonic.PointOnSphere, error) {
	out := make([]tectonic.PointOnSphere, len(coords))
	for i, c := range coords {
		p, err := point(c)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// point converts a GeoJSON [lon, lat] position.
func point(c []float64) (tectonic.PointOnSphere, error) {
	if len(c) < 2 {
		return tectonic.PointOnSphere{}, fmt.Errorf("position needs longitude and latitude, got %v", c)
	}
	ll := tectonic.LatLon{Lat: c[1], Lon: c[0]}
	if !ll.Valid() {
		return tectonic.PointOnSphere{}, fmt.Errorf("position out of range: %v", c)
	}
	return tectonic.PointFromLatLon(ll), nil
}
