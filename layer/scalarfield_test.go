package layer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/scalarfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeField(t *testing.T, path string, values ...float64) {
	t.Helper()
	pts := make([]tectonic.PointOnSphere, len(values))
	for i := range pts {
		pts[i] = ll(float64(i), 0)
	}
	require.NoError(t, scalarfield.Write(path, &scalarfield.Field{
		Depths:   []float64{50},
		DepthMin: 20,
		DepthMax: 80,
		Points:   pts,
		Values:   values,
	}))
}

func scalarFieldFeature(path string) *feature.Feature {
	return &feature.Feature{
		ID:         "field",
		ValidTime:  feature.TimeSpan{Begin: 100, End: 0},
		Properties: []feature.Property{{Name: "scalar_field", Value: feature.ScalarFieldFile{Path: path}}},
	}
}

func TestScalarField3DReadsOncePerFeature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.nc")
	writeField(t, path, 1, 2, 3)
	p := NewScalarField3DProxy(nil, nil)
	_, ok := p.ResolvedScalarField3D(0)
	assert.False(t, ok, "resolved without a feature")

	p.SetFeature(scalarFieldFeature(path))
	sf, ok := p.ResolvedScalarField3D(10)
	require.True(t, ok)
	assert.Equal(t, 1.0, sf.Statistics.Min)
	assert.Equal(t, 3.0, sf.Statistics.Max)
	assert.InDelta(t, 2.0, sf.Statistics.Mean, 1e-12)
	assert.Equal(t, 20.0, sf.DepthMin)
	assert.Equal(t, 80.0, sf.DepthMax)

	_, ok = p.ResolvedScalarField3D(150)
	assert.False(t, ok, "resolved outside the valid time")

	// Without a watcher a rewritten file is only read after SetFeature.
	writeField(t, path, 10, 20, 30)
	h := hits(KindScalarField3D)
	again, ok := p.ResolvedScalarField3D(10)
	require.True(t, ok)
	assert.Same(t, sf, again)
	assert.Equal(t, h+1, hits(KindScalarField3D))

	p.SetFeature(p.Feature())
	reread, ok := p.ResolvedScalarField3D(10)
	require.True(t, ok)
	assert.Equal(t, 30.0, reread.Statistics.Max)
}

func TestScalarField3DUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.nc")
	p := NewScalarField3DProxy(nil, nil)
	p.SetFeature(scalarFieldFeature(path))
	_, ok := p.ResolvedScalarField3D(0)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("not a netcdf file"), 0o644))
	p.SetFeature(p.Feature())
	_, ok = p.ResolvedScalarField3D(0)
	assert.False(t, ok)

	p.SetFeature(&feature.Feature{ID: "bare"})
	_, ok = p.ResolvedScalarField3D(0)
	assert.False(t, ok, "resolved a feature without a scalar field")
}

func TestScalarField3DFeatureSubjectToken(t *testing.T) {
	fx := newTopologyFixture()
	p := NewScalarField3DProxy(nil, nil)
	featureToken, token := p.FeatureSubjectToken(), p.SubjectToken()

	p.AddCrossSectionInput(fx.sections)
	assert.Equal(t, featureToken, p.FeatureSubjectToken(), "feature token changed by an input")
	assert.NotEqual(t, token, p.SubjectToken())

	token = p.SubjectToken()
	p.SetFeature(scalarFieldFeature("field.nc"))
	assert.NotEqual(t, featureToken, p.FeatureSubjectToken())
	assert.NotEqual(t, token, p.SubjectToken())

	sections, ok := p.CrossSections(0)
	require.True(t, ok)
	assert.Len(t, sections, 3)
	for _, s := range sections {
		assert.Equal(t, feature.PolylineGeometry, s.Geometry.Kind)
	}
}

func TestScalarField3DWatcher(t *testing.T) {
	w, err := scalarfield.NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	path := filepath.Join(t.TempDir(), "field.nc")
	writeField(t, path, 1, 2)

	p := NewScalarField3DProxy(w, nil)
	p.SetFeature(scalarFieldFeature(path))
	sf, ok := p.ResolvedScalarField3D(0)
	require.True(t, ok)
	assert.Equal(t, 2.0, sf.Statistics.Max)
	featureToken := p.FeatureSubjectToken()
	token := p.SubjectToken()

	writeField(t, path, 1, 5)
	require.Eventually(t, func() bool { return p.SubjectToken() != token }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, featureToken, p.FeatureSubjectToken(), "file change moved the feature token")
	sf, ok = p.ResolvedScalarField3D(0)
	require.True(t, ok)
	assert.Equal(t, 5.0, sf.Statistics.Max)
}

func TestSurfacePolygonsMaskInvalidation(t *testing.T) {
	fx := newTopologyFixture()
	polygons := feature.NewCollection("polygons", feature.FormatGeoJSON,
		geometryFeature("poly", movingPlate, feature.PolygonGeometry, ll(20, 0), ll(20, 10), ll(30, 5)),
		geometryFeature("line", movingPlate, feature.PolylineGeometry, ll(20, 0), ll(20, 10)),
	)
	rp := NewReconstructProxy(nil)
	rp.SetReconstructionInput(fx.recon)
	rp.AddCollection(polygons)
	topo := NewTopologyGeometryProxy(nil)
	topo.AddCollection(feature.NewCollection("plates", feature.FormatGeoJSON, sectionFeature("plate", "a", "b", "c")))
	topo.AddSectionInput(fx.sections)

	p := NewScalarField3DProxy(nil, nil)
	_, ok := p.SurfacePolygonsMask(0)
	assert.False(t, ok, "mask without surface inputs")
	p.AddSurfaceInput(rp)
	p.AddSurfaceInput(topo)
	assert.Panics(t, func() { p.AddSurfaceInput(NewDeformationProxy(0, 1, nil)) })

	mask, ok := p.SurfacePolygonsMask(0)
	require.True(t, ok)
	require.Len(t, mask, 2)
	token := p.SubjectToken()
	same, _ := p.SurfacePolygonsMask(0)
	assert.Same(t, &mask[0], &same[0])
	assert.Equal(t, token, p.SubjectToken())

	// A change to any one of the heterogeneous inputs invalidates the mask.
	polygons.Add(geometryFeature("poly2", 0, feature.PolygonGeometry, ll(-20, 0), ll(-20, 10), ll(-30, 5)))
	assert.NotEqual(t, token, p.SubjectToken())
	mask, ok = p.SurfacePolygonsMask(0)
	require.True(t, ok)
	assert.Len(t, mask, 3)

	token = p.SubjectToken()
	topo.RemoveSectionInput(fx.sections)
	assert.NotEqual(t, token, p.SubjectToken())
	mask, _ = p.SurfacePolygonsMask(0)
	assert.Len(t, mask, 2)
}
