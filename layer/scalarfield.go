package layer

import (
	"log/slog"

	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/scalarfield"
)

// ResolvedScalarField3D is the scalar field of a feature with the metadata
// read from its file.
type ResolvedScalarField3D struct {
	Feature *feature.Feature
	Path    string
	Field   *scalarfield.Field
	// Statistics of the field's values over every depth layer.
	Statistics         scalarfield.Statistics
	DepthMin, DepthMax float64
}

// ScalarField3DProxy serves the file-backed scalar field of one feature,
// the polygons of its surface inputs that mask it and the polylines of its
// cross-section inputs.
//
// Besides its SubjectToken the proxy has a FeatureSubjectToken which only
// changes when a different feature is set, so consumers that depend on the
// feature alone are not invalidated by file or input changes.
type ScalarField3DProxy struct {
	subject        Subject
	featureSubject Subject
	log            *slog.Logger
	watcher        *scalarfield.Watcher
	feature        *feature.Feature
	path           string
	surfaces       proxySet[Proxy]
	crossSections  proxySet[*ReconstructProxy]

	// field is read once per feature or file change; loaded is set even if
	// the read failed so a broken file is not read on every pull.
	loaded bool
	field  *ResolvedScalarField3D

	maskCached    bool
	maskTime      float64
	mask          []polygon.Polygon
	sectionCached bool
	sectionTime   float64
	sections      []ReconstructedGeometry
}

// NewScalarField3DProxy returns a proxy without a feature. A nil watcher
// disables file change detection. A nil logger uses slog.Default.
func NewScalarField3DProxy(watcher *scalarfield.Watcher, logger *slog.Logger) *ScalarField3DProxy {
	return &ScalarField3DProxy{watcher: watcher, log: loggerOrDefault(logger)}
}

func (p *ScalarField3DProxy) Kind() Kind { return KindScalarField3D }

func (p *ScalarField3DProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

// FeatureSubjectToken returns a token that only changes when the scalar
// field feature is replaced.
func (p *ScalarField3DProxy) FeatureSubjectToken() Token {
	return p.featureSubject.Token()
}

func (p *ScalarField3DProxy) checkInputs() {
	if p.watcher != nil && p.path != "" && p.watcher.Changed(p.path) {
		p.log.Debug("scalar field file changed", "path", p.path)
		p.loaded = false
		p.field = nil
		p.subject.Invalidate()
	}
	changed := p.surfaces.changed()
	if p.crossSections.changed() {
		changed = true
	}
	if changed {
		p.invalidateOutputs()
	}
}

func (p *ScalarField3DProxy) invalidateOutputs() {
	p.maskCached = false
	p.mask = nil
	p.sectionCached = false
	p.sections = nil
	p.subject.Invalidate()
}

// Feature returns the scalar field feature, nil if none is set.
func (p *ScalarField3DProxy) Feature() *feature.Feature { return p.feature }

// SetFeature sets the feature whose scalar field file is served. Setting the
// same feature again forces the file to be read on the next pull.
func (p *ScalarField3DProxy) SetFeature(f *feature.Feature) {
	path := ""
	if f != nil {
		if sf, ok := f.ScalarField(); ok {
			path = sf.Path
		}
	}
	if p.watcher != nil && path != p.path {
		if p.path != "" {
			if err := p.watcher.Remove(p.path); err != nil {
				p.log.Warn("unwatch scalar field", "path", p.path, "error", err)
			}
		}
		if path != "" {
			if err := p.watcher.Add(path); err != nil {
				p.log.Warn("watch scalar field", "path", path, "error", err)
			}
		}
	}
	p.feature = f
	p.path = path
	p.loaded = false
	p.field = nil
	p.featureSubject.Invalidate()
	p.subject.Invalidate()
}

// AddSurfaceInput adds a reconstruct, topology geometry or topology network
// proxy whose polygons mask the field. It panics for any other kind.
func (p *ScalarField3DProxy) AddSurfaceInput(in Proxy) {
	if ok, _ := accepts(KindScalarField3D, ChannelSurfaces, in.Kind()); !ok {
		panic("scalar field surfaces cannot take a " + in.Kind().String() + " input")
	}
	if p.surfaces.add(in) {
		p.invalidateOutputs()
	}
}

// RemoveSurfaceInput removes a proxy added with AddSurfaceInput.
func (p *ScalarField3DProxy) RemoveSurfaceInput(in Proxy) {
	if p.surfaces.remove(in) {
		p.invalidateOutputs()
	}
}

// AddCrossSectionInput adds a proxy whose reconstructed polylines slice the field.
func (p *ScalarField3DProxy) AddCrossSectionInput(r *ReconstructProxy) {
	if p.crossSections.add(r) {
		p.invalidateOutputs()
	}
}

// RemoveCrossSectionInput removes a proxy added with AddCrossSectionInput.
func (p *ScalarField3DProxy) RemoveCrossSectionInput(r *ReconstructProxy) {
	if p.crossSections.remove(r) {
		p.invalidateOutputs()
	}
}

// ResolvedScalarField3D returns the field of the feature if it exists at
// time. The file is only read again after the feature is set or the
// watcher reports a change. ok is false without a feature, outside its
// valid time or if the file cannot be read.
func (p *ScalarField3DProxy) ResolvedScalarField3D(time float64) (*ResolvedScalarField3D, bool) {
	p.checkInputs()
	if p.feature == nil || !p.feature.ValidTime.Contains(time) {
		return nil, false
	}
	if p.loaded {
		cacheHit(KindScalarField3D)
		return p.field, p.field != nil
	}
	cacheMiss(KindScalarField3D)
	p.loaded = true
	if p.path == "" {
		p.log.Warn("feature has no scalar field file", "feature", p.feature.ID)
		return nil, false
	}
	f, err := scalarfield.Read(p.path)
	if err != nil {
		p.log.Error("read scalar field", "feature", p.feature.ID, "path", p.path, "error", err)
		return nil, false
	}
	p.field = &ResolvedScalarField3D{
		Feature:    p.feature,
		Path:       p.path,
		Field:      f,
		Statistics: f.Statistics(),
		DepthMin:   f.DepthMin,
		DepthMax:   f.DepthMax,
	}
	p.log.Debug("read scalar field", "path", p.path, "points", len(f.Points), "layers", len(f.Depths))
	return p.field, true
}

// SurfacePolygonsMask returns the polygons of every surface input at time.
// ok is false if no surface input is connected.
func (p *ScalarField3DProxy) SurfacePolygonsMask(time float64) ([]polygon.Polygon, bool) {
	p.checkInputs()
	if len(p.surfaces) == 0 {
		return nil, false
	}
	if p.maskCached && p.maskTime == time {
		return p.mask, true
	}
	var mask []polygon.Polygon
	for _, in := range p.surfaces {
		switch s := in.proxy.(type) {
		case *ReconstructProxy:
			geoms, ok := s.ReconstructedGeometries(time)
			if !ok {
				continue
			}
			for _, g := range geoms {
				if g.Geometry.Kind == feature.PolygonGeometry {
					mask = append(mask, g.Geometry.Polygon)
				}
			}
		case *TopologyGeometryProxy:
			boundaries, _ := s.ResolvedBoundaries(time)
			for _, b := range boundaries {
				mask = append(mask, b.Polygon)
			}
		case *TopologyNetworkProxy:
			networks, _ := s.ResolvedNetworks(time)
			for _, n := range networks {
				mask = append(mask, n.Boundary)
			}
		}
	}
	p.maskCached = true
	p.maskTime = time
	p.mask = mask
	return mask, true
}

// CrossSections returns the reconstructed polylines of every cross-section
// input at time. ok is false if no cross-section input is connected.
func (p *ScalarField3DProxy) CrossSections(time float64) ([]ReconstructedGeometry, bool) {
	p.checkInputs()
	if len(p.crossSections) == 0 {
		return nil, false
	}
	if p.sectionCached && p.sectionTime == time {
		return p.sections, true
	}
	var sections []ReconstructedGeometry
	for _, in := range p.crossSections {
		geoms, ok := in.proxy.ReconstructedGeometries(time)
		if !ok {
			continue
		}
		for _, g := range geoms {
			if g.Geometry.Kind == feature.PolylineGeometry {
				sections = append(sections, g)
			}
		}
	}
	p.sectionCached = true
	p.sectionTime = time
	p.sections = sections
	return sections, true
}
