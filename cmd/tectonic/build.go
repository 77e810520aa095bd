package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/layer"
	"github.com/soypat/tectonic/rotation"
	"github.com/soypat/tectonic/scalarfield"
)

// loadFiles loads every configured file keyed by file id.
func loadFiles(cfg *Config) (map[string]*feature.Collection, error) {
	out := make(map[string]*feature.Collection, len(cfg.Files))
	for _, f := range cfg.Files {
		c, err := feature.LoadGeoJSONFile(cfg.path(f.Path))
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", f.ID, err)
		}
		if f.Format != "" {
			c.Format, _ = feature.ParseFormat(f.Format)
			c.Touch()
		}
		out[f.ID] = c
	}
	return out, nil
}

func newProxy(l *LayerConfig, anchor rotation.PlateID, watcher *scalarfield.Watcher, log *slog.Logger) (layer.Proxy, error) {
	kind, _ := layer.ParseKind(l.Kind)
	log = log.With("layer", l.ID)
	switch kind {
	case layer.KindReconstruction:
		return layer.NewReconstructionProxy(anchor, log), nil
	case layer.KindReconstruct:
		return layer.NewReconstructProxy(log), nil
	case layer.KindTopologyGeometry:
		return layer.NewTopologyGeometryProxy(log), nil
	case layer.KindTopologyNetwork:
		p := layer.NewTopologyNetworkProxy(log)
		if l.Params.VelocityInterval < 0 {
			return nil, fmt.Errorf("layer %q: negative velocity interval", l.ID)
		}
		if l.Params.VelocityInterval > 0 {
			p.SetVelocityInterval(l.Params.VelocityInterval)
		}
		return p, nil
	case layer.KindDeformation:
		step := l.Params.Step
		if step == 0 {
			step = layer.DefaultDeformationStep
		}
		if step < 0 {
			return nil, fmt.Errorf("layer %q: negative deformation step", l.ID)
		}
		p := layer.NewDeformationProxy(l.Params.ReferenceTime, step, log)
		seeds := make([]tectonic.PointOnSphere, len(l.Params.Seeds))
		for i, s := range l.Params.Seeds {
			ll := tectonic.LatLon{Lat: s[0], Lon: s[1]}
			if !ll.Valid() {
				return nil, fmt.Errorf("layer %q: invalid seed %v", l.ID, s)
			}
			seeds[i] = tectonic.PointFromLatLon(ll)
		}
		p.SetSeeds(seeds)
		return p, nil
	case layer.KindScalarField3D:
		return layer.NewScalarField3DProxy(watcher, log), nil
	case layer.KindCoRegistration:
		p := layer.NewCoRegistrationProxy(log)
		if roi := l.Params.RegionOfInterest; roi != 0 {
			if roi < 0 {
				return nil, fmt.Errorf("layer %q: negative region of interest", l.ID)
			}
			p.SetRegionOfInterest(tectonic.Degrees(roi))
		}
		return p, nil
	}
	return nil, fmt.Errorf("layer %q: unknown kind %q", l.ID, l.Kind)
}

// BuildGraph loads the configured files and builds the layer graph. A nil
// watcher disables scalar field file change detection.
func BuildGraph(cfg *Config, watcher *scalarfield.Watcher, log *slog.Logger) (*layer.Graph, error) {
	if log == nil {
		log = slog.Default()
	}
	files, err := loadFiles(cfg)
	if err != nil {
		return nil, err
	}
	g := layer.NewGraph(log)
	anchor := rotation.PlateID(cfg.AnchorPlate)
	for i := range cfg.Layers {
		l := &cfg.Layers[i]
		p, err := newProxy(l, anchor, watcher, log)
		if err != nil {
			return nil, err
		}
		if err := g.AddWithID(l.ID, p); err != nil {
			return nil, err
		}
		for _, f := range l.Files {
			if err := g.ConnectFile(l.ID, files[f]); err != nil {
				return nil, fmt.Errorf("layer %q: %w", l.ID, err)
			}
		}
	}
	for _, l := range cfg.Layers {
		channels := make([]string, 0, len(l.Inputs))
		for ch := range l.Inputs {
			channels = append(channels, ch)
		}
		sort.Strings(channels)
		for _, name := range channels {
			ch, _ := layer.ParseChannel(name)
			for _, in := range l.Inputs[name] {
				if err := g.Connect(l.ID, in, ch); err != nil {
					return nil, fmt.Errorf("layer %q: %w", l.ID, err)
				}
			}
		}
	}
	log.Info("built layer graph", "files", len(files), "layers", len(cfg.Layers))
	return g, nil
}
