package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/layer"
	"gopkg.in/yaml.v3"
)

// Config describes the feature files and the layer graph built from them.
type Config struct {
	AnchorPlate uint64        `yaml:"anchor_plate"`
	Files       []FileConfig  `yaml:"files"`
	Layers      []LayerConfig `yaml:"layers"`

	// dir resolves relative file paths.
	dir string
}

// FileConfig names a GeoJSON feature file.
type FileConfig struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
	// Format overrides the detected format, "rotation" for rotation-only files.
	Format string `yaml:"format,omitempty"`
}

// LayerConfig is one layer proxy, the files it reads and the layers it
// takes as inputs keyed by channel name.
type LayerConfig struct {
	ID     string              `yaml:"id"`
	Kind   string              `yaml:"kind"`
	Files  []string            `yaml:"files,omitempty"`
	Inputs map[string][]string `yaml:"inputs,omitempty"`
	Params LayerParams         `yaml:"params,omitempty"`
}

// LayerParams holds the parameters of the layer kinds that take any.
type LayerParams struct {
	// Deformation.
	ReferenceTime float64      `yaml:"reference_time,omitempty"`
	Step          float64      `yaml:"step,omitempty"`
	Seeds         [][2]float64 `yaml:"seeds,omitempty"` // [lat, lon] degrees
	// Topology network.
	VelocityInterval float64 `yaml:"velocity_interval,omitempty"`
	// Co-registration, degrees.
	RegionOfInterest float64 `yaml:"region_of_interest,omitempty"`
}

// LoadConfig reads and validates the configuration file at path. Relative
// file paths in it are resolved against its directory.
func LoadConfig(path string) (*Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	cfg, err := ParseConfig(fp)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that IDs are unique, kinds and channels are known and
// every reference names a file or layer.
func (c *Config) Validate() error {
	files := make(map[string]bool)
	for _, f := range c.Files {
		if f.ID == "" || f.Path == "" {
			return fmt.Errorf("file %q: id and path are required", f.ID)
		}
		if files[f.ID] {
			return fmt.Errorf("duplicate file id %q", f.ID)
		}
		if f.Format != "" {
			if _, ok := feature.ParseFormat(f.Format); !ok {
				return fmt.Errorf("file %q: unknown format %q", f.ID, f.Format)
			}
		}
		files[f.ID] = true
	}
	layers := make(map[string]bool)
	for _, l := range c.Layers {
		if l.ID == "" {
			return errors.New("layer without id")
		}
		if layers[l.ID] {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		layers[l.ID] = true
		if _, ok := layer.ParseKind(l.Kind); !ok {
			return fmt.Errorf("layer %q: unknown kind %q", l.ID, l.Kind)
		}
		for _, f := range l.Files {
			if !files[f] {
				return fmt.Errorf("layer %q: unknown file %q", l.ID, f)
			}
		}
	}
	for _, l := range c.Layers {
		for ch, ids := range l.Inputs {
			if _, ok := layer.ParseChannel(ch); !ok {
				return fmt.Errorf("layer %q: unknown channel %q", l.ID, ch)
			}
			for _, id := range ids {
				if !layers[id] {
					return fmt.Errorf("layer %q: unknown input layer %q", l.ID, id)
				}
			}
		}
	}
	return nil
}

// Layer returns the configuration of the layer id.
func (c *Config) Layer(id string) (*LayerConfig, bool) {
	for i := range c.Layers {
		if c.Layers[i].ID == id {
			return &c.Layers[i], true
		}
	}
	return nil, false
}

func (c *Config) path(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}
