package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soypat/tectonic/layer"
	"github.com/soypat/tectonic/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rotationsGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"rot","geometry":null,"properties":{"moving_plate":101,"fixed_plate":0,"rotation":[[0,90,0,0],[100,90,0,50]]}}
]}`

// The sections join into the triangle (lat, lon) (0,0) (0,10) (10,5).
const sectionsGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"a","geometry":{"type":"LineString","coordinates":[[0,0],[10,0]]},"properties":{"plate_id":0}},
{"type":"Feature","id":"b","geometry":{"type":"LineString","coordinates":[[5,10],[10,0]]},"properties":{"plate_id":101}},
{"type":"Feature","id":"c","geometry":{"type":"LineString","coordinates":[[5,10],[0,0]]},"properties":{"plate_id":0}}
]}`

const networksGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"net","geometry":null,"properties":{"sections":["a","b","c"]}}
]}`

const platesGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","id":"plate","geometry":null,"properties":{"sections":["c","b","a"],"feature_type":"TopologicalClosedPlateBoundary"}}
]}`

const testConfig = `
anchor_plate: 0
files:
  - {id: rot, path: rotations.geojson, format: rotation}
  - {id: sections, path: sections.geojson}
  - {id: networks, path: networks.geojson}
  - {id: plates, path: plates.geojson}
layers:
  - {id: rec, kind: reconstruction, files: [rot]}
  - id: sec
    kind: reconstruct
    files: [sections]
    inputs: {reconstruction: [rec]}
  - id: boundaries
    kind: topology_geometry
    files: [plates]
    inputs: {sections: [sec]}
  - id: net
    kind: topology_network
    files: [networks]
    inputs: {reconstruction: [rec], sections: [sec]}
    params: {velocity_interval: 1}
  - id: def
    kind: deformation
    inputs: {networks: [net]}
    params:
      reference_time: 10
      step: 1
      seeds: [[2, 6], [-60, 100]]
  - id: coreg
    kind: co_registration
    inputs: {seeds: [sec], targets: [sec]}
    params: {region_of_interest: 10}
`

// writeFixture writes the feature files and configuration to a temporary
// directory and returns the configuration path.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"rotations.geojson": rotationsGeoJSON,
		"sections.geojson":  sectionsGeoJSON,
		"networks.geojson":  networksGeoJSON,
		"plates.geojson":    platesGeoJSON,
		"tectonic.yaml":     testConfig,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "tectonic.yaml")
}

func TestLoadConfig(t *testing.T) {
	path := writeFixture(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Files, 4)
	assert.Len(t, cfg.Layers, 6)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "plates.geojson"), cfg.path("plates.geojson"))

	def, ok := cfg.Layer("def")
	require.True(t, ok)
	assert.Equal(t, 10.0, def.Params.ReferenceTime)
	assert.Equal(t, [][2]float64{{2, 6}, {-60, 100}}, def.Params.Seeds)
	net, _ := cfg.Layer("net")
	assert.Equal(t, []string{"rec"}, net.Inputs["reconstruction"])
	_, ok = cfg.Layer("missing")
	assert.False(t, ok)

	empty, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Layers)
}

func TestParseConfigErrors(t *testing.T) {
	bad := map[string]string{
		"unknown field":     "anchor: 1\n",
		"file without path": "files: [{id: a}]\n",
		"duplicate file":    "files: [{id: a, path: x}, {id: a, path: y}]\n",
		"unknown format":    "files: [{id: a, path: x, format: shapefile}]\n",
		"layer without id":  "layers: [{kind: reconstruct}]\n",
		"duplicate layer":   "layers: [{id: a, kind: reconstruct}, {id: a, kind: reconstruct}]\n",
		"unknown kind":      "layers: [{id: a, kind: velocity}]\n",
		"unknown file":      "layers: [{id: a, kind: reconstruct, files: [x]}]\n",
		"unknown channel":   "layers: [{id: a, kind: reconstruct}, {id: b, kind: reconstruct, inputs: {rotations: [a]}}]\n",
		"unknown input":     "layers: [{id: a, kind: reconstruct, inputs: {reconstruction: [b]}}]\n",
	}
	for name, src := range bad {
		_, err := ParseConfig(strings.NewReader(src))
		assert.Error(t, err, name)
	}
}

func TestBuildGraph(t *testing.T) {
	cfg, err := LoadConfig(writeFixture(t))
	require.NoError(t, err)
	g, err := BuildGraph(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rec", "sec", "boundaries", "net", "def", "coreg"}, g.Layers())
	assert.Equal(t, []string{"sec"}, g.Inputs("net", layer.ChannelSections))

	p, ok := g.Proxy("coreg")
	require.True(t, ok)
	assert.InDelta(t, 10, p.(*layer.CoRegistrationProxy).RegionOfInterest().Degrees(), 1e-12)

	// Rotation files cannot feed reconstructed geometry layers.
	cfg.Layers[1].Files = []string{"rot"}
	_, err = BuildGraph(cfg, nil, nil)
	assert.ErrorIs(t, err, layer.ErrIncompatible)

	cfg, _ = LoadConfig(writeFixture(t))
	def, _ := cfg.Layer("def")
	def.Params.Seeds = [][2]float64{{95, 0}}
	_, err = BuildGraph(cfg, nil, nil)
	assert.Error(t, err, "invalid seed latitude")
}

func TestRunClassify(t *testing.T) {
	dir := filepath.Dir(writeFixture(t))
	var out bytes.Buffer
	err := runClassify(&out, []string{filepath.Join(dir, "rotations.geojson"), filepath.Join(dir, "sections.geojson")})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "\treconstruction\t1 features")
	assert.Contains(t, lines[1], "\treconstructable\t3 features")

	assert.Error(t, runClassify(&out, []string{filepath.Join(dir, "missing.geojson")}))
}

func TestRunResolve(t *testing.T) {
	cfg, err := LoadConfig(writeFixture(t))
	require.NoError(t, err)
	stlPath := filepath.Join(t.TempDir(), "boundaries.stl")
	var out bytes.Buffer
	require.NoError(t, runResolve(&out, cfg, 0, stlPath))
	got := out.String()
	for _, want := range []string{
		"rec (reconstruction): 1 plates relative to anchor 0",
		"sec (reconstruct): 3 reconstructed geometries",
		"boundaries (topology_geometry): 1 resolved boundaries",
		"net (topology_network): 1 resolved networks",
		"def (deformation): 2 deformed points from 10 Ma",
		"coreg (co_registration): ",
		"boundary vertices: 6, bounds [",
	} {
		assert.Contains(t, got, want)
	}

	fp, err := os.Open(stlPath)
	require.NoError(t, err)
	defer fp.Close()
	model, err := render.ReadSTL(fp)
	if err != nil {
		require.ErrorIs(t, err, render.ErrNormalMismatch)
	}
	assert.NotEmpty(t, model)
}

func TestRunStrain(t *testing.T) {
	cfg, err := LoadConfig(writeFixture(t))
	require.NoError(t, err)
	plotPath := filepath.Join(t.TempDir(), "strain.png")
	var out bytes.Buffer
	err = runStrain(&out, cfg, strainOptions{from: math.NaN(), to: 0, seed: 0, plot: plotPath})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "0\t"))
	assert.True(t, strings.HasSuffix(lines[0], "\tnet"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "\t-"), lines[1])
	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	cfg, _ = LoadConfig(writeFixture(t))
	err = runStrain(&out, cfg, strainOptions{layer: "missing", from: math.NaN()})
	assert.ErrorIs(t, err, layer.ErrUnknownLayer)
	err = runStrain(&out, cfg, strainOptions{layer: "rec", from: math.NaN()})
	assert.Error(t, err)
	err = runStrain(&out, cfg, strainOptions{from: math.NaN(), seed: 5, plot: plotPath})
	assert.Error(t, err, "plotted a seed that does not exist")
}

func TestRootCommand(t *testing.T) {
	path := writeFixture(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--config", path, "--log-level", "error", "resolve", "--time", "0"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "net (topology_network): 1 resolved networks")

	rootCmd.SetArgs([]string{"--config", path, "--log-level", "loud", "resolve"})
	assert.Error(t, rootCmd.Execute())
}
