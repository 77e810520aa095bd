package main

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/soypat/tectonic"
	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/layer"
	"github.com/soypat/tectonic/polygon"
	"github.com/soypat/tectonic/render"
	"github.com/soypat/tectonic/scalarfield"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILE...",
	Short: "Report which layer kinds can consume each feature file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClassify(cmd.OutOrStdout(), args)
	},
}

func runClassify(w io.Writer, paths []string) error {
	for _, path := range paths {
		c, err := feature.LoadGeoJSONFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d features\n", path, c.Classification(), c.Len())
	}
	return nil
}

var (
	resolveTime float64
	resolveSTL  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve every layer of the graph at a reconstruction time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		return runResolve(cmd.OutOrStdout(), cfg, resolveTime, resolveSTL)
	},
}

func init() {
	resolveCmd.Flags().Float64VarP(&resolveTime, "time", "t", 0, "reconstruction time in Ma")
	resolveCmd.Flags().StringVar(&resolveSTL, "stl", "", "write resolved boundaries to this STL file")
}

func runResolve(w io.Writer, cfg *Config, time float64, stlPath string) error {
	watcher, err := scalarfield.NewWatcher(logger)
	if err != nil {
		return err
	}
	defer watcher.Close()
	g, err := BuildGraph(cfg, watcher, logger)
	if err != nil {
		return err
	}
	var boundaries []polygon.Polygon
	for _, id := range g.Layers() {
		p, _ := g.Proxy(id)
		fmt.Fprintf(w, "%s (%s): ", id, p.Kind())
		switch p := p.(type) {
		case *layer.ReconstructionProxy:
			tree, ok := p.Tree(time)
			if !ok {
				fmt.Fprintln(w, "no rotation model")
				continue
			}
			fmt.Fprintf(w, "%d plates relative to anchor %d\n", len(tree.Plates()), p.AnchorPlate())
		case *layer.ReconstructProxy:
			geoms, ok := p.ReconstructedGeometries(time)
			if !ok {
				fmt.Fprintln(w, "no reconstruction input")
				continue
			}
			fmt.Fprintf(w, "%d reconstructed geometries\n", len(geoms))
		case *layer.TopologyGeometryProxy:
			resolved, _ := p.ResolvedBoundaries(time)
			for _, b := range resolved {
				boundaries = append(boundaries, b.Polygon)
			}
			fmt.Fprintf(w, "%d resolved boundaries\n", len(resolved))
		case *layer.TopologyNetworkProxy:
			nets, _ := p.ResolvedNetworks(time)
			for _, n := range nets {
				boundaries = append(boundaries, n.Boundary)
			}
			fmt.Fprintf(w, "%d resolved networks\n", len(nets))
			for _, n := range nets {
				fmt.Fprintf(w, "\t%s dilatation %.4g 1/Myr\n", n.Feature.ID, n.Rate.Dilatation())
			}
		case *layer.DeformationProxy:
			points, ok := p.DeformedPoints(time)
			if !ok {
				fmt.Fprintln(w, "no network input")
				continue
			}
			fmt.Fprintf(w, "%d deformed points from %g Ma\n", len(points), p.ReferenceTime())
		case *layer.ScalarField3DProxy:
			sf, ok := p.ResolvedScalarField3D(time)
			if !ok {
				fmt.Fprintln(w, "no scalar field")
				continue
			}
			s := sf.Statistics
			fmt.Fprintf(w, "%s depth [%g, %g] min %g max %g mean %g\n", sf.Path, sf.DepthMin, sf.DepthMax, s.Min, s.Max, s.Mean)
		case *layer.CoRegistrationProxy:
			assoc, ok := p.Associations(time)
			if !ok {
				fmt.Fprintln(w, "no seed input")
				continue
			}
			fmt.Fprintf(w, "%d associations within %.3g°\n", len(assoc), p.RegionOfInterest().Degrees())
		default:
			fmt.Fprintln(w)
		}
	}
	var vertices []tectonic.PointOnSphere
	for _, b := range boundaries {
		vertices = append(vertices, b.Exterior...)
	}
	if box, ok := render.VertexBounds(render.VertexBuffer(vertices, tectonic.EarthRadius)); ok {
		fmt.Fprintf(w, "boundary vertices: %d, bounds [%.0f %.0f %.0f] to [%.0f %.0f %.0f] km\n", len(vertices),
			box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z)
	}
	if stlPath == "" {
		return nil
	}
	model := render.TriangulateBoundaries(boundaries, tectonic.EarthRadius)
	if len(model) == 0 {
		return errors.New("no resolved boundaries to export")
	}
	if err := render.CreateSTL(stlPath, render.NewMeshRenderer(model)); err != nil {
		return err
	}
	logger.Info("wrote boundaries", "path", stlPath, "triangles", len(model))
	return nil
}

type strainOptions struct {
	layer    string
	from, to float64
	step     float64
	seed     int
	plot     string
}

var strainOpts strainOptions

var strainCmd = &cobra.Command{
	Use:   "strain",
	Short: "Accumulate strain of deformation seeds between two times",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		opts := strainOpts
		if !cmd.Flags().Changed("from") {
			opts.from = math.NaN()
		}
		return runStrain(cmd.OutOrStdout(), cfg, opts)
	},
}

func init() {
	f := strainCmd.Flags()
	f.StringVar(&strainOpts.layer, "layer", "", "deformation layer id, the first deformation layer by default")
	f.Float64Var(&strainOpts.from, "from", 0, "reference time in Ma, the layer's reference_time by default")
	f.Float64Var(&strainOpts.to, "to", 0, "time in Ma to accumulate strain to")
	f.Float64Var(&strainOpts.step, "step", 0, "time step in Myr, the layer's step by default")
	f.IntVar(&strainOpts.seed, "seed", 0, "seed whose strain history is plotted")
	f.StringVar(&strainOpts.plot, "plot", "", "plot the seed's strain history to this file (png, svg, pdf)")
}

func runStrain(w io.Writer, cfg *Config, opts strainOptions) error {
	var lc *LayerConfig
	if opts.layer != "" {
		l, ok := cfg.Layer(opts.layer)
		if !ok {
			return fmt.Errorf("%w: %q", layer.ErrUnknownLayer, opts.layer)
		}
		lc = l
	} else {
		for i := range cfg.Layers {
			if kind, _ := layer.ParseKind(cfg.Layers[i].Kind); kind == layer.KindDeformation {
				lc = &cfg.Layers[i]
				break
			}
		}
	}
	if lc == nil {
		return errors.New("no deformation layer configured")
	}
	if kind, _ := layer.ParseKind(lc.Kind); kind != layer.KindDeformation {
		return fmt.Errorf("layer %q is a %s layer", lc.ID, lc.Kind)
	}
	if !math.IsNaN(opts.from) {
		lc.Params.ReferenceTime = opts.from
	}
	if opts.step != 0 {
		lc.Params.Step = opts.step
	}
	g, err := BuildGraph(cfg, nil, logger)
	if err != nil {
		return err
	}
	p, _ := g.Proxy(lc.ID)
	def := p.(*layer.DeformationProxy)
	points, ok := def.DeformedPoints(opts.to)
	if !ok {
		return fmt.Errorf("layer %q: no network input", lc.ID)
	}
	for _, dp := range points {
		ll := dp.Point.LatLon()
		network := "-"
		if dp.Network != nil {
			network = string(dp.Network.ID)
		}
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.6g\t%.6g\t%.2f\t%s\n", dp.Seed, ll.Lat, ll.Lon,
			dp.Principal.Strain1, dp.Principal.Strain2, tectonic.RtoD(dp.Principal.Angle), network)
	}
	if opts.plot == "" {
		return nil
	}
	h, ok := def.History(opts.seed, opts.to)
	if !ok {
		return fmt.Errorf("no strain history for seed %d", opts.seed)
	}
	return render.PlotStrainHistory(h, opts.plot)
}
