package layer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/soypat/tectonic/feature"
)

var (
	// ErrUnknownLayer is returned when an ID does not name a layer of the graph.
	ErrUnknownLayer = errors.New("unknown layer")
	// ErrIncompatible is returned when an input or file cannot be connected to a layer.
	ErrIncompatible = errors.New("incompatible layer input")
)

type graphEdge struct {
	consumer, input string
	ch              Channel
}

// Graph holds layer proxies by ID and validates the connections made
// between them.
type Graph struct {
	log    *slog.Logger
	layers map[string]Proxy
	order  []string
	edges  []graphEdge
}

// NewGraph returns an empty graph. A nil logger uses slog.Default.
func NewGraph(logger *slog.Logger) *Graph {
	return &Graph{log: loggerOrDefault(logger), layers: make(map[string]Proxy)}
}

// Add adds p to the graph under a new random ID.
func (g *Graph) Add(p Proxy) string {
	id := uuid.NewString()
	g.layers[id] = p
	g.order = append(g.order, id)
	return id
}

// AddWithID adds p to the graph under id, which must not be in use.
func (g *Graph) AddWithID(id string, p Proxy) error {
	if id == "" {
		return errors.New("empty layer id")
	}
	if _, dup := g.layers[id]; dup {
		return fmt.Errorf("layer %q already exists", id)
	}
	g.layers[id] = p
	g.order = append(g.order, id)
	return nil
}

// Proxy returns the proxy of the layer id.
func (g *Graph) Proxy(id string) (Proxy, bool) {
	p, ok := g.layers[id]
	return p, ok
}

// Layers returns the layer IDs in the order they were added.
func (g *Graph) Layers() []string { return append([]string(nil), g.order...) }

// Inputs returns the IDs of the layers connected to consumer on ch.
func (g *Graph) Inputs(consumer string, ch Channel) []string {
	var ids []string
	for _, e := range g.edges {
		if e.consumer == consumer && e.ch == ch {
			ids = append(ids, e.input)
		}
	}
	return ids
}

func (g *Graph) get(id string) (Proxy, error) {
	p, ok := g.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, id)
	}
	return p, nil
}

// dependsOn reports whether layer a reaches layer b through its inputs.
func (g *Graph) dependsOn(a, b string) bool {
	if a == b {
		return true
	}
	seen := map[string]bool{a: true}
	stack := []string{a}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.edges {
			if e.consumer != id || seen[e.input] {
				continue
			}
			if e.input == b {
				return true
			}
			seen[e.input] = true
			stack = append(stack, e.input)
		}
	}
	return false
}

// Connect connects the layer input to the layer consumer on channel ch. A
// single-input channel replaces its previous input. It returns an error
// wrapping ErrIncompatible if the consumer cannot take the input on ch and
// panics if the connection would form a cycle.
func (g *Graph) Connect(consumer, input string, ch Channel) error {
	c, err := g.get(consumer)
	if err != nil {
		return err
	}
	in, err := g.get(input)
	if err != nil {
		return err
	}
	ok, single := accepts(c.Kind(), ch, in.Kind())
	if !ok {
		return fmt.Errorf("%w: %s layer cannot take %s on %s", ErrIncompatible, c.Kind(), in.Kind(), ch)
	}
	if g.dependsOn(input, consumer) {
		panic(fmt.Sprintf("layer: connecting %q to %q forms a cycle", input, consumer))
	}
	switch c := c.(type) {
	case *ReconstructProxy:
		c.SetReconstructionInput(in.(*ReconstructionProxy))
	case *TopologyGeometryProxy:
		c.AddSectionInput(in.(*ReconstructProxy))
	case *TopologyNetworkProxy:
		if ch == ChannelReconstructionTree {
			c.SetReconstructionInput(in.(*ReconstructionProxy))
		} else {
			c.AddSectionInput(in.(*ReconstructProxy))
		}
	case *DeformationProxy:
		c.SetNetworkInput(in.(*TopologyNetworkProxy))
	case *ScalarField3DProxy:
		if ch == ChannelSurfaces {
			c.AddSurfaceInput(in)
		} else {
			c.AddCrossSectionInput(in.(*ReconstructProxy))
		}
	case *CoRegistrationProxy:
		if ch == ChannelSeeds {
			c.SetSeedInput(in.(*ReconstructProxy))
		} else {
			c.AddTargetInput(in.(*ReconstructProxy))
		}
	default:
		return fmt.Errorf("%w: %s layer takes no inputs", ErrIncompatible, c.Kind())
	}
	if single {
		kept := g.edges[:0]
		for _, e := range g.edges {
			if e.consumer != consumer || e.ch != ch {
				kept = append(kept, e)
			}
		}
		g.edges = kept
	}
	for _, e := range g.edges {
		if e.consumer == consumer && e.input == input && e.ch == ch {
			return nil
		}
	}
	g.edges = append(g.edges, graphEdge{consumer: consumer, input: input, ch: ch})
	g.log.Debug("connected layers", "consumer", consumer, "input", input, "channel", ch.String())
	return nil
}

// ConnectFile adds the features of c to the layer consumer. Reconstruction
// layers take collections classified as reconstruction features; the other
// file-backed layers take reconstructable ones. A scalar field layer takes
// the first feature of c with a scalar field file.
func (g *Graph) ConnectFile(consumer string, c *feature.Collection) error {
	p, err := g.get(consumer)
	if err != nil {
		return err
	}
	class := c.Classification()
	want := feature.Reconstructable
	if p.Kind() == KindReconstruction {
		want = feature.Reconstruction
	}
	if !class.Has(want) {
		return fmt.Errorf("%w: %s layer cannot take file %q classified %s", ErrIncompatible, p.Kind(), c.Name, class)
	}
	switch p := p.(type) {
	case *ReconstructionProxy:
		p.AddCollection(c)
	case *ReconstructProxy:
		p.AddCollection(c)
	case *TopologyGeometryProxy:
		p.AddCollection(c)
	case *TopologyNetworkProxy:
		p.AddCollection(c)
	case *ScalarField3DProxy:
		for _, f := range c.Features() {
			if _, ok := f.ScalarField(); ok {
				p.SetFeature(f)
				return nil
			}
		}
		return fmt.Errorf("%w: file %q has no scalar field feature", ErrIncompatible, c.Name)
	default:
		return fmt.Errorf("%w: %s layer takes no files", ErrIncompatible, p.Kind())
	}
	return nil
}
