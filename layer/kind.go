package layer

import "strings"

// Kind enumerates the layer proxy types.
type Kind int

const (
	KindReconstruction Kind = iota
	KindReconstruct
	KindTopologyGeometry
	KindTopologyNetwork
	KindDeformation
	KindScalarField3D
	KindCoRegistration
	numKinds
)

var kindNames = [numKinds]string{
	KindReconstruction:   "reconstruction",
	KindReconstruct:      "reconstruct",
	KindTopologyGeometry: "topology_geometry",
	KindTopologyNetwork:  "topology_network",
	KindDeformation:      "deformation",
	KindScalarField3D:    "scalar_field_3d",
	KindCoRegistration:   "co_registration",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind parses the names returned by Kind.String.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(s)
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Proxy is a node of the layer graph.
type Proxy interface {
	Kind() Kind
	// SubjectToken returns a token that changes whenever the proxy's output
	// may have changed, including through its inputs.
	SubjectToken() Token
}

// Channel names the role of an input connected to a proxy.
type Channel int

const (
	// ChannelReconstructionTree supplies rotations.
	ChannelReconstructionTree Channel = iota
	// ChannelSections supplies the reconstructed geometries referenced by topologies.
	ChannelSections
	// ChannelNetworks supplies resolved deforming networks.
	ChannelNetworks
	// ChannelSurfaces supplies polygons masking a scalar field.
	ChannelSurfaces
	// ChannelCrossSections supplies polylines along which a scalar field is sliced.
	ChannelCrossSections
	// ChannelSeeds and ChannelTargets are the two sides of a co-registration.
	ChannelSeeds
	ChannelTargets
	numChannels
)

var channelNames = [numChannels]string{
	ChannelReconstructionTree: "reconstruction",
	ChannelSections:           "sections",
	ChannelNetworks:           "networks",
	ChannelSurfaces:           "surfaces",
	ChannelCrossSections:      "cross_sections",
	ChannelSeeds:              "seeds",
	ChannelTargets:            "targets",
}

func (c Channel) String() string {
	if c < 0 || c >= numChannels {
		return "unknown"
	}
	return channelNames[c]
}

// ParseChannel parses the names returned by Channel.String.
func ParseChannel(s string) (Channel, bool) {
	s = strings.ToLower(s)
	for c, name := range channelNames {
		if name == s {
			return Channel(c), true
		}
	}
	return 0, false
}

// accepts reports whether a consumer of kind consumer may take an input of
// kind input on channel ch, and whether the channel holds a single input.
func accepts(consumer Kind, ch Channel, input Kind) (ok, single bool) {
	switch consumer {
	case KindReconstruct:
		return ch == ChannelReconstructionTree && input == KindReconstruction, true
	case KindTopologyGeometry:
		return ch == ChannelSections && input == KindReconstruct, false
	case KindTopologyNetwork:
		switch ch {
		case ChannelReconstructionTree:
			return input == KindReconstruction, true
		case ChannelSections:
			return input == KindReconstruct, false
		}
	case KindDeformation:
		return ch == ChannelNetworks && input == KindTopologyNetwork, true
	case KindScalarField3D:
		switch ch {
		case ChannelSurfaces:
			return input == KindReconstruct || input == KindTopologyGeometry || input == KindTopologyNetwork, false
		case ChannelCrossSections:
			return input == KindReconstruct, false
		}
	case KindCoRegistration:
		switch ch {
		case ChannelSeeds:
			return input == KindReconstruct, true
		case ChannelTargets:
			return input == KindReconstruct, false
		}
	}
	return false, false
}
