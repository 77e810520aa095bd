package feature

import "strings"

// Classification records which layers may consume a collection.
type Classification uint8

const (
	// Reconstructable collections hold geometries that can be reconstructed.
	Reconstructable Classification = 1 << iota
	// Reconstruction collections hold rotation sequences for a rotation model.
	Reconstruction
)

// Has reports whether all flags in f are set in c.
func (c Classification) Has(f Classification) bool { return c&f == f && f != 0 }

func (c Classification) String() string {
	var names []string
	if c.Has(Reconstructable) {
		names = append(names, "reconstructable")
	}
	if c.Has(Reconstruction) {
		names = append(names, "reconstruction")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Classify scans every property of every feature once. Collections where
// nothing is recognised are assumed reconstructable so unrecognised data is
// not hidden; the reconstruction flag is only set if rotation sequences are
// found.
func Classify(c *Collection) Classification {
	var reconstructable, reconstruction int
	for _, f := range c.features {
		for _, p := range f.Properties {
			switch p.Value.(type) {
			case Geometry, SectionReferences, ScalarFieldFile:
				reconstructable++
			case RotationSequence:
				reconstruction++
			}
		}
	}
	var cl Classification
	if reconstructable > 0 || reconstruction == 0 {
		cl |= Reconstructable
	}
	if reconstruction > 0 {
		cl |= Reconstruction
	}
	return cl
}

// ClassifyAs returns a fixed classification without scanning, for sources
// known in advance to be single purpose.
func ClassifyAs(fixed Classification) Classification { return fixed }
