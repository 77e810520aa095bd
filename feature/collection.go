package feature

import "strings"

// Format records how a collection was loaded. Single purpose formats
// skip the classification scan.
type Format int

const (
	FormatUnknown Format = iota
	FormatGeoJSON
	// FormatRotation marks collections that only ever hold rotation sequences.
	FormatRotation
)

func (f Format) String() string {
	switch f {
	case FormatUnknown:
		return "unknown"
	case FormatGeoJSON:
		return "geojson"
	case FormatRotation:
		return "rotation"
	}
	return "invalid format"
}

// ParseFormat parses the names returned by Format.String.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return FormatUnknown, true
	case "geojson":
		return FormatGeoJSON, true
	case "rotation":
		return FormatRotation, true
	}
	return FormatUnknown, false
}

// Collection is an ordered set of features loaded from one source. Every
// modification increments its revision so dependents can detect reloads.
// A Collection is not safe for concurrent use.
type Collection struct {
	Name   string
	Format Format

	features []*Feature
	revision uint64

	classified     bool
	classifiedRev  uint64
	classification Classification
}

// NewCollection returns a collection holding the features.
func NewCollection(name string, format Format, features ...*Feature) *Collection {
	return &Collection{Name: name, Format: format, features: features}
}

// Features returns the features of the collection. Callers must not modify
// the returned slice; use Replace or Add.
func (c *Collection) Features() []*Feature { return c.features }

// Len returns the number of features.
func (c *Collection) Len() int { return len(c.features) }

// Revision returns a counter incremented on every modification.
func (c *Collection) Revision() uint64 { return c.revision }

// Feature returns the feature with the given id.
func (c *Collection) Feature(id ID) (*Feature, bool) {
	for _, f := range c.features {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Add appends features to the collection.
func (c *Collection) Add(features ...*Feature) {
	c.features = append(c.features, features...)
	c.revision++
}

// Replace swaps the contents of the collection, as when its file is reloaded.
func (c *Collection) Replace(features ...*Feature) {
	c.features = features
	c.revision++
}

// Touch marks the collection modified after a feature was edited in place.
func (c *Collection) Touch() { c.revision++ }

// Classification returns the collection's classification, scanning the
// features only once per revision.
func (c *Collection) Classification() Classification {
	if c.classified && c.classifiedRev == c.revision {
		return c.classification
	}
	if c.Format == FormatRotation {
		c.classification = ClassifyAs(Reconstruction)
	} else {
		c.classification = Classify(c)
	}
	c.classified = true
	c.classifiedRev = c.revision
	return c.classification
}
