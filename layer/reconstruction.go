package layer

import (
	"log/slog"

	"github.com/soypat/tectonic/feature"
	"github.com/soypat/tectonic/rotation"
)

// ReconstructionProxy builds a rotation model from the rotation sequences of
// its feature collections and serves reconstruction trees.
type ReconstructionProxy struct {
	subject     Subject
	log         *slog.Logger
	anchor      rotation.PlateID
	collections collectionSet

	model *rotation.Model
	tree  *rotation.Tree
}

// NewReconstructionProxy returns a proxy with no collections. A nil logger
// uses slog.Default.
func NewReconstructionProxy(anchor rotation.PlateID, logger *slog.Logger) *ReconstructionProxy {
	return &ReconstructionProxy{anchor: anchor, log: loggerOrDefault(logger)}
}

func (p *ReconstructionProxy) Kind() Kind { return KindReconstruction }

func (p *ReconstructionProxy) SubjectToken() Token {
	p.checkInputs()
	return p.subject.Token()
}

func (p *ReconstructionProxy) checkInputs() {
	if p.collections.changed() {
		p.invalidate()
	}
}

func (p *ReconstructionProxy) invalidate() {
	p.model = nil
	p.tree = nil
	p.subject.Invalidate()
}

// AddCollection adds a collection of rotation sequences.
func (p *ReconstructionProxy) AddCollection(c *feature.Collection) {
	if p.collections.add(c) {
		p.invalidate()
	}
}

// RemoveCollection removes a collection added with AddCollection.
func (p *ReconstructionProxy) RemoveCollection(c *feature.Collection) {
	if p.collections.remove(c) {
		p.invalidate()
	}
}

// AnchorPlate returns the plate that all rotations are relative to.
func (p *ReconstructionProxy) AnchorPlate() rotation.PlateID { return p.anchor }

// SetAnchorPlate changes the plate that all rotations are relative to.
func (p *ReconstructionProxy) SetAnchorPlate(anchor rotation.PlateID) {
	if anchor == p.anchor {
		return
	}
	p.anchor = anchor
	p.tree = nil
	p.subject.Invalidate()
}

// Model returns the rotation model of all connected collections. ok is
// false if no collection is connected.
func (p *ReconstructionProxy) Model() (m *rotation.Model, ok bool) {
	p.checkInputs()
	if len(p.collections) == 0 {
		return nil, false
	}
	if p.model != nil {
		return p.model, true
	}
	m = rotation.NewModel()
	for _, in := range p.collections {
		for _, f := range in.c.Features() {
			for _, s := range f.RotationSequences() {
				m.Add(s)
			}
		}
	}
	p.log.Debug("built rotation model", "sequences", m.Len(), "collections", len(p.collections))
	p.model = m
	return m, true
}

// Tree returns the reconstruction tree at time. ok is false if no
// collection is connected.
func (p *ReconstructionProxy) Tree(time float64) (*rotation.Tree, bool) {
	m, ok := p.Model()
	if !ok {
		return nil, false
	}
	if p.tree != nil && p.tree.Time() == time {
		cacheHit(KindReconstruction)
		return p.tree, true
	}
	cacheMiss(KindReconstruction)
	p.tree = m.Tree(time, p.anchor)
	return p.tree, true
}
