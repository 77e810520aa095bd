// Package layer resolves reconstructed, topological and derived geometries
// through a graph of lazily evaluated layer proxies.
//
// Each proxy owns a Subject whose Token changes whenever the proxy's output
// may have changed. Downstream proxies keep an Observer per input and
// compare tokens on every pull; nothing is pushed. Outputs are cached for
// the last requested reconstruction time and recomputed only when pulled
// at a different time or after an input token changed.
//
// Proxies are not safe for concurrent use.
package layer

import "sync/atomic"

var lastSubjectID atomic.Uint64

// Token identifies one state of a Subject. Tokens are only meaningful when
// compared for equality.
type Token struct {
	subject    uint64
	generation uint64
}

// Subject is the change counter of a proxy. The zero value is ready to use.
type Subject struct {
	id         uint64
	generation uint64
}

// Token returns the current token.
func (s *Subject) Token() Token {
	if s.id == 0 {
		s.id = lastSubjectID.Add(1)
	}
	return Token{subject: s.id, generation: s.generation}
}

// Invalidate changes the token returned by Token.
func (s *Subject) Invalidate() { s.generation++ }

// Observer remembers the last token seen of a subject.
type Observer struct {
	token    Token
	observed bool
}

// UpToDate reports whether t is the last token passed to Update.
func (o *Observer) UpToDate(t Token) bool { return o.observed && o.token == t }

// Update records t as seen.
func (o *Observer) Update(t Token) {
	o.token = t
	o.observed = true
}

// Reset forgets the last token so the next comparison reports a change.
func (o *Observer) Reset() { *o = Observer{} }

// observe records the proxy's current token and reports whether it differs
// from the previous one.
func (o *Observer) observe(p Proxy) (changed bool) {
	t := p.SubjectToken()
	if o.UpToDate(t) {
		return false
	}
	o.Update(t)
	return true
}
