package layer

import (
	"log/slog"

	"github.com/soypat/tectonic/feature"
)

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

type collectionInput struct {
	c        *feature.Collection
	revision uint64
}

// collectionSet tracks the revisions of the feature collections connected
// to a proxy.
type collectionSet []collectionInput

func (s *collectionSet) add(c *feature.Collection) bool {
	for _, in := range *s {
		if in.c == c {
			return false
		}
	}
	*s = append(*s, collectionInput{c: c, revision: c.Revision()})
	return true
}

func (s *collectionSet) remove(c *feature.Collection) bool {
	for i, in := range *s {
		if in.c == c {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// changed records the current revisions and reports whether any collection
// was modified since the last call.
func (s collectionSet) changed() bool {
	changed := false
	for i := range s {
		if rev := s[i].c.Revision(); rev != s[i].revision {
			s[i].revision = rev
			changed = true
		}
	}
	return changed
}

// features returns the features of every collection that exist at time.
func (s collectionSet) features(time float64) []*feature.Feature {
	var out []*feature.Feature
	for _, in := range s {
		for _, f := range in.c.Features() {
			if f.ValidTime.Contains(time) {
				out = append(out, f)
			}
		}
	}
	return out
}

type proxyInput[P Proxy] struct {
	proxy P
	obs   Observer
}

func newProxyInput[P Proxy](p P) *proxyInput[P] {
	in := &proxyInput[P]{proxy: p}
	in.obs.observe(p)
	return in
}

// changed reports whether the input's token changed since the last call.
// A nil input never changes.
func (in *proxyInput[P]) changed() bool {
	return in != nil && in.obs.observe(in.proxy)
}

// proxySet holds the proxies connected on one channel with an observer each.
type proxySet[P Proxy] []*proxyInput[P]

func (s *proxySet[P]) add(p P) bool {
	for _, in := range *s {
		if Proxy(in.proxy) == Proxy(p) {
			return false
		}
	}
	*s = append(*s, newProxyInput(p))
	return true
}

func (s *proxySet[P]) remove(p P) bool {
	for i, in := range *s {
		if Proxy(in.proxy) == Proxy(p) {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// changed observes every input and reports whether any token changed.
// Every input is observed even after the first change is found.
func (s proxySet[P]) changed() bool {
	changed := false
	for _, in := range s {
		if in.changed() {
			changed = true
		}
	}
	return changed
}
