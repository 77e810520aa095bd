package strain

import "sort"

// Sample is the strain accumulated up to Time.
type Sample struct {
	Time   float64
	Strain Strain
}

// History records strain accumulated step by step from a reference time.
// Times are geological (larger is older); the history may walk towards the
// present or into the past but must keep walking the same way.
type History struct {
	samples  []Sample
	lastRate Rate
	hasRate  bool
}

// NewHistory returns a history holding the undeformed strain at reference time.
func NewHistory(reference float64) *History {
	return &History{samples: []Sample{{Time: reference, Strain: Undeformed()}}}
}

// Reference returns the time of the first sample.
func (h *History) Reference() float64 { return h.samples[0].Time }

// Last returns the most recent sample.
func (h *History) Last() Sample { return h.samples[len(h.samples)-1] }

// Len returns the number of samples including the reference sample.
func (h *History) Len() int { return len(h.samples) }

// Samples returns a copy of the recorded samples in accumulation order.
func (h *History) Samples() []Sample {
	return append([]Sample(nil), h.samples...)
}

// SetInitialRate sets the rate at the reference time used by the first
// Step. It has no effect once a step has been taken.
func (h *History) SetInitialRate(rate Rate) {
	if len(h.samples) == 1 {
		h.lastRate = rate
		h.hasRate = true
	}
}

// Step accumulates strain from the last sample to time. rate is the velocity
// spatial gradient at time; the rate at the previous sample is the one
// passed in the previous call (or, for the first step, rate itself). The
// elapsed time is measured towards the present, so walking to younger times
// gives a positive time step.
func (h *History) Step(time float64, rate Rate) Sample {
	last := h.Last()
	prevRate := h.lastRate
	if !h.hasRate {
		prevRate = rate
	}
	dt := last.Time - time
	next := Sample{Time: time, Strain: Accumulate(last.Strain, prevRate, rate, dt)}
	h.samples = append(h.samples, next)
	h.lastRate = rate
	h.hasRate = true
	return next
}

// At returns the strain at time, interpolating between the two samples that
// bracket it. ok is false if time lies outside the recorded span.
func (h *History) At(time float64) (s Strain, ok bool) {
	n := len(h.samples)
	if n == 1 {
		if time == h.samples[0].Time {
			return h.samples[0].Strain, true
		}
		return Strain{}, false
	}
	// Normalise to increasing distance from the reference time.
	decreasing := h.samples[n-1].Time < h.samples[0].Time
	key := func(t float64) float64 {
		if decreasing {
			return -t
		}
		return t
	}
	k := key(time)
	if k < key(h.samples[0].Time) || k > key(h.samples[n-1].Time) {
		return Strain{}, false
	}
	i := sort.Search(n, func(i int) bool { return key(h.samples[i].Time) >= k })
	if h.samples[i].Time == time || i == 0 {
		return h.samples[i].Strain, true
	}
	a, b := h.samples[i-1], h.samples[i]
	position := (time - a.Time) / (b.Time - a.Time)
	return Interpolate(a.Strain, b.Strain, position), true
}
