// Package selection implements the bounded timeline selection: the Range value type with its
// clamping mutators, and the Controller state machine that turns pointer and keyboard input
// into Range mutations.
package selection

import "math"

const (
	// DefaultMaxSpan is the longest selectable range in seconds.
	DefaultMaxSpan = 90.0
	// DefaultFrameRate is assumed when the source does not report one.
	DefaultFrameRate = 30.0
	// DefaultMinSpan is one frame interval at DefaultFrameRate.
	DefaultMinSpan = 1.0 / DefaultFrameRate
)

// epsilon absorbs float rounding when comparing spans against their bounds.
const epsilon = 1e-9

// Range is a selection [Start, End) inside a source of Duration seconds.
// Every mutator returns a new Range that satisfies:
//
//	0 <= Start <= End <= Duration
//	MinSpan <= End-Start <= MaxSpan
//
// where MinSpan degrades to Duration for sources shorter than one frame.
// Mutators never fail; out-of-range input is clamped. NaN and infinite input is ignored.
type Range struct {
	Start    float64
	End      float64
	MaxSpan  float64
	MinSpan  float64
	Duration float64
}

// NewRange returns the initial selection [0, min(duration, maxSpan)).
// Non-positive spans fall back to the package defaults.
func NewRange(duration, maxSpan, minSpan float64) Range {
	r := Range{MaxSpan: maxSpan, MinSpan: minSpan}
	if !finite(r.MaxSpan) || r.MaxSpan <= 0 {
		r.MaxSpan = DefaultMaxSpan
	}
	if !finite(r.MinSpan) || r.MinSpan <= 0 {
		r.MinSpan = DefaultMinSpan
	}
	if r.MinSpan > r.MaxSpan {
		r.MinSpan = r.MaxSpan
	}
	if !finite(duration) || duration < 0 {
		duration = 0
	}
	r.Duration = duration
	r.End = math.Min(duration, r.MaxSpan)
	return r.normalize()
}

// Span returns End-Start.
func (r Range) Span() float64 {
	return r.End - r.Start
}

// Percent returns Start and End as percentages of Duration, for timeline rendering.
func (r Range) Percent() (start, end float64) {
	if r.Duration <= 0 {
		return 0, 0
	}
	return 100 * r.Start / r.Duration, 100 * r.End / r.Duration
}

// Valid reports whether r satisfies the invariants.
func (r Range) Valid() bool {
	span := r.Span()
	return r.Start >= 0 &&
		r.Start <= r.End &&
		r.End <= r.Duration &&
		span <= r.MaxSpan+epsilon &&
		span >= r.floor()-epsilon
}

// WithDuration applies a new source duration (metadata arrival or update).
func (r Range) WithDuration(d float64) Range {
	if !finite(d) {
		return r
	}
	if d < 0 {
		d = 0
	}
	r.Duration = d
	return r.normalize()
}

// WithStart moves Start to t, keeping End fixed.
// t is held in [End-MaxSpan, End-MinSpan] so the other bound never moves.
func (r Range) WithStart(t float64) Range {
	if !finite(t) {
		return r
	}
	lo := math.Max(0, r.End-r.MaxSpan)
	hi := r.End - r.floor()
	r.Start = clamp(t, lo, hi)
	return r.normalize()
}

// WithEnd moves End to t, keeping Start fixed.
// t is held in [Start+MinSpan, min(Duration, Start+MaxSpan)].
func (r Range) WithEnd(t float64) Range {
	if !finite(t) {
		return r
	}
	lo := r.Start + r.floor()
	hi := math.Min(r.Duration, r.Start+r.MaxSpan)
	if hi < lo {
		hi = lo
	}
	r.End = clamp(t, lo, hi)
	return r.normalize()
}

// WithBounds replaces both bounds and clamps the pair in the fixed order.
func (r Range) WithBounds(start, end float64) Range {
	if !finite(start) || !finite(end) {
		return r
	}
	r.Start, r.End = start, end
	return r.normalize()
}

// Move shifts both bounds by delta without changing the span.
// delta is clamped so the window stays inside [0, Duration].
func (r Range) Move(delta float64) Range {
	if !finite(delta) {
		return r
	}
	hi := r.Duration - r.End
	if hi < 0 {
		hi = 0
	}
	delta = clamp(delta, -r.Start, hi)
	r.Start += delta
	r.End += delta
	return r.normalize()
}

// floor is the effective minimum span for the current duration.
func (r Range) floor() float64 {
	return math.Min(r.MinSpan, r.Duration)
}

// normalize re-establishes the invariants. The clamp order is fixed:
//  1. End to Duration
//  2. Start to <= End
//  3. span to <= MaxSpan, moving Start forward
//  4. span to >= MinSpan, moving End forward
//
// Results at the boundaries depend on this order.
func (r Range) normalize() Range {
	if r.Duration < 0 {
		r.Duration = 0
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End < 0 {
		r.End = 0
	}

	if r.End > r.Duration {
		r.End = r.Duration
	}
	if r.Start > r.End {
		r.Start = r.End
	}
	if r.End-r.Start > r.MaxSpan+epsilon {
		r.Start = r.End - r.MaxSpan
	}
	floor := r.floor()
	if r.End-r.Start < floor-epsilon {
		r.End = r.Start + floor
		if r.End > r.Duration {
			// End cannot move further; the floor is met by pulling Start back.
			r.End = r.Duration
			r.Start = math.Max(0, r.End-floor)
		}
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
