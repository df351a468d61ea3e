package core

import "math"

// Interval is a closed range [Min, Max] of ray parameters
type Interval struct {
	Min float64
	Max float64
}

var (
	// EmptyInterval contains no values
	EmptyInterval = Interval{Min: math.Inf(1), Max: math.Inf(-1)}

	// Universe contains every value
	Universe = Interval{Min: math.Inf(-1), Max: math.Inf(1)}
)

// NewInterval creates a new interval
func NewInterval(min, max float64) Interval {
	return Interval{Min: min, Max: max}
}

// IsEmpty reports whether the interval contains no values
func (i Interval) IsEmpty() bool {
	return !(i.Min <= i.Max)
}

// Contains reports whether t lies in the interval once the lower bound has
// been moved forward by epsilon. Hits closer than their own tolerance to
// the start of the range are treated as outside.
func (i Interval) Contains(t, epsilon float64) bool {
	return t >= i.Min+epsilon && t <= i.Max
}

// Includes reports whether t lies in the closed interval
func (i Interval) Includes(t float64) bool {
	return t >= i.Min && t <= i.Max
}

// Intersect returns the overlap of two intervals
func (i Interval) Intersect(other Interval) Interval {
	return Interval{Min: math.Max(i.Min, other.Min), Max: math.Min(i.Max, other.Max)}
}

// WithMax returns a copy of the interval with a new upper bound
func (i Interval) WithMax(max float64) Interval {
	return Interval{Min: i.Min, Max: max}
}

// WithMin returns a copy of the interval with a new lower bound
func (i Interval) WithMin(min float64) Interval {
	return Interval{Min: min, Max: i.Max}
}

// Length returns the extent of the interval, zero when empty
func (i Interval) Length() float64 {
	if i.IsEmpty() {
		return 0
	}
	return i.Max - i.Min
}

// Epsilon is the base numerical tolerance for ray parameters
const Epsilon = 1e-9

// Tolerance returns the tolerance primitives attach to a hit at parameter t
func Tolerance(t float64) float64 {
	return Epsilon * math.Max(1, math.Abs(t))
}
