package geometry

import (
	"sort"

	"github.com/df07/go-intersect/pkg/core"
)

// IntersectionRecorder receives intersections as they are found and
// decides which to keep. Interval is the range of ray parameters the
// recorder still cares about; geometry may skip work outside it.
type IntersectionRecorder interface {
	Interval() core.Interval
	NeedAllIntersections() bool
	Record(x Intersection)
	IsEmpty() bool
}

// NearestRecorder keeps only the closest intersection. Every accepted hit
// shrinks the upper bound of the interval to its distance, so later
// geometry can reject farther hits without computing them.
type NearestRecorder struct {
	interval core.Interval
	nearest  Intersection
}

// NewNearestRecorder creates a recorder accepting hits within interval
func NewNearestRecorder(interval core.Interval) *NearestRecorder {
	return &NearestRecorder{interval: interval}
}

// NewNearestRecorderForRay creates a recorder over the ray's valid range
func NewNearestRecorderForRay(ray core.Ray) *NearestRecorder {
	return NewNearestRecorder(ray.Interval())
}

func (r *NearestRecorder) Interval() core.Interval    { return r.interval }
func (r *NearestRecorder) NeedAllIntersections() bool { return false }
func (r *NearestRecorder) IsEmpty() bool              { return r.nearest == nil }

// Nearest returns the closest recorded intersection, or nil
func (r *NearestRecorder) Nearest() Intersection {
	return r.nearest
}

// Record keeps x if it lies within the interval and is strictly nearer
// than the current nearest intersection
func (r *NearestRecorder) Record(x Intersection) {
	d := x.Distance()
	if !r.interval.Contains(d, x.Tolerance()) {
		return
	}
	if r.nearest != nil && d >= r.interval.Max {
		return
	}
	r.nearest = x
	r.interval.Max = d
}

// CollectAllRecorder keeps every intersection within its interval, in the
// order they were recorded
type CollectAllRecorder struct {
	interval      core.Interval
	intersections []Intersection
}

// NewCollectAllRecorder creates a recorder accepting every hit in interval
func NewCollectAllRecorder(interval core.Interval) *CollectAllRecorder {
	return &CollectAllRecorder{interval: interval}
}

func (r *CollectAllRecorder) Interval() core.Interval    { return r.interval }
func (r *CollectAllRecorder) NeedAllIntersections() bool { return true }
func (r *CollectAllRecorder) IsEmpty() bool              { return len(r.intersections) == 0 }
func (r *CollectAllRecorder) Len() int                   { return len(r.intersections) }

// Record keeps x if the interval contains it
func (r *CollectAllRecorder) Record(x Intersection) {
	if r.interval.Contains(x.Distance(), x.Tolerance()) {
		r.intersections = append(r.intersections, x)
	}
}

// Sort orders the recorded intersections by distance, keeping the record
// order of equal distances
func (r *CollectAllRecorder) Sort() {
	sort.SliceStable(r.intersections, func(i, j int) bool {
		return r.intersections[i].Distance() < r.intersections[j].Distance()
	})
}

// Intersections returns the recorded intersections
func (r *CollectAllRecorder) Intersections() []Intersection {
	return r.intersections
}

// DecoratingRecorder forwards to an inner recorder, passing every
// intersection through Decorate first. Composite, transform and CSG nodes
// use it to fix up index or coordinate space before the caller sees a hit.
type DecoratingRecorder struct {
	Inner    IntersectionRecorder
	Decorate func(Intersection) Intersection
}

// NewDecoratingRecorder wraps inner with a decoration function
func NewDecoratingRecorder(inner IntersectionRecorder, decorate func(Intersection) Intersection) *DecoratingRecorder {
	return &DecoratingRecorder{Inner: inner, Decorate: decorate}
}

func (r *DecoratingRecorder) Interval() core.Interval    { return r.Inner.Interval() }
func (r *DecoratingRecorder) NeedAllIntersections() bool { return r.Inner.NeedAllIntersections() }
func (r *DecoratingRecorder) IsEmpty() bool              { return r.Inner.IsEmpty() }

func (r *DecoratingRecorder) Record(x Intersection) {
	r.Inner.Record(r.Decorate(x))
}
