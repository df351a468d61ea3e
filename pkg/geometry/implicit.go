package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/df07/go-intersect/pkg/core"
)

// ImplicitOptions tunes the sphere tracer of an Implicit surface
type ImplicitOptions struct {
	MaxSteps int     // march steps per ray before giving up
	MinStep  float64 // smallest step, in units of distance
	Epsilon  float64 // root bracket width, in units of distance
}

// DefaultImplicitOptions are used for zero option values
var DefaultImplicitOptions = ImplicitOptions{
	MaxSteps: 1024,
	MinStep:  1e-6,
	Epsilon:  1e-10,
}

// Implicit is a closed surface given by a signed distance field: negative
// inside, positive outside, and at most the true distance in magnitude.
// Any sdfx solid qualifies.
type Implicit struct {
	primitive
	field   sdf.SDF3
	box     core.AABB
	options ImplicitOptions
}

// NewImplicit wraps a signed distance field. Zero fields of options take
// their defaults.
func NewImplicit(field sdf.SDF3, options ImplicitOptions) *Implicit {
	if options.MaxSteps <= 0 {
		options.MaxSteps = DefaultImplicitOptions.MaxSteps
	}
	if options.MinStep <= 0 {
		options.MinStep = DefaultImplicitOptions.MinStep
	}
	if options.Epsilon <= 0 {
		options.Epsilon = DefaultImplicitOptions.Epsilon
	}

	bb := field.BoundingBox()
	box := core.NewAABB(fromV3(bb.Min), fromV3(bb.Max))
	s := &Implicit{
		field:   field,
		box:     box.Expand(options.MinStep + core.Tolerance(box.Size().Length())),
		options: options,
	}
	s.primitive = primitive{self: s}
	return s
}

func toV3(p core.Vec3) v3.Vec   { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }
func fromV3(p v3.Vec) core.Vec3 { return core.Vec3{X: p.X, Y: p.Y, Z: p.Z} }

func (s *Implicit) evaluate(p core.Vec3) float64 {
	return s.field.Evaluate(toV3(p))
}

// Intersect marches the ray through the field's bounding box, reporting a
// crossing wherever the field changes sign between two steps
func (s *Implicit) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	span := s.box.RayInterval(ray).Intersect(recorder.Interval().WithMin(math.Max(recorder.Interval().Min, 0)))
	if span.IsEmpty() {
		return
	}
	speed := ray.Direction.Length()
	if speed == 0 {
		return
	}

	t := span.Min
	f := s.evaluate(ray.At(t))
	for step := 0; step < s.options.MaxSteps && t < span.Max; step++ {
		dt := math.Max(math.Abs(f), s.options.MinStep) / speed
		next := math.Min(t+dt, span.Max)
		fn := s.evaluate(ray.At(next))

		if (f > 0) != (fn > 0) {
			root := s.bisect(ray, t, next, f > 0, speed)
			tolerance := math.Max(core.Tolerance(root), s.options.Epsilon/speed)
			recorder.Record(&implicitIntersection{
				hit:     hit{distance: root, tolerance: tolerance, front: f > 0},
				surface: s,
				ray:     ray,
			})
			if !recorder.NeedAllIntersections() && recorder.Interval().Max <= root {
				return
			}
		}
		t, f = next, fn
	}
}

// bisect narrows [lo, hi] around the sign change, outside at lo when
// outside is set
func (s *Implicit) bisect(ray core.Ray, lo, hi float64, outside bool, speed float64) float64 {
	for i := 0; i < 100 && (hi-lo)*speed > s.options.Epsilon; i++ {
		mid := (lo + hi) * 0.5
		if (s.evaluate(ray.At(mid)) > 0) == outside {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) * 0.5
}

// Normal is the normalized central-difference gradient of the field
func (s *Implicit) Normal(p core.Vec3) core.Vec3 {
	h := math.Max(1e-6*s.box.Size().Length(), 1e-9)
	dx := core.Vec3{X: h}
	dy := core.Vec3{Y: h}
	dz := core.Vec3{Z: h}
	return core.Vec3{
		X: s.evaluate(p.Add(dx)) - s.evaluate(p.Subtract(dx)),
		Y: s.evaluate(p.Add(dy)) - s.evaluate(p.Subtract(dy)),
		Z: s.evaluate(p.Add(dz)) - s.evaluate(p.Subtract(dz)),
	}.Normalize()
}

func (s *Implicit) BoundingBox() core.AABB {
	return s.box
}

func (s *Implicit) BoundingSphere() core.BoundingSphere {
	return core.SphereFromAABB(s.box)
}

// Contains reports whether the field is negative at p
func (s *Implicit) Contains(p core.Vec3) bool {
	return s.evaluate(p) < 0
}

type implicitIntersection struct {
	hit
	surface *Implicit
	ray     core.Ray
}

func (x *implicitIntersection) PrepareShadingContext(ctx ShadingContext) {
	p := x.ray.At(x.distance)
	setSurface(ctx, p, x.surface.Normal(p), core.Vec3{}, core.Vec2{}, 0)
}
