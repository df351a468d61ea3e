package geometry

import (
	"math"

	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/core"
)

// Cone represents a solid capped cone or frustum, a single primitive
type Cone struct {
	primitive
	BaseCenter core.Vec3
	BaseRadius float64
	TopCenter  core.Vec3
	TopRadius  float64 // 0 for pointed cone, >0 for frustum

	// Cached derived values
	axis     core.Vec3 // Unit vector from base to top
	height   float64   // Distance between base and top
	tanAngle float64   // tan(cone angle) = (BaseRadius - TopRadius) / height
}

// NewCone creates a new cone or frustum
func NewCone(baseCenter core.Vec3, baseRadius float64, topCenter core.Vec3, topRadius float64) (*Cone, error) {
	if baseRadius <= 0 {
		return nil, errors.Errorf("geometry: cone base radius must be positive, got %f", baseRadius)
	}
	if topRadius < 0 {
		return nil, errors.Errorf("geometry: cone top radius must be non-negative, got %f", topRadius)
	}
	if baseRadius <= topRadius {
		return nil, errors.Errorf("geometry: cone base radius must exceed top radius (got base=%f, top=%f), use Cylinder for equal radii", baseRadius, topRadius)
	}

	axisVector := topCenter.Subtract(baseCenter)
	height := axisVector.Length()
	if height <= 0 {
		return nil, errors.New("geometry: cone height must be positive")
	}

	c := &Cone{
		BaseCenter: baseCenter,
		BaseRadius: baseRadius,
		TopCenter:  topCenter,
		TopRadius:  topRadius,
		axis:       axisVector.Normalize(),
		height:     height,
		tanAngle:   (baseRadius - topRadius) / height,
	}
	c.primitive = primitive{self: c}
	return c, nil
}

// Cone surface parts
const (
	coneSide = iota
	coneBase
	coneTop
)

// coneSpan is a range of ray parameters bounded by two surface parts
type coneSpan struct {
	in, out         float64
	inPart, outPart int
}

// Intersect records the entry and exit of the ray through the cone. The
// solid is the double cone quadric cut by the slab between base and top;
// the slab lies entirely on the base side of the apex, so only one nappe
// survives and the result is convex.
func (c *Cone) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	// Work relative to the base: radius at height h is BaseRadius - tan*h
	delta := ray.Origin.Subtract(c.BaseCenter)
	DV := ray.Direction.Dot(c.axis)
	deltaV := delta.Dot(c.axis)
	k := c.tanAngle * c.tanAngle

	// f(t) = |radial|² - (BaseRadius - tan*h)² as a t² + b t + cc
	rb := c.BaseRadius
	a := ray.Direction.LengthSquared() - DV*DV - k*DV*DV
	b := 2.0 * (delta.Dot(ray.Direction) - deltaV*DV + c.tanAngle*DV*(rb-c.tanAngle*deltaV))
	cc := delta.LengthSquared() - deltaV*deltaV - (rb-c.tanAngle*deltaV)*(rb-c.tanAngle*deltaV)

	// Slab between the caps
	slab := coneSpan{in: math.Inf(-1), out: math.Inf(1), inPart: coneSide, outPart: coneSide}
	if DV != 0 {
		tBase := -deltaV / DV
		tTop := (c.height - deltaV) / DV
		slab = coneSpan{in: tBase, out: tTop, inPart: coneBase, outPart: coneTop}
		if slab.in > slab.out {
			slab = coneSpan{in: tTop, out: tBase, inPart: coneTop, outPart: coneBase}
		}
	} else if deltaV < 0 || deltaV > c.height {
		return
	}

	for _, quadric := range c.quadricSpans(a, b, cc) {
		s := coneSpan{in: quadric.in, out: quadric.out, inPart: coneSide, outPart: coneSide}
		if slab.in > s.in {
			s.in, s.inPart = slab.in, slab.inPart
		}
		if slab.out < s.out {
			s.out, s.outPart = slab.out, slab.outPart
		}
		if !(s.in < s.out) || math.IsInf(s.in, 0) || math.IsInf(s.out, 0) {
			continue
		}

		if s.in <= recorder.Interval().Max {
			recorder.Record(&coneIntersection{hit: newHit(s.in, true), cone: c, ray: ray, part: s.inPart})
		}
		if s.out <= recorder.Interval().Max {
			recorder.Record(&coneIntersection{hit: newHit(s.out, false), cone: c, ray: ray, part: s.outPart})
		}
		return
	}
}

// quadricSpans returns the ranges where a t² + b t + cc <= 0
func (c *Cone) quadricSpans(a, b, cc float64) []coneSpan {
	const epsilon = 1e-12
	inf := math.Inf(1)
	whole := []coneSpan{{in: -inf, out: inf}}

	if math.Abs(a) < epsilon {
		switch {
		case b > 0:
			return []coneSpan{{in: -inf, out: -cc / b}}
		case b < 0:
			return []coneSpan{{in: -cc / b, out: inf}}
		case cc <= 0:
			return whole
		}
		return nil
	}

	discriminant := b*b - 4*a*cc
	if discriminant < 0 {
		if a < 0 {
			return whole
		}
		return nil
	}
	sqrtD := math.Sqrt(discriminant)
	r1 := (-b - sqrtD) / (2 * a)
	r2 := (-b + sqrtD) / (2 * a)
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if a > 0 {
		return []coneSpan{{in: r1, out: r2}}
	}
	return []coneSpan{{in: -inf, out: r1}, {in: r2, out: inf}}
}

// BoundingBox returns the box enclosing both caps
func (c *Cone) BoundingBox() core.AABB {
	return c.capBox(c.BaseCenter, c.BaseRadius).Union(c.capBox(c.TopCenter, c.TopRadius))
}

func (c *Cone) capBox(center core.Vec3, radius float64) core.AABB {
	extent := core.NewVec3(
		radius*math.Sqrt(math.Max(0, 1-c.axis.X*c.axis.X)),
		radius*math.Sqrt(math.Max(0, 1-c.axis.Y*c.axis.Y)),
		radius*math.Sqrt(math.Max(0, 1-c.axis.Z*c.axis.Z)),
	)
	return core.NewAABB(center.Subtract(extent), center.Add(extent))
}

// BoundingSphere returns a sphere enclosing the cone
func (c *Cone) BoundingSphere() core.BoundingSphere {
	return core.SphereFromAABB(c.BoundingBox())
}

// Contains reports whether the point lies inside the cone
func (c *Cone) Contains(p core.Vec3) bool {
	d := p.Subtract(c.BaseCenter)
	h := d.Dot(c.axis)
	if h < 0 || h > c.height {
		return false
	}
	radius := c.BaseRadius - c.tanAngle*h
	radial := d.Subtract(c.axis.Multiply(h))
	return radial.LengthSquared() < radius*radius
}

type coneIntersection struct {
	hit
	cone *Cone
	ray  core.Ray
	part int
}

func (x *coneIntersection) PrepareShadingContext(ctx ShadingContext) {
	c := x.cone
	point := x.ray.At(x.distance)
	d := point.Subtract(c.BaseCenter)
	h := d.Dot(c.axis)
	radial := d.Subtract(c.axis.Multiply(h))

	frame := core.NewBasisFromW(c.axis)
	angle := math.Atan2(radial.Dot(frame.V), radial.Dot(frame.U))
	if angle < 0 {
		angle += 2 * math.Pi
	}

	switch x.part {
	case coneBase, coneTop:
		normal, radius := c.axis, c.TopRadius
		if x.part == coneBase {
			normal, radius = normal.Negate(), c.BaseRadius
		}
		uv := core.NewVec2(angle/(2*math.Pi), ratio(radial.Length(), radius))
		setSurface(ctx, point, normal, frame.U, uv, 0)
	default:
		// Gradient of |radial| + tan*h
		normal := radial.Normalize().Add(c.axis.Multiply(c.tanAngle))
		if normal.LengthSquared() == 0 {
			normal = c.axis
		}
		uv := core.NewVec2(angle/(2*math.Pi), ratio(h, c.height))
		setSurface(ctx, point, normal, c.axis.Cross(normal), uv, 0)
	}
}
