package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Cylinder represents a solid capped cylinder, a single primitive
type Cylinder struct {
	primitive
	BaseCenter core.Vec3
	TopCenter  core.Vec3
	Radius     float64

	// Cached derived values
	axis   core.Vec3 // Unit vector from base to top
	height float64   // Distance between base and top
}

// NewCylinder creates a new cylinder
func NewCylinder(baseCenter, topCenter core.Vec3, radius float64) *Cylinder {
	axisVector := topCenter.Subtract(baseCenter)
	c := &Cylinder{
		BaseCenter: baseCenter,
		TopCenter:  topCenter,
		Radius:     radius,
		axis:       axisVector.Normalize(),
		height:     axisVector.Length(),
	}
	c.primitive = primitive{self: c}
	return c
}

// Cylinder surface parts
const (
	cylinderSide = iota
	cylinderBase
	cylinderTop
)

// Intersect records the entry and exit of the ray through the cylinder.
// The solid is the overlap of an infinite cylinder and the slab between
// the two caps.
func (c *Cylinder) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	delta := ray.Origin.Subtract(c.BaseCenter)
	DV := ray.Direction.Dot(c.axis)
	deltaV := delta.Dot(c.axis)

	// Infinite cylinder: a t² + b t + cc = 0
	a := ray.Direction.LengthSquared() - DV*DV
	b := 2.0 * (delta.Dot(ray.Direction) - deltaV*DV)
	cc := delta.LengthSquared() - deltaV*deltaV - c.Radius*c.Radius

	sideIn, sideOut := math.Inf(-1), math.Inf(1)
	const epsilon = 1e-12
	if math.Abs(a) < epsilon {
		// Parallel to the axis: inside the tube everywhere or nowhere
		if cc > 0 {
			return
		}
	} else {
		discriminant := b*b - 4*a*cc
		if discriminant < 0 {
			return
		}
		sqrtD := math.Sqrt(discriminant)
		sideIn = (-b - sqrtD) / (2 * a)
		sideOut = (-b + sqrtD) / (2 * a)
	}

	// Slab between the caps
	capIn, capOut := math.Inf(-1), math.Inf(1)
	inPart, outPart := cylinderSide, cylinderSide
	if DV != 0 {
		tBase := -deltaV / DV
		tTop := (c.height - deltaV) / DV
		capIn, capOut = tBase, tTop
		inCap, outCap := cylinderBase, cylinderTop
		if capIn > capOut {
			capIn, capOut = capOut, capIn
			inCap, outCap = outCap, inCap
		}
		if capIn > sideIn {
			inPart = inCap
		}
		if capOut < sideOut {
			outPart = outCap
		}
	} else if deltaV < 0 || deltaV > c.height {
		return
	}

	tIn := math.Max(sideIn, capIn)
	tOut := math.Min(sideOut, capOut)
	if tIn > tOut || math.IsInf(tIn, 0) || math.IsInf(tOut, 0) {
		return
	}

	if tIn <= recorder.Interval().Max {
		recorder.Record(&cylinderIntersection{hit: newHit(tIn, true), cylinder: c, ray: ray, part: inPart})
	}
	if tOut <= recorder.Interval().Max {
		recorder.Record(&cylinderIntersection{hit: newHit(tOut, false), cylinder: c, ray: ray, part: outPart})
	}
}

// BoundingBox returns the axis-aligned bounding box for this cylinder
func (c *Cylinder) BoundingBox() core.AABB {
	// Each cap is a disc; its extent along a world axis is
	// radius * sqrt(1 - axis_i²)
	extent := core.NewVec3(
		c.Radius*math.Sqrt(math.Max(0, 1-c.axis.X*c.axis.X)),
		c.Radius*math.Sqrt(math.Max(0, 1-c.axis.Y*c.axis.Y)),
		c.Radius*math.Sqrt(math.Max(0, 1-c.axis.Z*c.axis.Z)),
	)
	minCorner := c.BaseCenter.Min(c.TopCenter)
	maxCorner := c.BaseCenter.Max(c.TopCenter)
	return core.NewAABB(minCorner.Subtract(extent), maxCorner.Add(extent))
}

// BoundingSphere returns a sphere enclosing the cylinder
func (c *Cylinder) BoundingSphere() core.BoundingSphere {
	center := c.BaseCenter.Add(c.TopCenter).Multiply(0.5)
	return core.NewBoundingSphere(center, math.Hypot(c.height/2, c.Radius))
}

// Contains reports whether the point lies inside the cylinder
func (c *Cylinder) Contains(p core.Vec3) bool {
	d := p.Subtract(c.BaseCenter)
	h := d.Dot(c.axis)
	if h < 0 || h > c.height {
		return false
	}
	radial := d.Subtract(c.axis.Multiply(h))
	return radial.LengthSquared() < c.Radius*c.Radius
}

type cylinderIntersection struct {
	hit
	cylinder *Cylinder
	ray      core.Ray
	part     int
}

func (x *cylinderIntersection) PrepareShadingContext(ctx ShadingContext) {
	c := x.cylinder
	point := x.ray.At(x.distance)
	d := point.Subtract(c.BaseCenter)
	h := d.Dot(c.axis)
	radial := d.Subtract(c.axis.Multiply(h))

	// Angle around the axis, measured in a fixed frame
	frame := core.NewBasisFromW(c.axis)
	angle := math.Atan2(radial.Dot(frame.V), radial.Dot(frame.U))
	if angle < 0 {
		angle += 2 * math.Pi
	}

	switch x.part {
	case cylinderBase, cylinderTop:
		normal := c.axis
		if x.part == cylinderBase {
			normal = normal.Negate()
		}
		r := ratio(radial.Length(), c.Radius)
		uv := core.NewVec2(angle/(2*math.Pi), r)
		setSurface(ctx, point, normal, frame.U, uv, 0)
	default:
		normal := radial.Normalize()
		uv := core.NewVec2(angle/(2*math.Pi), ratio(h, c.height))
		setSurface(ctx, point, normal, c.axis.Cross(normal), uv, 0)
	}
}
