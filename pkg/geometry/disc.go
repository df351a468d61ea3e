package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Disc represents a flat circular surface
type Disc struct {
	primitive
	Center core.Vec3 // Center of the disc
	Normal core.Vec3 // Normal vector (pointing "up" from the disc)
	Radius float64   // Radius of the disc
	Right  core.Vec3 // Right vector (perpendicular to normal)
	Up     core.Vec3 // Up vector (perpendicular to normal and right)
}

// NewDisc creates a new disc
func NewDisc(center, normal core.Vec3, radius float64) *Disc {
	frame := core.NewBasisFromW(normal)
	d := &Disc{
		Center: center,
		Normal: frame.W,
		Radius: radius,
		Right:  frame.U,
		Up:     frame.V,
	}
	d.primitive = primitive{self: d}
	return d
}

// Intersect records the crossing of the ray with the disc
func (d *Disc) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	denom := d.Normal.Dot(ray.Direction)
	if math.Abs(denom) < 1e-12 {
		return
	}

	t := d.Normal.Dot(d.Center.Subtract(ray.Origin)) / denom
	if t > recorder.Interval().Max {
		return
	}

	if ray.At(t).Subtract(d.Center).LengthSquared() > d.Radius*d.Radius {
		return
	}
	recorder.Record(&discIntersection{hit: newHit(t, denom < 0), disc: d, ray: ray})
}

// BoundingBox returns the tight box around the disc
func (d *Disc) BoundingBox() core.AABB {
	// Extent along axis i is radius * sqrt(1 - normal_i²)
	extent := core.NewVec3(
		d.Radius*math.Sqrt(math.Max(0, 1-d.Normal.X*d.Normal.X)),
		d.Radius*math.Sqrt(math.Max(0, 1-d.Normal.Y*d.Normal.Y)),
		d.Radius*math.Sqrt(math.Max(0, 1-d.Normal.Z*d.Normal.Z)),
	)
	return core.NewAABB(d.Center.Subtract(extent), d.Center.Add(extent))
}

// BoundingSphere returns the sphere through the rim of the disc
func (d *Disc) BoundingSphere() core.BoundingSphere {
	return core.NewBoundingSphere(d.Center, d.Radius)
}

type discIntersection struct {
	hit
	disc *Disc
	ray  core.Ray
}

func (x *discIntersection) PrepareShadingContext(ctx ShadingContext) {
	d := x.disc
	point := x.ray.At(x.distance)
	local := point.Subtract(d.Center)

	// Polar UV: u is the angle, v the relative radius
	angle := math.Atan2(local.Dot(d.Up), local.Dot(d.Right))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	uv := core.NewVec2(angle/(2*math.Pi), ratio(local.Length(), d.Radius))
	setSurface(ctx, point, d.Normal, d.Right, uv, 0)
}
