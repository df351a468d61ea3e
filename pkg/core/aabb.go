package core

import "math"

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// EmptyAABB bounds nothing. It is the identity of Union, so aggregate
// builders can start from it and union children in without special cases.
var EmptyAABB = AABB{
	Min: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
	Max: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
}

// InfiniteAABB bounds all of space
var InfiniteAABB = AABB{
	Min: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	Max: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	box := EmptyAABB
	for _, point := range points {
		box.Min = box.Min.Min(point)
		box.Max = box.Max.Max(point)
	}
	return box
}

// IsEmpty reports whether the box bounds no points
func (aabb AABB) IsEmpty() bool {
	return !(aabb.Min.X <= aabb.Max.X && aabb.Min.Y <= aabb.Max.Y && aabb.Min.Z <= aabb.Max.Z)
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return !aabb.IsEmpty()
}

// IsFinite reports whether both corners are finite
func (aabb AABB) IsFinite() bool {
	return aabb.Min.IsFinite() && aabb.Max.IsFinite()
}

// RayInterval returns the range of ray parameters for which the ray lies
// inside the box, using the slab method. The result is empty on a miss.
func (aabb AABB) RayInterval(ray Ray) Interval {
	if aabb.IsEmpty() {
		return EmptyInterval
	}

	tMin := math.Inf(-1)
	tMax := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		min := aabb.Min.Axis(axis)
		max := aabb.Max.Axis(axis)
		origin := ray.Origin.Axis(axis)
		direction := ray.Direction.Axis(axis)

		// Ray parallel to this slab
		if direction == 0 {
			if origin < min || origin > max {
				return EmptyInterval
			}
			continue
		}

		invDirection := 1.0 / direction
		t1 := (min - origin) * invDirection
		t2 := (max - origin) * invDirection
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return EmptyInterval
		}
	}

	return Interval{Min: tMin, Max: tMax}
}

// Hit tests if a ray intersects with this AABB inside [tMin, tMax]
func (aabb AABB) Hit(ray Ray, tMin, tMax float64) bool {
	return !aabb.RayInterval(ray).Intersect(Interval{Min: tMin, Max: tMax}).IsEmpty()
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{Min: aabb.Min.Min(other.Min), Max: aabb.Max.Max(other.Max)}
}

// Intersection returns the overlap of two boxes, possibly empty
func (aabb AABB) Intersection(other AABB) AABB {
	return AABB{Min: aabb.Min.Max(other.Min), Max: aabb.Max.Min(other.Max)}
}

// Overlaps reports whether two boxes share at least one point
func (aabb AABB) Overlaps(other AABB) bool {
	return !aabb.Intersection(other).IsEmpty()
}

// Contains reports whether the point lies inside or on the box
func (aabb AABB) Contains(p Vec3) bool {
	return p.X >= aabb.Min.X && p.X <= aabb.Max.X &&
		p.Y >= aabb.Min.Y && p.Y <= aabb.Max.Y &&
		p.Z >= aabb.Min.Z && p.Z <= aabb.Max.Z
}

// Center returns the center point of the AABB
func (aabb AABB) Center() Vec3 {
	return aabb.Min.Add(aabb.Max).Multiply(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// SurfaceArea returns the surface area of the AABB
func (aabb AABB) SurfaceArea() float64 {
	if aabb.IsEmpty() {
		return 0
	}
	size := aabb.Size()
	return 2.0 * (size.X*size.Y + size.Y*size.Z + size.Z*size.X)
}

// LongestAxis returns the axis (0=X, 1=Y, 2=Z) with the longest extent
func (aabb AABB) LongestAxis() int {
	size := aabb.Size()
	if size.X > size.Y && size.X > size.Z {
		return 0
	}
	if size.Y > size.Z {
		return 1
	}
	return 2
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	if aabb.IsEmpty() {
		return aabb
	}
	expansion := NewVec3(amount, amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}

// Corners returns the eight corners of the box. Bit 0 of the index selects
// the max X, bit 1 max Y and bit 2 max Z.
func (aabb AABB) Corners() [8]Vec3 {
	var corners [8]Vec3
	for i := range corners {
		corners[i] = aabb.corner(i)
	}
	return corners
}

func (aabb AABB) corner(i int) Vec3 {
	c := aabb.Min
	if i&1 != 0 {
		c.X = aabb.Max.X
	}
	if i&2 != 0 {
		c.Y = aabb.Max.Y
	}
	if i&4 != 0 {
		c.Z = aabb.Max.Z
	}
	return c
}

// Octant returns the i-th of the eight equal sub-boxes, using the same bit
// convention as Corners
func (aabb AABB) Octant(i int) AABB {
	center := aabb.Center()
	octant := AABB{Min: aabb.Min, Max: center}
	if i&1 != 0 {
		octant.Min.X, octant.Max.X = center.X, aabb.Max.X
	}
	if i&2 != 0 {
		octant.Min.Y, octant.Max.Y = center.Y, aabb.Max.Y
	}
	if i&4 != 0 {
		octant.Min.Z, octant.Max.Z = center.Z, aabb.Max.Z
	}
	return octant
}
