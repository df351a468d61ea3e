package geometry

import "math/bits"

// Membership is a fixed-size bit vector. In CSG evaluation bit i is set
// while the point under consideration is inside child i.
type Membership struct {
	words []uint64
	n     int
}

// NewMembership returns a vector of n cleared bits
func NewMembership(n int) Membership {
	return Membership{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of bits
func (m Membership) Len() int {
	return m.n
}

// Test reports whether bit i is set
func (m Membership) Test(i int) bool {
	CheckIndex(i, m.n)
	return m.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Toggle flips bit i
func (m Membership) Toggle(i int) {
	CheckIndex(i, m.n)
	m.words[i/64] ^= 1 << (uint(i) % 64)
}

// Set sets bit i to v
func (m Membership) Set(i int, v bool) {
	if m.Test(i) != v {
		m.Toggle(i)
	}
}

// Count returns the number of set bits
func (m Membership) Count() int {
	count := 0
	for _, w := range m.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// Any reports whether at least one bit is set
func (m Membership) Any() bool {
	for _, w := range m.words {
		if w != 0 {
			return true
		}
	}
	return false
}

// All reports whether every bit is set
func (m Membership) All() bool {
	return m.Count() == m.n
}

// Predicate decides from a membership vector whether a point is inside a
// CSG solid. It must be pure.
type Predicate func(inside Membership) bool

// UnionPredicate is inside when any child is
func UnionPredicate(inside Membership) bool {
	return inside.Any()
}

// IntersectionPredicate is inside when every child is
func IntersectionPredicate(inside Membership) bool {
	return inside.Len() > 0 && inside.All()
}

// SubtractionPredicate is inside when the first child is and no other is
func SubtractionPredicate(inside Membership) bool {
	return inside.Len() > 0 && inside.Test(0) && inside.Count() == 1
}
