package octree

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// octant is the half-space code of a point relative to a node center: an axis is true when the coordinate lies
// in the upper half (coordinate >= midpoint).
type octant struct {
	x, y, z bool
}

// octants assigns a half-space combination to each child slot. Subdivision builds child i from octants[i] and
// descent maps a point's code back to a slot through slots, so both always agree.
var octants = [8]octant{
	{false, false, false},
	{false, false, true},
	{false, true, false},
	{false, true, true},
	{true, false, false},
	{true, false, true},
	{true, true, false},
	{true, true, true},
}

var slots = func() map[octant]int {
	m := make(map[octant]int, len(octants))
	for i, o := range octants {
		m[o] = i
	}
	return m
}()

func classify(p, center r3.Vector) octant {
	return octant{
		x: p.X >= center.X,
		y: p.Y >= center.Y,
		z: p.Z >= center.Z,
	}
}

func slotOf(o octant) int {
	slot, ok := slots[o]
	if !ok {
		panic(fmt.Sprintf("octree: unrecognized octant code %+v", o))
	}
	return slot
}

// midpoint returns the center of [lower, upper]. Halving first keeps corners near math.MaxFloat64 finite.
func midpoint(lower, upper r3.Vector) r3.Vector {
	return lower.Mul(0.5).Add(upper.Mul(0.5))
}

// octantBounds returns the box of child slot i of the box [lower, upper].
func octantBounds(lower, upper r3.Vector, i int) (r3.Vector, r3.Vector) {
	mid := midpoint(lower, upper)
	o := octants[i]
	lo, hi := lower, mid
	if o.x {
		lo.X, hi.X = mid.X, upper.X
	}
	if o.y {
		lo.Y, hi.Y = mid.Y, upper.Y
	}
	if o.z {
		lo.Z, hi.Z = mid.Z, upper.Z
	}
	return lo, hi
}
