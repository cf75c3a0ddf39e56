// Package octree implements a point-region octree over scattered (position, value) samples. It is used to
// approximate a field or material property that is only known at irregularly spaced points: the value returned
// for a query point is the value of the stored sample found nearest to it in the tree.
package octree

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Each node in the octree is either an internal node which links to exactly eight children, an empty leaf with
// no samples, or a filled leaf holding a single sample (several only in a bucket leaf).
const (
	InternalNode = NodeType(iota)
	LeafNodeEmpty
	LeafNodeFilled
)

// NodeType represents the possible types of nodes in an octree.
type NodeType uint8

func (t NodeType) String() string {
	switch t {
	case InternalNode:
		return "InternalNode"
	case LeafNodeEmpty:
		return "LeafNodeEmpty"
	case LeafNodeFilled:
		return "LeafNodeFilled"
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// Sample is a scalar value known at a point in space.
type Sample struct {
	P r3.Vector
	V float64
}

// Match is the outcome of a nearest sample query. Found is false when the query landed in an empty region with
// no data bearing sibling, in which case Value is zero and carries no information.
type Match struct {
	Sample   Sample
	Value    float64 // Sample.V multiplied by the tree's scale factor
	Distance float64
	Found    bool
}

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
