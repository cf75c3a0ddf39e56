package octree

import (
	"github.com/golang/geo/r3"
)

// Node is one box of the octree. Its body is either a leaf holding samples or a branch owning exactly eight
// children; there is no state in between. The parent link is only followed upwards during queries.
type Node struct {
	lower  r3.Vector
	upper  r3.Vector
	parent *Node
	depth  int
	body   body
}

type body interface {
	kind() NodeType
}

type leaf struct {
	samples []Sample
}

func (l *leaf) kind() NodeType {
	if len(l.samples) == 0 {
		return LeafNodeEmpty
	}
	return LeafNodeFilled
}

type branch struct {
	children [8]*Node
}

func (*branch) kind() NodeType {
	return InternalNode
}

func newLeafNode(lower, upper r3.Vector, parent *Node) *Node {
	n := &Node{
		lower:  lower,
		upper:  upper,
		parent: parent,
		body:   &leaf{},
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	return n
}

// Lower returns the lower corner of the node's box.
func (n *Node) Lower() r3.Vector {
	return n.lower
}

// Upper returns the upper corner of the node's box.
func (n *Node) Upper() r3.Vector {
	return n.upper
}

// Center returns the midpoint of the node's box, where it splits into octants.
func (n *Node) Center() r3.Vector {
	return midpoint(n.lower, n.upper)
}

// Depth returns the number of edges between the node and the root.
func (n *Node) Depth() int {
	return n.depth
}

// Parent returns the enclosing node, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Kind reports whether the node is internal, an empty leaf or a filled leaf.
func (n *Node) Kind() NodeType {
	return n.body.kind()
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	_, ok := n.body.(*leaf)
	return ok
}

// Children returns the eight children of an internal node in slot order, nil for a leaf.
func (n *Node) Children() []*Node {
	b, ok := n.body.(*branch)
	if !ok {
		return nil
	}
	children := make([]*Node, len(b.children))
	copy(children, b.children[:])
	return children
}

// Samples returns a copy of the samples stored in a leaf, nil for an internal node.
func (n *Node) Samples() []Sample {
	l, ok := n.body.(*leaf)
	if !ok || len(l.samples) == 0 {
		return nil
	}
	samples := make([]Sample, len(l.samples))
	copy(samples, l.samples)
	return samples
}

// Contains reports whether p lies in the closed box of the node.
func (n *Node) Contains(p r3.Vector) bool {
	return n.lower.X <= p.X && p.X <= n.upper.X &&
		n.lower.Y <= p.Y && p.Y <= n.upper.Y &&
		n.lower.Z <= p.Z && p.Z <= n.upper.Z
}

// ChildContaining returns the child of an internal node whose octant contains p. When p is outside the node the
// parent is returned so that the caller can retry one level up; outside the root it is an *OutOfDomainError.
func (n *Node) ChildContaining(p r3.Vector) (*Node, error) {
	if !n.Contains(p) {
		if n.parent != nil {
			return n.parent, nil
		}
		return nil, &OutOfDomainError{Point: p, Lower: n.lower, Upper: n.upper}
	}
	b, ok := n.body.(*branch)
	if !ok {
		return nil, ErrLeafNode
	}
	return b.children[slotOf(classify(p, n.Center()))], nil
}

// Walk visits the subtree rooted at n depth first, parents before children, in slot order. Returning false from
// fn skips the children of the node just visited.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	if b, ok := n.body.(*branch); ok {
		for _, child := range b.children {
			child.Walk(fn)
		}
	}
}

// insert stores s in the subtree rooted at n, which must contain s.P. A filled leaf is split into octants and its
// sample pushed down before the descent continues; a leaf at maxDepth (when maxDepth > 0) keeps every sample it
// receives instead. Without a cap, a sample at the exact position already held by a leaf joins it, since no split
// can separate the two. It reports whether s ended up in such a bucket.
func (n *Node) insert(s Sample, maxDepth int) bool {
	for {
		switch b := n.body.(type) {
		case *branch:
			n = b.children[slotOf(classify(s.P, n.Center()))]
		case *leaf:
			if len(b.samples) == 0 {
				b.samples = append(b.samples, s)
				return false
			}
			if (maxDepth > 0 && n.depth >= maxDepth) || (maxDepth <= 0 && b.samples[0].P == s.P) {
				b.samples = append(b.samples, s)
				return true
			}
			n.subdivide(maxDepth)
		}
	}
}

// subdivide replaces a leaf body with eight empty children and re-inserts the samples it held, each by its own
// coordinates.
func (n *Node) subdivide(maxDepth int) {
	old, ok := n.body.(*leaf)
	if !ok {
		return
	}
	b := &branch{}
	for i := range b.children {
		lower, upper := octantBounds(n.lower, n.upper, i)
		b.children[i] = newLeafNode(lower, upper, n)
	}
	n.body = b
	for _, s := range old.samples {
		n.insert(s, maxDepth)
	}
}
