package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// FindNearestValue returns the scaled value of the sample found nearest to p. It is an approximate search: the
// leaf containing p answers if it holds data, otherwise the closest data bearing sibling of that leaf does. When
// neither exists the result is 0; use Nearest to tell that case apart from a stored zero.
func (t *Tree) FindNearestValue(p r3.Vector) (float64, error) {
	m, err := t.Nearest(p)
	if err != nil {
		return 0, err
	}
	return m.Value, nil
}

// Nearest is FindNearestValue with the matched sample and its distance to p.
func (t *Tree) Nearest(p r3.Vector) (Match, error) {
	n := t.root
	for !n.IsLeaf() {
		next, err := n.ChildContaining(p)
		if err != nil {
			return Match{}, err
		}
		n = next
	}
	if !n.Contains(p) {
		// only reachable for a root leaf
		return Match{}, &OutOfDomainError{Point: p, Lower: n.lower, Upper: n.upper}
	}

	s, d, ok := closest(n.body.(*leaf).samples, p)
	if !ok && n.parent != nil {
		s, d, ok = closestSibling(n, p)
	}
	if !ok {
		return Match{}, nil
	}
	return Match{Sample: s, Value: s.V * t.scaleFactor, Distance: d, Found: true}, nil
}

// closestSibling searches the filled leaves among the siblings of n.
func closestSibling(n *Node, p r3.Vector) (Sample, float64, bool) {
	var (
		best  Sample
		bestD = math.Inf(1)
		found bool
	)
	for _, sibling := range n.parent.body.(*branch).children {
		if sibling == n {
			continue
		}
		l, ok := sibling.body.(*leaf)
		if !ok {
			continue
		}
		if s, d, ok := closest(l.samples, p); ok && d < bestD {
			best, bestD, found = s, d, true
		}
	}
	return best, bestD, found
}

func closest(samples []Sample, p r3.Vector) (Sample, float64, bool) {
	if len(samples) == 0 {
		return Sample{}, 0, false
	}
	best, bestD := samples[0], samples[0].P.Distance(p)
	for _, s := range samples[1:] {
		if d := s.P.Distance(p); d < bestD {
			best, bestD = s, d
		}
	}
	return best, bestD, true
}
