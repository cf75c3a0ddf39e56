package octree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildstyl3r/octfield/internal/constants"
)

var (
	origin = r3.Vector{X: 0, Y: 0, Z: 0}
	ten    = r3.Vector{X: 10, Y: 10, Z: 10}
)

func newTestTree(t *testing.T, opts ...Option) *Tree {
	t.Helper()
	tree, err := New(origin, ten, opts...)
	require.NoError(t, err)
	return tree
}

func randomPoint(rng *rand.Rand, lower, upper r3.Vector) r3.Vector {
	return r3.Vector{
		X: lower.X + rng.Float64()*(upper.X-lower.X),
		Y: lower.Y + rng.Float64()*(upper.Y-lower.Y),
		Z: lower.Z + rng.Float64()*(upper.Z-lower.Z),
	}
}

// descend follows ChildContaining from the root down to the leaf that contains p.
func descend(t *testing.T, tree *Tree, p r3.Vector) *Node {
	t.Helper()
	n := tree.Root()
	for !n.IsLeaf() {
		next, err := n.ChildContaining(p)
		require.NoError(t, err)
		require.Same(t, n, next.Parent())
		n = next
	}
	return n
}

func volume(n *Node) float64 {
	d := n.Upper().Sub(n.Lower())
	return d.X * d.Y * d.Z
}

// validateTree checks the structural invariants of every node and returns the number of samples below n.
func validateTree(t *testing.T, n *Node, maxDepth int) int {
	t.Helper()
	switch n.Kind() {
	case InternalNode:
		children := n.Children()
		require.Len(t, children, 8)
		assert.Nil(t, n.Samples())

		var total float64
		size := 0
		for i, child := range children {
			require.NotNil(t, child)
			assert.Same(t, n, child.Parent())
			assert.Equal(t, n.Depth()+1, child.Depth())

			lower, upper := octantBounds(n.Lower(), n.Upper(), i)
			assert.Equal(t, lower, child.Lower())
			assert.Equal(t, upper, child.Upper())
			assert.True(t, n.Contains(child.Lower()))
			assert.True(t, n.Contains(child.Upper()))
			total += volume(child)

			for j := i + 1; j < len(children); j++ {
				other := children[j]
				separated := child.Upper().X <= other.Lower().X || other.Upper().X <= child.Lower().X ||
					child.Upper().Y <= other.Lower().Y || other.Upper().Y <= child.Lower().Y ||
					child.Upper().Z <= other.Lower().Z || other.Upper().Z <= child.Lower().Z
				assert.True(t, separated, "children %d and %d overlap", i, j)
			}
			size += validateTree(t, child, maxDepth)
		}
		assert.InEpsilon(t, volume(n), total, 1e-9)
		return size
	case LeafNodeFilled:
		assert.Nil(t, n.Children())
		samples := n.Samples()
		if maxDepth <= 0 || n.Depth() < maxDepth {
			assert.Len(t, samples, 1)
		}
		for _, s := range samples {
			assert.True(t, n.Contains(s.P))
		}
		return len(samples)
	case LeafNodeEmpty:
		assert.Nil(t, n.Children())
		assert.Nil(t, n.Samples())
		return 0
	}
	t.Fatalf("unexpected node type %v", n.Kind())
	return 0
}

func TestNew(t *testing.T) {
	t.Run("empty root leaf", func(t *testing.T) {
		tree := newTestTree(t)
		assert.Equal(t, LeafNodeEmpty, tree.Root().Kind())
		assert.True(t, tree.Root().IsLeaf())
		assert.Nil(t, tree.Root().Parent())
		assert.Equal(t, 0, tree.Size())
		assert.Equal(t, constants.DefaultScaleFactor, tree.ScaleFactor())
		assert.Equal(t, constants.DefaultMaxDepth, tree.MaxDepth())
		assert.Equal(t, r3.Vector{X: 5, Y: 5, Z: 5}, tree.Root().Center())
	})

	t.Run("options", func(t *testing.T) {
		tree := newTestTree(t, WithScaleFactor(2.5), WithMaxDepth(0), WithLogger(nil))
		assert.Equal(t, 2.5, tree.ScaleFactor())
		assert.Equal(t, 0, tree.MaxDepth())
		tree.SetScaleFactor(3)
		assert.Equal(t, 3., tree.ScaleFactor())
	})

	t.Run("degenerate box is accepted", func(t *testing.T) {
		p := r3.Vector{X: 1, Y: 2, Z: 3}
		tree, err := New(p, p)
		require.NoError(t, err)
		require.NoError(t, tree.Insert(p, 4))
		v, err := tree.FindNearestValue(p)
		require.NoError(t, err)
		assert.Equal(t, 4., v)
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := New(ten, origin)
		assert.ErrorIs(t, err, ErrInvalidBounds)

		_, err = New(r3.Vector{X: math.NaN()}, ten)
		assert.ErrorIs(t, err, ErrInvalidBounds)

		_, err = New(origin, r3.Vector{X: math.Inf(1), Y: 1, Z: 1})
		assert.ErrorIs(t, err, ErrInvalidBounds)
	})
}

func TestExactRetrieval(t *testing.T) {
	tree := newTestTree(t)
	p := r3.Vector{X: 5, Y: 5, Z: 5}
	require.NoError(t, tree.Insert(p, 42.0))

	v, err := tree.FindNearestValue(p)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Equal(t, LeafNodeFilled, tree.Root().Kind())

	t.Run("scale factor applies to results only", func(t *testing.T) {
		tree.SetScaleFactor(0.5)
		v, err := tree.FindNearestValue(p)
		require.NoError(t, err)
		assert.Equal(t, 21.0, v)
		assert.Equal(t, 42.0, tree.Samples()[0].V)
	})
}

func TestSubdivision(t *testing.T) {
	t.Run("samples in different octants", func(t *testing.T) {
		tree := newTestTree(t)
		require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
		require.NoError(t, tree.Insert(r3.Vector{X: 9, Y: 9, Z: 9}, 2.0))

		assert.Equal(t, InternalNode, tree.Root().Kind())
		assert.False(t, tree.Root().IsLeaf())

		v, err := tree.FindNearestValue(r3.Vector{X: 1, Y: 1, Z: 1})
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
		v, err = tree.FindNearestValue(r3.Vector{X: 9, Y: 9, Z: 9})
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)

		children := tree.Root().Children()
		assert.Equal(t, LeafNodeFilled, children[0].Kind())
		assert.Equal(t, LeafNodeFilled, children[7].Kind())
		for _, i := range []int{1, 2, 3, 4, 5, 6} {
			assert.Equal(t, LeafNodeEmpty, children[i].Kind())
		}
		assert.Equal(t, 2, validateTree(t, tree.Root(), tree.MaxDepth()))
	})

	t.Run("collision in the same octant subdivides again", func(t *testing.T) {
		tree := newTestTree(t)
		require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
		require.NoError(t, tree.Insert(r3.Vector{X: 4, Y: 4, Z: 4}, 2.0))

		shared := tree.Root().Children()[0]
		assert.Equal(t, InternalNode, shared.Kind())
		assert.Equal(t, r3.Vector{X: 5, Y: 5, Z: 5}, shared.Upper())
		grandchildren := shared.Children()
		assert.Equal(t, []Sample{{P: r3.Vector{X: 1, Y: 1, Z: 1}, V: 1.0}}, grandchildren[0].Samples())
		assert.Equal(t, []Sample{{P: r3.Vector{X: 4, Y: 4, Z: 4}, V: 2.0}}, grandchildren[7].Samples())

		v, err := tree.FindNearestValue(r3.Vector{X: 1, Y: 1, Z: 1})
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
		v, err = tree.FindNearestValue(r3.Vector{X: 4, Y: 4, Z: 4})
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)
		assert.Equal(t, 2, tree.Stats().MaxDepth)
	})

	t.Run("points on the midpoint go to the upper octant", func(t *testing.T) {
		tree := newTestTree(t)
		require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
		require.NoError(t, tree.Insert(r3.Vector{X: 5, Y: 5, Z: 5}, 2.0))
		assert.Equal(t, LeafNodeFilled, tree.Root().Children()[7].Kind())
		assert.Equal(t, 2, validateTree(t, tree.Root(), tree.MaxDepth()))
	})

	t.Run("corners near the float64 limit still separate samples", func(t *testing.T) {
		lower := r3.Vector{X: 1e308, Y: 1e308, Z: 1e308}
		upper := r3.Vector{X: 1.7e308, Y: 1.7e308, Z: 1.7e308}
		tree, err := New(lower, upper)
		require.NoError(t, err)
		require.NoError(t, tree.Insert(r3.Vector{X: 1.1e308, Y: 1.1e308, Z: 1.1e308}, 1))
		require.NoError(t, tree.Insert(r3.Vector{X: 1.6e308, Y: 1.6e308, Z: 1.6e308}, 2))

		stats := tree.Stats()
		assert.Equal(t, 1, stats.MaxDepth)
		assert.Equal(t, 2, stats.FilledLeaves)
		assert.Equal(t, 0, stats.Buckets)
		for i, child := range tree.Root().Children() {
			assert.True(t, tree.Root().Contains(child.Lower()), "slot %d", i)
			assert.True(t, tree.Root().Contains(child.Upper()), "slot %d", i)
		}
		assert.Equal(t, LeafNodeFilled, tree.Root().Children()[0].Kind())
		assert.Equal(t, LeafNodeFilled, tree.Root().Children()[7].Kind())

		v, err := tree.FindNearestValue(r3.Vector{X: 1.5e308, Y: 1.5e308, Z: 1.5e308})
		require.NoError(t, err)
		assert.Equal(t, 2., v)
	})
}

func TestRandomInsertInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lower := r3.Vector{X: -3, Y: 2, Z: -100}
	upper := r3.Vector{X: 7, Y: 4, Z: 50}
	tree, err := New(lower, upper, WithScaleFactor(2))
	require.NoError(t, err)

	samples := make([]Sample, 500)
	for i := range samples {
		samples[i] = Sample{P: randomPoint(rng, lower, upper), V: rng.NormFloat64()}
		require.NoError(t, tree.Insert(samples[i].P, samples[i].V))
		require.Equal(t, i+1, tree.Size())
	}

	assert.Equal(t, len(samples), validateTree(t, tree.Root(), tree.MaxDepth()))
	assert.ElementsMatch(t, samples, tree.Samples())

	stats := tree.Stats()
	assert.Equal(t, len(samples), stats.Samples)
	assert.Equal(t, len(samples), stats.FilledLeaves)
	assert.Equal(t, 0, stats.Buckets)
	assert.Equal(t, stats.Nodes, stats.Internal+stats.EmptyLeaves+stats.FilledLeaves)
	assert.Equal(t, 1+8*stats.Internal, stats.Nodes)

	t.Run("containment", func(t *testing.T) {
		for _, s := range samples {
			n := descend(t, tree, s.P)
			assert.Equal(t, []Sample{s}, n.Samples())
		}
	})

	t.Run("exact retrieval", func(t *testing.T) {
		for _, s := range samples {
			m, err := tree.Nearest(s.P)
			require.NoError(t, err)
			assert.True(t, m.Found)
			assert.Equal(t, s, m.Sample)
			assert.Equal(t, s.V*2, m.Value)
			assert.Equal(t, 0., m.Distance)
		}
	})

	t.Run("idempotent query", func(t *testing.T) {
		for range 200 {
			p := randomPoint(rng, lower, upper)
			first, err := tree.Nearest(p)
			require.NoError(t, err)
			second, err := tree.Nearest(p)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	})
}

func TestOutOfDomain(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
	require.NoError(t, tree.Insert(r3.Vector{X: 9, Y: 9, Z: 9}, 2.0))

	outside := []r3.Vector{
		{X: 10.5, Y: 5, Z: 5},
		{X: 5, Y: -0.1, Z: 5},
		{X: 5, Y: 5, Z: 1e9},
		{X: math.NaN(), Y: 5, Z: 5},
	}
	for _, p := range outside {
		_, err := tree.FindNearestValue(p)
		assert.ErrorIs(t, err, ErrOutOfDomain)

		var domainErr *OutOfDomainError
		require.ErrorAs(t, tree.Insert(p, 3.0), &domainErr)
		assert.Equal(t, origin, domainErr.Lower)
		assert.Equal(t, ten, domainErr.Upper)
	}
	assert.Equal(t, 2, tree.Size())

	t.Run("empty root", func(t *testing.T) {
		_, err := newTestTree(t).Nearest(r3.Vector{X: -1})
		assert.ErrorIs(t, err, ErrOutOfDomain)
	})

	t.Run("boundary is inside", func(t *testing.T) {
		require.NoError(t, tree.Insert(ten, 3.0))
		v, err := tree.FindNearestValue(ten)
		require.NoError(t, err)
		assert.Equal(t, 3.0, v)
	})
}

func TestChildContaining(t *testing.T) {
	tree := newTestTree(t)

	_, err := tree.Root().ChildContaining(r3.Vector{X: 5, Y: 5, Z: 5})
	assert.ErrorIs(t, err, ErrLeafNode)

	require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
	require.NoError(t, tree.Insert(r3.Vector{X: 9, Y: 9, Z: 9}, 2.0))

	child, err := tree.Root().ChildContaining(r3.Vector{X: 9, Y: 1, Z: 9})
	require.NoError(t, err)
	assert.Same(t, tree.Root().Children()[5], child)

	t.Run("outside a child escalates to the parent", func(t *testing.T) {
		up, err := child.ChildContaining(r3.Vector{X: 1, Y: 1, Z: 1})
		require.NoError(t, err)
		assert.Same(t, tree.Root(), up)
	})

	t.Run("outside the root fails", func(t *testing.T) {
		_, err := tree.Root().ChildContaining(r3.Vector{X: 11, Y: 1, Z: 1})
		assert.ErrorIs(t, err, ErrOutOfDomain)
	})
}

func TestDegenerateLookup(t *testing.T) {
	t.Run("empty tree", func(t *testing.T) {
		tree := newTestTree(t)
		m, err := tree.Nearest(r3.Vector{X: 5, Y: 5, Z: 5})
		require.NoError(t, err)
		assert.False(t, m.Found)
		assert.Equal(t, 0., m.Value)
	})

	t.Run("no data bearing sibling", func(t *testing.T) {
		tree := newTestTree(t)
		require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
		require.NoError(t, tree.Insert(r3.Vector{X: 4, Y: 4, Z: 4}, 2.0))

		// slot 7 of the root is empty and its only non-empty sibling is internal
		v, err := tree.FindNearestValue(r3.Vector{X: 9, Y: 9, Z: 9})
		require.NoError(t, err)
		assert.Equal(t, 0., v)

		m, err := tree.Nearest(r3.Vector{X: 9, Y: 9, Z: 9})
		require.NoError(t, err)
		assert.False(t, m.Found)
	})

	t.Run("closest sibling answers for an empty leaf", func(t *testing.T) {
		tree := newTestTree(t, WithScaleFactor(10))
		require.NoError(t, tree.Insert(r3.Vector{X: 1, Y: 1, Z: 1}, 1.0))
		require.NoError(t, tree.Insert(r3.Vector{X: 9, Y: 9, Z: 9}, 2.0))

		m, err := tree.Nearest(r3.Vector{X: 9, Y: 1, Z: 1})
		require.NoError(t, err)
		assert.True(t, m.Found)
		assert.Equal(t, 10.0, m.Value)
		assert.Equal(t, 8.0, m.Distance)

		m, err = tree.Nearest(r3.Vector{X: 9, Y: 9, Z: 1})
		require.NoError(t, err)
		assert.Equal(t, 20.0, m.Value)
	})
}

func TestDepthCap(t *testing.T) {
	a := r3.Vector{X: 1, Y: 1, Z: 1}
	b := r3.Vector{X: 1 + 1e-12, Y: 1, Z: 1}

	t.Run("coincident samples share a bucket", func(t *testing.T) {
		tree := newTestTree(t, WithMaxDepth(3))
		for i := range 3 {
			require.NoError(t, tree.Insert(a, float64(i+1)))
		}
		stats := tree.Stats()
		assert.Equal(t, 3, stats.MaxDepth)
		assert.Equal(t, 1, stats.Buckets)
		assert.Equal(t, 3, stats.Samples)
		assert.Equal(t, 3, tree.Size())
		assert.Equal(t, 3, validateTree(t, tree.Root(), tree.MaxDepth()))

		v, err := tree.FindNearestValue(a)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
	})

	t.Run("default cap stops runaway subdivision", func(t *testing.T) {
		tree := newTestTree(t)
		require.NoError(t, tree.Insert(a, 1))
		require.NoError(t, tree.Insert(b, 2))
		stats := tree.Stats()
		assert.Equal(t, constants.DefaultMaxDepth, stats.MaxDepth)
		assert.Equal(t, 1, stats.Buckets)

		m, err := tree.Nearest(b)
		require.NoError(t, err)
		assert.Equal(t, 2.0, m.Value)
	})

	t.Run("uncapped tree separates close samples", func(t *testing.T) {
		tree := newTestTree(t, WithMaxDepth(0))
		require.NoError(t, tree.Insert(a, 1))
		require.NoError(t, tree.Insert(b, 2))
		stats := tree.Stats()
		assert.Greater(t, stats.MaxDepth, constants.DefaultMaxDepth)
		assert.Equal(t, 0, stats.Buckets)
		assert.Equal(t, 2, validateTree(t, tree.Root(), tree.MaxDepth()))
	})

	t.Run("uncapped tree buckets coincident samples", func(t *testing.T) {
		tree := newTestTree(t, WithMaxDepth(0))
		require.NoError(t, tree.Insert(a, 1))
		require.NoError(t, tree.Insert(a, 2))
		stats := tree.Stats()
		assert.Equal(t, 0, stats.MaxDepth)
		assert.Equal(t, 1, stats.Buckets)
		assert.Equal(t, 2, tree.Size())
	})
}
