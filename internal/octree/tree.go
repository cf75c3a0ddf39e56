package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wildstyl3r/octfield/internal/constants"
)

// Tree is an octree rooted over a fixed box. It is not safe for concurrent use while samples are being inserted;
// once building is done any number of goroutines may query it. See Locked for concurrent insertion.
type Tree struct {
	root        *Node
	scaleFactor float64
	maxDepth    int
	size        int
	logger      *zap.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithScaleFactor sets the multiplier applied to every value returned by queries.
func WithScaleFactor(f float64) Option {
	return func(t *Tree) {
		t.scaleFactor = f
	}
}

// WithMaxDepth caps subdivision: leaves at depth n keep every sample they receive. n <= 0 disables the cap.
func WithMaxDepth(n int) Option {
	return func(t *Tree) {
		t.maxDepth = n
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tree) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates an empty tree over the box [lower, upper].
func New(lower, upper r3.Vector, opts ...Option) (*Tree, error) {
	for _, v := range []float64{lower.X, lower.Y, lower.Z, upper.X, upper.Y, upper.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Wrapf(ErrInvalidBounds, "non-finite corner in [%s, %s]",
				formatVector(lower), formatVector(upper))
		}
	}
	if lower.X > upper.X || lower.Y > upper.Y || lower.Z > upper.Z {
		return nil, errors.Wrapf(ErrInvalidBounds, "lower corner %s exceeds upper corner %s",
			formatVector(lower), formatVector(upper))
	}

	t := &Tree{
		root:        newLeafNode(lower, upper, nil),
		scaleFactor: constants.DefaultScaleFactor,
		maxDepth:    constants.DefaultMaxDepth,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Size returns the number of samples stored in the tree.
func (t *Tree) Size() int {
	return t.size
}

// ScaleFactor returns the multiplier applied to query results.
func (t *Tree) ScaleFactor() float64 {
	return t.scaleFactor
}

// SetScaleFactor changes the multiplier applied to query results.
func (t *Tree) SetScaleFactor(f float64) {
	t.scaleFactor = f
}

// MaxDepth returns the depth cap, 0 when subdivision is unbounded.
func (t *Tree) MaxDepth() int {
	if t.maxDepth < 0 {
		return 0
	}
	return t.maxDepth
}

// Insert adds a sample. Points outside the root box are rejected with an *OutOfDomainError and leave the tree
// unchanged.
func (t *Tree) Insert(p r3.Vector, v float64) error {
	if !t.root.Contains(p) {
		return &OutOfDomainError{Point: p, Lower: t.root.lower, Upper: t.root.upper}
	}
	if t.root.insert(Sample{P: p, V: v}, t.maxDepth) {
		t.logger.Debug("sample kept in bucket leaf",
			zap.Int("maxDepth", t.maxDepth),
			zap.Float64("x", p.X), zap.Float64("y", p.Y), zap.Float64("z", p.Z))
	}
	t.size++
	return nil
}

// Samples returns every stored sample in depth first slot order.
func (t *Tree) Samples() []Sample {
	samples := make([]Sample, 0, t.size)
	t.root.Walk(func(n *Node) bool {
		if l, ok := n.body.(*leaf); ok {
			samples = append(samples, l.samples...)
		}
		return true
	})
	return samples
}

// Stats summarises the shape of a tree.
type Stats struct {
	Nodes        int
	Internal     int
	EmptyLeaves  int
	FilledLeaves int
	Buckets      int // filled leaves holding more than one sample
	Samples      int
	MaxDepth     int
}

// Stats walks the tree and counts its nodes.
func (t *Tree) Stats() Stats {
	var s Stats
	t.root.Walk(func(n *Node) bool {
		s.Nodes++
		s.MaxDepth = max(s.MaxDepth, n.depth)
		switch b := n.body.(type) {
		case *branch:
			s.Internal++
		case *leaf:
			if len(b.samples) == 0 {
				s.EmptyLeaves++
				break
			}
			s.FilledLeaves++
			s.Samples += len(b.samples)
			if len(b.samples) > 1 {
				s.Buckets++
			}
		}
		return true
	})
	return s
}
