package octree

import (
	"sync"

	"github.com/golang/geo/r3"
)

// Locked guards a Tree with a read/write mutex so that samples can be inserted from several goroutines while
// others query it.
type Locked struct {
	mu   sync.RWMutex
	tree *Tree
}

// NewLocked wraps t. t must not be used directly while the wrapper is shared.
func NewLocked(t *Tree) *Locked {
	return &Locked{tree: t}
}

// Insert adds a sample under the write lock.
func (l *Locked) Insert(p r3.Vector, v float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.Insert(p, v)
}

// Nearest queries the tree under the read lock.
func (l *Locked) Nearest(p r3.Vector) (Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Nearest(p)
}

// FindNearestValue queries the tree under the read lock.
func (l *Locked) FindNearestValue(p r3.Vector) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.FindNearestValue(p)
}

// Size returns the number of samples stored so far.
func (l *Locked) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tree.Size()
}

// Unwrap returns the underlying tree. Callers must ensure no insertion is still in flight.
func (l *Locked) Unwrap() *Tree {
	return l.tree
}
