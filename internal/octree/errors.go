package octree

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

var (
	// ErrOutOfDomain is matched by every *OutOfDomainError.
	ErrOutOfDomain = errors.New("point is outside the indexed domain")
	// ErrInvalidBounds is returned when a tree is constructed over a malformed box.
	ErrInvalidBounds = errors.New("invalid octree bounds")
	// ErrLeafNode is returned by ChildContaining on a leaf, which has no children to descend into.
	ErrLeafNode = errors.New("leaf node has no children")
)

// OutOfDomainError reports a point that falls outside the root box of a tree.
type OutOfDomainError struct {
	Point r3.Vector
	Lower r3.Vector
	Upper r3.Vector
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("point %s is outside the indexed domain [%s, %s]",
		formatVector(e.Point), formatVector(e.Lower), formatVector(e.Upper))
}

// Is reports whether target is ErrOutOfDomain.
func (e *OutOfDomainError) Is(target error) bool {
	return target == ErrOutOfDomain
}
