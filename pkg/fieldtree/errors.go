package fieldtree

import "errors"

var (
	ErrEmptyPath    = errors.New("field path is empty")
	ErrArity        = errors.New("roots and leaves count mismatch")
	ErrNotContainer = errors.New("root is not a node or list")

	ErrIndexOverflow = errors.New("no free index to append to")
)
