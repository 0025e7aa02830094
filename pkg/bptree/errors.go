package bptree

import "github.com/pkg/errors"

// Sentinel errors returned by the tree's public methods. Short reads of
// the header fields and of a node's marker, used count and sibling
// offsets wrap ErrShortRead; other stream failures, including those
// while reading key/value/offset arrays, are wrapped with context and
// keep the stream's own error as their cause. Callers can compare with
// errors.Is.
var (
	ErrBadSignature     = errors.New("bptree: bad file signature")
	ErrShortRead        = errors.New("bptree: short read")
	ErrCorruption       = errors.New("bptree: corruption detected")
	ErrCapacityExceeded = errors.New("bptree: capacity exceeded")
	ErrNotImplemented   = errors.New("bptree: not implemented")
)
