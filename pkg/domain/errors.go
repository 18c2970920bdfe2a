package domain

import "errors"

// ErrNotFound is returned when a stored item or named entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDeadNode is returned when a mutation references an element that has been killed.
var ErrDeadNode = errors.New("dead element")

// ErrStaleID is returned when an identifier refers to a slot that has since been reused or compacted.
var ErrStaleID = errors.New("stale element id")

// ErrInvalidSource is returned when a configuration script cannot be decoded.
var ErrInvalidSource = errors.New("invalid configuration source")
