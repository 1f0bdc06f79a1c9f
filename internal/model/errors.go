package model

import "errors"

// Sentinel errors for declaration and build failures. Call sites wrap these
// with the name of the offending object.
var (
	// ErrShapeMismatch indicates a transform, encoder, or decoder whose
	// dimensions do not match the objects it connects.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidParameter indicates a zero or negative neuron count,
	// dimension, radius, or time constant.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDuplicateName indicates two objects declared with the same name in
	// the same network scope.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUnresolved indicates a connection or probe endpoint that is not
	// registered in the model being built.
	ErrUnresolved = errors.New("unresolved object")
)
