package graphstore

import "errors"

var (
	// ErrCorruptRecord indicates a persisted row whose payload cannot be decoded.
	ErrCorruptRecord = errors.New("graphstore: corrupt record")
	// ErrInvalidNode indicates a node whose payload does not match its type.
	ErrInvalidNode = errors.New("graphstore: invalid node")
	// ErrInvalidEdge indicates an edge missing its id or endpoints.
	ErrInvalidEdge = errors.New("graphstore: invalid edge")
)
