package model

import "errors"

var (
	// ErrMalformedOntology is returned when an RDF document cannot be parsed.
	// It is the only alignment failure surfaced to callers.
	ErrMalformedOntology = errors.New("malformed ontology")

	// ErrNotFound means no alignment has been established for a service yet
	ErrNotFound = errors.New("alignment not found")

	// ErrUnknownMethod is returned for unsupported alignment methods
	ErrUnknownMethod = errors.New("unknown alignment method")

	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidRequest marks caller input that can never succeed, such as a mapping without a source
	ErrInvalidRequest = errors.New("invalid request")
)
