package rdfmodel

import (
	"errors"
	"fmt"
)

// ErrUnconstrainedRoot is returned when a QuerySet's root type declares no
// rdf_type and no root instance is bound, so the query would scan every node.
var ErrUnconstrainedRoot = errors.New("rdfmodel: root type has no rdf_type and no bound instance")

// ErrDetached is returned by Entity.Related for entities not produced by a Database.
var ErrDetached = errors.New("rdfmodel: entity is not attached to a database")

// FieldError is returned when a QuerySet names a field that is not declared
// on the type reached at that point of the path, or when the path is malformed.
type FieldError struct {
	TypeName string
	Path     string
	Message  string
}

// Error returns the error message for FieldError.
func (e *FieldError) Error() string {
	if e.TypeName == "" {
		return fmt.Sprintf("field path %q: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("field path %q on %s: %s", e.Path, e.TypeName, e.Message)
}

// DeclarationError is returned when an entity type declaration is invalid.
type DeclarationError struct {
	TypeName string
	Field    string
	Message  string
}

// Error returns the error message for DeclarationError.
func (e *DeclarationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("declaring %s: %s", e.TypeName, e.Message)
	}
	return fmt.Sprintf("declaring %s.%s: %s", e.TypeName, e.Field, e.Message)
}

// QueryError is returned when one of the planned queries fails.
type QueryError struct {
	Target string
	Cause  error
}

// Error returns the error message for QueryError.
func (e *QueryError) Error() string {
	target := e.Target
	if target == "" {
		target = "(primary)"
	}
	return fmt.Sprintf("query for %s: %v", target, e.Cause)
}

// Unwrap returns the underlying cause of the QueryError.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// DecodeError is returned when an entity cannot be decoded into a Go struct.
type DecodeError struct {
	TypeName string
	Field    string
	Cause    error
}

// Error returns the error message for DecodeError.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s.%s: %v", e.TypeName, e.Field, e.Cause)
}

// Unwrap returns the underlying cause of the DecodeError.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}
