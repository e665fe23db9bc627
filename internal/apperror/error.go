// Package apperror defines the error taxonomy surfaced by the metadata engine.
//
// Every refusal crosses the package boundary as an *Error carrying one of four
// kinds and the offending name or id in Subject. Callers match kinds with
// errors.Is against the sentinel values or with the Is* helpers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an application error
type Kind string

const (
	// KindMetadataObjectNotFound - a class or attribute does not resolve
	KindMetadataObjectNotFound Kind = "metadata_object_not_found"
	// KindInvalidArgument - malformed input, duplicates, unparsable values
	KindInvalidArgument Kind = "invalid_argument"
	// KindObjectNotFound - an instance lacks a value that is now required
	KindObjectNotFound Kind = "object_not_found"
	// KindOperationNotPermitted - structural refusal
	KindOperationNotPermitted Kind = "operation_not_permitted"
)

// Error represents an application error with a kind and the offending subject
type Error struct {
	Kind     Kind
	Message  string
	Subject  string
	Internal error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches errors of the same kind when target is a bare sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Subject == "" {
		return e.Kind == t.Kind
	}
	return e == t
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		Kind:     e.Kind,
		Message:  e.Message,
		Subject:  e.Subject,
		Internal: err,
	}
}

// WithSubject returns a copy of the error naming a different subject
func (e *Error) WithSubject(subject string) *Error {
	return &Error{
		Kind:     e.Kind,
		Message:  e.Message,
		Subject:  subject,
		Internal: e.Internal,
	}
}

// Sentinels for errors.Is
var (
	ErrMetadataObjectNotFound = &Error{Kind: KindMetadataObjectNotFound}
	ErrInvalidArgument        = &Error{Kind: KindInvalidArgument}
	ErrObjectNotFound         = &Error{Kind: KindObjectNotFound}
	ErrOperationNotPermitted  = &Error{Kind: KindOperationNotPermitted}
)

// New creates an error of the given kind
func New(kind Kind, subject, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Subject: subject,
	}
}

// NewMetadataNotFound creates a not found error for a metadata object type and key
func NewMetadataNotFound(objectType, key string) *Error {
	return New(KindMetadataObjectNotFound, key, "%s '%s' not found", objectType, key)
}

// NewInvalidArgument creates an invalid argument error
func NewInvalidArgument(subject, format string, args ...any) *Error {
	return New(KindInvalidArgument, subject, format, args...)
}

// NewObjectNotFound creates an object not found error naming an instance
func NewObjectNotFound(instanceID, format string, args ...any) *Error {
	return New(KindObjectNotFound, instanceID, format, args...)
}

// NewNotPermitted creates an operation not permitted error
func NewNotPermitted(subject, format string, args ...any) *Error {
	return New(KindOperationNotPermitted, subject, format, args...)
}

// KindOf returns the kind of an application error, or "" for other errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// SubjectOf returns the subject of an application error, or ""
func SubjectOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Subject
	}
	return ""
}

// IsMetadataNotFound returns true if the error is a metadata not found error
func IsMetadataNotFound(err error) bool {
	return errors.Is(err, ErrMetadataObjectNotFound)
}

// IsInvalidArgument returns true if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsObjectNotFound returns true if the error is an object not found error
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsNotPermitted returns true if the error is an operation not permitted error
func IsNotPermitted(err error) bool {
	return errors.Is(err, ErrOperationNotPermitted)
}

// IsNotFound returns true for both metadata and object not found errors
func IsNotFound(err error) bool {
	return IsMetadataNotFound(err) || IsObjectNotFound(err)
}
