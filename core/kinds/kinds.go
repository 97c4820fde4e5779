/*Package kinds defines the fixed error taxonomy of the storage core.

Every error that crosses a layer boundary carries one of the Kind values
below. Classification into a Kind happens once, at the Object Store / Base
Repo boundary where a backend error is first observed; every outer layer
only adds extensions to the error (a resolved access-control decision, an
evaluated set of preconditions, ...) and never reclassifies it. The HTTP
front end (out of core scope) is the single place a Kind is mapped to a
status code.
*/
package kinds

import (
	"errors"
	"fmt"
)

// Kind is a fixed taxonomy identifier attached to every CoreError.
type Kind string

// The complete error taxonomy the storage core classifies failures into.
const (
	AccessDenied                           Kind = "AccessDenied"
	PreconditionsNotSatisfied              Kind = "PreconditionsNotSatisfied"
	InvalidExistingRepresentationState     Kind = "InvalidExistingRepresentationState"
	InvalidRdfSourceRepresentation         Kind = "InvalidRdfSourceRepresentation"
	InvalidUserSuppliedContainmentTriples  Kind = "InvalidUserSuppliedContainmentTriples"
	InvalidUserSuppliedContainedResMeta    Kind = "InvalidUserSuppliedContainedResMetadata"
	PayloadTooLarge                        Kind = "PayloadTooLarge"
	PatchSemanticsError                    Kind = "PatchSemanticsError"
	DeleteTargetsNonEmptyContainer         Kind = "DeleteTargetsNonEmptyContainer"
	DeleteTargetsStorageRoot               Kind = "DeleteTargetsStorageRoot"
	UnsupportedOperation                   Kind = "UnsupportedOperation"
	UnknownIoError                         Kind = "UnknownIoError"
	UnknownTargetResource                  Kind = "UnknownTargetResource"
	InvalidStorageRootURI                  Kind = "InvalidStorageRootUri"
)

// CoreError is the dynamic error value carried across layers. Extensions hold
// typed, layer-specific context (e.g. "resolved_access_control",
// "evaluated_validators") attached without discarding the original Kind.
type CoreError struct {
	Kind       Kind
	Message    string
	Extensions map[string]any
	cause      error
}

// New creates a CoreError of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause into the given kind, keeping it reachable via errors.Unwrap.
func Wrap(kind Kind, cause error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *CoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *CoreError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, kinds.Sentinel(kinds.AccessDenied)) work by
// comparing Kind against the Kind wrapped by the Sentinel error.
func (e *CoreError) Is(target error) bool {
	var sentinel *kindSentinel
	if errors.As(target, &sentinel) {
		return e.Kind == sentinel.kind
	}
	return false
}

// WithExtension returns a shallow copy of e with key/value merged into Extensions.
// Outer layers use this to decorate an error without reclassifying it.
func (e *CoreError) WithExtension(key string, value any) *CoreError {
	out := *e
	out.Extensions = make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		out.Extensions[k] = v
	}
	out.Extensions[key] = value
	return &out
}

// Extension returns the extension value for key, if present.
func (e *CoreError) Extension(key string) (any, bool) {
	if e.Extensions == nil {
		return nil, false
	}
	v, ok := e.Extensions[key]
	return v, ok
}

type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return string(s.kind) }

// Sentinel returns an error value usable with errors.Is(err, kinds.Sentinel(kinds.AccessDenied)).
func Sentinel(k Kind) error { return &kindSentinel{kind: k} }

// KindOf returns the Kind of err if it is (or wraps) a *CoreError, and ok=true.
func KindOf(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
