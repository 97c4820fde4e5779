package model

// StatusTokenKind is the tagged-union discriminant of a resource status
// token. Every operation in the repo stack accepts only the
// variant(s) that make sense for it, by type, never by re-querying status.
type StatusTokenKind int

const (
	// ExistingRepresented: the resource exists and has a representation.
	ExistingRepresented StatusTokenKind = iota
	// ExistingNonRepresented: an auxiliary resource whose slot exists but
	// which has no representation of its own.
	ExistingNonRepresented
	// NonExistingMutexExisting: the resource does not exist, but the mutex
	// resource at the same URI (opposite kind) does. Blocks creation.
	NonExistingMutexExisting
	// NonExistingMutexNonExisting: neither the resource nor its mutex exist;
	// creation is allowed.
	NonExistingMutexNonExisting
)

// Validators are the representation-identity fields used for conditional
// request evaluation (RFC 9110 §13).
type Validators struct {
	ETag         string
	LastModified int64 // unix seconds; zero means unknown
}

// StatusToken is a one-shot, read-only snapshot of a resource's existence and
// mutex status observed at a single point in time. It must not be reused
// across operations.
type StatusToken struct {
	Kind StatusTokenKind

	// Slot is populated for ExistingRepresented and ExistingNonRepresented.
	Slot *Slot

	// Validators is populated only for ExistingRepresented.
	Validators Validators

	// MutexSlot is populated for NonExistingMutexExisting: the slot of the
	// opposite-kind resource blocking creation. Nil for
	// NonExistingMutexNonExisting (mutex absence was itself confirmed) and
	// nil-with-Unknown=true if mutex status could not be resolved (e.g. the
	// URI itself failed to decode to a semantic slot).
	MutexSlot     *Slot
	MutexUnknown  bool
	DecodedTarget ResourceURI
}

// Exists reports whether this token represents a resource that currently exists.
func (t StatusToken) Exists() bool {
	return t.Kind == ExistingRepresented || t.Kind == ExistingNonRepresented
}

// IsConflictFree reports whether this token permits Create: the resource must
// not exist, and neither must its mutex.
func (t StatusToken) IsConflictFree() bool {
	return t.Kind == NonExistingMutexNonExisting
}
