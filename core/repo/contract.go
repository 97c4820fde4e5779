package repo

import (
	"context"
	"time"

	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
)

// Operation is one of the minimal access-control operations a Justified
// action-op list can name.
type Operation string

const (
	OpRead   Operation = "READ"
	OpWrite  Operation = "WRITE"
	OpAppend Operation = "APPEND"
	OpDelete Operation = "DELETE"
)

// Preferences carries the client's representation preferences for a Read:
// Accept-negotiated RDF syntaxes in descending preference order, an
// optional byte range, and whether Prefer asked for the user-supplied
// container representation over the synthesized index.
type Preferences struct {
	AcceptSyntaxes           []string
	Range                    *model.ContentRange
	PreferUserRepresentation bool
}

// Preconditions holds the pre-parsed RFC 9110 §13.1 conditional request
// headers. IfRange is carried but intentionally unevaluated: spec
// §9 Open Questions leaves If-Range/content-negotiation interaction
// unspecified, so it is treated as "ignored, full response returned".
type Preconditions struct {
	IfMatch           []string
	IfNoneMatch       []string
	IfModifiedSince   *time.Time
	IfUnmodifiedSince *time.Time
	IfRange           string
}

// Trivial reports whether no conditional header was supplied. The
// Access-Controlled layer's minimal-ops table only adds a READ
// requirement to a write operation when preconditions are non-trivial.
func (p Preconditions) Trivial() bool {
	return len(p.IfMatch) == 0 && len(p.IfNoneMatch) == 0 &&
		p.IfModifiedSince == nil && p.IfUnmodifiedSince == nil
}

// RepPatcher applies a patch to a parsed RDF dataset representation (spec
// §4.6). The concrete Solid Insert/Delete N3 patcher lives in
// core/repo/patching.
type RepPatcher interface {
	// Apply mutates dataset in place. It returns a *kinds.CoreError of kind
	// PatchSemanticsError if a declared delete triple does not exist in
	// dataset.
	Apply(dataset *rdf.Dataset) error

	// EffectiveOperations lists the minimal operations this patch requires,
	// so the Access-Controlled layer can authorize minimally.
	EffectiveOperations() []Operation
}

// UpdateAction is the tagged union an Update carries: either a full
// replacement representation, or a patch the Patching layer resolves
// against current state. Exactly one field is set.
type UpdateAction struct {
	SetWith   *model.Representation
	PatchWith RepPatcher
}

// IsPatch reports whether this action is a patch rather than a full set.
func (a UpdateAction) IsPatch() bool {
	return a.PatchWith != nil
}

// Repo is the resource-operator contract every layer implements, generic
// over its own token type. A
// layer's Create/Update/Delete accept only the token variant(s) that make
// operational sense by construction: Create wants a CreateTokenSet whose
// Target token proves conflict-freedom, Update/Delete want a token that
// proves the target is ExistingRepresented. This is enforced by the layer's
// own ResolveStatus + the model.StatusToken variants, not re-encoded in the
// type signature, to keep every layer's method set identical and so layers
// compose by simple embedding/wrapping.
type Repo[Token any] interface {
	// ResolveStatus resolves uri to a status token at a single point in
	// time. It must not be reused
	// across operations.
	ResolveStatus(ctx context.Context, uri model.ResourceURI) (Token, error)

	// Read returns a representation of an ExistingRepresented target,
	// honoring prefs and failing PreconditionsNotSatisfied per RFC 9110
	// §13.2 precedence.
	Read(ctx context.Context, target Token, prefs Preferences, pre Preconditions) (model.Representation, error)

	// Create makes a new resource of kind kind, reached from tokens.Host
	// via rel, with the given initial content. tokens.Target must be
	// conflict-free; tokens.Host must be ExistingRepresented.
	Create(ctx context.Context, tokens CreateTokenSet[Token], kind model.ResourceKind, rel model.SlotRelationType, action UpdateAction, hostPre Preconditions) (Token, model.ResourceURI, error)

	// Update replaces or patches an ExistingRepresented target.
	Update(ctx context.Context, target Token, action UpdateAction, pre Preconditions) (Token, error)

	// Delete removes an ExistingRepresented target.
	Delete(ctx context.Context, target Token, pre Preconditions) error
}
