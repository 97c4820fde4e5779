// Package validating implements the Validating Layer: it rejects
// user-supplied container representations that try to assert server-owned
// structure (ldp:contains and the synthesized metadata predicates), caps
// representation size before it reaches the Base Repo, and protects
// known auxiliary resources from losing the invariants their type requires
// (e.g. an acl resource must remain parseable RDF).
package validating

import (
	"context"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
)

// protectedPredicates are server-synthesized container-index predicates a
// user-supplied container representation must never assert about itself.
var protectedPredicates = map[string]bool{
	"http://www.w3.org/ns/ldp#contains":    true,
	"http://www.w3.org/ns/posix/stat#size": true,
	"http://purl.org/dc/terms/modified":    true,
}

// containedResMetaPredicates are server-synthesized per-child predicates a
// user-supplied container representation must never assert about a subject
// other than the container itself — i.e. about one of its (real or
// aspirational) contained resources.
var containedResMetaPredicates = map[string]bool{
	rdf.RDFType: true,
	"http://www.w3.org/ns/posix/stat#mtime": true,
}

// MaxRepresentationSize bounds a user-supplied write body.
const MaxRepresentationSize = model.MaxBufferSize

type Repo struct {
	Inner    repo.Repo[model.StatusToken]
	Registry *rdf.Registry
}

var _ repo.Repo[model.StatusToken] = (*Repo)(nil)

func New(inner repo.Repo[model.StatusToken], reg *rdf.Registry) *Repo {
	return &Repo{Inner: inner, Registry: reg}
}

func (r *Repo) ResolveStatus(ctx context.Context, uri model.ResourceURI) (model.StatusToken, error) {
	return r.Inner.ResolveStatus(ctx, uri)
}

func (r *Repo) Read(ctx context.Context, target model.StatusToken, prefs repo.Preferences, pre repo.Preconditions) (model.Representation, error) {
	return r.Inner.Read(ctx, target, prefs, pre)
}

func (r *Repo) Create(ctx context.Context, tokens repo.CreateTokenSet[model.StatusToken], kind model.ResourceKind, rel model.SlotRelationType, action repo.UpdateAction, hostPre repo.Preconditions) (model.StatusToken, model.ResourceURI, error) {
	if action.SetWith != nil {
		validated, err := r.validateSetWith(kind, rel, tokens.Target.DecodedTarget, *action.SetWith)
		if err != nil {
			return model.StatusToken{}, "", err
		}
		action.SetWith = &validated
	}
	return r.Inner.Create(ctx, tokens, kind, rel, action, hostPre)
}

func (r *Repo) Update(ctx context.Context, target model.StatusToken, action repo.UpdateAction, pre repo.Preconditions) (model.StatusToken, error) {
	if action.SetWith != nil {
		kind := model.Container
		var rel model.SlotRelationType
		if target.Slot != nil {
			kind = target.Slot.Kind
			if target.Slot.RevLink != nil {
				rel = target.Slot.RevLink.RelType
			}
		}
		validated, err := r.validateSetWith(kind, rel, target.DecodedTarget, *action.SetWith)
		if err != nil {
			return model.StatusToken{}, err
		}
		action.SetWith = &validated
	}
	return r.Inner.Update(ctx, target, action, pre)
}

func (r *Repo) Delete(ctx context.Context, target model.StatusToken, pre repo.Preconditions) error {
	return r.Inner.Delete(ctx, target, pre)
}

// validateSetWith validates rep against kind/rel and returns the
// representation to actually pass downstream. Buffered() may have drained a
// StreamData's reader, so the returned representation's Data is always
// re-pointed at the buffered bytes — the caller must use the returned value,
// not its own copy of rep.
func (r *Repo) validateSetWith(kind model.ResourceKind, rel model.SlotRelationType, targetURI model.ResourceURI, rep model.Representation) (model.Representation, error) {
	buf, err := rep.Buffered()
	if err != nil {
		return rep, kinds.Wrap(kinds.PayloadTooLarge, err, "buffering representation for validation")
	}
	if int64(len(buf)) > MaxRepresentationSize {
		return rep, kinds.New(kinds.PayloadTooLarge, "representation of %d bytes exceeds the %d byte limit", len(buf), MaxRepresentationSize)
	}
	// Restore a fresh BufferData so downstream layers can still read it;
	// Buffered() above may have consumed a StreamData's reader.
	rep.Data = model.BufferData{Bytes: buf}

	mustBeRDF := kind == model.Container
	if rel.Kind == model.Auxiliary && rel.Aux.TargetMustBeRdfSource {
		mustBeRDF = true
	}
	if !mustBeRDF {
		return rep, nil
	}

	factory, ok := r.Registry.Get(rep.Metadata.ContentType)
	if !ok {
		return rep, kinds.New(kinds.InvalidRdfSourceRepresentation, "content type %q is not a recognized RDF syntax", rep.Metadata.ContentType)
	}
	ds, err := factory.Parse(buf, string(rep.Metadata.BaseURI))
	if err != nil {
		return rep, kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "parsing representation")
	}

	if kind == model.Container {
		if err := rejectProtectedPredicates(ds); err != nil {
			return rep, err
		}
		if err := rejectContainedResMetadata(ds, targetURI); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func rejectProtectedPredicates(ds *rdf.Dataset) error {
	for _, q := range ds.DefaultGraphQuads() {
		if q.Predicate.Kind == rdf.IRI && protectedPredicates[q.Predicate.Value] {
			return kinds.New(kinds.InvalidUserSuppliedContainmentTriples,
				"user-supplied container representation must not assert %q", q.Predicate.Value).
				WithExtension("predicate", q.Predicate.Value)
		}
	}
	return nil
}

// rejectContainedResMetadata rejects any triple whose subject names a
// resource other than containerURI itself (i.e. a contained resource, real
// or aspirational) and whose predicate is one the server synthesizes for
// its children (rdf:type, stat:mtime) — a user cannot assert these about a
// child from within the container's own representation.
func rejectContainedResMetadata(ds *rdf.Dataset, containerURI model.ResourceURI) error {
	self := string(containerURI)
	for _, q := range ds.DefaultGraphQuads() {
		if q.Subject.Kind != rdf.IRI || q.Subject.Value == self {
			continue
		}
		if q.Predicate.Kind == rdf.IRI && containedResMetaPredicates[q.Predicate.Value] {
			return kinds.New(kinds.InvalidUserSuppliedContainedResMeta,
				"user-supplied container representation must not assert %q about contained resource %q",
				q.Predicate.Value, q.Subject.Value).
				WithExtension("predicate", q.Predicate.Value).
				WithExtension("subject", q.Subject.Value)
		}
	}
	return nil
}
