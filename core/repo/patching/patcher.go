// Package patching implements the Patching Layer: it resolves an Update's
// PatchWith into a concrete SetWith by reading the target's current
// representation, applying the patch to its parsed dataset, and
// reserializing in the same syntax, so everything further in only ever
// sees full-replacement writes.
package patching

import (
	"context"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
)

// MaxPatchBodySize bounds a user-supplied N3 patch body, the same limit
// the Validating Layer applies to a full representation body.
const MaxPatchBodySize = model.MaxBufferSize

// InsertDeletePatch is the concrete solid:InsertDeletePatch patcher: a set
// of quads to delete (each of which MUST already exist in the target
// dataset) and a set of quads to insert.
type InsertDeletePatch struct {
	Delete []rdf.Quad
	Insert []rdf.Quad
}

var _ repo.RepPatcher = InsertDeletePatch{}

// ParseN3Patch builds an InsertDeletePatch from the wire form of a
// solid:InsertDeletePatch N3 document (spec §6, scenario 4): the HTTP
// front end calls this to turn a PATCH request body with Content-Type
// text/n3 into the UpdateAction.PatchWith this layer expects.
func ParseN3Patch(data []byte, baseURI string) (InsertDeletePatch, error) {
	insert, del, err := rdf.ParseInsertDeletePatch(data, baseURI)
	if err != nil {
		return InsertDeletePatch{}, kinds.Wrap(kinds.PatchSemanticsError, err, "parsing N3 patch body")
	}
	return InsertDeletePatch{Insert: insert, Delete: del}, nil
}

// Apply removes every Delete quad (failing if any is absent) then adds
// every Insert quad.
func (p InsertDeletePatch) Apply(ds *rdf.Dataset) error {
	for _, q := range p.Delete {
		if !ds.Remove(q) {
			return kinds.New(kinds.PatchSemanticsError, "patch delete quad not present in target representation").
				WithExtension("quad", q)
		}
	}
	for _, q := range p.Insert {
		ds.Add(q)
	}
	return nil
}

// EffectiveOperations reports the minimal access-control operations this
// patch needs: APPEND alone if it only inserts, WRITE if it deletes
// anything (a delete can remove triples an append-only grant must not).
func (p InsertDeletePatch) EffectiveOperations() []repo.Operation {
	if len(p.Delete) == 0 {
		return []repo.Operation{repo.OpAppend}
	}
	return []repo.Operation{repo.OpWrite}
}

// Repo wraps an inner repository, resolving PatchWith actions against the
// target's current representation before delegating to Update.
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
	return r.Inner.Create(ctx, tokens, kind, rel, action, hostPre)
}

func (r *Repo) Update(ctx context.Context, target model.StatusToken, action repo.UpdateAction, pre repo.Preconditions) (model.StatusToken, error) {
	if !action.IsPatch() {
		return r.Inner.Update(ctx, target, action, pre)
	}

	current, err := r.Inner.Read(ctx, target, repo.Preferences{}, repo.Preconditions{})
	if err != nil {
		return model.StatusToken{}, err
	}
	contentType := current.Metadata.ContentType
	factory, ok := r.Registry.Get(contentType)
	if !ok {
		return model.StatusToken{}, kinds.New(kinds.InvalidRdfSourceRepresentation, "cannot patch non-RDF representation of content type %q", contentType)
	}
	buf, err := current.Buffered()
	if err != nil {
		return model.StatusToken{}, kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "reading current representation for patch")
	}
	ds, err := factory.Parse(buf, string(current.Metadata.BaseURI))
	if err != nil {
		return model.StatusToken{}, kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "parsing current representation for patch")
	}

	if err := action.PatchWith.Apply(ds); err != nil {
		return model.StatusToken{}, err
	}

	serialized, err := factory.Serialize(ds, string(current.Metadata.BaseURI))
	if err != nil {
		return model.StatusToken{}, kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "serializing patched representation")
	}
	setWith := model.NewBufferRepresentation(contentType, serialized)
	setWith.Metadata.BaseURI = current.Metadata.BaseURI
	setWith.BaseURI = current.BaseURI

	return r.Inner.Update(ctx, target, repo.UpdateAction{SetWith: &setWith}, pre)
}

func (r *Repo) Delete(ctx context.Context, target model.StatusToken, pre repo.Preconditions) error {
	return r.Inner.Delete(ctx, target, pre)
}
