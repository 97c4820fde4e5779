// Package contentneg implements the Content-Negotiating Layer: it wraps a
// Base Repo's Read to reparse an RDF-backed representation into whichever
// registered syntax the client's Accept header prefers, and marks the
// result with a derived ETag so precondition evaluation one layer further
// out still sees a distinct identity per negotiated variant.
package contentneg

import (
	"context"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
)

// Inner is the repository this layer wraps: any Repo[model.StatusToken],
// typically core/repo/baserepo.Repo.
type Repo struct {
	Inner    repo.Repo[model.StatusToken]
	Registry *rdf.Registry

	// DefaultSyntax is the content type served when the client's Accept list
	// is empty or none of it is registered.
	DefaultSyntax string
}

var _ repo.Repo[model.StatusToken] = (*Repo)(nil)

func New(inner repo.Repo[model.StatusToken], reg *rdf.Registry, defaultSyntax string) *Repo {
	if defaultSyntax == "" {
		defaultSyntax = "text/turtle"
	}
	return &Repo{Inner: inner, Registry: reg, DefaultSyntax: defaultSyntax}
}

func (r *Repo) ResolveStatus(ctx context.Context, uri model.ResourceURI) (model.StatusToken, error) {
	return r.Inner.ResolveStatus(ctx, uri)
}

// Read negotiates the RDF syntax of rdf-backed representations (quads data,
// or a buffer whose content type is itself a registered RDF syntax) against
// prefs.AcceptSyntaxes. Non-RDF representations pass through unchanged.
func (r *Repo) Read(ctx context.Context, target model.StatusToken, prefs repo.Preferences, pre repo.Preconditions) (model.Representation, error) {
	rep, err := r.Inner.Read(ctx, target, prefs, pre)
	if err != nil {
		return model.Representation{}, err
	}

	ds, sourceSyntax, isRDF := r.asDataset(rep)
	if !isRDF {
		return rep, nil
	}

	negotiated, ok := r.Registry.NegotiateSyntax(prefs.AcceptSyntaxes)
	if !ok {
		negotiated = r.DefaultSyntax
	}

	factory, ok := r.Registry.Get(negotiated)
	if !ok {
		return model.Representation{}, kinds.New(kinds.UnsupportedOperation, "no syntax factory registered for %q", negotiated)
	}

	serialized, err := factory.Serialize(ds, string(rep.Metadata.BaseURI))
	if err != nil {
		return model.Representation{}, kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "serializing to %q", negotiated)
	}

	out := rep
	out.Data = model.BufferData{Bytes: serialized}
	out.Metadata.ContentType = negotiated
	out.Metadata.CompleteContentLength = int64(len(serialized))
	if negotiated != sourceSyntax {
		out.Metadata.ETag = model.DeriveETag(model.BaseETag(rep.Metadata.ETag), negotiated)
		out.Metadata.DerivedETag = out.Metadata.ETag
	}
	return out, nil
}

// asDataset returns the representation's parsed dataset and the syntax it
// was parsed from (or native to), when the representation is RDF. Stream
// and buffer bodies are only treated as RDF when their content type names a
// registered syntax factory; anything else passes through untouched.
func (r *Repo) asDataset(rep model.Representation) (*rdf.Dataset, string, bool) {
	if ds, ok := rep.Data.(model.QuadsData); ok {
		dataset, ok := ds.Dataset.(*rdf.Dataset)
		if !ok {
			return nil, "", false
		}
		return dataset, rep.Metadata.ContentType, true
	}

	factory, ok := r.Registry.Get(rep.Metadata.ContentType)
	if !ok {
		return nil, "", false
	}
	buf, err := rep.Buffered()
	if err != nil {
		return nil, "", false
	}
	ds, err := factory.Parse(buf, string(rep.Metadata.BaseURI))
	if err != nil {
		return nil, "", false
	}
	return ds, rep.Metadata.ContentType, true
}

// Create passes through unchanged: the Validating Layer (one level further
// out) is responsible for enforcing that a create/update body is valid RDF
// when the target requires it; this layer only negotiates read output.
func (r *Repo) Create(ctx context.Context, tokens repo.CreateTokenSet[model.StatusToken], kind model.ResourceKind, rel model.SlotRelationType, action repo.UpdateAction, hostPre repo.Preconditions) (model.StatusToken, model.ResourceURI, error) {
	return r.Inner.Create(ctx, tokens, kind, rel, action, hostPre)
}

func (r *Repo) Update(ctx context.Context, target model.StatusToken, action repo.UpdateAction, pre repo.Preconditions) (model.StatusToken, error) {
	return r.Inner.Update(ctx, target, action, pre)
}

func (r *Repo) Delete(ctx context.Context, target model.StatusToken, pre repo.Preconditions) error {
	return r.Inner.Delete(ctx, target, pre)
}
