// Package baserepo implements the innermost repository layer: resource
// status tokens, read/create/update/delete operators against the object
// store, container-index synthesis, and sidecar metadata.
package baserepo

import (
	"context"

	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/slotpath"
)

// Repo is the Base Repo. It holds the object store backend,
// the storage space descriptor, the semantic slot-path scheme and its
// supporting backend path machinery, and an RDF factory registry used only
// to synthesize/parse the container index and AltContent bodies it
// validates structurally (full content negotiation happens one layer up,
// in core/repo/contentneg).
type Repo struct {
	Backend   objectstore.Backend
	Space     model.StorageSpace
	Scheme    slotpath.Scheme
	PathCodec objectstore.PathScheme
	AuxTokens *objectstore.AuxTokenRegistry
	RDF       *rdf.Registry
}

var _ repo.Repo[model.StatusToken] = (*Repo)(nil)

// New builds the aux-token registry from space's aux policy and returns a
// ready Repo. It checks no backend capabilities; Read and Update do not
// check any either, and the only capability check in this package is
// Create's create_dir check for containers.
func New(backend objectstore.Backend, space model.StorageSpace, scheme slotpath.Scheme, pathCodec objectstore.PathScheme, reg *rdf.Registry) (*Repo, error) {
	auxTokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	if err != nil {
		return nil, err
	}
	return &Repo{
		Backend:   backend,
		Space:     space,
		Scheme:    scheme,
		PathCodec: pathCodec,
		AuxTokens: auxTokens,
		RDF:       reg,
	}, nil
}

func (r *Repo) paths(path model.SlotPath) (objectstore.AssociatedPaths, error) {
	return objectstore.DeriveAssociatedPaths(r.PathCodec, r.AuxTokens, path)
}

// baseObjectExistsFor stats the base-object path derived from the slot path
// prefix slots (ending at a host's slot), used by the aux-subject index check.
func (r *Repo) baseObjectExistsFor(ctx context.Context, slots []model.Slot) bool {
	path := model.SlotPath{Slots: slots}
	paths, err := r.paths(path)
	if err != nil {
		return false
	}
	if _, err := r.Backend.Stat(ctx, paths.Base); err != nil {
		return false
	}
	return true
}

// existence is the outcome of resolving a single URI's existence, without
// any mutex resolution.
type existence struct {
	kind       model.StatusTokenKind // only ExistingRepresented/ExistingNonRepresented/NonExistingMutexNonExisting used as a "does not exist" marker
	slot       *model.Slot
	validators model.Validators
	decodeErr  bool
}

// resolveExistence resolves a single URI's existence: decode its semantic
// slot, derive associated objects, check the aux-subject
// index, and classify against the base object's presence. It performs no
// mutex resolution; ResolveStatus composes this with a second call against
// the mutex URI.
func (r *Repo) resolveExistence(ctx context.Context, uri model.ResourceURI) existence {
	path, err := r.Scheme.Decode(r.Space, uri)
	if err != nil {
		return existence{decodeErr: true}
	}
	target := path.Target()

	represented := path.IsRepresentedPath(func(hostURI model.ResourceURI) bool {
		for i, s := range path.Slots {
			if s.URI == hostURI {
				return r.baseObjectExistsFor(ctx, path.Slots[:i+1])
			}
		}
		// hostURI not on this path (shouldn't happen for a well-formed
		// path); resolve it independently.
		hostPath, err := r.Scheme.Decode(r.Space, hostURI)
		if err != nil {
			return false
		}
		return r.baseObjectExistsFor(ctx, hostPath.Slots)
	})

	paths, err := r.paths(path)
	if err != nil {
		return existence{decodeErr: true}
	}

	meta, statErr := r.Backend.Stat(ctx, paths.Base)
	baseExists := statErr == nil

	switch {
	case represented && baseExists:
		return existence{
			kind:       model.ExistingRepresented,
			slot:       &target,
			validators: validatorsFromMeta(meta),
		}
	case represented && target.IsAuxiliary():
		return existence{kind: model.ExistingNonRepresented, slot: &target}
	default:
		return existence{kind: model.NonExistingMutexNonExisting, slot: &target}
	}
}

func validatorsFromMeta(meta objectstore.ObjectMeta) model.Validators {
	lm := meta.LastModified.Unix()
	return model.Validators{
		ETag:         model.ComputeBaseETag(lm, meta.Size),
		LastModified: lm,
	}
}

// ResolveStatus resolves uri to a status token.
func (r *Repo) ResolveStatus(ctx context.Context, uri model.ResourceURI) (model.StatusToken, error) {
	e := r.resolveExistence(ctx, uri)
	if e.decodeErr {
		return model.StatusToken{
			Kind:          model.NonExistingMutexNonExisting,
			MutexUnknown:  true,
			DecodedTarget: uri,
		}, nil
	}

	switch e.kind {
	case model.ExistingRepresented, model.ExistingNonRepresented:
		return model.StatusToken{
			Kind:          e.kind,
			Slot:          e.slot,
			Validators:    e.validators,
			DecodedTarget: uri,
		}, nil
	}

	// Not existing: resolve mutex existence.
	mutexURI := uri.Mutex()
	m := r.resolveExistence(ctx, mutexURI)
	if m.decodeErr {
		return model.StatusToken{
			Kind:          model.NonExistingMutexNonExisting,
			MutexUnknown:  true,
			DecodedTarget: uri,
		}, nil
	}
	if m.kind == model.ExistingRepresented || m.kind == model.ExistingNonRepresented {
		return model.StatusToken{
			Kind:          model.NonExistingMutexExisting,
			MutexSlot:     m.slot,
			DecodedTarget: uri,
		}, nil
	}
	return model.StatusToken{
		Kind:          model.NonExistingMutexNonExisting,
		DecodedTarget: uri,
	}, nil
}

