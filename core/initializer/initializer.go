// Package initializer implements idempotent storage-space bring-up: backend
// capability checks, storage-root namespace creation, and installation of
// the initial root ACR the first time a storage space is brought online.
package initializer

import (
	"context"
	"time"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/registry"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/accesscontrolled"
	"github.com/relabs-tech/solidstore/core/slotpath"
)

// auditRecord is the value written to the audit registry for each
// completed bring-up step, giving operators a queryable "when did this
// storage space last get initialized" trail on top of the object store's
// own (authoritative but unqueryable) state.
type auditRecord struct {
	CompletedAt time.Time `json:"completed_at"`
}

// RootACRFactory builds the initial root access control resource
// representation for a storage space. It is only consulted the first time
// the root ACL does not yet have a representation.
type RootACRFactory func(space model.StorageSpace) model.Representation

// Initializer performs idempotent bring-up for one storage space.
type Initializer struct {
	Backend   objectstore.Backend
	Scheme    slotpath.Scheme
	PathCodec objectstore.PathScheme
	AuxTokens *objectstore.AuxTokenRegistry
	Space     model.StorageSpace
	Repo      *accesscontrolled.Repo
	RootACR   RootACRFactory

	// Audit is an optional, non-authoritative bring-up ledger. When set,
	// Initialize records a timestamped entry for each step it performs,
	// keyed by the storage space root, so operators can query "when was
	// this space last (re-)initialized" without a backend round trip. A
	// nil Audit disables this entirely; correctness never depends on it,
	// since every step is still re-checked against the object store.
	Audit *registry.Accessor
}

func New(backend objectstore.Backend, scheme slotpath.Scheme, pathCodec objectstore.PathScheme, auxTokens *objectstore.AuxTokenRegistry, space model.StorageSpace, r *accesscontrolled.Repo, rootACR RootACRFactory) *Initializer {
	return &Initializer{
		Backend:   backend,
		Scheme:    scheme,
		PathCodec: pathCodec,
		AuxTokens: auxTokens,
		Space:     space,
		Repo:      r,
		RootACR:   rootACR,
	}
}

// WithAudit attaches a non-authoritative bring-up audit ledger and returns
// in for chaining at composition-root construction time.
func (in *Initializer) WithAudit(a *registry.Accessor) *Initializer {
	in.Audit = a
	return in
}

// recordAudit best-effort writes an audit entry for step; a failure is
// logged, never propagated, since the ledger is advisory only.
func (in *Initializer) recordAudit(ctx context.Context, step string) {
	if in.Audit == nil {
		return
	}
	if err := in.Audit.Write(string(in.Space.Root)+":"+step, auditRecord{CompletedAt: time.Now().UTC()}); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("initializer: recording audit entry")
	}
}

// rootACLURI is the well-known URI of a storage space's root ACL: the
// space's root with a single "acl" auxiliary step, the same encoding
// slotpath.Hierarchical produces for any acl-rel step.
func rootACLURI(space model.StorageSpace) model.ResourceURI {
	return model.ResourceURI(string(space.Root) + slotpath.AuxDelimiterSegment + "/" + model.AuxRelACL.Token)
}

// Initialize runs every bring-up step that is not already satisfied. It
// returns true if it performed any write, false if the storage space was
// already fully initialized.
func (in *Initializer) Initialize(ctx context.Context) (bool, error) {
	log := logger.FromContext(ctx)

	caps := in.Backend.Capabilities()
	if !caps.Read || !caps.List {
		return false, kinds.New(kinds.UnsupportedOperation,
			"backend for storage space %q must support read and list", in.Space.Root)
	}

	rootPath, err := in.Scheme.Decode(in.Space, in.Space.Root)
	if err != nil {
		return false, kinds.Wrap(kinds.InvalidStorageRootURI, err, "decoding storage root %q", in.Space.Root)
	}

	paths, err := objectstore.DeriveAssociatedPaths(in.PathCodec, in.AuxTokens, rootPath)
	if err != nil {
		return false, kinds.Wrap(kinds.InvalidStorageRootURI, err, "deriving associated paths for storage root %q", in.Space.Root)
	}

	wrote := false
	if _, err := in.Backend.Stat(ctx, paths.Base); err != nil {
		if !caps.CreateDir {
			return false, kinds.New(kinds.UnsupportedOperation,
				"backend for storage space %q must support create_dir to bring up an empty root", in.Space.Root)
		}
		if err := in.Backend.CreateDir(ctx, paths.Base); err != nil {
			return false, kinds.Wrap(kinds.UnknownIoError, err, "creating storage root namespace object")
		}
		wrote = true
		log.Infof("created storage root namespace object at %q", paths.Base)
		in.recordAudit(ctx, "storage-root-created")
	}

	if in.RootACR == nil || in.Repo == nil {
		return wrote, nil
	}

	adminCtx := access.ContextWithCredentials(ctx, access.Admin)
	aclURI := rootACLURI(in.Space)
	target, err := in.Repo.ResolveStatus(adminCtx, aclURI)
	if err != nil {
		return wrote, err
	}
	if target.Inner.Kind != model.ExistingNonRepresented {
		// Already represented, or the slot doesn't exist yet for a reason
		// other than "never installed" (e.g. the root container itself is
		// still missing) — either way there is nothing safe to do here.
		return wrote, nil
	}

	host, err := in.Repo.ResolveStatus(adminCtx, in.Space.Root)
	if err != nil {
		return wrote, err
	}

	rep := in.RootACR(in.Space)
	_, _, err = in.Repo.Create(adminCtx,
		repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host},
		model.NonContainer, model.AuxiliaryRelation(model.AuxRelACL),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	if err != nil {
		return wrote, err
	}
	log.Infof("installed initial root ACR at %q", aclURI)
	in.recordAudit(ctx, "root-acr-installed")
	return true, nil
}
