// Package accesscontrolled implements the Access-Controlled Layer: before
// forwarding any operation it builds the minimal action-op list the
// operation requires, asks a Policy Enforcement Point to authorize it
// against the caller's credentials, and either returns AccessDenied with
// the resolved decision attached or forwards to the inner layer.
package accesscontrolled

import (
	"context"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
)

// JustifiedOperation is one minimal operation an action-op list requires,
// together with the reason it was added.
type JustifiedOperation struct {
	Op  repo.Operation
	Why string
}

// TargetOps is the operations an action-op list requires against a single
// URI. An operation's full action-op list is one or more of these: a
// Delete of a contained resource, for instance, needs DELETE on the target
// and WRITE on its host.
type TargetOps struct {
	Target model.ResourceURI
	Ops    []JustifiedOperation
}

// ResolvedAccessControl is the PDP's decision for an action-op list,
// attached to the AccessDenied error extension on denial, and to the
// Context field of the token a successful Create or Update returns, so
// callers (e.g. the HTTP front end) can surface it in response extensions.
// A successful Read or Delete does not return it.
type ResolvedAccessControl struct {
	Allowed       bool
	MatchedPolicy string
	Explanation   string
}

// AncestorACR is one ancestor's ACR graph as streamed by a PRP, root-ward
// from the resource being checked. Graph is nil when the ancestor has no
// ACR document of its own.
type AncestorACR struct {
	URI   model.ResourceURI
	Graph *rdf.Dataset
}

// PRP is the Policy Retrieval Point: it streams the ACR graph of every
// ancestor of uri, walking root-ward, one ancestor at a time, so a decision
// about a shallow resource does not pay for resolving a deep ancestor
// chain. visit returning false stops the walk early.
type PRP interface {
	StreamAncestors(ctx context.Context, uri model.ResourceURI, visit func(AncestorACR) bool) error
}

// PDP is the Policy Decision Point: it decides whether creds may perform
// every operation in ops against target, consulting prp for applicable
// policy. Concrete ACP/WAC evaluators live outside the core; this package
// only defines the interface plus a reference implementation sufficient
// for tests and the backdoor/admin path.
type PDP interface {
	Decide(ctx context.Context, creds access.Credentials, target model.ResourceURI, ops []JustifiedOperation, prp PRP) (ResolvedAccessControl, error)
}

// PEP is the Policy Enforcement Point: it evaluates a full action-op list
// (possibly spanning more than one target URI) into a single decision,
// denying as soon as any one target's ops are denied.
type PEP struct {
	PDP PDP
	PRP PRP
}

func (p PEP) enforce(ctx context.Context, creds access.Credentials, actionOps []TargetOps) (ResolvedAccessControl, error) {
	var last ResolvedAccessControl
	for _, to := range actionOps {
		if len(to.Ops) == 0 {
			continue
		}
		decision, err := p.PDP.Decide(ctx, creds, to.Target, to.Ops, p.PRP)
		if err != nil {
			return ResolvedAccessControl{}, err
		}
		last = decision
		if !decision.Allowed {
			return decision, nil
		}
	}
	return last, nil
}

// Repo wraps an inner repository, enforcing access control on every
// operation. Its token type decorates the inner token with the
// ResolvedAccessControl that authorized it, via repo.Layered.
type Repo struct {
	Inner repo.Repo[model.StatusToken]
	PEP   PEP
}

var _ repo.Repo[repo.Layered[model.StatusToken]] = (*Repo)(nil)

func New(inner repo.Repo[model.StatusToken], pep PEP) *Repo {
	return &Repo{Inner: inner, PEP: pep}
}

// ResolveStatus resolves uri without any access check: the resulting token
// carries no decision yet, since nothing has been authorized. Every
// Read/Create/Update/Delete call that follows performs its own check.
func (r *Repo) ResolveStatus(ctx context.Context, uri model.ResourceURI) (repo.Layered[model.StatusToken], error) {
	inner, err := r.Inner.ResolveStatus(ctx, uri)
	return repo.Layered[model.StatusToken]{Inner: inner}, err
}

func uriOf(token model.StatusToken) model.ResourceURI {
	if token.Slot != nil {
		return token.Slot.URI
	}
	if token.MutexSlot != nil {
		return token.MutexSlot.URI
	}
	return token.DecodedTarget
}

func accessDeniedError(rac ResolvedAccessControl) error {
	return kinds.New(kinds.AccessDenied, "access denied: %s", rac.Explanation).
		WithExtension("resolved_access_control", rac)
}

func (r *Repo) Read(ctx context.Context, target repo.Layered[model.StatusToken], prefs repo.Preferences, pre repo.Preconditions) (model.Representation, error) {
	ops := []TargetOps{{
		Target: uriOf(target.Inner),
		Ops:    []JustifiedOperation{{Op: repo.OpRead, Why: "read target"}},
	}}
	rac, err := r.PEP.enforce(ctx, access.FromContext(ctx), ops)
	if err != nil {
		return model.Representation{}, err
	}
	if !rac.Allowed {
		return model.Representation{}, accessDeniedError(rac)
	}
	return r.Inner.Read(ctx, target.Inner, prefs, pre)
}

func (r *Repo) Create(ctx context.Context, tokens repo.CreateTokenSet[repo.Layered[model.StatusToken]], kind model.ResourceKind, rel model.SlotRelationType, action repo.UpdateAction, hostPre repo.Preconditions) (repo.Layered[model.StatusToken], model.ResourceURI, error) {
	hostOps := []JustifiedOperation{{Op: repo.OpAppend, Why: "create child of host"}}
	if !hostPre.Trivial() {
		hostOps = append(hostOps, JustifiedOperation{Op: repo.OpRead, Why: "evaluate host preconditions"})
	}
	ops := []TargetOps{{Target: uriOf(tokens.Host.Inner), Ops: hostOps}}

	rac, err := r.PEP.enforce(ctx, access.FromContext(ctx), ops)
	if err != nil {
		return repo.Layered[model.StatusToken]{}, "", err
	}
	if !rac.Allowed {
		return repo.Layered[model.StatusToken]{}, "", accessDeniedError(rac)
	}

	innerTokens := repo.CreateTokenSet[model.StatusToken]{Target: tokens.Target.Inner, Host: tokens.Host.Inner}
	created, uri, err := r.Inner.Create(ctx, innerTokens, kind, rel, action, hostPre)
	return repo.Layered[model.StatusToken]{Inner: created, Context: rac}, uri, err
}

func (r *Repo) Update(ctx context.Context, target repo.Layered[model.StatusToken], action repo.UpdateAction, pre repo.Preconditions) (repo.Layered[model.StatusToken], error) {
	var targetOps []JustifiedOperation
	if action.IsPatch() {
		for _, op := range action.PatchWith.EffectiveOperations() {
			targetOps = append(targetOps, JustifiedOperation{Op: op, Why: "patch's effective operations"})
		}
	} else {
		targetOps = append(targetOps, JustifiedOperation{Op: repo.OpWrite, Why: "replace target representation"})
	}
	if !pre.Trivial() {
		targetOps = append(targetOps, JustifiedOperation{Op: repo.OpRead, Why: "evaluate target preconditions"})
	}
	ops := []TargetOps{{Target: uriOf(target.Inner), Ops: targetOps}}

	rac, err := r.PEP.enforce(ctx, access.FromContext(ctx), ops)
	if err != nil {
		return repo.Layered[model.StatusToken]{}, err
	}
	if !rac.Allowed {
		return repo.Layered[model.StatusToken]{}, accessDeniedError(rac)
	}

	updated, err := r.Inner.Update(ctx, target.Inner, action, pre)
	return repo.Layered[model.StatusToken]{Inner: updated, Context: rac}, err
}

func (r *Repo) Delete(ctx context.Context, target repo.Layered[model.StatusToken], pre repo.Preconditions) error {
	isContainer := target.Inner.Slot != nil && target.Inner.Slot.Kind == model.Container
	targetOps := []JustifiedOperation{{Op: repo.OpDelete, Why: "delete target"}}
	if isContainer || !pre.Trivial() {
		why := "evaluate target preconditions"
		if isContainer {
			why = "confirm container is empty before delete"
		}
		targetOps = append(targetOps, JustifiedOperation{Op: repo.OpRead, Why: why})
	}
	actionOps := []TargetOps{{Target: uriOf(target.Inner), Ops: targetOps}}

	isContained := target.Inner.Slot != nil && target.Inner.Slot.RevLink != nil &&
		target.Inner.Slot.RevLink.RelType.Kind == model.Contains
	if isContained {
		actionOps = append(actionOps, TargetOps{
			Target: target.Inner.Slot.HostURI(),
			Ops:    []JustifiedOperation{{Op: repo.OpWrite, Why: "remove containment triple from host"}},
		})
	}

	rac, err := r.PEP.enforce(ctx, access.FromContext(ctx), actionOps)
	if err != nil {
		return err
	}
	if !rac.Allowed {
		return accessDeniedError(rac)
	}
	return r.Inner.Delete(ctx, target.Inner, pre)
}
