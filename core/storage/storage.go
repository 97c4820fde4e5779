// Package storage implements the Storage Service: it composes the fully
// layered repository with a name locker (serializing concurrent operations
// on the same resource) and exposes the conditional-request and
// method-policy helpers the out-of-core HTTP front end needs to turn a
// resolved operation into a response.
package storage

import (
	"context"
	"time"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/accesscontrolled"
	"github.com/relabs-tech/solidstore/core/storage/locker"
	"github.com/relabs-tech/solidstore/core/storage/notify"
)

// Service composes the access-controlled repo with a name locker and the
// storage space it serves.
type Service struct {
	Repo         *accesscontrolled.Repo
	Space        model.StorageSpace
	MethodPolicy MethodPolicy
	locker       *locker.Table

	// Notify publishes a best-effort "resource changed" event after every
	// committed Create/Update/Delete. A nil Notify (the default) disables
	// publishing entirely.
	Notify *notify.Publisher
}

func New(r *accesscontrolled.Repo, space model.StorageSpace, reg *rdf.Registry) *Service {
	return &Service{
		Repo:         r,
		Space:        space,
		MethodPolicy: MethodPolicy{Registry: reg},
		locker:       locker.New(),
	}
}

// WithNotify sets the publisher used to announce committed changes and
// returns s for chaining at composition-root construction time.
func (s *Service) WithNotify(p *notify.Publisher) *Service {
	s.Notify = p
	return s
}

func lockName(uri model.ResourceURI) string { return string(uri) }

// Exists reports whether uri currently names a represented resource,
// without performing any access check — the out-of-core HTTP front end
// uses this to choose between treating a PUT/PATCH as a Create or an
// Update before it ever asks the PEP for an authorization decision.
func (s *Service) Exists(ctx context.Context, uri model.ResourceURI) (bool, error) {
	unlock := s.locker.RLock(lockName(uri))
	defer unlock()

	target, err := s.Repo.ResolveStatus(ctx, uri)
	if err != nil {
		return false, err
	}
	return target.Inner.Exists(), nil
}

// Read acquires a shared lock on uri, resolves its status, and reads it.
func (s *Service) Read(ctx context.Context, uri model.ResourceURI, prefs repo.Preferences, pre repo.Preconditions) (model.Representation, repo.Layered[model.StatusToken], error) {
	unlock := s.locker.RLock(lockName(uri))
	defer unlock()

	target, err := s.Repo.ResolveStatus(ctx, uri)
	if err != nil {
		return model.Representation{}, repo.Layered[model.StatusToken]{}, err
	}
	rep, err := s.Repo.Read(ctx, target, prefs, pre)
	return rep, target, err
}

// Update acquires an exclusive lock on uri, resolves its status, and
// replaces or patches it.
func (s *Service) Update(ctx context.Context, uri model.ResourceURI, action repo.UpdateAction, pre repo.Preconditions) (repo.Layered[model.StatusToken], error) {
	unlock := s.locker.Lock(lockName(uri))
	defer unlock()

	target, err := s.Repo.ResolveStatus(ctx, uri)
	if err != nil {
		return repo.Layered[model.StatusToken]{}, err
	}
	updated, err := s.Repo.Update(ctx, target, action, pre)
	if err == nil {
		s.Notify.Publish(ctx, notify.Event{Resource: uri, Operation: notify.OpUpdated, Timestamp: time.Now()})
	}
	return updated, err
}

// Create acquires an exclusive lock on the target URI, then nests an
// exclusive lock on the host URI, matching the fixed target-then-host order
// §5 mandates — the same order Delete uses for a contained resource — so a
// concurrent Create of a child and Delete of that same child can never
// interleave into a deadlock.
func (s *Service) Create(ctx context.Context, hostURI, targetURI model.ResourceURI, kind model.ResourceKind, rel model.SlotRelationType, action repo.UpdateAction, hostPre repo.Preconditions) (repo.Layered[model.StatusToken], model.ResourceURI, error) {
	unlockTarget := s.locker.Lock(lockName(targetURI))
	defer unlockTarget()

	unlockHost := s.locker.Lock(lockName(hostURI))
	defer unlockHost()

	host, err := s.Repo.ResolveStatus(ctx, hostURI)
	if err != nil {
		return repo.Layered[model.StatusToken]{}, "", err
	}

	target, err := s.Repo.ResolveStatus(ctx, targetURI)
	if err != nil {
		return repo.Layered[model.StatusToken]{}, "", err
	}

	created, loc, err := s.Repo.Create(ctx, repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host}, kind, rel, action, hostPre)
	if err == nil {
		s.Notify.Publish(ctx, notify.Event{Resource: loc, Operation: notify.OpCreated, Timestamp: time.Now()})
	}
	return created, loc, err
}

// Delete acquires an exclusive lock on the target URI, and — if the target
// is contained — nests that under an exclusive lock on its host, since
// removing a contained resource also rewrites the host's containment
// index.
func (s *Service) Delete(ctx context.Context, uri model.ResourceURI, pre repo.Preconditions) error {
	unlockTarget := s.locker.Lock(lockName(uri))
	defer unlockTarget()

	target, err := s.Repo.ResolveStatus(ctx, uri)
	if err != nil {
		return err
	}

	if target.Inner.Slot != nil && target.Inner.Slot.RevLink != nil && target.Inner.Slot.RevLink.RelType.Kind == model.Contains {
		unlockHost := s.locker.Lock(lockName(target.Inner.Slot.HostURI()))
		defer unlockHost()
	}

	err = s.Repo.Delete(ctx, target, pre)
	if err == nil {
		s.Notify.Publish(ctx, notify.Event{Resource: uri, Operation: notify.OpDeleted, Timestamp: time.Now()})
	}
	return err
}

// ConditionalOutcome classifies how a PreconditionsNotSatisfied error
// should be reported, which depends on whether the method being evaluated
// is safe (GET/HEAD): a safe method reports 304 Not Modified, any other
// method reports 412 Precondition Failed.
type ConditionalOutcome int

const (
	OutcomeNotModified ConditionalOutcome = iota
	OutcomePreconditionFailed
)

// ClassifyPreconditionFailure reports how err, if it is a
// PreconditionsNotSatisfied error, should be reported for a method of the
// given safety. ok is false if err is not a precondition failure.
func ClassifyPreconditionFailure(err error, safeMethod bool) (outcome ConditionalOutcome, ok bool) {
	kind, isCore := kinds.KindOf(err)
	if !isCore || kind != kinds.PreconditionsNotSatisfied {
		return 0, false
	}
	if safeMethod {
		return OutcomeNotModified, true
	}
	return OutcomePreconditionFailed, true
}
