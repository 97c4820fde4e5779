package storage_test

import (
	"context"
	"testing"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/objectstore/localfs"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/accesscontrolled"
	"github.com/relabs-tech/solidstore/core/repo/baserepo"
	"github.com/relabs-tech/solidstore/core/repo/contentneg"
	"github.com/relabs-tech/solidstore/core/repo/patching"
	"github.com/relabs-tech/solidstore/core/repo/validating"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/relabs-tech/solidstore/core/storage"
	"github.com/stretchr/testify/require"
)

const owner = "https://alice.example/profile#me"

func newService(t *testing.T) (*storage.Service, model.StorageSpace) {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	space := model.StorageSpace{Root: "http://example.org/s/", OwnerWebID: owner, AuxPolicy: model.DefaultAuxPolicy()}
	reg := rdf.DefaultRegistry()

	base, err := baserepo.New(backend, space, slotpath.Hierarchical{}, objectstore.DefaultScheme{}, reg)
	require.NoError(t, err)
	negotiated := contentneg.New(base, reg, "text/turtle")
	validated := validating.New(negotiated, reg)
	patched := patching.New(validated, reg)
	pep := accesscontrolled.PEP{PDP: accesscontrolled.WebIDOwnerPDP{OwnerWebID: owner}, PRP: accesscontrolled.NullPRP{}}
	controlled := accesscontrolled.New(patched, pep)

	return storage.New(controlled, space, reg), space
}

func TestServiceCreateReadUpdateDelete(t *testing.T) {
	svc, space := newService(t)
	ctx := access.ContextWithCredentials(context.Background(), access.Credentials{WebID: owner})

	targetURI := model.ResourceURI(string(space.Root) + "note.ttl")
	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v1\" .\n"))
	created, _, err := svc.Create(ctx, space.Root, targetURI, model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	read, _, err := svc.Read(ctx, targetURI, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
	buf, err := read.Buffered()
	require.NoError(t, err)
	require.Contains(t, string(buf), "v1")

	rep2 := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v2\" .\n"))
	_, err = svc.Update(ctx, targetURI, repo.UpdateAction{SetWith: &rep2}, repo.Preconditions{})
	require.NoError(t, err)

	read2, _, err := svc.Read(ctx, targetURI, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
	buf2, err := read2.Buffered()
	require.NoError(t, err)
	require.Contains(t, string(buf2), "v2")

	_ = created
	err = svc.Delete(ctx, targetURI, repo.Preconditions{})
	require.NoError(t, err)

	_, err = svc.Read(ctx, targetURI, repo.Preferences{}, repo.Preconditions{})
	require.Error(t, err)
}

func TestServiceExists(t *testing.T) {
	svc, space := newService(t)
	ctx := access.ContextWithCredentials(context.Background(), access.Credentials{WebID: owner})

	targetURI := model.ResourceURI(string(space.Root) + "exists.ttl")
	exists, err := svc.Exists(ctx, targetURI)
	require.NoError(t, err)
	require.False(t, exists)

	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v\" .\n"))
	_, _, err = svc.Create(ctx, space.Root, targetURI, model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	exists, err = svc.Exists(ctx, targetURI)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestMethodPolicyDisallowsDeleteOnRoot(t *testing.T) {
	svc, space := newService(t)
	ctx := context.Background()

	target, err := svc.Repo.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	allowed := svc.MethodPolicy.Resolve(space.Root, target.Inner, space)
	require.NotContains(t, allowed.Allow, "DELETE")
	require.Contains(t, allowed.Allow, "POST")
}

func TestClassifyPreconditionFailureChoosesBySafety(t *testing.T) {
	svc, space := newService(t)
	ctx := access.ContextWithCredentials(context.Background(), access.Credentials{WebID: owner})

	targetURI := model.ResourceURI(string(space.Root) + "note2.ttl")
	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v1\" .\n"))
	_, _, err := svc.Create(ctx, space.Root, targetURI, model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	_, _, err = svc.Read(ctx, targetURI, repo.Preferences{}, repo.Preconditions{IfNoneMatch: []string{"*"}})
	require.Error(t, err)
	outcome, ok := storage.ClassifyPreconditionFailure(err, true)
	require.True(t, ok)
	require.Equal(t, storage.OutcomeNotModified, outcome)

	_, err = svc.Update(ctx, targetURI, repo.UpdateAction{SetWith: &rep}, repo.Preconditions{IfMatch: []string{"\"bogus\""}})
	require.Error(t, err)
	outcome2, ok := storage.ClassifyPreconditionFailure(err, false)
	require.True(t, ok)
	require.Equal(t, storage.OutcomePreconditionFailed, outcome2)
}
