package accesscontrolled_test

import (
	"context"
	"testing"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/objectstore/localfs"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/accesscontrolled"
	"github.com/relabs-tech/solidstore/core/repo/baserepo"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func newLayer(t *testing.T, owner string) (*accesscontrolled.Repo, model.StorageSpace) {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	reg := rdf.DefaultRegistry()
	base, err := baserepo.New(backend, space, slotpath.Hierarchical{}, objectstore.DefaultScheme{}, reg)
	require.NoError(t, err)
	pep := accesscontrolled.PEP{
		PDP: accesscontrolled.WebIDOwnerPDP{OwnerWebID: owner},
		PRP: accesscontrolled.NullPRP{},
	}
	return accesscontrolled.New(base, pep), space
}

func TestAnonymousWriteIsDenied(t *testing.T) {
	layer, space := newLayer(t, "https://alice.example/profile#me")
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	targetURI := model.ResourceURI(string(space.Root) + "b.ttl")
	target, err := layer.ResolveStatus(ctx, targetURI)
	require.NoError(t, err)

	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v\" .\n"))
	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.Error(t, err)
	kind, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.AccessDenied, kind)
}

func TestOwnerWriteIsAllowed(t *testing.T) {
	owner := "https://alice.example/profile#me"
	layer, space := newLayer(t, owner)
	ctx := access.ContextWithCredentials(context.Background(), access.Credentials{WebID: owner})

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	targetURI := model.ResourceURI(string(space.Root) + "b.ttl")
	target, err := layer.ResolveStatus(ctx, targetURI)
	require.NoError(t, err)

	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v\" .\n"))
	created, _, err := layer.Create(ctx,
		repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	rac, ok := created.Context.(accesscontrolled.ResolvedAccessControl)
	require.True(t, ok)
	require.True(t, rac.Allowed)

	_, err = layer.Read(ctx, created, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
}

func TestAnonymousReadIsAllowed(t *testing.T) {
	owner := "https://alice.example/profile#me"
	layer, space := newLayer(t, owner)
	ownerCtx := access.ContextWithCredentials(context.Background(), access.Credentials{WebID: owner})

	host, err := layer.ResolveStatus(ownerCtx, space.Root)
	require.NoError(t, err)
	targetURI := model.ResourceURI(string(space.Root) + "public.ttl")
	target, err := layer.ResolveStatus(ownerCtx, targetURI)
	require.NoError(t, err)
	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v\" .\n"))
	created, _, err := layer.Create(ownerCtx,
		repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	anonCtx := context.Background()
	refetched, err := layer.ResolveStatus(anonCtx, targetURI)
	require.NoError(t, err)
	_ = created
	_, err = layer.Read(anonCtx, refetched, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
}

func TestAdminBackdoorBypassesOwnerCheck(t *testing.T) {
	layer, space := newLayer(t, "https://alice.example/profile#me")
	ctx := access.ContextWithCredentials(context.Background(), access.Admin)

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	targetURI := model.ResourceURI(string(space.Root) + "acl")
	target, err := layer.ResolveStatus(ctx, targetURI)
	require.NoError(t, err)
	rep := model.NewBufferRepresentation("text/turtle", []byte("<> <http://example.org/p> \"v\" .\n"))
	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[repo.Layered[model.StatusToken]]{Target: target, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)
}
