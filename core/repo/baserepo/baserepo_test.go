package baserepo_test

import (
	"context"
	"testing"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/objectstore/localfs"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/baserepo"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*baserepo.Repo, model.StorageSpace) {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)

	space := model.StorageSpace{
		Root:      "http://example.org/s/",
		AuxPolicy: model.DefaultAuxPolicy(),
	}
	reg := rdf.DefaultRegistry()
	r, err := baserepo.New(backend, space, slotpath.Hierarchical{}, objectstore.DefaultScheme{}, reg)
	require.NoError(t, err)
	return r, space
}

func TestResolveStatusRootIsRepresented(t *testing.T) {
	r, space := newTestRepo(t)
	ctx := context.Background()

	token, err := r.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	require.Equal(t, model.ExistingRepresented, token.Kind)
}

func TestResolveStatusNonExistingResourceIsConflictFree(t *testing.T) {
	r, space := newTestRepo(t)
	ctx := context.Background()

	target := model.ResourceURI(string(space.Root) + "foo.ttl")
	token, err := r.ResolveStatus(ctx, target)
	require.NoError(t, err)
	require.Equal(t, model.NonExistingMutexNonExisting, token.Kind)
	require.True(t, token.IsConflictFree())
}

func TestCreateReadUpdateDeleteNonContainer(t *testing.T) {
	r, space := newTestRepo(t)
	ctx := context.Background()

	target := model.ResourceURI(string(space.Root) + "foo.ttl")

	hostToken, err := r.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	targetToken, err := r.ResolveStatus(ctx, target)
	require.NoError(t, err)

	rep := model.NewBufferRepresentation("text/plain", []byte("hello"))
	created, uri, err := r.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: targetToken, Host: hostToken},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)
	require.Equal(t, target, uri)
	require.Equal(t, model.ExistingRepresented, created.Kind)

	readRep, err := r.Read(ctx, created, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
	buf, err := readRep.Buffered()
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf))

	updatedRep := model.NewBufferRepresentation("text/plain", []byte("goodbye"))
	updated, err := r.Update(ctx, created, repo.UpdateAction{SetWith: &updatedRep}, repo.Preconditions{})
	require.NoError(t, err)

	readRep2, err := r.Read(ctx, updated, repo.Preferences{}, repo.Preconditions{})
	require.NoError(t, err)
	buf2, err := readRep2.Buffered()
	require.NoError(t, err)
	require.Equal(t, "goodbye", string(buf2))

	mutex := target.Mutex()
	mutexToken, err := r.ResolveStatus(ctx, mutex)
	require.NoError(t, err)
	require.Equal(t, model.NonExistingMutexExisting, mutexToken.Kind)

	require.NoError(t, r.Delete(ctx, updated, repo.Preconditions{}))

	afterDelete, err := r.ResolveStatus(ctx, target)
	require.NoError(t, err)
	require.Equal(t, model.NonExistingMutexNonExisting, afterDelete.Kind)
}

func TestDeleteNonEmptyContainerFails(t *testing.T) {
	r, space := newTestRepo(t)
	ctx := context.Background()

	containerURI := model.ResourceURI(string(space.Root) + "c/")
	hostToken, err := r.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	containerTarget, err := r.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)

	createdContainer, _, err := r.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: containerTarget, Host: hostToken},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{}, repo.Preconditions{})
	require.NoError(t, err)

	childURI := model.ResourceURI(string(containerURI) + "child.ttl")
	childTarget, err := r.ResolveStatus(ctx, childURI)
	require.NoError(t, err)
	childRep := model.NewBufferRepresentation("text/plain", []byte("x"))
	_, _, err = r.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: childTarget, Host: createdContainer},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &childRep}, repo.Preconditions{})
	require.NoError(t, err)

	freshContainer, err := r.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)
	err = r.Delete(ctx, freshContainer, repo.Preconditions{})
	require.Error(t, err)
	kind, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.DeleteTargetsNonEmptyContainer, kind)
}

func TestCreateRejectsWhenMutexExists(t *testing.T) {
	r, space := newTestRepo(t)
	ctx := context.Background()

	hostToken, err := r.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	target := model.ResourceURI(string(space.Root) + "dup.ttl")
	targetToken, err := r.ResolveStatus(ctx, target)
	require.NoError(t, err)
	rep := model.NewBufferRepresentation("text/plain", []byte("v1"))
	_, _, err = r.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: targetToken, Host: hostToken},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	mutexURI := target.Mutex()
	mutexToken, err := r.ResolveStatus(ctx, mutexURI)
	require.NoError(t, err)
	require.False(t, mutexToken.IsConflictFree())

	_, _, err = r.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: mutexToken, Host: hostToken},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{}, repo.Preconditions{})
	require.Error(t, err)
}
