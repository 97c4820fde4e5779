package validating_test

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
	"github.com/relabs-tech/solidstore/core/repo/validating"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func newLayer(t *testing.T) (*validating.Repo, model.StorageSpace) {
	t.Helper()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	reg := rdf.DefaultRegistry()
	base, err := baserepo.New(backend, space, slotpath.Hierarchical{}, objectstore.DefaultScheme{}, reg)
	require.NoError(t, err)
	return validating.New(base, reg), space
}

func TestCreateContainerRejectsLdpContains(t *testing.T) {
	layer, space := newLayer(t)
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	containerURI := model.ResourceURI(string(space.Root) + "c/")
	target, err := layer.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)

	body := "<http://example.org/s/c/> <http://www.w3.org/ns/ldp#contains> <http://example.org/s/c/x> .\n"
	rep := model.NewBufferRepresentation("text/turtle", []byte(body))

	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: target, Host: host},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.Error(t, err)
	kind, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.InvalidUserSuppliedContainmentTriples, kind)
}

func TestCreateContainerRejectsContainedResourceType(t *testing.T) {
	layer, space := newLayer(t)
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	containerURI := model.ResourceURI(string(space.Root) + "c/")
	target, err := layer.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)

	body := "<http://example.org/s/c/x> a <http://www.w3.org/ns/ldp#Resource> .\n"
	rep := model.NewBufferRepresentation("text/turtle", []byte(body))

	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: target, Host: host},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.Error(t, err)
	kind, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.InvalidUserSuppliedContainedResMeta, kind)
}

func TestCreateContainerRejectsContainedResourceMtime(t *testing.T) {
	layer, space := newLayer(t)
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	containerURI := model.ResourceURI(string(space.Root) + "c/")
	target, err := layer.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)

	body := "<http://example.org/s/c/x> <http://www.w3.org/ns/posix/stat#mtime> \"123\" .\n"
	rep := model.NewBufferRepresentation("text/turtle", []byte(body))

	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: target, Host: host},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.Error(t, err)
	kind, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.InvalidUserSuppliedContainedResMeta, kind)
}

func TestCreateContainerAcceptsPlainTurtle(t *testing.T) {
	layer, space := newLayer(t)
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	containerURI := model.ResourceURI(string(space.Root) + "c/")
	target, err := layer.ResolveStatus(ctx, containerURI)
	require.NoError(t, err)

	body := "<http://example.org/s/c/> <http://example.org/title> \"hi\" .\n"
	rep := model.NewBufferRepresentation("text/turtle", []byte(body))

	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: target, Host: host},
		model.Container, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)
}

func TestCreateNonContainerDoesNotRequireRDF(t *testing.T) {
	layer, space := newLayer(t)
	ctx := context.Background()

	host, err := layer.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	target := model.ResourceURI(string(space.Root) + "img.png")
	targetToken, err := layer.ResolveStatus(ctx, target)
	require.NoError(t, err)

	rep := model.NewBufferRepresentation("image/png", []byte{0x89, 0x50, 0x4e, 0x47})

	_, _, err = layer.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: targetToken, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)
}
