package contentneg_test

import (
	"context"
	"testing"

	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/objectstore/localfs"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/baserepo"
	"github.com/relabs-tech/solidstore/core/repo/contentneg"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func TestReadNegotiatesJSONLDFromTurtleBody(t *testing.T) {
	ctx := context.Background()
	backend, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	reg := rdf.DefaultRegistry()
	base, err := baserepo.New(backend, space, slotpath.Hierarchical{}, objectstore.DefaultScheme{}, reg)
	require.NoError(t, err)
	layer := contentneg.New(base, reg, "text/turtle")

	host, err := base.ResolveStatus(ctx, space.Root)
	require.NoError(t, err)
	target := model.ResourceURI(string(space.Root) + "card.ttl")
	targetToken, err := base.ResolveStatus(ctx, target)
	require.NoError(t, err)

	turtle := "<http://example.org/s/card.ttl> <http://example.org/p> \"v\" .\n"
	rep := model.NewBufferRepresentation("text/turtle", []byte(turtle))
	created, _, err := base.Create(ctx,
		repo.CreateTokenSet[model.StatusToken]{Target: targetToken, Host: host},
		model.NonContainer, model.ContainsRelation(),
		repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	require.NoError(t, err)

	out, err := layer.Read(ctx, created, repo.Preferences{AcceptSyntaxes: []string{"application/ld+json"}}, repo.Preconditions{})
	require.NoError(t, err)
	require.Equal(t, "application/ld+json", out.Metadata.ContentType)
	require.True(t, model.IsDerived(out.Metadata.ETag))

	buf, err := out.Buffered()
	require.NoError(t, err)
	require.Contains(t, string(buf), "example.org/p")
}
