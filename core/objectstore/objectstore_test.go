package objectstore_test

import (
	"testing"

	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemeRoundTripsPlainSegment(t *testing.T) {
	s := objectstore.DefaultScheme{}
	encoded, err := s.EncodeSegment("a.ttl")
	require.NoError(t, err)
	require.Equal(t, "a.ttl", encoded)
	decoded, err := s.DecodeSegment(encoded)
	require.NoError(t, err)
	require.Equal(t, "a.ttl", decoded)
}

func TestDefaultSchemeFallsBackOnEncodedReservedChar(t *testing.T) {
	s := objectstore.DefaultScheme{}
	encoded, err := s.EncodeSegment("a%2Fb")
	require.NoError(t, err)
	require.True(t, len(encoded) > 0 && encoded != "a/b")
	decoded, err := s.DecodeSegment(encoded)
	require.NoError(t, err)
	require.Equal(t, "a%2Fb", decoded)
}

func TestAuxTokenRegistryRejectsReservedCollision(t *testing.T) {
	policy := model.AuxPolicy{
		KnownTypes: map[string]model.KnownAuxRelType{
			objectstore.AltContentName: {Token: objectstore.AltContentName},
		},
	}
	_, err := objectstore.NewAuxTokenRegistry(policy)
	require.Error(t, err)
}

func TestDeriveAssociatedPathsForNestedResource(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	uri := model.ResourceURI("http://example.org/s/c/a.ttl")
	slotPath, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)

	tokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	require.NoError(t, err)

	paths, err := objectstore.DeriveAssociatedPaths(objectstore.DefaultScheme{}, tokens, slotPath)
	require.NoError(t, err)
	require.Equal(t, "c/a.ttl", paths.Base)
	// a.ttl is a non-container: its sidecars must be siblings adjacent to
	// the base file, not nested beneath it (unsatisfiable on a real
	// filesystem backend).
	require.Equal(t, "c/.a.ttl.aux", paths.AuxNamespace)
	require.Equal(t, "c/.a.ttl.alt-content", paths.AltContent)
	require.Equal(t, "c/.a.ttl.alt-meta.json", paths.AltFatMeta)
}

func TestDeriveAssociatedPathsForContainerNestsSidecars(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	uri := model.ResourceURI("http://example.org/s/c/")
	slotPath, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)

	tokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	require.NoError(t, err)

	paths, err := objectstore.DeriveAssociatedPaths(objectstore.DefaultScheme{}, tokens, slotPath)
	require.NoError(t, err)
	require.Equal(t, "c", paths.Base)
	require.Equal(t, "c/.aux", paths.AuxNamespace)
	require.Equal(t, "c/.alt-content", paths.AltContent)
	require.Equal(t, "c/.alt-meta.json", paths.AltFatMeta)
}

func TestDeriveAssociatedPathsForAuxResource(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	uri := model.ResourceURI("http://example.org/s/a.ttl/._aux/acl")
	slotPath, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)

	tokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	require.NoError(t, err)

	paths, err := objectstore.DeriveAssociatedPaths(objectstore.DefaultScheme{}, tokens, slotPath)
	require.NoError(t, err)
	require.Equal(t, "a.ttl/.aux/acl", paths.Base)
}

func TestDeriveAssociatedPathsForRoot(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	slotPath, err := slotpath.Hierarchical{}.Decode(space, space.Root)
	require.NoError(t, err)

	tokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	require.NoError(t, err)

	paths, err := objectstore.DeriveAssociatedPaths(objectstore.DefaultScheme{}, tokens, slotPath)
	require.NoError(t, err)
	require.Equal(t, "", paths.Base)
	require.Equal(t, ".aux", paths.AuxNamespace)
}
