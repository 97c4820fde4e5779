package model_test

import (
	"testing"

	"github.com/relabs-tech/solidstore/core/model"
	"github.com/stretchr/testify/require"
)

func TestMutexIsInvolutive(t *testing.T) {
	uris := []model.ResourceURI{
		"http://example.org/s/a.ttl",
		"http://example.org/s/c/",
	}
	for _, u := range uris {
		require.Equal(t, u, u.Mutex().Mutex())
	}
}

func TestKindMatchesTrailingSlash(t *testing.T) {
	require.Equal(t, model.Container, model.ResourceURI("http://example.org/s/c/").Kind())
	require.Equal(t, model.NonContainer, model.ResourceURI("http://example.org/s/a.ttl").Kind())
}

func TestBaseNormalizedETagIsIdempotent(t *testing.T) {
	base := model.ComputeBaseETag(1234, 56)
	derived := model.DeriveETag(base, "application/ld+json")
	once := model.BaseETag(derived)
	twice := model.BaseETag(once)
	require.Equal(t, base, once)
	require.Equal(t, once, twice)
}

func TestDerivedAndAugmentedAreDistinguishable(t *testing.T) {
	base := model.ComputeBaseETag(1, 2)
	derived := model.DeriveETag(base, "text/turtle")
	augmented := model.AugmentETag(base, "browser")
	require.True(t, model.IsDerived(derived))
	require.False(t, model.IsAugmented(derived))
	require.True(t, model.IsAugmented(augmented))
	require.False(t, model.IsDerived(augmented))
	require.Equal(t, base, model.BaseETag(derived))
	require.Equal(t, base, model.BaseETag(augmented))
}

func TestNormalizeURILowercasesSchemeAndHost(t *testing.T) {
	u, err := model.NormalizeURI("HTTP://Example.ORG:80/S/a.ttl")
	require.NoError(t, err)
	require.Equal(t, model.ResourceURI("http://example.org/S/a.ttl"), u)
}

func TestSlotPathValidateRejectsInconsistentReverseLink(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	root := model.Slot{Space: space, URI: space.Root, Kind: model.Container}
	child := model.Slot{
		Space: space,
		URI:   "http://example.org/s/a.ttl",
		Kind:  model.NonContainer,
		RevLink: &model.SlotReverseLink{
			TargetURI: "http://example.org/s/wrong/",
			RelType:   model.ContainsRelation(),
		},
	}
	path := model.SlotPath{Slots: []model.Slot{root, child}}
	require.Error(t, path.Validate())
}

func TestSlotPathValidateAcceptsConsistentChain(t *testing.T) {
	space := model.StorageSpace{Root: "http://example.org/s/", AuxPolicy: model.DefaultAuxPolicy()}
	root := model.Slot{Space: space, URI: space.Root, Kind: model.Container}
	child := model.Slot{
		Space: space,
		URI:   "http://example.org/s/a.ttl",
		Kind:  model.NonContainer,
		RevLink: &model.SlotReverseLink{
			TargetURI: space.Root,
			RelType:   model.ContainsRelation(),
		},
	}
	path := model.SlotPath{Slots: []model.Slot{root, child}}
	require.NoError(t, path.Validate())
}
