package slotpath_test

import (
	"testing"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/stretchr/testify/require"
)

func testSpace() model.StorageSpace {
	return model.StorageSpace{
		Root:      "http://example.org/s/",
		AuxPolicy: model.DefaultAuxPolicy(),
	}
}

func TestDecodeRootURI(t *testing.T) {
	space := testSpace()
	path, err := slotpath.Hierarchical{}.Decode(space, space.Root)
	require.NoError(t, err)
	require.Len(t, path.Slots, 1)
	require.Equal(t, space.Root, path.Target().URI)
	require.Nil(t, path.Target().RevLink)
}

func TestRoundTripNonContainer(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/a.ttl")
	path, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)
	require.Equal(t, model.NonContainer, path.Target().Kind)

	back, err := slotpath.Hierarchical{}.Encode(path)
	require.NoError(t, err)
	require.Equal(t, uri, back)
}

func TestRoundTripNestedContainer(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/c/d/x.ttl")
	path, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)
	require.Len(t, path.Slots, 4) // root, c/, d/, x.ttl
	require.Equal(t, model.Container, path.Slots[1].Kind)
	require.Equal(t, model.Container, path.Slots[2].Kind)
	require.Equal(t, model.NonContainer, path.Slots[3].Kind)

	back, err := slotpath.Hierarchical{}.Encode(path)
	require.NoError(t, err)
	require.Equal(t, uri, back)
}

func TestRoundTripAuxiliary(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/a.ttl/._aux/acl")
	path, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.NoError(t, err)
	require.True(t, path.Target().IsAuxiliary())
	require.Equal(t, model.NonContainer, path.Target().Kind)
	require.Equal(t, 1, path.AuxLinkCount())

	back, err := slotpath.Hierarchical{}.Encode(path)
	require.NoError(t, err)
	require.Equal(t, uri, back)
}

func TestDecodeUnknownAuxRelToken(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/a.ttl/._aux/bogus")
	_, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.Error(t, err)
	k, ok := kinds.KindOf(err)
	require.True(t, ok)
	require.Equal(t, kinds.UnknownTargetResource, k)
}

func TestDecodeAuxDelimiterWithNoSuccessor(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/a.ttl/._aux")
	_, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.Error(t, err)
}

func TestDecodeAuxTargetKindConstraintViolated(t *testing.T) {
	space := testSpace()
	// acl must be a non-container; trailing slash violates that.
	uri := model.ResourceURI("http://example.org/s/a.ttl/._aux/acl/")
	_, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.Error(t, err)
}

func TestDecodeNonCleanSegmentEncoding(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/c//x.ttl")
	_, err := slotpath.Hierarchical{}.Decode(space, uri)
	require.Error(t, err)
}

func TestMutexSemanticSlot(t *testing.T) {
	space := testSpace()
	uri := model.ResourceURI("http://example.org/s/a.ttl")
	mutex := uri.Mutex()
	require.Equal(t, model.ResourceURI("http://example.org/s/a.ttl/"), mutex)

	path, err := slotpath.Hierarchical{}.Decode(space, mutex)
	require.NoError(t, err)
	require.Equal(t, model.Container, path.Target().Kind)
}
