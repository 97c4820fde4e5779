// Package slotpath implements the semantic-slot encoding scheme: the
// bijection between resource URIs in a storage space and the slot paths
// described in core/model.
package slotpath

import "github.com/relabs-tech/solidstore/core/model"

// Scheme is a semantic slot encoding scheme: a bijection between a resource
// URI and its slot path within a storage space.
type Scheme interface {
	// Decode resolves uri to its slot path within space. It returns a
	// *kinds.CoreError for every documented decode failure.
	Decode(space model.StorageSpace, uri model.ResourceURI) (model.SlotPath, error)

	// Encode reconstructs the URI denoted by path. Encode(Decode(u)) == u for
	// every uri that decodes successfully (the slot-path round trip property).
	Encode(path model.SlotPath) (model.ResourceURI, error)
}
