// Package repo defines the shared resource-operator contract every layer
// implements: Read, Create, Update, Delete, parameterized over the layer's
// token type so credential, representation, and patcher types compose
// through layers without inheritance.
package repo

import "github.com/relabs-tech/solidstore/core/model"

// Layered decorates an inner status token with layer-specific context, so
// that an outer layer's token is always "the inner token plus my own
// decoration" rather than a hand-rolled struct per layer.
type Layered[Inner any] struct {
	Inner Inner

	// Context carries the decorating layer's own data, e.g. a resolved
	// access-control decision for the Access-Controlled layer. It is typed
	// loosely (any) because different layers decorate with different
	// shapes; callers that know which layer produced a token type-assert.
	Context any
}

// StatusToken is the concrete token type produced by the Base Repo. Every
// layer up to Access-Controlled reuses it unchanged, since only
// the Access-Controlled layer needs to add decoration; layers that need no
// extra state operate directly on model.StatusToken rather than wrapping it
// in a trivial Layered[model.StatusToken].
type StatusToken = model.StatusToken

// CreateTokenSet pairs a conflict-free token for the target URI with a
// represented token for its host container, both resolved by the caller
// under the host's lock.
type CreateTokenSet[Token any] struct {
	Target Token
	Host   Token
}
