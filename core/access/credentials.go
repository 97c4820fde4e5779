// Package access defines the Credentials value the HTTP front end hands to
// the storage core plus test-only ways to mint one without a real
// authentication chain.
package access

import "context"

// Credentials identifies the caller an operation is performed on behalf of.
// It is opaque to everything except the Policy Decision Point: the core
// itself only ever compares WebID strings for the storage-space owner
// check, or forwards Credentials to the PEP untouched.
type Credentials struct {
	// WebID is the authenticated agent's WebID, or "" for an anonymous
	// (unauthenticated) request.
	WebID string

	// Roles carries coarse-grained role claims for PDP implementations that
	// want them.
	Roles []string
}

// IsAnonymous reports whether these credentials carry no authenticated WebID.
func (c Credentials) IsAnonymous() bool {
	return c.WebID == ""
}

// HasRole reports whether the credentials carry the given role.
func (c Credentials) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type contextKey string

const contextKeyCredentials contextKey = "_credentials_"

// ContextWithCredentials returns a new context carrying c.
func ContextWithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, contextKeyCredentials, c)
}

// FromContext retrieves the Credentials previously stored by
// ContextWithCredentials, or the zero value (anonymous) if none is present.
func FromContext(ctx context.Context) Credentials {
	c, ok := ctx.Value(contextKeyCredentials).(Credentials)
	if !ok {
		return Credentials{}
	}
	return c
}

// Admin is the backdoor/admin credentials value the Repo Initializer uses to
// install the root ACL without a real credential chain. A PEP
// implementation MUST special-case this value to always authorize; it is
// gated by the initializer never being reachable from an external request.
var Admin = Credentials{WebID: "urn:solidstore:admin", Roles: []string{"admin"}}
