package rdf

import "fmt"

// SyntaxFactory parses and serializes one concrete RDF syntax. Real Solid
// servers delegate to a much larger dynamic factory set treated as opaque
// services; this module ships only the two syntaxes its scenarios exercise
// (Turtle, JSON-LD) behind the same pluggable interface.
type SyntaxFactory interface {
	ContentType() string
	Parse(data []byte, baseURI string) (*Dataset, error)
	Serialize(ds *Dataset, baseURI string) ([]byte, error)
}

// Registry is the set of RDF syntaxes a deployment has registered, keyed by
// IANA media type.
type Registry struct {
	factories map[string]SyntaxFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]SyntaxFactory)}
}

// Register adds f, keyed by its ContentType.
func (r *Registry) Register(f SyntaxFactory) {
	r.factories[f.ContentType()] = f
}

// Get returns the factory for contentType, if registered.
func (r *Registry) Get(contentType string) (SyntaxFactory, bool) {
	f, ok := r.factories[contentType]
	return f, ok
}

// IsRegistered reports whether contentType names a known RDF syntax.
func (r *Registry) IsRegistered(contentType string) bool {
	_, ok := r.factories[contentType]
	return ok
}

// ContentTypes returns the media types of every registered syntax, in no
// particular order.
func (r *Registry) ContentTypes() []string {
	out := make([]string, 0, len(r.factories))
	for ct := range r.factories {
		out = append(out, ct)
	}
	return out
}

// NegotiateSyntax returns the first of accept (in preference order) that is
// registered, or ("", false) if none is.
func (r *Registry) NegotiateSyntax(accept []string) (string, bool) {
	for _, ct := range accept {
		if r.IsRegistered(ct) {
			return ct, true
		}
	}
	return "", false
}

// DefaultRegistry returns a registry with Turtle and JSON-LD registered,
// the pair the module's content-negotiation scenarios require.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TurtleFactory{})
	r.Register(JSONLDFactory{})
	return r
}

// ParseInto is a convenience wrapper returning a classified error-friendly
// message for callers that only have a content type string.
func (r *Registry) ParseInto(contentType string, data []byte, baseURI string) (*Dataset, error) {
	f, ok := r.Get(contentType)
	if !ok {
		return nil, fmt.Errorf("rdf: no syntax factory registered for %q", contentType)
	}
	return f.Parse(data, baseURI)
}
