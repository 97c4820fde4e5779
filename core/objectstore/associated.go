package objectstore

import (
	"fmt"
	gopath "path"
	"strings"

	"github.com/relabs-tech/solidstore/core/model"
)

// Reserved backend path segments. An aux-rel token registered in a
// storage space's AuxPolicy must not collide with any of these.
const (
	AuxNamespaceSegment = ".aux"
	AltContentName      = ".alt-content"
	AltFatMetaName      = ".alt-meta.json"
)

// AuxTokenRegistry is a conflict-free mapping from known aux-rel tokens to
// the backend path segment used to name their base object under a host's
// auxiliary namespace object.
type AuxTokenRegistry struct {
	tokens map[string]string
}

// NewAuxTokenRegistry validates policy's known aux-rel tokens are pairwise
// distinct and don't collide with a reserved backend name.
func NewAuxTokenRegistry(policy model.AuxPolicy) (*AuxTokenRegistry, error) {
	reserved := map[string]bool{
		AuxNamespaceSegment: true,
		AltContentName:      true,
		AltFatMetaName:      true,
	}
	seen := make(map[string]bool, len(policy.KnownTypes))
	tokens := make(map[string]string, len(policy.KnownTypes))
	for token := range policy.KnownTypes {
		if reserved[token] {
			return nil, fmt.Errorf("objectstore: aux-rel token %q collides with a reserved backend name", token)
		}
		if seen[token] {
			return nil, fmt.Errorf("objectstore: duplicate aux-rel token %q", token)
		}
		seen[token] = true
		tokens[token] = token
	}
	return &AuxTokenRegistry{tokens: tokens}, nil
}

// Resolve returns the backend path segment for a known aux-rel token.
func (r *AuxTokenRegistry) Resolve(token string) (string, error) {
	backend, ok := r.tokens[token]
	if !ok {
		return "", fmt.Errorf("objectstore: aux-rel token %q not registered", token)
	}
	return backend, nil
}

// AssociatedPaths are the backend paths of a resource's associated objects
//: the base object, its auxiliary namespace object, and its
// sidecar objects.
type AssociatedPaths struct {
	Base         string
	AuxNamespace string
	AltContent   string
	AltFatMeta   string
}

// DeriveAssociatedPaths walks path's slot chain and computes the backend
// paths of the target resource's associated objects. The root resource's
// base object is the backend root (empty path).
//
// A container's Base names a namespace object (a directory, on localfs), so
// its sidecars nest safely underneath it. A non-container's Base names a
// plain file object; nesting a sidecar "underneath" a file is unsatisfiable
// on a hierarchical filesystem backend (a path cannot be both a file and a
// directory), so a non-container's sidecars are instead sibling objects
// adjacent to its Base, named from its own last path segment (spec §6/§7:
// "sidecars adjacent to the base object").
func DeriveAssociatedPaths(scheme PathScheme, auxTokens *AuxTokenRegistry, path model.SlotPath) (AssociatedPaths, error) {
	cumulative := ""
	hostCumulative := string(path.Slots[0].Space.Root)
	parentDir := ""
	lastSegment := ""

	for i := 1; i < len(path.Slots); i++ {
		s := path.Slots[i]
		parentDir = cumulative
		switch s.RevLink.RelType.Kind {
		case model.Contains:
			slug := strings.TrimSuffix(strings.TrimPrefix(string(s.URI), hostCumulative), "/")
			if slug == "" {
				return AssociatedPaths{}, fmt.Errorf("objectstore: empty containment slug at %q", s.URI)
			}
			encoded, err := scheme.EncodeSegment(slug)
			if err != nil {
				return AssociatedPaths{}, err
			}
			lastSegment = encoded
			cumulative = gopath.Join(cumulative, encoded)
		case model.Auxiliary:
			backendToken, err := auxTokens.Resolve(s.RevLink.RelType.Aux.Token)
			if err != nil {
				return AssociatedPaths{}, err
			}
			parentDir = gopath.Join(cumulative, AuxNamespaceSegment)
			lastSegment = backendToken
			cumulative = gopath.Join(parentDir, backendToken)
		}
		hostCumulative = string(s.URI)
	}

	if len(path.Slots) == 1 || path.Target().Kind == model.Container {
		return AssociatedPaths{
			Base:         cumulative,
			AuxNamespace: gopath.Join(cumulative, AuxNamespaceSegment),
			AltContent:   gopath.Join(cumulative, AltContentName),
			AltFatMeta:   gopath.Join(cumulative, AltFatMetaName),
		}, nil
	}

	sibling := "." + lastSegment
	return AssociatedPaths{
		Base:         cumulative,
		AuxNamespace: gopath.Join(parentDir, sibling+AuxNamespaceSegment),
		AltContent:   gopath.Join(parentDir, sibling+AltContentName),
		AltFatMeta:   gopath.Join(parentDir, sibling+AltFatMetaName),
	}, nil
}
