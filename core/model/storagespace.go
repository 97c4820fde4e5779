package model

import "fmt"

// AccessResolutionRole describes how access control resolves an auxiliary
// resource's effective controlling ACR.
type AccessResolutionRole int

const (
	// Independent auxiliary resources are access-controlled like any other
	// resource, independent of their subject.
	Independent AccessResolutionRole = iota
	// SubjectResource auxiliary resources inherit the access decision of
	// their subject resource by default (e.g. a describedBy document).
	SubjectResource
	// SubjectResourceControl auxiliary resources additionally control
	// access to their subject (e.g. an ACL resource).
	SubjectResourceControl
)

// KnownAuxRelType is a known auxiliary-relation type: "acl", "describedBy",
// "containerIndex", etc. Each aux-rel type constrains which resources may be
// its subject and what kind its target must be.
type KnownAuxRelType struct {
	// Token is the short, conflict-free identifier used both in the semantic
	// slot encoding (the segment following the aux delimiter) and as the
	// backend path token under a host's auxiliary namespace object.
	Token string

	// AllowedSubjectKinds restricts which ResourceKind may carry this aux
	// relation. Empty means both kinds are allowed.
	AllowedSubjectKinds []ResourceKind

	// TargetKind is the ResourceKind the auxiliary resource itself must have.
	TargetKind ResourceKind

	// TargetMustBeRdfSource requires the auxiliary resource's representation
	// to be an RDF source (so it can be parsed/validated as such).
	TargetMustBeRdfSource bool

	// Role governs how access control resolves this aux type against its subject.
	Role AccessResolutionRole
}

// AllowsSubjectKind reports whether kind may be the subject of this aux relation.
func (t KnownAuxRelType) AllowsSubjectKind(kind ResourceKind) bool {
	if len(t.AllowedSubjectKinds) == 0 {
		return true
	}
	for _, k := range t.AllowedSubjectKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// AuxRelACL is the well-known "acl" auxiliary relation type: it may attach to
// either kind of subject, must itself be a non-container RDF source, and
// controls access to its subject.
var AuxRelACL = KnownAuxRelType{
	Token:                 "acl",
	TargetKind:            NonContainer,
	TargetMustBeRdfSource: true,
	Role:                  SubjectResourceControl,
}

// AuxRelDescribedBy is the well-known "describedBy" auxiliary relation type,
// used to attach a non-RDF resource's RDF description.
var AuxRelDescribedBy = KnownAuxRelType{
	Token:                 "descr",
	TargetKind:            NonContainer,
	TargetMustBeRdfSource: true,
	Role:                  SubjectResource,
}

// AuxRelContainerIndex names the (rarely materialized) synthesized index of a
// container, exposed as an aux relation so it can be addressed uniformly by
// the slot-path encoder even though the Base Repo normally derives it on read
// rather than storing it as a distinct slot.
var AuxRelContainerIndex = KnownAuxRelType{
	Token:               "index",
	AllowedSubjectKinds: []ResourceKind{Container},
	TargetKind:          NonContainer,
	Role:                Independent,
}

// AuxPolicy enumerates the auxiliary-relation types known to a storage space
// and the constraints a slot path must respect.
type AuxPolicy struct {
	// KnownTypes maps a wire token (as it appears after the aux delimiter in
	// a URI, and in the backend aux-rel token registry) to its constraints.
	KnownTypes map[string]KnownAuxRelType

	// MaxAuxLinksInPath bounds how many Auxiliary steps a single slot path
	// may contain; exceeding it is a decode failure.
	MaxAuxLinksInPath int
}

// Lookup returns the known aux-rel type for token, if any.
func (p AuxPolicy) Lookup(token string) (KnownAuxRelType, bool) {
	t, ok := p.KnownTypes[token]
	return t, ok
}

// DefaultAuxPolicy is the aux policy shipped by this module: "acl",
// "describedBy" and "containerIndex" known, at most one aux link per path
// (Solid servers do not nest ACLs-of-ACLs).
func DefaultAuxPolicy() AuxPolicy {
	return AuxPolicy{
		KnownTypes: map[string]KnownAuxRelType{
			AuxRelACL.Token:            AuxRelACL,
			AuxRelDescribedBy.Token:    AuxRelDescribedBy,
			AuxRelContainerIndex.Token: AuxRelContainerIndex,
		},
		MaxAuxLinksInPath: 1,
	}
}

// StorageSpace is the triple (root, description resource, owner) plus the
// auxiliary-relation policy that governs every resource it contains.
type StorageSpace struct {
	Root           ResourceURI
	DescriptionURI ResourceURI
	OwnerWebID     string
	AuxPolicy      AuxPolicy
}

// Validate checks the storage space's own invariants: the root must be a
// container, and if set, the description URI must be a non-container.
func (s StorageSpace) Validate() error {
	if s.Root.Kind() != Container {
		return fmt.Errorf("storage space root %q must be a container", s.Root)
	}
	if s.DescriptionURI != "" && s.DescriptionURI.Kind() == Container {
		return fmt.Errorf("storage space description resource %q must not be a container", s.DescriptionURI)
	}
	return nil
}
