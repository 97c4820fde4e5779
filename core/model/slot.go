package model

import "fmt"

// SlotRelationKind distinguishes a containment edge from an auxiliary edge.
type SlotRelationKind int

const (
	// Contains is the containment relation: a container holds a child resource.
	Contains SlotRelationKind = iota
	// Auxiliary is a relation to a known auxiliary-resource type (acl, describedBy, ...).
	Auxiliary
)

// SlotRelationType is either Contains, or Auxiliary carrying the known aux-rel
// type's constraints.
type SlotRelationType struct {
	Kind SlotRelationKind
	Aux  KnownAuxRelType // meaningful only when Kind == Auxiliary
}

func ContainsRelation() SlotRelationType { return SlotRelationType{Kind: Contains} }

func AuxiliaryRelation(aux KnownAuxRelType) SlotRelationType {
	return SlotRelationType{Kind: Auxiliary, Aux: aux}
}

// SlotReverseLink is the one reverse edge every non-root resource has: the
// URI of its host (container, for Contains; subject, for Auxiliary) and the
// relation type of that edge.
type SlotReverseLink struct {
	TargetURI ResourceURI
	RelType   SlotRelationType
}

// Slot is the immutable identity record of a resource within its storage
// space: its URI, kind, and (for non-root resources) its reverse link.
type Slot struct {
	Space    StorageSpace
	URI      ResourceURI
	Kind     ResourceKind
	RevLink  *SlotReverseLink // nil only for the root slot
}

// Validate enforces the slot invariants.
func (s Slot) Validate() error {
	isRoot := s.URI == s.Space.Root
	if isRoot {
		if s.RevLink != nil {
			return fmt.Errorf("root slot %q must not have a reverse link", s.URI)
		}
		if s.Kind != Container {
			return fmt.Errorf("root slot %q must be a container", s.URI)
		}
		return nil
	}
	if s.RevLink == nil {
		return fmt.Errorf("non-root slot %q must have a reverse link", s.URI)
	}
	switch s.RevLink.RelType.Kind {
	case Contains:
		if s.RevLink.TargetURI.Kind() != Container {
			return fmt.Errorf("contains-rev-link subject %q must be a container", s.RevLink.TargetURI)
		}
	case Auxiliary:
		aux := s.RevLink.RelType.Aux
		if !aux.AllowsSubjectKind(s.RevLink.TargetURI.Kind()) {
			return fmt.Errorf("aux-rel %q does not allow subject kind %v", aux.Token, s.RevLink.TargetURI.Kind())
		}
		if s.Kind != aux.TargetKind {
			return fmt.Errorf("aux-rel %q requires target kind %v, got %v", aux.Token, aux.TargetKind, s.Kind)
		}
	}
	return nil
}

// IsAuxiliary reports whether this slot is reached via an auxiliary edge.
func (s Slot) IsAuxiliary() bool {
	return s.RevLink != nil && s.RevLink.RelType.Kind == Auxiliary
}

// HostURI returns the URI this slot's reverse link points to, or "" for the root.
func (s Slot) HostURI() ResourceURI {
	if s.RevLink == nil {
		return ""
	}
	return s.RevLink.TargetURI
}
