package model

import "fmt"

// SlotPath is the ordered chain of slots from the storage root (index 0) to
// a resource (the last element). A SlotPath is "semantic" when it was
// produced by a pure URI-decoding scheme (see core/slotpath).
type SlotPath struct {
	Slots []Slot
}

// Target returns the last slot in the path: the resource the path denotes.
func (p SlotPath) Target() Slot {
	return p.Slots[len(p.Slots)-1]
}

// AuxLinkCount returns how many Auxiliary reverse links occur in the path.
func (p SlotPath) AuxLinkCount() int {
	n := 0
	for _, s := range p.Slots {
		if s.IsAuxiliary() {
			n++
		}
	}
	return n
}

// Validate enforces the slot-path invariants: consistent storage
// space across the chain, each non-first slot's reverse-link target equal to
// the previous slot's URI, and the aux-link count within the space's
// configured maximum. It also validates every individual slot.
func (p SlotPath) Validate() error {
	if len(p.Slots) == 0 {
		return fmt.Errorf("empty slot path")
	}
	space := p.Slots[0].Space
	if p.Slots[0].URI != space.Root {
		return fmt.Errorf("slot path must start at storage root, got %q", p.Slots[0].URI)
	}
	for i, s := range p.Slots {
		if s.Space.Root != space.Root {
			return fmt.Errorf("inconsistent storage space at path index %d", i)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("slot path index %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		if s.RevLink.TargetURI != p.Slots[i-1].URI {
			return fmt.Errorf("slot path index %d: reverse link target %q does not match previous slot %q",
				i, s.RevLink.TargetURI, p.Slots[i-1].URI)
		}
	}
	if max := space.AuxPolicy.MaxAuxLinksInPath; max > 0 && p.AuxLinkCount() > max {
		return fmt.Errorf("slot path exceeds max aux-link count %d", max)
	}
	return nil
}

// IsRepresentedPath implements the slot-path aux-subject index check of
// §4.3 step 4: a slot path is "represented" only if, for every ancestor
// reached via an Auxiliary link, that ancestor's host has a base object.
// hostBaseObjectExists is supplied by the caller (Base Repo), since only it
// can query the object store.
func (p SlotPath) IsRepresentedPath(hostBaseObjectExists func(hostURI ResourceURI) bool) bool {
	for _, s := range p.Slots {
		if s.IsAuxiliary() {
			if !hostBaseObjectExists(s.HostURI()) {
				return false
			}
		}
	}
	return true
}
