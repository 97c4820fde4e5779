package slotpath

import (
	"strings"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
)

// AuxDelimiterSegment is the reserved path segment marking the start of an
// auxiliary-relation step in the hierarchical encoding. It can
// never be a legal containment slug.
const AuxDelimiterSegment = "._aux"

// Hierarchical is the default semantic slot encoding scheme: path segments
// up to the first aux delimiter form a containment chain; a delimiter
// segment followed by a known aux-rel token switches to an auxiliary step,
// after which containment resumes under the aux target.
type Hierarchical struct{}

var _ Scheme = Hierarchical{}

// Decode walks uri's path segments, producing one slot per step and
// validating the chain incrementally decoder algorithm.
func (Hierarchical) Decode(space model.StorageSpace, uri model.ResourceURI) (model.SlotPath, error) {
	root := string(space.Root)
	full := string(uri)
	if !strings.HasPrefix(full, root) {
		return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
			"uri %q is not under storage root %q", uri, space.Root)
	}
	relPath := strings.TrimPrefix(full, root)

	rootSlot := model.Slot{Space: space, URI: space.Root, Kind: model.Container}
	slots := []model.Slot{rootSlot}
	if relPath == "" {
		return model.SlotPath{Slots: slots}, nil
	}

	lastHasSlash := strings.HasSuffix(relPath, "/")
	segments := strings.Split(strings.TrimSuffix(relPath, "/"), "/")

	cursor := rootSlot
	cumulative := root

	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" {
			return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
				"non-clean segment encoding in %q", uri)
		}

		if seg == AuxDelimiterSegment {
			if i+1 >= len(segments) {
				return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
					"aux delimiter with no successor segment in %q", uri)
			}
			token := segments[i+1]
			aux, ok := space.AuxPolicy.Lookup(token)
			if !ok {
				return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
					"unknown aux-rel token %q in %q", token, uri)
			}
			if !aux.AllowsSubjectKind(cursor.Kind) {
				return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
					"aux-rel %q does not allow subject kind %v", token, cursor.Kind)
			}

			isLastPair := i+1 == len(segments)-1
			kind := model.Container
			if isLastPair && !lastHasSlash {
				kind = model.NonContainer
			}
			if kind != aux.TargetKind {
				return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
					"aux-rel %q target kind constraint violated", token)
			}

			targetPath := cumulative + AuxDelimiterSegment + "/" + token
			if kind == model.Container {
				targetPath += "/"
			}
			slot := model.Slot{
				Space: space,
				URI:   model.ResourceURI(targetPath),
				Kind:  kind,
				RevLink: &model.SlotReverseLink{
					TargetURI: cursor.URI,
					RelType:   model.AuxiliaryRelation(aux),
				},
			}
			slots = append(slots, slot)
			cursor = slot
			cumulative = targetPath
			i++
			continue
		}

		if cursor.Kind != model.Container {
			return model.SlotPath{}, kinds.New(kinds.UnknownTargetResource,
				"containment segment %q under non-container %q", seg, cursor.URI)
		}

		isLastSeg := i == len(segments)-1
		kind := model.Container
		if isLastSeg && !lastHasSlash {
			kind = model.NonContainer
		}
		childPath := cumulative + seg
		if kind == model.Container {
			childPath += "/"
		}
		slot := model.Slot{
			Space: space,
			URI:   model.ResourceURI(childPath),
			Kind:  kind,
			RevLink: &model.SlotReverseLink{
				TargetURI: cursor.URI,
				RelType:   model.ContainsRelation(),
			},
		}
		slots = append(slots, slot)
		cursor = slot
		cumulative = childPath
	}

	path := model.SlotPath{Slots: slots}
	if err := path.Validate(); err != nil {
		return model.SlotPath{}, kinds.Wrap(kinds.UnknownTargetResource, err, "decoding %q", uri)
	}
	return path, nil
}

// Encode reconstructs the URI denoted by path by walking its relation chain,
// inverting Decode. For every slot path produced by Decode, Encode reproduces
// the original URI exactly (the slot-path round trip property).
func (Hierarchical) Encode(path model.SlotPath) (model.ResourceURI, error) {
	if err := path.Validate(); err != nil {
		return "", kinds.Wrap(kinds.UnknownTargetResource, err, "encoding slot path")
	}
	cumulative := string(path.Slots[0].Space.Root)
	for i := 1; i < len(path.Slots); i++ {
		s := path.Slots[i]
		switch s.RevLink.RelType.Kind {
		case model.Auxiliary:
			token := s.RevLink.RelType.Aux.Token
			cumulative += AuxDelimiterSegment + "/" + token
			if s.Kind == model.Container {
				cumulative += "/"
			}
		case model.Contains:
			slug := strings.TrimPrefix(string(s.URI), cumulative)
			if slug == "" {
				return "", kinds.New(kinds.UnknownTargetResource,
					"empty containment slug at slot %q", s.URI)
			}
			cumulative += slug
		}
	}
	return model.ResourceURI(cumulative), nil
}
