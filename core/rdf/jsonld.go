package rdf

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// JSONLDFactory implements a pragmatic, internally-consistent subset of
// JSON-LD: one JSON object per subject, "@id" (or "_:label" for blank
// nodes), and one array-of-values per predicate IRI. Values are either
// {"@id": "..."} (IRI/blank-node object) or {"@value": "...", "@type":
// "...", "@language": "..."} (literal). It is not a full JSON-LD expansion
// algorithm (no @context compaction), but round-trips every dataset this
// module produces or accepts, which is all content negotiation needs of an
// RDF syntax factory here.
type JSONLDFactory struct{}

func (JSONLDFactory) ContentType() string { return "application/ld+json" }

type jsonldValue struct {
	ID       string `json:"@id,omitempty"`
	Value    string `json:"@value,omitempty"`
	Type     string `json:"@type,omitempty"`
	Language string `json:"@language,omitempty"`
}

type jsonldNode struct {
	ID         string                   `json:"@id"`
	Predicates map[string][]jsonldValue `json:"-"`
}

func (JSONLDFactory) Parse(data []byte, baseURI string) (*Dataset, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rdf/jsonld: %w", err)
	}
	ds := NewDataset()
	for _, node := range raw {
		idRaw, ok := node["@id"]
		if !ok {
			return nil, fmt.Errorf("rdf/jsonld: node missing @id")
		}
		var id string
		if err := json.Unmarshal(idRaw, &id); err != nil {
			return nil, fmt.Errorf("rdf/jsonld: invalid @id: %w", err)
		}
		subject := termFromID(id)
		for predicate, valuesRaw := range node {
			if predicate == "@id" {
				continue
			}
			var values []jsonldValue
			if err := json.Unmarshal(valuesRaw, &values); err != nil {
				return nil, fmt.Errorf("rdf/jsonld: invalid values for %q: %w", predicate, err)
			}
			for _, v := range values {
				var object Term
				switch {
				case v.ID != "":
					object = termFromID(v.ID)
				case v.Language != "":
					object = NewLangLiteral(v.Value, v.Language)
				case v.Type != "":
					object = NewTypedLiteral(v.Value, v.Type)
				default:
					object = NewLiteral(v.Value)
				}
				ds.Add(Quad{Subject: subject, Predicate: NewIRI(predicate), Object: object})
			}
		}
	}
	return ds, nil
}

func termFromID(id string) Term {
	if len(id) > 2 && id[:2] == "_:" {
		return NewBlankNode(id[2:])
	}
	return NewIRI(id)
}

func idFromTerm(t Term) string {
	if t.Kind == BlankNode {
		return "_:" + t.Value
	}
	return t.Value
}

func (JSONLDFactory) Serialize(ds *Dataset, baseURI string) ([]byte, error) {
	order := []string{}
	bySubject := map[string][]Quad{}
	for _, q := range ds.DefaultGraphQuads() {
		key := idFromTerm(q.Subject)
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], q)
	}
	sort.Strings(order)

	var nodes []map[string]any
	for _, subjectKey := range order {
		node := map[string]any{"@id": subjectKey}
		byPred := map[string][]jsonldValue{}
		var predOrder []string
		for _, q := range bySubject[subjectKey] {
			pred := q.Predicate.Value
			if _, ok := byPred[pred]; !ok {
				predOrder = append(predOrder, pred)
			}
			var v jsonldValue
			switch q.Object.Kind {
			case IRI, BlankNode:
				v = jsonldValue{ID: idFromTerm(q.Object)}
			default:
				v = jsonldValue{Value: q.Object.Value, Type: q.Object.Datatype, Language: q.Object.Lang}
			}
			byPred[pred] = append(byPred[pred], v)
		}
		sort.Strings(predOrder)
		for _, pred := range predOrder {
			node[pred] = byPred[pred]
		}
		nodes = append(nodes, node)
	}
	if nodes == nil {
		nodes = []map[string]any{}
	}
	return json.Marshal(nodes)
}
