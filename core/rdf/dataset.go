// Package rdf implements the minimal quads dataset and RDF syntax factory
// registry the storage core needs: enough to synthesize a container index,
// validate container/aux protection, apply an Insert/Delete patch, and
// content-negotiate between a small set of concrete syntaxes. It is not a
// general-purpose RDF library; it only implements what a pluggable, opaque
// RDF syntax parsing/serialization service needs to expose.
package rdf

import "fmt"

// TermKind distinguishes the three RDF term kinds.
type TermKind int

const (
	IRI TermKind = iota
	BlankNode
	Literal
)

// Term is an RDF term: an IRI, a blank node, or a literal (with optional
// datatype IRI and/or language tag, mutually exclusive per RDF 1.1).
type Term struct {
	Kind     TermKind
	Value    string // IRI string, blank node label, or literal lexical form
	Datatype string // literal only; "" means xsd:string default
	Lang     string // literal only; "" means no language tag
}

func NewIRI(iri string) Term               { return Term{Kind: IRI, Value: iri} }
func NewBlankNode(label string) Term       { return Term{Kind: BlankNode, Value: label} }
func NewLiteral(lex string) Term           { return Term{Kind: Literal, Value: lex} }
func NewTypedLiteral(lex, dt string) Term  { return Term{Kind: Literal, Value: lex, Datatype: dt} }
func NewLangLiteral(lex, lang string) Term { return Term{Kind: Literal, Value: lex, Lang: lang} }

func (t Term) Equal(o Term) bool {
	return t.Kind == o.Kind && t.Value == o.Value && t.Datatype == o.Datatype && t.Lang == o.Lang
}

func (t Term) String() string {
	switch t.Kind {
	case IRI:
		return "<" + t.Value + ">"
	case BlankNode:
		return "_:" + t.Value
	default:
		s := fmt.Sprintf("%q", t.Value)
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	}
}

// Quad is a subject-predicate-object triple plus an optional named graph.
// The empty Term (zero value, Kind==IRI, Value=="") denotes the default
// graph; this module never populates named graphs.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func (q Quad) Equal(o Quad) bool {
	return q.Subject.Equal(o.Subject) && q.Predicate.Equal(o.Predicate) &&
		q.Object.Equal(o.Object) && q.Graph.Equal(o.Graph)
}

// Dataset is an in-memory RDF quads collection.
type Dataset struct {
	Quads []Quad
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset { return &Dataset{} }

// Add appends q to the dataset.
func (d *Dataset) Add(q Quad) { d.Quads = append(d.Quads, q) }

// Contains reports whether q (or a blank-node-label-equal match) is present.
func (d *Dataset) Contains(q Quad) bool {
	for _, existing := range d.Quads {
		if existing.Equal(q) {
			return true
		}
	}
	return false
}

// Remove deletes the first quad equal to q, reporting whether one was found.
func (d *Dataset) Remove(q Quad) bool {
	for i, existing := range d.Quads {
		if existing.Equal(q) {
			d.Quads = append(d.Quads[:i], d.Quads[i+1:]...)
			return true
		}
	}
	return false
}

// DefaultGraphQuads returns the quads in the default graph (Graph == zero Term).
func (d *Dataset) DefaultGraphQuads() []Quad {
	var out []Quad
	for _, q := range d.Quads {
		if q.Graph == (Term{}) {
			out = append(out, q)
		}
	}
	return out
}

// IsomorphicTo reports whether d and o describe the same graph up to blank
// node relabeling. It is a brute-force comparison suitable for the small
// fixture graphs this module ever handles (test isomorphism checks, patch
// round trips); it is not meant for large graphs.
func (d *Dataset) IsomorphicTo(o *Dataset) bool {
	a := d.DefaultGraphQuads()
	b := o.DefaultGraphQuads()
	if len(a) != len(b) {
		return false
	}
	aBlanks := collectBlankLabels(a)
	if len(aBlanks) == 0 {
		return sameMultiset(a, b)
	}
	bBlanks := collectBlankLabels(b)
	if len(aBlanks) != len(bBlanks) {
		return false
	}
	return tryMappings(a, b, aBlanks, bBlanks, map[string]string{})
}

func collectBlankLabels(qs []Quad) []string {
	seen := map[string]bool{}
	var labels []string
	add := func(t Term) {
		if t.Kind == BlankNode && !seen[t.Value] {
			seen[t.Value] = true
			labels = append(labels, t.Value)
		}
	}
	for _, q := range qs {
		add(q.Subject)
		add(q.Object)
	}
	return labels
}

func sameMultiset(a, b []Quad) bool {
	used := make([]bool, len(b))
	for _, qa := range a {
		found := false
		for j, qb := range b {
			if !used[j] && qa.Equal(qb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// tryMappings brute-forces a bijection from aBlanks to bBlanks under which a
// (with its blank labels substituted) equals b as a multiset.
func tryMappings(a, b []Quad, aBlanks, bBlanks []string, mapping map[string]string) bool {
	if len(mapping) == len(aBlanks) {
		mapped := make([]Quad, len(a))
		for i, q := range a {
			mapped[i] = substituteBlanks(q, mapping)
		}
		return sameMultiset(mapped, b)
	}
	label := aBlanks[len(mapping)]
	used := make(map[string]bool, len(mapping))
	for _, v := range mapping {
		used[v] = true
	}
	for _, candidate := range bBlanks {
		if used[candidate] {
			continue
		}
		mapping[label] = candidate
		if tryMappings(a, b, aBlanks, bBlanks, mapping) {
			return true
		}
		delete(mapping, label)
	}
	return false
}

func substituteBlanks(q Quad, mapping map[string]string) Quad {
	sub := func(t Term) Term {
		if t.Kind == BlankNode {
			if v, ok := mapping[t.Value]; ok {
				return Term{Kind: BlankNode, Value: v}
			}
		}
		return t
	}
	return Quad{Subject: sub(q.Subject), Predicate: q.Predicate, Object: sub(q.Object), Graph: q.Graph}
}
