package rdf_test

import (
	"testing"

	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/stretchr/testify/require"
)

func TestTurtleRoundTrip(t *testing.T) {
	input := []byte(`<#x> <http://example.org/p> "v" .` + "\n")
	ds, err := rdf.TurtleFactory{}.Parse(input, "http://example.org/a.ttl")
	require.NoError(t, err)
	require.Len(t, ds.DefaultGraphQuads(), 1)

	out, err := rdf.TurtleFactory{}.Serialize(ds, "http://example.org/a.ttl")
	require.NoError(t, err)

	reparsed, err := rdf.TurtleFactory{}.Parse(out, "http://example.org/a.ttl")
	require.NoError(t, err)
	require.True(t, ds.IsomorphicTo(reparsed))
}

func TestTurtlePrefixAndRdfType(t *testing.T) {
	input := []byte(`@prefix ldp: <http://www.w3.org/ns/ldp#> .
<http://example.org/s/c/> a ldp:BasicContainer ; ldp:contains <http://example.org/s/c/a.ttl> .
`)
	ds, err := rdf.TurtleFactory{}.Parse(input, "")
	require.NoError(t, err)
	require.Len(t, ds.DefaultGraphQuads(), 2)
	require.Equal(t, rdf.RDFType, ds.Quads[0].Predicate.Value)
}

func TestJSONLDRoundTripsAgainstTurtle(t *testing.T) {
	ttl := []byte(`<http://example.org/s/a.ttl#x> <http://example.org/p> "v2" .` + "\n")
	ds, err := rdf.TurtleFactory{}.Parse(ttl, "")
	require.NoError(t, err)

	jsonldBytes, err := rdf.JSONLDFactory{}.Serialize(ds, "")
	require.NoError(t, err)

	reparsed, err := rdf.JSONLDFactory{}.Parse(jsonldBytes, "")
	require.NoError(t, err)
	require.True(t, ds.IsomorphicTo(reparsed))
}

func TestDatasetIsomorphismWithBlankNodes(t *testing.T) {
	a := rdf.NewDataset()
	a.Add(rdf.Quad{Subject: rdf.NewBlankNode("b1"), Predicate: rdf.NewIRI("http://example.org/p"), Object: rdf.NewLiteral("v")})

	b := rdf.NewDataset()
	b.Add(rdf.Quad{Subject: rdf.NewBlankNode("other"), Predicate: rdf.NewIRI("http://example.org/p"), Object: rdf.NewLiteral("v")})

	require.True(t, a.IsomorphicTo(b))
}

func TestParseInsertDeletePatch(t *testing.T) {
	body := []byte(`_:_ a solid:InsertDeletePatch ;
  solid:inserts { <#x> <http://example.org/p> "v2" } ;
  solid:deletes { <#x> <http://example.org/p> "v" } .`)

	insert, delete, err := rdf.ParseInsertDeletePatch(body, "http://example.org/s/a.ttl")
	require.NoError(t, err)
	require.Len(t, insert, 1)
	require.Len(t, delete, 1)
	require.Equal(t, "v2", insert[0].Object.Value)
	require.Equal(t, "v", delete[0].Object.Value)
}

func TestParseInsertDeletePatchInsertOnly(t *testing.T) {
	body := []byte(`_:_ a solid:InsertDeletePatch ; solid:inserts { <#x> <http://example.org/p> "v2" } .`)

	insert, delete, err := rdf.ParseInsertDeletePatch(body, "http://example.org/s/a.ttl")
	require.NoError(t, err)
	require.Len(t, insert, 1)
	require.Empty(t, delete)
}

func TestParseInsertDeletePatchRequiresABlock(t *testing.T) {
	_, _, err := rdf.ParseInsertDeletePatch([]byte(`_:_ a solid:InsertDeletePatch .`), "")
	require.Error(t, err)
}

func TestRegistryNegotiation(t *testing.T) {
	r := rdf.DefaultRegistry()
	ct, ok := r.NegotiateSyntax([]string{"application/ld+json", "text/turtle"})
	require.True(t, ok)
	require.Equal(t, "application/ld+json", ct)

	_, ok = r.NegotiateSyntax([]string{"application/unknown"})
	require.False(t, ok)
}
