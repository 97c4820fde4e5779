package rdf

import (
	"fmt"
	"strings"
)

// ParseInsertDeletePatch extracts the `solid:inserts { ... }` and
// `solid:deletes { ... }` triple blocks from a solid:InsertDeletePatch N3
// document (see spec scenario 4) and parses each block's contents as
// Turtle, reusing TurtleFactory rather than a dedicated N3 grammar: the
// triples inside an insert/delete block are themselves valid Turtle, and
// this module does not otherwise need N3's quantifier/formula syntax.
func ParseInsertDeletePatch(data []byte, baseURI string) (insert, delete []Quad, err error) {
	text := string(data)
	insertBlock, err := extractBlock(text, "solid:inserts")
	if err != nil {
		return nil, nil, err
	}
	deleteBlock, err := extractBlock(text, "solid:deletes")
	if err != nil {
		return nil, nil, err
	}
	if insertBlock == "" && deleteBlock == "" {
		return nil, nil, fmt.Errorf("rdf: no solid:inserts or solid:deletes block found in patch")
	}
	// The last triple of an N3 formula needs no closing '.', but a Turtle
	// statement does.
	for _, block := range []*string{&insertBlock, &deleteBlock} {
		if b := strings.TrimSpace(*block); b != "" && !strings.HasSuffix(b, ".") {
			*block = b + " ."
		}
	}

	prefixes := leadingPrefixDecls(text)
	turtle := TurtleFactory{}
	if insertBlock != "" {
		ds, err := turtle.Parse([]byte(prefixes+insertBlock), baseURI)
		if err != nil {
			return nil, nil, fmt.Errorf("rdf: parsing solid:inserts block: %w", err)
		}
		insert = ds.Quads
	}
	if deleteBlock != "" {
		ds, err := turtle.Parse([]byte(prefixes+deleteBlock), baseURI)
		if err != nil {
			return nil, nil, fmt.Errorf("rdf: parsing solid:deletes block: %w", err)
		}
		delete = ds.Quads
	}
	return insert, delete, nil
}

// leadingPrefixDecls collects every "@prefix ... ." and "@base ... ." line in text, so a
// block's triples can be parsed standalone while still resolving prefixed
// names declared earlier in the same patch document.
func leadingPrefixDecls(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@prefix") || strings.HasPrefix(trimmed, "@base") {
			b.WriteString(trimmed)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// extractBlock finds the first `{ ... }` brace-matched block following
// keyword in text, or returns "" if keyword does not appear.
func extractBlock(text, keyword string) (string, error) {
	idx := strings.Index(text, keyword)
	if idx < 0 {
		return "", nil
	}
	rest := text[idx+len(keyword):]
	open := strings.IndexByte(rest, '{')
	if open < 0 {
		return "", fmt.Errorf("rdf: %s has no opening '{'", keyword)
	}
	depth := 0
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[open+1 : i], nil
			}
		}
	}
	return "", fmt.Errorf("rdf: %s block is missing its closing '}'", keyword)
}
