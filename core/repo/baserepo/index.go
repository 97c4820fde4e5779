package baserepo

import (
	"context"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/rdf"
)

const (
	ldpContains      = "http://www.w3.org/ns/ldp#contains"
	ldpResource      = "http://www.w3.org/ns/ldp#Resource"
	ldpBasicCont     = "http://www.w3.org/ns/ldp#BasicContainer"
	ldpContainer     = "http://www.w3.org/ns/ldp#Container"
	statSizePred     = "http://www.w3.org/ns/posix/stat#size"
	dctermsModified  = "http://purl.org/dc/terms/modified"
	xsdDateTime      = "http://www.w3.org/2001/XMLSchema#dateTime"
	xsdNonNegInteger = "http://www.w3.org/2001/XMLSchema#nonNegativeInteger"
)

// synthesizeContainerIndex synthesizes a container's index: list C's base
// namespace object, filter to items that are
// base objects of contained (non-aux) resources, decode their URIs, and
// emit ldp:contains / rdf:type / stat:size / dcterms:modified quads. Aux
// namespace entries and sidecar files are skipped silently; items whose
// name does not decode are skipped with a warning. Neither is surfaced as
// an error.
func (r *Repo) synthesizeContainerIndex(ctx context.Context, containerURI model.ResourceURI, basePath string) (*rdf.Dataset, error) {
	ds := rdf.NewDataset()
	containerTerm := rdf.NewIRI(string(containerURI))

	items, errs := r.Backend.List(ctx, basePath)
	for item := range items {
		if isReservedBackendName(item.Name) {
			continue
		}
		segment, err := r.PathCodec.DecodeSegment(item.Name)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnf("baserepo: skipping undecodable child %q of %q", item.Name, containerURI)
			continue
		}
		childURI := containerURI
		if item.Kind == objectstore.NamespaceObject {
			childURI = model.ResourceURI(string(containerURI) + segment + "/")
		} else {
			childURI = model.ResourceURI(string(containerURI) + segment)
		}
		childTerm := rdf.NewIRI(string(childURI))

		ds.Add(rdf.Quad{Subject: containerTerm, Predicate: rdf.NewIRI(ldpContains), Object: childTerm})

		if item.Kind == objectstore.NamespaceObject {
			ds.Add(rdf.Quad{Subject: childTerm, Predicate: rdf.NewIRI(rdf.RDFType), Object: rdf.NewIRI(ldpBasicCont)})
			ds.Add(rdf.Quad{Subject: childTerm, Predicate: rdf.NewIRI(rdf.RDFType), Object: rdf.NewIRI(ldpContainer)})
		} else {
			ds.Add(rdf.Quad{Subject: childTerm, Predicate: rdf.NewIRI(rdf.RDFType), Object: rdf.NewIRI(ldpResource)})
			if ct := contentTypeIRI(item.Meta.ContentType); ct != "" {
				ds.Add(rdf.Quad{Subject: childTerm, Predicate: rdf.NewIRI(rdf.RDFType), Object: rdf.NewIRI(ct)})
			}
		}
		ds.Add(rdf.Quad{
			Subject:   childTerm,
			Predicate: rdf.NewIRI(statSizePred),
			Object:    rdf.NewTypedLiteral(strconv.FormatInt(item.Meta.Size, 10), xsdNonNegInteger),
		})
		ds.Add(rdf.Quad{
			Subject:   childTerm,
			Predicate: rdf.NewIRI(dctermsModified),
			Object:    rdf.NewTypedLiteral(item.Meta.LastModified.UTC().Format(time.RFC3339), xsdDateTime),
		})
	}
	select {
	case err := <-errs:
		if err != nil {
			return nil, err
		}
	default:
	}
	return ds, nil
}

// isReservedBackendName reports whether name is one of the sidecar/aux
// namespace segments this module writes alongside a container's children,
// which must never be mistaken for a contained resource. A container's own
// sidecars are nested under it and never listed as its own children, but a
// non-container's sidecars are siblings named from its own segment (e.g.
// ".a.ttl.alt-meta.json" next to "a.ttl") and so do show up in its host's
// listing.
func isReservedBackendName(name string) bool {
	switch name {
	case objectstore.AuxNamespaceSegment, objectstore.AltContentName, objectstore.AltFatMetaName:
		return true
	}
	if !strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, objectstore.AuxNamespaceSegment) ||
		strings.HasSuffix(name, objectstore.AltContentName) ||
		strings.HasSuffix(name, objectstore.AltFatMetaName)
}

// contentTypeIRI maps an IANA media type to an RFC 6570-style IRI used as
// a synthesized rdf:type It is best-effort: unknown or
// empty content types simply contribute no extra rdf:type triple.
func contentTypeIRI(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	return "https://www.iana.org/assignments/media-types/" + path.Clean(mt)
}
