package model

import (
	"bytes"
	"fmt"
	"io"
)

// ContentRange describes a byte range of a representation, for partial GET
// responses and If-Range evaluation (the latter is intentionally not
// implemented further than "ignored" Open Questions).
type ContentRange struct {
	Start, End int64 // inclusive; End == -1 means "to the end"
}

// Metadata is the typed record of a representation's metadata fields.
// Zero values mean "unknown/unset" for that kind.
type Metadata struct {
	ContentType           string
	CompleteContentLength int64 // -1 if unknown
	ContentRange          *ContentRange
	LastModified          int64 // unix seconds, 0 if unknown
	ETag                  string
	DerivedETag           string // populated only when this representation is derived
	MD5                   string
	BaseURI               ResourceURI
}

// Data is the representation payload, one of three mutually exclusive forms.
// Conversions between forms are explicit and only fail on size limits (see
// Buffered and the patching/validating layers which need in-memory access).
type Data interface {
	isRepresentationData()
}

// StreamData is a streaming byte source, capped on demand by the reader.
type StreamData struct {
	Reader io.ReadCloser
}

func (StreamData) isRepresentationData() {}

// BufferData is an in-memory byte buffer.
type BufferData struct {
	Bytes []byte
}

func (BufferData) isRepresentationData() {}

// QuadsData is an in-memory RDF quads dataset (see core/rdf.Dataset). It is
// declared as `any` here to avoid an import cycle between core/model and
// core/rdf; callers type-assert to *rdf.Dataset.
type QuadsData struct {
	Dataset any
}

func (QuadsData) isRepresentationData() {}

// Representation is a resource's body plus its metadata, optionally relative
// to a base URI (used when parsing relative RDF references).
type Representation struct {
	Data     Data
	Metadata Metadata
	BaseURI  ResourceURI
}

// MaxBufferSize bounds how large a StreamData may be when converted to
// BufferData via Buffered; exceeding it is the only failure mode for this
// conversion
const MaxBufferSize = 64 * 1024 * 1024

// Buffered returns the representation's data as an in-memory byte slice,
// reading a StreamData fully (up to MaxBufferSize) if necessary.
func (r Representation) Buffered() ([]byte, error) {
	switch d := r.Data.(type) {
	case BufferData:
		return d.Bytes, nil
	case StreamData:
		defer d.Reader.Close()
		limited := io.LimitReader(d.Reader, MaxBufferSize+1)
		buf, err := io.ReadAll(limited)
		if err != nil {
			return nil, fmt.Errorf("reading stream data: %w", err)
		}
		if int64(len(buf)) > MaxBufferSize {
			return nil, fmt.Errorf("representation exceeds max buffer size %d", MaxBufferSize)
		}
		return buf, nil
	case QuadsData:
		return nil, fmt.Errorf("cannot buffer quads data without a syntax serializer")
	default:
		return nil, fmt.Errorf("unknown representation data kind %T", r.Data)
	}
}

// WithBuffer returns a copy of r whose Data is a BufferData wrapping buf and
// whose CompleteContentLength is updated accordingly.
func (r Representation) WithBuffer(buf []byte) Representation {
	out := r
	out.Data = BufferData{Bytes: buf}
	out.Metadata.CompleteContentLength = int64(len(buf))
	return out
}

// NewBufferRepresentation builds a Representation from an in-memory buffer.
func NewBufferRepresentation(contentType string, buf []byte) Representation {
	return Representation{
		Data: BufferData{Bytes: buf},
		Metadata: Metadata{
			ContentType:           contentType,
			CompleteContentLength: int64(len(buf)),
		},
	}
}

// NewReaderRepresentation wraps r as a StreamData-backed Representation.
func NewReaderRepresentation(contentType string, length int64, r io.ReadCloser) Representation {
	return Representation{
		Data: StreamData{Reader: r},
		Metadata: Metadata{
			ContentType:           contentType,
			CompleteContentLength: length,
		},
	}
}

// bufferReadCloser adapts a bytes.Reader to io.ReadCloser for tests and
// in-memory backends.
type bufferReadCloser struct {
	*bytes.Reader
}

func (bufferReadCloser) Close() error { return nil }

// NewReadCloser wraps an in-memory buffer as an io.ReadCloser.
func NewReadCloser(b []byte) io.ReadCloser {
	return bufferReadCloser{bytes.NewReader(b)}
}
