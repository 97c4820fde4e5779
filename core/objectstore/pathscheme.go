package objectstore

import (
	"fmt"
	"net/url"
	"strings"
)

// discriminant marks a backend path segment as "prefixed identity encoded":
// the remainder is the original, still percent-encoded URI segment, kept
// verbatim because decoding it would be unsafe (it contains an encoded
// reserved character) or would collide with the discriminant itself.
const discriminant = "=~"

// PathScheme is a pluggable bijection between normal URI path segments and
// backend object path segments. A scheme MUST round-trip every
// segment it did not have to escape, and MUST reject (or escape away) any
// segment whose decoding would collide with its own discriminant.
type PathScheme interface {
	EncodeSegment(uriSegment string) (string, error)
	DecodeSegment(backendSegment string) (string, error)
}

// DefaultScheme percent-decodes a URI segment when that decoding is safe
// (no encoded '/' or NUL, and the result doesn't start with the
// discriminant), and otherwise falls back to a prefixed identity encoding
// that keeps the segment's original percent-encoded form.
type DefaultScheme struct{}

func (DefaultScheme) EncodeSegment(uriSegment string) (string, error) {
	decoded, err := url.PathUnescape(uriSegment)
	if err != nil {
		return "", fmt.Errorf("objectstore: segment %q is not validly percent-encoded: %w", uriSegment, err)
	}
	if strings.ContainsRune(decoded, '/') || strings.ContainsRune(decoded, 0) {
		return discriminant + uriSegment, nil
	}
	if strings.HasPrefix(decoded, discriminant) {
		return discriminant + uriSegment, nil
	}
	return decoded, nil
}

func (DefaultScheme) DecodeSegment(backendSegment string) (string, error) {
	if strings.HasPrefix(backendSegment, discriminant) {
		return strings.TrimPrefix(backendSegment, discriminant), nil
	}
	return url.PathEscape(backendSegment), nil
}
