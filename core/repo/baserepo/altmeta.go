package baserepo

import (
	"context"

	"github.com/goccy/go-json"
)

// altFatMeta is the wire format of the AltFatMeta sidecar: a JSON
// object with at least a content-type; other fields reserved for future use.
type altFatMeta struct {
	ContentType string `json:"content_type"`
}

// readAltFatMeta returns the content-type recorded in path's AltFatMeta
// sidecar, or "" if it does not exist or cannot be parsed (a missing or
// corrupt AltFatMeta is recoverable: metadata-before-content ordering means
// the content file's own existence is the source of truth for whether the
// resource exists at all.
func (r *Repo) readAltFatMeta(ctx context.Context, path string) string {
	data, _, err := r.Backend.ReadComplete(ctx, path)
	if err != nil {
		return ""
	}
	var m altFatMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return ""
	}
	return m.ContentType
}

// writeAltFatMeta writes path's AltFatMeta sidecar. It must be written
// before the content object, so that a crash between the two leaves either
// "no content yet" (resource still non-existing) or "stale fat-meta, but
// content now exists with its real type re-derived on next write" — never
// a torn, partially-written content object that's mistaken for represented.
func (r *Repo) writeAltFatMeta(ctx context.Context, path, contentType string) error {
	data, err := json.Marshal(altFatMeta{ContentType: contentType})
	if err != nil {
		return err
	}
	_, err = r.Backend.Write(ctx, path, data, "application/json")
	return err
}

// needsAltFatMeta decides whether a resource write needs an AltFatMeta
// sidecar: the backend cannot store content-type natively, or one already
// exists, for consistency.
func (r *Repo) needsAltFatMeta(ctx context.Context, altFatMetaPath string) bool {
	if !r.Backend.Capabilities().SupportsNativeContentTypeMetadata {
		return true
	}
	if _, err := r.Backend.Stat(ctx, altFatMetaPath); err == nil {
		return true
	}
	return false
}
