package model

import (
	"net/url"
	"strings"
)

// ResourceURI is a normalized absolute HTTP(S) URI identifying a resource in a
// storage space. Containers end in "/"; non-containers do not.
type ResourceURI string

// NormalizeURI lowercases scheme and host, removes the default port,
// decodes percent-encoded unreserved characters, and re-encodes
// the rest with uppercase hex digits. It does not change the trailing
// slash, which is load-bearing for Kind.
func NormalizeURI(raw string) (ResourceURI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = stripDefaultPort(u.Scheme, host)
	u.Host = host

	escaped := normalizePercentEncoding(u.EscapedPath())
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", err
	}
	u.Path, u.RawPath = path, escaped

	return ResourceURI(u.String()), nil
}

func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

// normalizePercentEncoding walks a path decoding %XX sequences that are safe
// (unreserved characters per RFC 3986 §2.3) and re-encoding the remainder with
// uppercase hex digits, so that equivalent URIs compare byte-equal.
func normalizePercentEncoding(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '%' && i+2 < len(path) && isHex(path[i+1]) && isHex(path[i+2]) {
			decoded := hexVal(path[i+1])<<4 | hexVal(path[i+2])
			if isUnreserved(byte(decoded)) {
				b.WriteByte(byte(decoded))
			} else {
				b.WriteByte('%')
				b.WriteByte(toUpperHex(path[i+1]))
				b.WriteByte(toUpperHex(path[i+2]))
			}
			i += 2
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func toUpperHex(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// IsContainer reports whether the normalized URI denotes a container.
func (u ResourceURI) IsContainer() bool {
	return strings.HasSuffix(string(u), "/")
}

// Kind returns the ResourceKind implied by the URI's trailing slash.
func (u ResourceURI) Kind() ResourceKind {
	if u.IsContainer() {
		return Container
	}
	return NonContainer
}

// Mutex returns the URI with its trailing slash toggled: the "same name,
// opposite kind" resource that blocks creation of u if it exists.
//
// Mutex is involutive: u.Mutex().Mutex() == u.
func (u ResourceURI) Mutex() ResourceURI {
	s := string(u)
	if strings.HasSuffix(s, "/") {
		return ResourceURI(strings.TrimSuffix(s, "/"))
	}
	return ResourceURI(s + "/")
}

// Path returns the URI path component (with query stripped).
func (u ResourceURI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil {
		return ""
	}
	return parsed.Path
}

// Segments splits the URI path into its non-empty slash-separated segments,
// percent-decoded for comparison purposes only (not for re-encoding).
func (u ResourceURI) Segments() []string {
	p := strings.Trim(u.Path(), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
