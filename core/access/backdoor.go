package access

import (
	"net/http"
	"strings"
)

// Backdoor is a fixed mapping from bearer token to Credentials: a
// development/test convenience that lets integration tests and local demos
// authenticate without running a real OIDC flow. It is never wired into a
// production HTTP front end unconditionally; cmd/solidstore-serve only
// enables it when explicitly configured (core/config.Config.BackdoorTokensJSON).
type Backdoor struct {
	// Tokens maps a bearer token to the Credentials it authenticates as.
	Tokens map[string]Credentials

	// Signer, if set, is tried after Tokens: a bearer token that fails the
	// fixed-map lookup is parsed as a FixtureSigner-minted JWT instead. This
	// lets integration tests exercise the same request path with either a
	// plain opaque token or a signed one.
	Signer *FixtureSigner
}

// CredentialsForRequest extracts a bearer token from the Authorization
// header or a "Solidstore-Token" cookie and resolves it through Tokens,
// falling back to Signer if set. It returns the zero (anonymous)
// Credentials if no token matches.
func (b Backdoor) CredentialsForRequest(r *http.Request) Credentials {
	token := bearerToken(r)
	if token == "" {
		return Credentials{}
	}
	if creds, ok := b.Tokens[token]; ok {
		return creds
	}
	if b.Signer != nil {
		if creds, err := b.Signer.Verify(token); err == nil {
			return creds
		}
	}
	return Credentials{}
}

func bearerToken(r *http.Request) string {
	if bearer := r.Header.Get("Authorization"); bearer != "" {
		if len(bearer) >= 7 && strings.EqualFold(bearer[:7], "bearer ") {
			return bearer[7:]
		}
		return bearer
	}
	if cookie, err := r.Cookie("Solidstore-Token"); err == nil && cookie != nil {
		return cookie.Value
	}
	return ""
}
