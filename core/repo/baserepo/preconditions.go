package baserepo

import (
	"strings"
	"time"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/repo"
)

// EvaluatePreconditions implements RFC 9110 §13.2's precedence: If-Match,
// then If-Unmodified-Since, then If-None-Match, then If-Modified-Since
// (only when If-None-Match is absent). It takes no request method, so every
// header is evaluated the same way for safe and unsafe methods. ETag comparisons are weak and base-normalized so a
// content-negotiated variant's derived ETag still matches its base
// representation's validators.
//
// The HTTP marshaller is the single place a Kind is mapped to a status
// code: baserepo always returns PreconditionsNotSatisfied, and it is the
// Storage Service that turns a safe-method instance into 304 rather than 412.
func EvaluatePreconditions(pre repo.Preconditions, validators model.Validators) error {
	base := model.BaseETag(validators.ETag)

	if len(pre.IfMatch) > 0 {
		if !matchesAny(pre.IfMatch, base) {
			return kinds.New(kinds.PreconditionsNotSatisfied, "If-Match did not match current ETag").
				WithExtension("evaluated_validators", validators)
		}
	}
	if pre.IfUnmodifiedSince != nil {
		lm := time.Unix(validators.LastModified, 0)
		if lm.After(*pre.IfUnmodifiedSince) {
			return kinds.New(kinds.PreconditionsNotSatisfied, "If-Unmodified-Since failed").
				WithExtension("evaluated_validators", validators)
		}
	}
	if len(pre.IfNoneMatch) > 0 {
		if matchesAny(pre.IfNoneMatch, base) {
			return kinds.New(kinds.PreconditionsNotSatisfied, "If-None-Match matched current ETag").
				WithExtension("evaluated_validators", validators)
		}
	} else if pre.IfModifiedSince != nil {
		lm := time.Unix(validators.LastModified, 0)
		if !lm.After(*pre.IfModifiedSince) {
			return kinds.New(kinds.PreconditionsNotSatisfied, "If-Modified-Since failed").
				WithExtension("evaluated_validators", validators)
		}
	}
	return nil
}

func matchesAny(candidates []string, base string) bool {
	for _, c := range candidates {
		if c == "*" {
			return true
		}
		if model.BaseETag(stripWeak(c)) == base {
			return true
		}
	}
	return false
}

func stripWeak(etag string) string {
	return strings.TrimPrefix(etag, "W/")
}
