package accesscontrolled

import (
	"context"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/repo"
)

// NullPRP is a PRP with no ancestor ACRs: every walk visits nothing. It is
// the PRP a PDP that never consults ACR graphs (such as WebIDOwnerPDP) can
// be paired with.
type NullPRP struct{}

func (NullPRP) StreamAncestors(ctx context.Context, uri model.ResourceURI, visit func(AncestorACR) bool) error {
	return nil
}

// WebIDOwnerPDP is a reference PDP sufficient for tests and small
// deployments that don't need per-resource ACR policy: the storage space's
// owner WebID may perform any operation, any credentials carrying the
// "admin" role (the admin backdoor credentials access.Admin among them)
// always succeed, and every other caller may only READ.
type WebIDOwnerPDP struct {
	OwnerWebID string
}

var _ PDP = WebIDOwnerPDP{}

func (p WebIDOwnerPDP) Decide(ctx context.Context, creds access.Credentials, target model.ResourceURI, ops []JustifiedOperation, prp PRP) (ResolvedAccessControl, error) {
	if creds.HasRole("admin") {
		return ResolvedAccessControl{Allowed: true, MatchedPolicy: "admin-backdoor", Explanation: "admin credentials are always authorized"}, nil
	}
	if p.OwnerWebID != "" && creds.WebID == p.OwnerWebID {
		return ResolvedAccessControl{Allowed: true, MatchedPolicy: "owner", Explanation: "caller is the storage space owner"}, nil
	}
	for _, op := range ops {
		if op.Op != repo.OpRead {
			return ResolvedAccessControl{
				Allowed:       false,
				MatchedPolicy: "owner-only-write",
				Explanation:   "only the storage space owner may perform " + string(op.Op) + " on " + string(target),
			}, nil
		}
	}
	return ResolvedAccessControl{Allowed: true, MatchedPolicy: "public-read", Explanation: "non-owner callers may read"}, nil
}
