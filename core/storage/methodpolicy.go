package storage

import (
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/rdf"
)

// AllowedMethods is the method-related response metadata the HTTP front end
// needs to advertise for a resolved target: which methods apply, and which
// media types each write method accepts.
type AllowedMethods struct {
	Allow       []string
	AcceptPost  []string
	AcceptPut   []string
	AcceptPatch []string
}

// MethodPolicy resolves AllowedMethods for a target, per existing/
// non-existing target and resource kind. Delete is never allowed on the
// storage root or the root ACL; Post is only ever allowed on containers;
// Put/Patch are allowed for non-existing URIs too, since those methods
// create a new resource.
type MethodPolicy struct {
	Registry *rdf.Registry
}

// Resolve computes the allowed methods for uri given its resolved status
// token within space.
func (p MethodPolicy) Resolve(uri model.ResourceURI, target model.StatusToken, space model.StorageSpace) AllowedMethods {
	exists := target.Exists()
	kind := uri.Kind()

	allow := []string{"GET", "HEAD", "OPTIONS"}
	if exists {
		if !p.isUndeletable(uri, target, space) {
			allow = append(allow, "DELETE")
		}
		allow = append(allow, "PUT", "PATCH")
	} else {
		allow = append(allow, "PUT", "PATCH")
	}
	if exists && kind == model.Container {
		allow = append(allow, "POST")
	}

	out := AllowedMethods{Allow: allow}
	syntaxes := p.Registry.ContentTypes()
	if contains(allow, "POST") {
		out.AcceptPost = syntaxes
	}
	if contains(allow, "PUT") {
		out.AcceptPut = syntaxes
	}
	if contains(allow, "PATCH") {
		out.AcceptPatch = []string{"text/n3"}
	}
	return out
}

// isUndeletable reports whether uri must never accept DELETE: the storage
// root itself, or its root ACL.
func (p MethodPolicy) isUndeletable(uri model.ResourceURI, target model.StatusToken, space model.StorageSpace) bool {
	if uri == space.Root {
		return true
	}
	if target.Slot == nil || !target.Slot.IsAuxiliary() {
		return false
	}
	rel := target.Slot.RevLink.RelType
	return rel.Aux.Token == model.AuxRelACL.Token && target.Slot.RevLink.TargetURI == space.Root
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
