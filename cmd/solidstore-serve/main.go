// Command solidstore-serve is the example composition root: it wires the
// storage core to a minimal HTTP front end, the way
// examples/basic/basic.go wires the teacher's backend.Builder to a
// gorilla/mux router. Everything in this file is explicitly out of core
// scope (spec.md §1): method routing, header parsing, and response
// marshalling are collaborators the core only ever talks to through the
// core/repo and core/storage contracts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/solidstore/core/access"
	"github.com/relabs-tech/solidstore/core/config"
	"github.com/relabs-tech/solidstore/core/initializer"
	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/objectstore/localfs"
	"github.com/relabs-tech/solidstore/core/objectstore/s3backend"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
	"github.com/relabs-tech/solidstore/core/repo/accesscontrolled"
	"github.com/relabs-tech/solidstore/core/repo/baserepo"
	"github.com/relabs-tech/solidstore/core/repo/contentneg"
	"github.com/relabs-tech/solidstore/core/repo/patching"
	"github.com/relabs-tech/solidstore/core/repo/validating"
	"github.com/relabs-tech/solidstore/core/slotpath"
	"github.com/relabs-tech/solidstore/core/storage"
	"github.com/relabs-tech/solidstore/core/storage/notify"
)

func main() {
	cfg, err := config.Decode()
	if err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.InitLogger(level)
	log := logger.Default()

	backend, err := newBackend(*cfg)
	if err != nil {
		log.WithError(err).Fatal("configuring object store backend")
	}

	root, err := model.NormalizeURI(cfg.StorageRoot)
	if err != nil {
		log.WithError(err).Fatal("normalizing STORAGE_ROOT")
	}
	space := model.StorageSpace{Root: root, OwnerWebID: cfg.OwnerWebID, AuxPolicy: model.DefaultAuxPolicy()}
	if err := space.Validate(); err != nil {
		log.WithError(err).Fatal("invalid storage space")
	}

	reg := rdf.DefaultRegistry()
	scheme := slotpath.Hierarchical{}
	pathCodec := objectstore.DefaultScheme{}

	base, err := baserepo.New(backend, space, scheme, pathCodec, reg)
	if err != nil {
		log.WithError(err).Fatal("constructing base repo")
	}
	negotiated := contentneg.New(base, reg, "text/turtle")
	validated := validating.New(negotiated, reg)
	patched := patching.New(validated, reg)
	pep := accesscontrolled.PEP{
		PDP: accesscontrolled.WebIDOwnerPDP{OwnerWebID: space.OwnerWebID},
		PRP: accesscontrolled.NullPRP{},
	}
	controlled := accesscontrolled.New(patched, pep)

	svc := storage.New(controlled, space, reg)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		svc.WithNotify(notify.New(strings.Split(brokers, ","), "solidstore.resource-changed"))
	}

	auxTokens, err := objectstore.NewAuxTokenRegistry(space.AuxPolicy)
	if err != nil {
		log.WithError(err).Fatal("building aux token registry")
	}
	init := initializer.New(backend, scheme, pathCodec, auxTokens, space, controlled, defaultRootACR)
	wrote, err := init.Initialize(context.Background())
	if err != nil {
		log.WithError(err).Fatal("initializing storage space")
	}
	log.WithField("wrote", wrote).Info("storage space bring-up complete")

	backdoor := backdoorFromConfig(*cfg)

	router := mux.NewRouter()
	router.UseEncodedPath()
	logger.AddRequestID(router)
	front := &frontEnd{svc: svc, space: space, backdoor: backdoor}
	router.PathPrefix("/").Handler(front)

	handler := handlers.CompressHandler(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Accept", "If-Match", "If-None-Match", "If-Modified-Since", "If-Unmodified-Since", "Slug", "Prefer"}),
	)(handlers.RecoveryHandler()(router)))

	addr := ":" + strconv.Itoa(cfg.Port)
	log.WithField("addr", addr).Info("solidstore-serve listening")
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.WithError(err).Fatal("http server stopped")
	}
}

func newBackend(cfg config.Config) (objectstore.Backend, error) {
	switch cfg.Backend {
	case "", "localfs":
		if cfg.LocalFSBaseDir == "" {
			return nil, fmt.Errorf("LOCALFS_BASE_DIR is required for the localfs backend")
		}
		return localfs.New(cfg.LocalFSBaseDir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
		return s3backend.New(context.Background(), s3backend.Configuration{
			Bucket:    cfg.S3Bucket,
			KeyPrefix: cfg.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown BACKEND %q (want localfs or s3)", cfg.Backend)
	}
}

// defaultRootACR synthesizes a trivial initial root ACL granting the owner
// full control, installed by the Repo Initializer the first time a storage
// space comes up with no root ACL yet.
func defaultRootACR(space model.StorageSpace) model.Representation {
	body := fmt.Sprintf(`@prefix acl: <http://www.w3.org/ns/auth/acl#> .
<#owner>
	a acl:Authorization ;
	acl:agent <%s> ;
	acl:accessTo <%s> ;
	acl:mode acl:Read, acl:Write, acl:Control .
`, space.OwnerWebID, space.Root)
	return model.NewBufferRepresentation("text/turtle", []byte(body))
}

type backdoorTokenEntry struct {
	WebID string   `json:"webid"`
	Roles []string `json:"roles,omitempty"`
}

func backdoorFromConfig(cfg config.Config) access.Backdoor {
	backdoor := access.Backdoor{}
	if secret := os.Getenv("BACKDOOR_JWT_SECRET"); secret != "" {
		signer := access.NewFixtureSigner([]byte(secret))
		backdoor.Signer = &signer
	}
	if cfg.BackdoorTokensJSON == "" {
		return backdoor
	}
	var raw map[string]backdoorTokenEntry
	if err := json.Unmarshal([]byte(cfg.BackdoorTokensJSON), &raw); err != nil {
		logger.Default().WithError(err).Error("parsing BACKDOOR_TOKENS_JSON, ignoring")
		return backdoor
	}
	tokens := make(map[string]access.Credentials, len(raw))
	for token, entry := range raw {
		tokens[token] = access.Credentials{WebID: entry.WebID, Roles: entry.Roles}
	}
	backdoor.Tokens = tokens
	return backdoor
}

// frontEnd reconstructs a core request from an *http.Request and dispatches
// it to the Storage Service, translating its result (or classified error)
// back into an HTTP response. This is the "HTTP front end" spec.md treats
// as an external collaborator: everything below the call into svc is core.
type frontEnd struct {
	svc      *storage.Service
	space    model.StorageSpace
	backdoor access.Backdoor
}

func (f *frontEnd) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := access.ContextWithCredentials(r.Context(), f.backdoor.CredentialsForRequest(r))
	uri := targetURI(r)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{"method": r.Method, "uri": uri})

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		f.handleRead(ctx, w, r, uri)
	case http.MethodPut:
		f.handlePut(ctx, w, r, uri)
	case http.MethodPost:
		f.handlePost(ctx, w, r, uri)
	case http.MethodPatch:
		f.handlePatch(ctx, w, r, uri)
	case http.MethodDelete:
		f.handleDelete(ctx, w, r, uri)
	case http.MethodOptions:
		f.handleOptions(ctx, w, uri)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
	log.Debug("request handled")
}

// targetURI reconstructs the absolute request URI from Host,
// X-Forwarded-Host and X-Forwarded-Proto (the Forwarded header is not
// read); without X-Forwarded-Proto the scheme is https for a TLS
// connection and http otherwise.
func targetURI(r *http.Request) model.ResourceURI {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	raw := scheme + "://" + host + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		raw += "?" + r.URL.RawQuery
	}
	uri, err := model.NormalizeURI(raw)
	if err != nil {
		return model.ResourceURI(raw)
	}
	return uri
}

func parsePreconditions(r *http.Request) repo.Preconditions {
	var pre repo.Preconditions
	if v := r.Header.Get("If-Match"); v != "" {
		pre.IfMatch = splitCommaList(v)
	}
	if v := r.Header.Get("If-None-Match"); v != "" {
		pre.IfNoneMatch = splitCommaList(v)
	}
	if v := r.Header.Get("If-Modified-Since"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			pre.IfModifiedSince = &t
		}
	}
	if v := r.Header.Get("If-Unmodified-Since"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			pre.IfUnmodifiedSince = &t
		}
	}
	pre.IfRange = r.Header.Get("If-Range")
	return pre
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func parsePreferences(r *http.Request) repo.Preferences {
	prefs := repo.Preferences{}
	if accept := r.Header.Get("Accept"); accept != "" {
		for _, part := range strings.Split(accept, ",") {
			ct := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
			if ct != "" && ct != "*/*" {
				prefs.AcceptSyntaxes = append(prefs.AcceptSyntaxes, ct)
			}
		}
	}
	if prefer := r.Header.Get("Prefer"); strings.Contains(prefer, "include=\"http://www.w3.org/ns/solid/terms#PreferUserManagedPermissions\"") ||
		strings.Contains(prefer, "representation=source") {
		prefs.PreferUserRepresentation = true
	}
	return prefs
}

func (f *frontEnd) handleRead(ctx context.Context, w http.ResponseWriter, r *http.Request, uri model.ResourceURI) {
	rep, target, err := f.svc.Read(ctx, uri, parsePreferences(r), parsePreconditions(r))
	if err != nil {
		f.writeError(w, err, r.Method == http.MethodGet || r.Method == http.MethodHead)
		return
	}
	writeRepresentation(w, rep)
	f.writeMethodHeaders(w, uri, target.Inner)
	if r.Method == http.MethodHead {
		return
	}
	buf, err := rep.Buffered()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(buf)
}

func (f *frontEnd) handlePut(ctx context.Context, w http.ResponseWriter, r *http.Request, uri model.ResourceURI) {
	body, err := readBody(r, validating.MaxRepresentationSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	rep := model.NewBufferRepresentation(contentTypeOf(r), body)
	pre := parsePreconditions(r)

	exists, err := f.svc.Exists(ctx, uri)
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	if exists {
		_, err := f.svc.Update(ctx, uri, repo.UpdateAction{SetWith: &rep}, pre)
		if err != nil {
			f.writeError(w, err, false)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	hostURI, err := parentContainer(uri)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	_, loc, err := f.svc.Create(ctx, hostURI, uri, uri.Kind(), model.ContainsRelation(), repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	w.Header().Set("Location", string(loc))
	w.WriteHeader(http.StatusCreated)
}

func (f *frontEnd) handlePost(ctx context.Context, w http.ResponseWriter, r *http.Request, hostURI model.ResourceURI) {
	if hostURI.Kind() != model.Container {
		http.Error(w, "POST is only allowed on containers", http.StatusMethodNotAllowed)
		return
	}
	body, err := readBody(r, validating.MaxRepresentationSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	slug := r.Header.Get("Slug")
	if slug == "" {
		slug = fmt.Sprintf("res-%d", time.Now().UnixNano())
	}
	slug = strings.Trim(slug, "/")
	kind := model.NonContainer
	if strings.HasSuffix(r.Header.Get("Link"), `rel="type"`) && strings.Contains(r.Header.Get("Link"), "BasicContainer") {
		kind = model.Container
		slug += "/"
	}
	targetURI := model.ResourceURI(string(hostURI) + slug)

	rep := model.NewBufferRepresentation(contentTypeOf(r), body)
	_, loc, err := f.svc.Create(ctx, hostURI, targetURI, kind, model.ContainsRelation(), repo.UpdateAction{SetWith: &rep}, repo.Preconditions{})
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	w.Header().Set("Location", string(loc))
	w.WriteHeader(http.StatusCreated)
}

func (f *frontEnd) handlePatch(ctx context.Context, w http.ResponseWriter, r *http.Request, uri model.ResourceURI) {
	body, err := readBody(r, patching.MaxPatchBodySize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if ct := contentTypeOf(r); ct != "text/n3" && ct != "" {
		http.Error(w, "PATCH only supports Content-Type: text/n3", http.StatusUnsupportedMediaType)
		return
	}
	patch, err := patching.ParseN3Patch(body, string(uri))
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	_, err = f.svc.Update(ctx, uri, repo.UpdateAction{PatchWith: patch}, parsePreconditions(r))
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *frontEnd) handleDelete(ctx context.Context, w http.ResponseWriter, r *http.Request, uri model.ResourceURI) {
	if err := f.svc.Delete(ctx, uri, parsePreconditions(r)); err != nil {
		f.writeError(w, err, false)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *frontEnd) handleOptions(ctx context.Context, w http.ResponseWriter, uri model.ResourceURI) {
	target, err := f.svc.Repo.ResolveStatus(ctx, uri)
	if err != nil {
		f.writeError(w, err, false)
		return
	}
	f.writeMethodHeaders(w, uri, target.Inner)
	w.WriteHeader(http.StatusNoContent)
}

func (f *frontEnd) writeMethodHeaders(w http.ResponseWriter, uri model.ResourceURI, target model.StatusToken) {
	allowed := f.svc.MethodPolicy.Resolve(uri, target, f.space)
	w.Header().Set("Allow", strings.Join(allowed.Allow, ", "))
	if len(allowed.AcceptPost) > 0 {
		w.Header().Set("Accept-Post", strings.Join(allowed.AcceptPost, ", "))
	}
	if len(allowed.AcceptPut) > 0 {
		w.Header().Set("Accept-Put", strings.Join(allowed.AcceptPut, ", "))
	}
	if len(allowed.AcceptPatch) > 0 {
		w.Header().Set("Accept-Patch", strings.Join(allowed.AcceptPatch, ", "))
	}
}

func writeRepresentation(w http.ResponseWriter, rep model.Representation) {
	if rep.Metadata.ContentType != "" {
		w.Header().Set("Content-Type", rep.Metadata.ContentType)
	}
	if rep.Metadata.ETag != "" {
		w.Header().Set("ETag", rep.Metadata.ETag)
	}
	if rep.Metadata.LastModified != 0 {
		w.Header().Set("Last-Modified", time.Unix(rep.Metadata.LastModified, 0).UTC().Format(http.TimeFormat))
	}
	if rep.Metadata.CompleteContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rep.Metadata.CompleteContentLength, 10))
	}
}

// writeError maps a classified core error to an HTTP status, the single
// place (per spec §7) a Kind becomes a status code.
func (f *frontEnd) writeError(w http.ResponseWriter, err error, safeMethod bool) {
	if outcome, ok := storage.ClassifyPreconditionFailure(err, safeMethod); ok {
		if outcome == storage.OutcomeNotModified {
			w.WriteHeader(http.StatusNotModified)
		} else {
			w.WriteHeader(http.StatusPreconditionFailed)
		}
		return
	}

	kind, isCore := kinds.KindOf(err)
	if !isCore {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status, ok := statusForKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

var statusForKind = map[kinds.Kind]int{
	kinds.AccessDenied:                          http.StatusForbidden,
	kinds.PreconditionsNotSatisfied:              http.StatusPreconditionFailed,
	kinds.InvalidExistingRepresentationState:     http.StatusInternalServerError,
	kinds.InvalidRdfSourceRepresentation:         http.StatusBadRequest,
	kinds.InvalidUserSuppliedContainmentTriples:  http.StatusConflict,
	kinds.InvalidUserSuppliedContainedResMeta:    http.StatusConflict,
	kinds.PayloadTooLarge:                        http.StatusRequestEntityTooLarge,
	kinds.PatchSemanticsError:                    http.StatusConflict,
	kinds.DeleteTargetsNonEmptyContainer:         http.StatusConflict,
	kinds.DeleteTargetsStorageRoot:               http.StatusMethodNotAllowed,
	kinds.UnsupportedOperation:                   http.StatusMethodNotAllowed,
	kinds.UnknownIoError:                         http.StatusInternalServerError,
	kinds.UnknownTargetResource:                  http.StatusNotFound,
	kinds.InvalidStorageRootURI:                  http.StatusInternalServerError,
}

func contentTypeOf(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
}

func readBody(r *http.Request, max int64) ([]byte, error) {
	defer r.Body.Close()
	limited := io.LimitReader(r.Body, max+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > max {
		return nil, fmt.Errorf("request body exceeds %d bytes", max)
	}
	return buf, nil
}

// parentContainer returns the container URI that would host a newly
// created resource at uri: uri's path with its last segment removed.
func parentContainer(uri model.ResourceURI) (model.ResourceURI, error) {
	s := string(uri)
	body := strings.TrimSuffix(s, "/")
	idx := strings.LastIndexByte(body, '/')
	if idx < 0 {
		return "", fmt.Errorf("cannot determine parent container of %q", uri)
	}
	return model.ResourceURI(body[:idx+1]), nil
}
