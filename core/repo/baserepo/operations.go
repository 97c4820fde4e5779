package baserepo

import (
	"context"

	"github.com/relabs-tech/solidstore/core/kinds"
	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/objectstore"
	"github.com/relabs-tech/solidstore/core/rdf"
	"github.com/relabs-tech/solidstore/core/repo"
)

// Read evaluates preconditions against the target's validators, then
// streams either the synthesized container index, the AltContent override,
// or the base file object.
func (r *Repo) Read(ctx context.Context, target model.StatusToken, prefs repo.Preferences, pre repo.Preconditions) (model.Representation, error) {
	if target.Kind != model.ExistingRepresented {
		return model.Representation{}, kinds.New(kinds.UnknownTargetResource, "Read requires an ExistingRepresented token for %q", target.DecodedTarget)
	}
	if err := EvaluatePreconditions(pre, target.Validators); err != nil {
		return model.Representation{}, err
	}

	slot := *target.Slot
	path, err := r.Scheme.Decode(r.Space, slot.URI)
	if err != nil {
		return model.Representation{}, kinds.Wrap(kinds.UnknownTargetResource, err, "re-decoding %q", slot.URI)
	}
	paths, err := r.paths(path)
	if err != nil {
		return model.Representation{}, kinds.Wrap(kinds.UnknownIoError, err, "deriving associated paths for %q", slot.URI)
	}

	if slot.Kind == model.Container {
		return r.readContainer(ctx, slot, paths, prefs, target.Validators)
	}
	return r.readNonContainer(ctx, slot, paths, prefs, target.Validators)
}

func (r *Repo) readContainer(ctx context.Context, slot model.Slot, paths objectstore.AssociatedPaths, prefs repo.Preferences, validators model.Validators) (model.Representation, error) {
	if prefs.PreferUserRepresentation {
		if meta, err := r.Backend.Stat(ctx, paths.AltContent); err == nil {
			data, _, err := r.Backend.ReadComplete(ctx, paths.AltContent)
			if err != nil {
				return model.Representation{}, kinds.Wrap(kinds.UnknownIoError, err, "reading AltContent for %q", slot.URI)
			}
			contentType := r.resolveContentType(ctx, meta, paths.AltFatMeta, "text/turtle")
			return model.Representation{
				Data: model.BufferData{Bytes: data},
				Metadata: model.Metadata{
					ContentType:           contentType,
					CompleteContentLength: int64(len(data)),
					LastModified:          validators.LastModified,
					ETag:                  validators.ETag,
					BaseURI:               slot.URI,
				},
				BaseURI: slot.URI,
			}, nil
		}
	}

	ds, err := r.synthesizeContainerIndex(ctx, slot.URI, paths.Base)
	if err != nil {
		return model.Representation{}, kinds.Wrap(kinds.UnknownIoError, err, "synthesizing container index for %q", slot.URI)
	}
	return model.Representation{
		Data: model.QuadsData{Dataset: ds},
		Metadata: model.Metadata{
			ContentType:  "text/turtle",
			LastModified: validators.LastModified,
			ETag:         validators.ETag,
			BaseURI:      slot.URI,
		},
		BaseURI: slot.URI,
	}, nil
}

func (r *Repo) readNonContainer(ctx context.Context, slot model.Slot, paths objectstore.AssociatedPaths, prefs repo.Preferences, validators model.Validators) (model.Representation, error) {
	contentType := r.resolveContentType(ctx, objectstore.ObjectMeta{}, paths.AltFatMeta, "application/octet-stream")

	if prefs.Range != nil {
		// ContentRange.End is inclusive; StreamRange takes an exclusive end.
		end := prefs.Range.End
		if end >= 0 {
			end++
		}
		stream, meta, err := r.Backend.StreamRange(ctx, paths.Base, prefs.Range.Start, end)
		if err != nil {
			return model.Representation{}, kinds.Wrap(kinds.UnknownIoError, err, "streaming range of %q", slot.URI)
		}
		if meta.ContentType != "" {
			contentType = meta.ContentType
		}
		return model.Representation{
			Data: model.StreamData{Reader: stream},
			Metadata: model.Metadata{
				ContentType:  contentType,
				ContentRange: prefs.Range,
				LastModified: validators.LastModified,
				ETag:         validators.ETag,
				BaseURI:      slot.URI,
			},
			BaseURI: slot.URI,
		}, nil
	}

	stream, meta, err := r.Backend.StreamComplete(ctx, paths.Base)
	if err != nil {
		return model.Representation{}, kinds.Wrap(kinds.UnknownIoError, err, "streaming %q", slot.URI)
	}
	if meta.ContentType != "" {
		contentType = meta.ContentType
	}
	return model.Representation{
		Data: model.StreamData{Reader: stream},
		Metadata: model.Metadata{
			ContentType:           contentType,
			CompleteContentLength: meta.Size,
			LastModified:          validators.LastModified,
			ETag:                  validators.ETag,
			BaseURI:               slot.URI,
		},
		BaseURI: slot.URI,
	}, nil
}

// resolveContentType derives a representation's content type: from the
// backend natively when it advertises that capability, else from the
// AltFatMeta sidecar, else fallback.
func (r *Repo) resolveContentType(ctx context.Context, meta objectstore.ObjectMeta, altFatMetaPath, fallback string) string {
	if r.Backend.Capabilities().SupportsNativeContentTypeMetadata && meta.ContentType != "" {
		return meta.ContentType
	}
	if ct := r.readAltFatMeta(ctx, altFatMetaPath); ct != "" {
		return ct
	}
	return fallback
}

// Create adds a new resource under an already-resolved host. Callers (the
// Storage Service) must hold the host's exclusive lock around this call;
// Create re-checks target conflict-freedom just before writing, but does
// not lock anything itself.
func (r *Repo) Create(ctx context.Context, tokens repo.CreateTokenSet[model.StatusToken], kind model.ResourceKind, rel model.SlotRelationType, action repo.UpdateAction, hostPre repo.Preconditions) (model.StatusToken, model.ResourceURI, error) {
	if !tokens.Target.IsConflictFree() {
		return model.StatusToken{}, "", kinds.New(kinds.PreconditionsNotSatisfied, "target %q is not conflict-free", tokens.Target.DecodedTarget)
	}
	if tokens.Host.Kind != model.ExistingRepresented {
		return model.StatusToken{}, "", kinds.New(kinds.UnknownTargetResource, "host %q is not represented", tokens.Host.DecodedTarget)
	}
	if err := EvaluatePreconditions(hostPre, tokens.Host.Validators); err != nil {
		return model.StatusToken{}, "", err
	}

	targetURI := tokens.Target.DecodedTarget
	if targetURI.Kind() != kind {
		return model.StatusToken{}, "", kinds.New(kinds.UnknownTargetResource, "target kind mismatch for %q", targetURI)
	}

	// Re-check conflict-freedom just before write.
	fresh, err := r.ResolveStatus(ctx, targetURI)
	if err != nil {
		return model.StatusToken{}, "", err
	}
	if !fresh.IsConflictFree() {
		return model.StatusToken{}, "", kinds.New(kinds.PreconditionsNotSatisfied, "target %q was created concurrently", targetURI)
	}

	path, err := r.Scheme.Decode(r.Space, targetURI)
	if err != nil {
		return model.StatusToken{}, "", kinds.Wrap(kinds.UnknownTargetResource, err, "decoding %q", targetURI)
	}
	paths, err := r.paths(path)
	if err != nil {
		return model.StatusToken{}, "", kinds.Wrap(kinds.UnknownIoError, err, "deriving paths for %q", targetURI)
	}

	if kind == model.Container {
		if !r.Backend.Capabilities().CreateDir {
			return model.StatusToken{}, "", kinds.New(kinds.UnsupportedOperation, "backend does not support create_dir")
		}
		if err := r.Backend.CreateDir(ctx, paths.Base); err != nil {
			return model.StatusToken{}, "", kinds.Wrap(kinds.UnknownIoError, err, "creating container %q", targetURI)
		}
		if action.SetWith != nil {
			if err := r.writeContainerRepresentation(ctx, paths, *action.SetWith); err != nil {
				return model.StatusToken{}, "", err
			}
		}
	} else {
		if action.SetWith == nil {
			return model.StatusToken{}, "", kinds.New(kinds.InvalidRdfSourceRepresentation, "create of non-container %q requires a representation", targetURI)
		}
		if err := r.writeNonContainerRepresentation(ctx, paths, *action.SetWith); err != nil {
			return model.StatusToken{}, "", err
		}
	}

	newToken, err := r.ResolveStatus(ctx, targetURI)
	if err != nil {
		return model.StatusToken{}, "", err
	}
	return newToken, targetURI, nil
}

// Update replaces an existing resource's representation. The base
// repository only accepts SetWith; the patching layer resolves PatchWith
// into a SetWith before reaching here.
func (r *Repo) Update(ctx context.Context, target model.StatusToken, action repo.UpdateAction, pre repo.Preconditions) (model.StatusToken, error) {
	if target.Kind != model.ExistingRepresented {
		return model.StatusToken{}, kinds.New(kinds.UnknownTargetResource, "Update requires an ExistingRepresented token for %q", target.DecodedTarget)
	}
	if action.IsPatch() {
		return model.StatusToken{}, kinds.New(kinds.UnsupportedOperation, "baserepo.Update only accepts SetWith; patches must be resolved by the patching layer")
	}
	if err := EvaluatePreconditions(pre, target.Validators); err != nil {
		return model.StatusToken{}, err
	}

	slot := *target.Slot
	path, err := r.Scheme.Decode(r.Space, slot.URI)
	if err != nil {
		return model.StatusToken{}, kinds.Wrap(kinds.UnknownTargetResource, err, "decoding %q", slot.URI)
	}
	paths, err := r.paths(path)
	if err != nil {
		return model.StatusToken{}, kinds.Wrap(kinds.UnknownIoError, err, "deriving paths for %q", slot.URI)
	}

	if slot.Kind == model.Container {
		if err := r.writeContainerRepresentation(ctx, paths, *action.SetWith); err != nil {
			return model.StatusToken{}, err
		}
	} else {
		if err := r.writeNonContainerRepresentation(ctx, paths, *action.SetWith); err != nil {
			return model.StatusToken{}, err
		}
	}

	return r.ResolveStatus(ctx, slot.URI)
}

func (r *Repo) writeContainerRepresentation(ctx context.Context, paths objectstore.AssociatedPaths, rep model.Representation) error {
	buf, err := rep.Buffered()
	if err != nil {
		return kinds.Wrap(kinds.InvalidRdfSourceRepresentation, err, "buffering container representation")
	}
	if r.needsAltFatMeta(ctx, paths.AltFatMeta) {
		if err := r.writeAltFatMeta(ctx, paths.AltFatMeta, rep.Metadata.ContentType); err != nil {
			return kinds.Wrap(kinds.UnknownIoError, err, "writing AltFatMeta for container")
		}
	}
	reader := model.NewReadCloser(buf)
	if _, err := r.Backend.WriteStreaming(ctx, paths.AltContent, reader, rep.Metadata.ContentType); err != nil {
		return kinds.Wrap(kinds.UnknownIoError, err, "writing AltContent")
	}
	return nil
}

func (r *Repo) writeNonContainerRepresentation(ctx context.Context, paths objectstore.AssociatedPaths, rep model.Representation) error {
	buf, err := rep.Buffered()
	if err != nil {
		return kinds.Wrap(kinds.PayloadTooLarge, err, "buffering representation")
	}
	if r.needsAltFatMeta(ctx, paths.AltFatMeta) {
		if err := r.writeAltFatMeta(ctx, paths.AltFatMeta, rep.Metadata.ContentType); err != nil {
			return kinds.Wrap(kinds.UnknownIoError, err, "writing AltFatMeta")
		}
	}
	reader := model.NewReadCloser(buf)
	if _, err := r.Backend.WriteStreaming(ctx, paths.Base, reader, rep.Metadata.ContentType); err != nil {
		return kinds.Wrap(kinds.UnknownIoError, err, "writing base object")
	}
	return nil
}

// Delete removes an existing resource, refusing non-empty containers and
// the storage root.
func (r *Repo) Delete(ctx context.Context, target model.StatusToken, pre repo.Preconditions) error {
	log := logger.FromContext(ctx)
	if target.Kind != model.ExistingRepresented {
		return kinds.New(kinds.UnknownTargetResource, "Delete requires an ExistingRepresented token for %q", target.DecodedTarget)
	}
	if err := EvaluatePreconditions(pre, target.Validators); err != nil {
		return err
	}
	slot := *target.Slot
	if slot.URI == r.Space.Root {
		return kinds.New(kinds.DeleteTargetsStorageRoot, "cannot delete storage root")
	}

	path, err := r.Scheme.Decode(r.Space, slot.URI)
	if err != nil {
		return kinds.Wrap(kinds.UnknownTargetResource, err, "decoding %q", slot.URI)
	}
	paths, err := r.paths(path)
	if err != nil {
		return kinds.Wrap(kinds.UnknownIoError, err, "deriving paths for %q", slot.URI)
	}

	if slot.Kind == model.Container {
		ds, err := r.synthesizeContainerIndex(ctx, slot.URI, paths.Base)
		if err != nil {
			return kinds.Wrap(kinds.UnknownIoError, err, "listing container before delete")
		}
		if len(containsQuads(ds, slot.URI)) > 0 {
			return kinds.New(kinds.DeleteTargetsNonEmptyContainer, "container %q is not empty", slot.URI)
		}
		if !r.Backend.Capabilities().HasIndependentDirObjects {
			if err := r.Backend.Delete(ctx, paths.Base); err != nil {
				return kinds.Wrap(kinds.UnknownIoError, err, "recursively deleting %q", slot.URI)
			}
			return nil
		}
	}

	if err := r.Backend.Delete(ctx, paths.Base); err != nil {
		return kinds.Wrap(kinds.UnknownIoError, err, "deleting base object of %q", slot.URI)
	}
	if err := r.Backend.Delete(ctx, paths.AltContent); err != nil {
		log.WithError(err).Warnf("baserepo: best-effort purge of AltContent for %q failed", slot.URI)
	}
	if err := r.Backend.Delete(ctx, paths.AltFatMeta); err != nil {
		log.WithError(err).Warnf("baserepo: best-effort purge of AltFatMeta for %q failed", slot.URI)
	}
	if err := r.Backend.Delete(ctx, paths.AuxNamespace); err != nil {
		log.WithError(err).Warnf("baserepo: best-effort purge of aux namespace for %q failed", slot.URI)
	}
	return nil
}

func containsQuads(ds *rdf.Dataset, containerURI model.ResourceURI) []rdf.Quad {
	var out []rdf.Quad
	for _, q := range ds.DefaultGraphQuads() {
		if q.Predicate.Value == ldpContains && q.Subject.Value == string(containerURI) {
			out = append(out, q)
		}
	}
	return out
}
