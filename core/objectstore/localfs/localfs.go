// Package localfs implements the object store Backend on top of the local
// filesystem.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/objectstore"
)

// Backend stores every object as a plain file (file objects) or directory
// (namespace objects) rooted at baseFolder. It has no native content-type
// storage, so callers must keep content-type in an AltFatMeta sidecar.
type Backend struct {
	baseFolder string
}

// New returns a Backend rooted at baseFolder. baseFolder must already exist.
func New(baseFolder string) (*Backend, error) {
	info, err := os.Stat(baseFolder)
	if err != nil {
		return nil, fmt.Errorf("localfs: base folder %q: %w", baseFolder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("localfs: base folder %q is not a directory", baseFolder)
	}
	return &Backend{baseFolder: baseFolder}, nil
}

func (b *Backend) Capabilities() objectstore.Capabilities {
	return objectstore.Capabilities{
		Stat:                              true,
		Read:                              true,
		Write:                             true,
		List:                              true,
		CreateDir:                         true,
		SupportsNativeContentTypeMetadata: false,
		HasIndependentDirObjects:          true,
	}
}

func (b *Backend) resolve(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("localfs: %q must not contain '..'", path)
	}
	return filepath.Join(b.baseFolder, filepath.FromSlash(path)), nil
}

func (b *Backend) Stat(ctx context.Context, path string) (objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	return objectstore.ObjectMeta{Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (b *Backend) ReadComplete(ctx context.Context, path string) ([]byte, objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	return data, objectstore.ObjectMeta{Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (b *Backend) StreamComplete(ctx context.Context, path string) (io.ReadCloser, objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, objectstore.ObjectMeta{}, err
	}
	return f, objectstore.ObjectMeta{Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (b *Backend) StreamRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, objectstore.ObjectMeta{}, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		f.Close()
		return nil, objectstore.ObjectMeta{}, err
	}
	var r io.Reader = f
	if end >= start {
		r = io.LimitReader(f, end-start)
	}
	return struct {
		io.Reader
		io.Closer
	}{r, f}, objectstore.ObjectMeta{Size: info.Size(), LastModified: info.ModTime()}, nil
}

func (b *Backend) Write(ctx context.Context, path string, data []byte, contentType string) (objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return objectstore.ObjectMeta{}, err
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return objectstore.ObjectMeta{}, err
	}
	return objectstore.ObjectMeta{Size: int64(len(data)), LastModified: time.Now()}, nil
}

func (b *Backend) WriteStreaming(ctx context.Context, path string, r io.Reader, contentType string) (objectstore.ObjectMeta, error) {
	full, err := b.resolve(path)
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return objectstore.ObjectMeta{}, err
	}
	dst, err := os.Create(full)
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	n, err := io.Copy(dst, r)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		logger.Default().WithError(err).Errorf("localfs: streaming write to %q failed, aborting", path)
		if abortErr := b.Abort(ctx, path); abortErr != nil {
			logger.Default().WithError(abortErr).Errorf("localfs: abort of %q failed", path)
		}
		if err != nil {
			return objectstore.ObjectMeta{}, err
		}
		return objectstore.ObjectMeta{}, closeErr
	}
	return objectstore.ObjectMeta{Size: n, LastModified: time.Now()}, nil
}

func (b *Backend) Abort(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *Backend) CreateDir(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o700)
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

func (b *Backend) List(ctx context.Context, path string) (<-chan objectstore.ListedObject, <-chan error) {
	items := make(chan objectstore.ListedObject)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		full, err := b.resolve(path)
		if err != nil {
			errs <- err
			return
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			errs <- err
			return
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				errs <- err
				return
			}
			kind := objectstore.FileObject
			if e.IsDir() {
				kind = objectstore.NamespaceObject
			}
			select {
			case items <- objectstore.ListedObject{
				Name: e.Name(),
				Kind: kind,
				Meta: objectstore.ObjectMeta{Size: info.Size(), LastModified: info.ModTime()},
			}:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return items, errs
}
