// Package s3backend implements the object store Backend on top of AWS S3
// using aws-sdk-go-v2.
package s3backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/relabs-tech/solidstore/core/logger"
	"github.com/relabs-tech/solidstore/core/objectstore"
)

// Configuration configures the S3 backend.
type Configuration struct {
	Bucket    string
	KeyPrefix string
	Region    string
	AccessID  string
	AccessKey string
}

// Backend stores every object as an S3 key under bucket/keyPrefix. S3 has no
// real namespace objects: containers are represented purely by key prefixes,
// so HasIndependentDirObjects is false and CreateDir is a no-op.
type Backend struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
}

// New dials AWS using the given configuration.
func New(ctx context.Context, cfg Configuration) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3backend: Bucket must not be empty")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessID, cfg.AccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg)
	return &Backend{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (b *Backend) key(path string) string {
	return b.keyPrefix + strings.TrimPrefix(path, "/")
}

func (b *Backend) Capabilities() objectstore.Capabilities {
	return objectstore.Capabilities{
		Stat:                              true,
		Read:                              true,
		Write:                             true,
		List:                              true,
		CreateDir:                         false,
		SupportsNativeContentTypeMetadata: true,
		HasIndependentDirObjects:          false,
	}
}

func (b *Backend) Stat(ctx context.Context, path string) (objectstore.ObjectMeta, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return objectstore.ObjectMeta{}, err
	}
	return metaFromHead(out.ContentType, out.ContentLength, out.LastModified, out.ETag), nil
}

func (b *Backend) ReadComplete(ctx context.Context, path string) ([]byte, objectstore.ObjectMeta, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	return data, metaFromHead(out.ContentType, out.ContentLength, out.LastModified, out.ETag), nil
}

func (b *Backend) StreamComplete(ctx context.Context, path string) (io.ReadCloser, objectstore.ObjectMeta, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	return out.Body, metaFromHead(out.ContentType, out.ContentLength, out.LastModified, out.ETag), nil
}

func (b *Backend) StreamRange(ctx context.Context, path string, start, end int64) (io.ReadCloser, objectstore.ObjectMeta, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-", start)
	if end >= start {
		rangeHeader = fmt.Sprintf("bytes=%d-%d", start, end-1)
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, objectstore.ObjectMeta{}, err
	}
	return out.Body, metaFromHead(out.ContentType, out.ContentLength, out.LastModified, out.ETag), nil
}

func (b *Backend) Write(ctx context.Context, path string, data []byte, contentType string) (objectstore.ObjectMeta, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return objectstore.ObjectMeta{}, fmt.Errorf("s3backend: put object: %w", err)
	}
	return objectstore.ObjectMeta{Size: int64(len(data)), ContentType: contentType}, nil
}

func (b *Backend) WriteStreaming(ctx context.Context, path string, r io.Reader, contentType string) (objectstore.ObjectMeta, error) {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(path)),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logger.Default().WithError(err).Errorf("s3backend: streaming upload of %q failed, aborting", path)
		if abortErr := b.Abort(ctx, path); abortErr != nil {
			logger.Default().WithError(abortErr).Errorf("s3backend: abort of %q failed", path)
		}
		return objectstore.ObjectMeta{}, fmt.Errorf("s3backend: streaming upload: %w", err)
	}
	return objectstore.ObjectMeta{ContentType: contentType}, nil
}

// Abort deletes whatever partial object a failed streaming upload may have
// left behind; S3 has no native partial-object state to roll back otherwise.
func (b *Backend) Abort(ctx context.Context, path string) error {
	return b.Delete(ctx, path)
}

// CreateDir is a no-op: S3 has no true namespace objects, only key prefixes.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	return nil
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	return err
}

func (b *Backend) List(ctx context.Context, path string) (<-chan objectstore.ListedObject, <-chan error) {
	items := make(chan objectstore.ListedObject)
	errs := make(chan error, 1)

	prefix := b.key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	go func() {
		defer close(items)
		defer close(errs)

		var token *string
		for {
			out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
				Bucket:            aws.String(b.bucket),
				Prefix:            aws.String(prefix),
				Delimiter:         aws.String("/"),
				ContinuationToken: token,
			})
			if err != nil {
				errs <- err
				return
			}
			for _, p := range out.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/")
				select {
				case items <- objectstore.ListedObject{Name: name, Kind: objectstore.NamespaceObject}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			for _, obj := range out.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
				select {
				case items <- objectstore.ListedObject{
					Name: name,
					Kind: objectstore.FileObject,
					Meta: objectstore.ObjectMeta{Size: aws.ToInt64(obj.Size)},
				}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			if out.NextContinuationToken == nil {
				return
			}
			token = out.NextContinuationToken
		}
	}()

	return items, errs
}

func metaFromHead(contentType *string, length *int64, lastModified *time.Time, etag *string) objectstore.ObjectMeta {
	meta := objectstore.ObjectMeta{
		ContentType: aws.ToString(contentType),
		Size:        aws.ToInt64(length),
		ETag:        strings.Trim(aws.ToString(etag), `"`),
	}
	if lastModified != nil {
		meta.LastModified = *lastModified
	}
	return meta
}
