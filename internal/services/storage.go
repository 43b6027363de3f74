package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the subset of [minio.Client] used for uploads.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectStoreTransport uploads files straight to an S3-compatible bucket.
type ObjectStoreTransport struct {
	store   ObjectStore
	bucket  string
	region  string
	baseURL string
}

// NewObjectStoreTransport connects to the bucket described by cfg.
func NewObjectStoreTransport(cfg shared.StorageConfig) (*ObjectStoreTransport, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: storage.endpoint and storage.bucket are required", shared.ErrInvalidConfig)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: storage.access_key and storage.secret_key are required", shared.ErrMissingCredentials)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String() + "/" + cfg.Bucket
	}
	return NewObjectStoreTransportWith(client, cfg.Bucket, cfg.Region, baseURL), nil
}

// NewObjectStoreTransportWith wraps an existing store. Result references are baseURL joined with the object key.
func NewObjectStoreTransportWith(store ObjectStore, bucket, region, baseURL string) *ObjectStoreTransport {
	return &ObjectStoreTransport{
		store:   store,
		bucket:  bucket,
		region:  region,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (t *ObjectStoreTransport) EnsureBucket(ctx context.Context) error {
	exists, err := t.store.BucketExists(ctx, t.bucket)
	if err != nil {
		return storageError(err)
	}
	if exists {
		return nil
	}
	if err := t.store.MakeBucket(ctx, t.bucket, minio.MakeBucketOptions{Region: t.region}); err != nil {
		return storageError(err)
	}
	return nil
}

// Upload puts file at [ObjectKey] and returns its URL.
func (t *ObjectStoreTransport) Upload(ctx context.Context, file tasks.FileRef, meta tasks.Metadata, onProgress func(int)) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Name(), err)
	}
	defer src.Close()

	key := ObjectKey(meta, file.Name())
	opts := minio.PutObjectOptions{
		ContentType: contentType(file),
		UserMetadata: map[string]string{
			"batch-id": meta.BatchID,
			"item-id":  meta.ItemID,
		},
	}
	if onProgress != nil && file.Size() > 0 {
		opts.Progress = &progressCounter{total: file.Size(), report: onProgress}
	}

	info, err := t.store.PutObject(ctx, t.bucket, key, src, file.Size(), opts)
	if err != nil {
		return "", storageError(err)
	}
	if info.Key != "" {
		key = info.Key
	}
	return t.objectURL(key), nil
}

// ObjectKey places an upload under its kind and batch: "<kind>/<batch>/<file name>".
func ObjectKey(meta tasks.Metadata, name string) string {
	return path.Join(meta.Kind.String(), meta.BatchID, filepath.Base(name))
}

func (t *ObjectStoreTransport) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return t.baseURL + "/" + strings.Join(segments, "/")
}

// mediaTypes covers the accepted upload extensions, which the system MIME table may not know.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

func contentType(file tasks.FileRef) string {
	if typed, ok := file.(interface{ ContentType() string }); ok && typed.ContentType() != "" {
		return typed.ContentType()
	}
	ext := strings.ToLower(filepath.Ext(file.Name()))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// storageError maps S3 error responses onto [shared.APIError] so failures read like API failures.
func storageError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		return &shared.APIError{StatusCode: resp.StatusCode, Message: resp.Message, Err: err}
	}
	return requestError(err)
}

// progressCounter is read by minio with the size of each uploaded part.
type progressCounter struct {
	total  int64
	sent   int64
	report func(int)
}

func (p *progressCounter) Read(b []byte) (int, error) {
	p.sent += int64(len(b))
	p.report(int(min(p.sent, p.total) * 100 / p.total))
	return len(b), nil
}
