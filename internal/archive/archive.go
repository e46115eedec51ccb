package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"idcheck/internal/config"
	"idcheck/internal/textutil"
)

// Artifact is one file pushed to the bucket. Either Path or Data is set.
type Artifact struct {
	Name        string
	Path        string
	Data        []byte
	ContentType string
}

// Archiver copies run artifacts to long-term storage.
type Archiver interface {
	Enabled() bool
	Archive(ctx context.Context, mode, runID string, artifacts []Artifact) ([]string, error)
}

// objectStore is the subset of *minio.Client used here.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// New returns an S3-compatible archiver, or a no-op when archiving is disabled.
func New(cfg config.Archive) (Archiver, error) {
	if !cfg.Enabled {
		return noopArchiver{}, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newMinioArchiver(client, cfg.Bucket, cfg.Prefix), nil
}

type minioArchiver struct {
	store  objectStore
	bucket string
	prefix string
}

func newMinioArchiver(store objectStore, bucket, prefix string) *minioArchiver {
	return &minioArchiver{store: store, bucket: bucket, prefix: prefix}
}

func (a *minioArchiver) Enabled() bool { return true }

// Archive ensures the bucket exists and uploads every artifact, returning the
// object keys written. It stops at the first failure.
func (a *minioArchiver) Archive(ctx context.Context, mode, runID string, artifacts []Artifact) ([]string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		key := ObjectKey(a.prefix, mode, runID, artifact.Name)
		if err := a.put(ctx, key, artifact); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *minioArchiver) ensureBucket(ctx context.Context) error {
	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

func (a *minioArchiver) put(ctx context.Context, key string, artifact Artifact) error {
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	var (
		reader io.Reader
		size   int64
	)
	if artifact.Path != "" {
		file, err := os.Open(artifact.Path)
		if err != nil {
			return fmt.Errorf("open artifact %s: %w", artifact.Name, err)
		}
		defer file.Close()
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat artifact %s: %w", artifact.Name, err)
		}
		reader, size = file, info.Size()
	} else {
		reader, size = bytes.NewReader(artifact.Data), int64(len(artifact.Data))
	}

	if _, err := a.store.PutObject(ctx, a.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ObjectKey builds "<prefix>/<mode>/<run-id>/<name>" with every segment made
// safe for object storage.
func ObjectKey(prefix, mode, runID, name string) string {
	parts := make([]string, 0, 4)
	if prefix = strings.Trim(strings.TrimSpace(prefix), "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, textutil.Slug(mode), textutil.Slug(runID))
	file := textutil.ObjectName(name)
	if file == "" {
		file = "artifact"
	}
	parts = append(parts, file)
	return path.Join(parts...)
}

type noopArchiver struct{}

func (noopArchiver) Enabled() bool { return false }

func (noopArchiver) Archive(context.Context, string, string, []Artifact) ([]string, error) {
	return nil, nil
}
