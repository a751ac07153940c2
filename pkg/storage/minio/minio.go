package minio

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/storage/object"
)

type MinioStorage struct {
	client     *minio.Client
	bucketName string
	logger     logger.Logger
}

// List implements Storage.List
func (m *MinioStorage) List(ctx context.Context, prefix string) ([]object.Info, error) {
	var out []object.Info
	for obj := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			m.logger.Error("Error listing objects",
				logger.String("bucket", m.bucketName),
				logger.String("prefix", prefix),
				logger.Error(obj.Err),
			)
			return nil, fmt.Errorf("failed to list %s/%s: %w", m.bucketName, prefix, obj.Err)
		}
		out = append(out, object.Info{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get implements Storage.Get
func (m *MinioStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", m.bucketName, key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", object.ErrNotFound, m.bucketName, key)
		}
		m.logger.Error("Failed to get object from MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to get %s/%s: %w", m.bucketName, key, err)
	}
	return obj, nil
}

// Put implements Storage.Put
func (m *MinioStorage) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, r, size, minio.PutObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to put object to MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to put %s/%s: %w", m.bucketName, key, err)
	}
	return nil
}

// Delete implements Storage.Delete
func (m *MinioStorage) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		m.logger.Error("Failed to delete object from MinIO",
			logger.String("bucket", m.bucketName),
			logger.String("key", key),
			logger.Error(err),
		)
		return fmt.Errorf("failed to delete %s/%s: %w", m.bucketName, key, err)
	}
	return nil
}

// DeletePrefix implements Storage.DeletePrefix
func (m *MinioStorage) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects, err := m.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	return m.DeleteKeys(ctx, keys)
}

// DeleteKeys implements Storage.DeleteKeys
func (m *MinioStorage) DeleteKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	objectCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectCh <- minio.ObjectInfo{Key: key}
	}
	close(objectCh)

	failed, firstErr := drainRemoveErrors(m.client.RemoveObjects(ctx, m.bucketName, objectCh, minio.RemoveObjectsOptions{}))
	if firstErr != nil {
		return len(keys) - failed, fmt.Errorf("failed to delete from %s: %w", m.bucketName, firstErr)
	}

	m.logger.Debug("Deleted objects",
		logger.String("bucket", m.bucketName),
		logger.Int("count", len(keys)),
	)
	return len(keys), nil
}

// drainRemoveErrors reads errCh until minio closes it, so the sending
// goroutine never blocks, and keeps the first error.
func drainRemoveErrors(errCh <-chan minio.RemoveObjectError) (int, error) {
	failed := 0
	var firstErr error
	for rerr := range errCh {
		if rerr.Err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return failed, firstErr
}

func NewMinioStorage(ctx context.Context, minioConfig *cfg.MinioConfig, bucket string, creds cfg.Credentials, log logger.Logger) (*MinioStorage, error) {
	client, err := minio.New(minioConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure: minioConfig.UseSSL,
		Region: minioConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
			Region: minioConfig.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: bucket,
		logger:     log.With(logger.String("backend", "minio")),
	}, nil
}
