package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/storage/memory"
	"github.com/feichai0017/songplay-etl/pkg/storage/minio"
	"github.com/feichai0017/songplay-etl/pkg/storage/object"
	"github.com/feichai0017/songplay-etl/pkg/storage/s3"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeS3     StorageType = "s3"
	StorageTypeMinio  StorageType = "minio"
	StorageTypeMemory StorageType = "memory"
)

type Object = object.Info

var ErrNotFound = object.ErrNotFound

// Storage is a flat key space inside one bucket.
type Storage interface {
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Get opens an object; a missing key yields ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put stores size bytes read from r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object under prefix and reports how many went.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// DeleteKeys removes the given objects in as few requests as the backend
	// allows and reports how many went.
	DeleteKeys(ctx context.Context, keys []string) (int, error)
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(ctx context.Context, storageType StorageType, bucket string, creds config.Credentials, log logger.Logger) (Storage, error) {
	switch storageType {
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, config.GetS3Config(), bucket, creds, log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, config.GetMinioConfig(), bucket, creds, log)
	case StorageTypeMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ReadAll fetches a whole object.
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
