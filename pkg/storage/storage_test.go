package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/storage/memory"
)

func TestNewStorage(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()

	s, err := NewStorage(ctx, StorageTypeMemory, "bucket", config.Credentials{}, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, s)

	_, err = NewStorage(ctx, StorageType("gcs"), "bucket", config.Credentials{}, log)
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.PutString("a", "payload")

	data, err := ReadAll(ctx, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = ReadAll(ctx, s, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}
