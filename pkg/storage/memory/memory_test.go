package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/songplay-etl/pkg/storage/object"
)

func TestListSortedByKey(t *testing.T) {
	s := New()
	s.PutString("log_data/b.json", "b")
	s.PutString("log_data/a.json", "a")
	s.PutString("song_data/A/x.json", "x")

	got, err := s.List(context.Background(), "log_data/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "log_data/a.json", got[0].Key)
	assert.Equal(t, "log_data/b.json", got[1].Key)
	assert.Equal(t, int64(1), got[0].Size)
}

func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("hello"), 5))

	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Error(t, s.Put(ctx, "short", strings.NewReader("abc"), 10))
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutString("t/year=2018/month=11/part-00000.snappy.parquet", "a")
	s.PutString("t/year=2018/month=12/part-00000.snappy.parquet", "b")
	s.PutString("t2/x", "c")

	n, err := s.DeletePrefix(ctx, "t/year=2018/month=11/")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left := s.Snapshot()
	assert.Len(t, left, 2)
	assert.Contains(t, left, "t/year=2018/month=12/part-00000.snappy.parquet")
}

func TestDeleteKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutString("t/a", "a")
	s.PutString("t/b", "b")

	n, err := s.DeleteKeys(ctx, []string{"t/a", "t/missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"t/b"}, keysOf(s))
}

func keysOf(s *Storage) []string {
	var out []string
	for k := range s.Snapshot() {
		out = append(out, k)
	}
	return out
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}
