package scan

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/songplay-etl/pkg/frame"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/storage"
	"github.com/feichai0017/songplay-etl/pkg/storage/memory"
)

var recordSchema = frame.Schema{frame.String("song_id"), frame.Int("year"), frame.Float("duration"), frame.Int("ts")}

func TestLiteralPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"song_data/*/*/*/*.json", "song_data/"},
		{"log_data/*.json", "log_data/"},
		{"log_data/2018-11-*.json", "log_data/"},
		{"*.json", ""},
		{"a/b/c.json", "a/b/c.json"},
		{"a/{b,c}/d.json", "a/"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, literalPrefix(tt.pattern))
		})
	}
}

func TestDecodeLines(t *testing.T) {
	data := []byte(`{"song_id":"S1","year":2000,"duration":200.5}

  {"ts":1541440400000, "extra":{"nested":true}}
not json
[1,2]
null
{"song_id":"S2"} trailing
`)
	rows, corrupt, err := DecodeLines(data)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, 4, corrupt)

	assert.Equal(t, "S1", rows[0]["song_id"])
	assert.Equal(t, int64(2000), rows[0]["year"])
	assert.Equal(t, 200.5, rows[0]["duration"])
	assert.Equal(t, int64(1541440400000), rows[1]["ts"])
	assert.Equal(t, "not json", rows[2][CorruptRecordColumn])
	assert.True(t, IsCorrupt(rows[5]))
	assert.False(t, IsCorrupt(rows[0]))
}

func newScanner(store storage.Storage) (*Scanner, *logger.TestLogger) {
	log := logger.NewTestLogger()
	return NewScanner(store, log, WithConcurrency(2), WithMetrics(metrics.New(prometheus.NewRegistry()))), log
}

func TestScanMatchesNestedGlobInKeyOrder(t *testing.T) {
	store := memory.New()
	store.PutString("song_data/B/A/A/TRBAA.json", `{"song_id":"S3","year":"1999"}`)
	store.PutString("song_data/A/B/C/TRABC.json", `{"song_id":"S2","year":0}`+"\n"+`{"song_id":"S1","year":2000}`)
	store.PutString("song_data/A/B/TRAB.json", `{"song_id":"too shallow"}`)
	store.PutString("song_data/A/B/C/notes.txt", `{"song_id":"wrong extension"}`)
	store.PutString("log_data/x.json", `{"song_id":"other dataset"}`)

	s, _ := newScanner(store)
	table, err := s.Scan(context.Background(), "", "song_data/*/*/*/*.json", recordSchema)
	require.NoError(t, err)

	assert.Equal(t, []any{"S2", "S1", "S3"}, table.Column("song_id"))
	assert.Equal(t, []any{int64(0), int64(2000), int64(1999)}, table.Column("year"))
	assert.Equal(t, append(recordSchema.Names(), CorruptRecordColumn), table.Schema().Names())
}

func TestScanUnderRoot(t *testing.T) {
	store := memory.New()
	store.PutString("input/log_data/a.json", `{"ts":"1541440400000"}`)
	store.PutString("log_data/b.json", `{"ts":1}`)

	s, _ := newScanner(store)
	table, err := s.Scan(context.Background(), "input/", "log_data/*.json", recordSchema)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1541440400000)}, table.Column("ts"))
}

func TestScanNoMatchesIsEmptyWithWarning(t *testing.T) {
	s, log := newScanner(memory.New())
	table, err := s.Scan(context.Background(), "", "log_data/*.json", recordSchema)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"No objects matched scan pattern"}, log.Messages("WARN"))
}

func TestScanCorruptLinesAreKept(t *testing.T) {
	store := memory.New()
	store.PutString("log_data/a.json", "{\"ts\":5}\n{broken\n")

	s, log := newScanner(store)
	table, err := s.Scan(context.Background(), "", "log_data/*.json", recordSchema)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Nil(t, table.Rows()[1]["ts"])
	assert.Equal(t, "{broken", table.Rows()[1][CorruptRecordColumn])
	assert.Len(t, log.Messages("WARN"), 1)
}

func TestScanInvalidPattern(t *testing.T) {
	s, _ := newScanner(memory.New())
	_, err := s.Scan(context.Background(), "", "log_data/[.json", recordSchema)
	assert.Error(t, err)
}

type failingStore struct {
	*memory.Storage
	listErr error
	getErr  error
}

func (f failingStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Storage.List(ctx, prefix)
}

func (f failingStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Storage.Get(ctx, key)
}

func TestScanStorageErrorsAreFatal(t *testing.T) {
	boom := errors.New("access denied")
	mem := memory.New()
	mem.PutString("log_data/a.json", `{"ts":1}`)

	s, _ := newScanner(failingStore{Storage: mem, listErr: boom})
	_, err := s.Scan(context.Background(), "", "log_data/*.json", recordSchema)
	assert.ErrorIs(t, err, boom)

	s, _ = newScanner(failingStore{Storage: mem, getErr: boom})
	_, err = s.Scan(context.Background(), "", "log_data/*.json", recordSchema)
	assert.ErrorIs(t, err, boom)
}
