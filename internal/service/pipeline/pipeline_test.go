package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/internal/transform"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/sink"
	"github.com/feichai0017/songplay-etl/pkg/storage"
	"github.com/feichai0017/songplay-etl/pkg/storage/memory"
)

const (
	songRecord = `{"num_songs": 1, "artist_id": "A1", "artist_latitude": null, "artist_location": "", "artist_longitude": null, "artist_name": "Artist One", "duration": 200.5, "song_id": "S1", "title": "Song One", "year": 2018}`

	nextSong = `{"artist":"Artist One","auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":0,"lastName":"Lee","length":200.5,"level":"free","location":"X","method":"PUT","page":"NextSong","registration":1540000000000.0,"sessionId":7,"song":"Song One","status":200,"ts":1541440400000,"userAgent":"Y","userId":"42"}`
	homePage = `{"artist":null,"auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":1,"lastName":"Lee","length":null,"level":"free","location":"X","method":"GET","page":"Home","registration":1540000000000.0,"sessionId":7,"song":null,"status":200,"ts":1541440500000,"userAgent":"Y","userId":"42"}`
)

var (
	inputRoot  = config.Location{Bucket: "udacity-dend"}
	outputRoot = config.Location{Bucket: "udacity-dend", Prefix: "ash_rahman/"}
)

type songplayRow struct {
	SongplayID *int64  `parquet:"name=songplay_id, type=INT64, repetitiontype=OPTIONAL"`
	StartTime  *int64  `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	UserID     *string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Level      *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SongID     *string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ArtistID   *string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SessionID  *int64  `parquet:"name=session_id, type=INT64, repetitiontype=OPTIONAL"`
	Location   *string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	UserAgent  *string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

type userRow struct {
	UserID    *string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	FirstName *string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	LastName  *string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Gender    *string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Level     *string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

func seed() *memory.Storage {
	store := memory.New()
	store.PutString("song_data/A/A/A/TRAAAAA128F42A1E8A.json", songRecord+"\n")
	store.PutString("log_data/2018-11-05-events.json", nextSong+"\n"+homePage+"\n")
	return store
}

func newService(store storage.Storage, log logger.Logger) Pipeline {
	return NewService(store, store, &transform.SequenceIDs{}, metrics.New(prometheus.NewRegistry()), log, &ServiceConfig{
		Input:        inputRoot,
		Output:       outputRoot,
		WriteCatalog: true,
	})
}

func TestRunWritesStarSchema(t *testing.T) {
	store := seed()
	log := logger.NewTestLogger()

	ctx := logger.ContextWithRunID(context.Background(), "run-1")
	report, err := newService(store, log).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Tables, len(models.StarSchema))

	objects := store.Snapshot()
	for _, key := range []string{
		"ash_rahman/songs_table/year=2018/artist_id=A1/part-00000.snappy.parquet",
		"ash_rahman/songs_table/_SUCCESS",
		"ash_rahman/artists_table/part-00000.snappy.parquet",
		"ash_rahman/users_table/part-00000.snappy.parquet",
		"ash_rahman/time_table/year=2018/month=11/part-00000.snappy.parquet",
		"ash_rahman/songplays_table/year=2018/month=11/part-00000.snappy.parquet",
		"ash_rahman/songplays_table/_SUCCESS",
		"ash_rahman/" + dbt.SourcesFile,
	} {
		assert.Contains(t, objects, key)
	}

	for _, spec := range models.StarSchema {
		tr, ok := report.Table(spec.Name)
		require.True(t, ok, spec.Name)
		assert.Equal(t, 1, tr.Rows, spec.Name)
		assert.Equal(t, "s3a://udacity-dend/ash_rahman/"+spec.Dir+"/", tr.Location)
	}

	plays, err := sink.ReadFile[songplayRow](objects["ash_rahman/songplays_table/year=2018/month=11/part-00000.snappy.parquet"])
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, int64(1), *plays[0].SongplayID)
	assert.Equal(t, int64(1541440400000), *plays[0].StartTime)
	assert.Equal(t, "42", *plays[0].UserID)
	assert.Equal(t, "free", *plays[0].Level)
	assert.Equal(t, "S1", *plays[0].SongID)
	assert.Equal(t, "A1", *plays[0].ArtistID)
	assert.Equal(t, int64(7), *plays[0].SessionID)
	assert.Equal(t, "X", *plays[0].Location)
	assert.Equal(t, "Y", *plays[0].UserAgent)

	users, err := sink.ReadFile[userRow](objects["ash_rahman/users_table/part-00000.snappy.parquet"])
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "42", *users[0].UserID)
	assert.Equal(t, "Ann", *users[0].FirstName)
	assert.Equal(t, "Lee", *users[0].LastName)

	for _, e := range log.GetEntries() {
		assert.Contains(t, e.Fields, logger.String("run_id", "run-1"), e.Message)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := seed()

	_, err := newService(store, logger.NewTestLogger()).Run(context.Background())
	require.NoError(t, err)
	first := store.Snapshot()

	report, err := newService(store, logger.NewTestLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, store.Snapshot())

	songs, ok := report.Table(models.SongsTable.Name)
	require.True(t, ok)
	assert.Equal(t, 1, songs.Deleted)
}

func TestRunWithoutLogData(t *testing.T) {
	store := memory.New()
	store.PutString("song_data/A/A/A/TRAAAAA128F42A1E8A.json", songRecord+"\n")
	log := logger.NewTestLogger()

	report, err := newService(store, log).Run(context.Background())
	require.NoError(t, err)

	plays, ok := report.Table(models.SongplaysTable.Name)
	require.True(t, ok)
	assert.Equal(t, 0, plays.Rows)
	assert.Contains(t, store.Snapshot(), "ash_rahman/songplays_table/_SUCCESS")
	assert.Contains(t, log.Messages("WARN"), "No objects matched scan pattern")
}

type brokenStore struct {
	*memory.Storage
}

func (b brokenStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("connection reset")
}

func TestRunFailsOnReadError(t *testing.T) {
	store := brokenStore{seed()}

	_, err := newService(store, logger.NewTestLogger()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "song data")
	assert.NotContains(t, store.Snapshot(), "ash_rahman/songs_table/_SUCCESS")
}
