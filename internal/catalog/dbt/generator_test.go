package dbt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/storage/memory"
)

const root = "s3a://udacity-dend/ash_rahman/"

func TestSources(t *testing.T) {
	g := NewGenerator("sparkify", "", logger.NewTestLogger())
	sources := g.Sources(root, models.StarSchema)

	require.Len(t, sources.Sources, 1)
	tables := sources.Sources[0].Tables
	require.Len(t, tables, 5)

	songs := tables[0]
	assert.Equal(t, "songs", songs.Name)
	assert.Equal(t, root+"songs_table/", songs.External.Location)
	assert.Equal(t, []models.ExternalPartition{
		{Name: "year", DataType: "bigint"},
		{Name: "artist_id", DataType: "string"},
	}, songs.External.Partitions)
	require.Len(t, songs.Columns, 3)
	assert.Equal(t, models.ModelColumn{Name: "song_id", DataType: "string", Tests: []string{"not_null"}}, songs.Columns[0])

	users := tables[2]
	assert.Empty(t, users.External.Partitions)
	assert.Equal(t, []string{"not_null", "unique"}, users.Columns[0].Tests)

	timeTable := tables[3]
	assert.Equal(t, "timestamp", timeTable.Columns[0].DataType)
}

func TestMapDataTypeByTarget(t *testing.T) {
	g := NewGenerator("s", "snowflake", logger.NewTestLogger())
	sources := g.Sources(root, []models.TableSpec{models.TimeTable})
	assert.Equal(t, "TIMESTAMP_NTZ", sources.Sources[0].Tables[0].Columns[0].DataType)

	g = NewGenerator("s", "oracle", logger.NewTestLogger())
	sources = g.Sources(root, []models.TableSpec{models.TimeTable})
	assert.Equal(t, "string", sources.Sources[0].Tables[0].Columns[0].DataType)
}

func TestWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := NewGenerator("sparkify", "spark", logger.NewTestLogger())
	sources := g.Sources(root, models.StarSchema)

	require.NoError(t, g.Write(ctx, store, "ash_rahman/"+SourcesFile, sources))

	data := store.Snapshot()["ash_rahman/_catalog/sources.yml"]
	require.NotEmpty(t, data)

	var decoded models.DbtSources
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Version)
	assert.Equal(t, "songplays", decoded.Sources[0].Tables[4].Name)
	assert.Contains(t, string(data), "file_format: parquet")
}
