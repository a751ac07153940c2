package models

import (
	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// Source globs, relative to the input root.
const (
	SongDataPattern = "song_data/*/*/*/*.json"
	LogDataPattern  = "log_data/*.json"
)

// NextSongPage is the page value of a song play event.
const NextSongPage = "NextSong"

// SongRecordSchema is one line of a song metadata file.
var SongRecordSchema = frame.Schema{
	frame.Int("num_songs"),
	frame.String("artist_id"),
	frame.Float("artist_latitude"),
	frame.String("artist_location"),
	frame.Float("artist_longitude"),
	frame.String("artist_name"),
	frame.Float("duration"),
	frame.String("song_id"),
	frame.String("title"),
	frame.Int("year"),
}

// LogRecordSchema is one line of an application event log file.
var LogRecordSchema = frame.Schema{
	frame.String("artist"),
	frame.String("auth"),
	frame.String("firstName"),
	frame.String("gender"),
	frame.Int("itemInSession"),
	frame.String("lastName"),
	frame.Float("length"),
	frame.String("level"),
	frame.String("location"),
	frame.String("method"),
	frame.String("page"),
	frame.Float("registration"),
	frame.Int("sessionId"),
	frame.String("song"),
	frame.Int("status"),
	frame.Int("ts"),
	frame.String("userAgent"),
	frame.String("userId"),
}

// TableSpec describes one output relation of the star schema.
type TableSpec struct {
	Name        string
	Dir         string
	Description string
	Key         string
	// UniqueKey is set when no two rows share Key.
	UniqueKey   bool
	PartitionBy []string
	Schema      frame.Schema
}

var (
	SongsTable = TableSpec{
		Name:        "songs",
		Dir:         "songs_table",
		Description: "Songs in the music catalog.",
		Key:         "song_id",
		PartitionBy: []string{"year", "artist_id"},
		Schema: frame.Schema{
			frame.String("song_id"),
			frame.String("title"),
			frame.String("artist_id"),
			frame.Int("year"),
			frame.Float("duration"),
		},
	}

	ArtistsTable = TableSpec{
		Name:        "artists",
		Dir:         "artists_table",
		Description: "Artists in the music catalog.",
		Key:         "artist_id",
		Schema: frame.Schema{
			frame.String("artist_id"),
			frame.String("name"),
			frame.String("location"),
			frame.Float("latitude"),
			frame.Float("longitude"),
		},
	}

	UsersTable = TableSpec{
		Name:        "users",
		Dir:         "users_table",
		Description: "Users of the app, one row per user with the level of their latest play.",
		Key:         "user_id",
		UniqueKey:   true,
		Schema: frame.Schema{
			frame.String("user_id"),
			frame.String("first_name"),
			frame.String("last_name"),
			frame.String("gender"),
			frame.String("level"),
		},
	}

	TimeTable = TableSpec{
		Name:        "time",
		Dir:         "time_table",
		Description: "Timestamps of song plays broken down into calendar units.",
		Key:         "start_time",
		UniqueKey:   true,
		PartitionBy: []string{"year", "month"},
		Schema: frame.Schema{
			frame.Timestamp("start_time"),
			frame.Int("hour"),
			frame.Int("day"),
			frame.Int("week"),
			frame.Int("month"),
			frame.Int("year"),
			frame.Int("weekday"),
		},
	}

	SongplaysTable = TableSpec{
		Name:        "songplays",
		Dir:         "songplays_table",
		Description: "Song play events matched to the catalog.",
		Key:         "songplay_id",
		UniqueKey:   true,
		PartitionBy: []string{"year", "month"},
		Schema: frame.Schema{
			frame.Int("songplay_id"),
			frame.Timestamp("start_time"),
			frame.Int("month"),
			frame.Int("year"),
			frame.String("user_id"),
			frame.String("level"),
			frame.String("song_id"),
			frame.String("artist_id"),
			frame.Int("session_id"),
			frame.String("location"),
			frame.String("user_agent"),
		},
	}
)

// StarSchema lists the output tables in write order.
var StarSchema = []TableSpec{SongsTable, ArtistsTable, UsersTable, TimeTable, SongplaysTable}
