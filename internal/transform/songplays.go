package transform

import (
	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// Songplays joins play events to song records on exact (artist, song) ==
// (artist_name, title) equality. Plays without a match are dropped and a play
// matching several records yields one row per record.
func Songplays(plays, songRecords *frame.Table, ids IDGenerator) *frame.Table {
	catalog := songRecords.Select(
		frame.Col("artist_name"),
		frame.Col("title"),
		frame.Col("song_id"),
		frame.Col("artist_id"),
	)

	joined := plays.InnerJoin(catalog,
		frame.On{Left: "artist", Right: "artist_name"},
		frame.On{Left: "song", Right: "title"},
	)

	return withStartTime(joined).
		WithColumn(frame.Int("songplay_id"), func(frame.Row) any { return ids.Next() }).
		WithColumn(frame.Int("month"), timePart(Month)).
		WithColumn(frame.Int("year"), timePart(Year)).
		Select(
			frame.Col("songplay_id"),
			frame.Col("start_time"),
			frame.Col("month"),
			frame.Col("year"),
			frame.Col("userId").Alias("user_id"),
			frame.Col("level"),
			frame.Col("song_id"),
			frame.Col("artist_id"),
			frame.Col("sessionId").Alias("session_id"),
			frame.Col("location"),
			frame.Col("userAgent").Alias("user_agent"),
		)
}
