// Package transform derives the star schema relations from scanned song and
// log records. Every function is pure: it reads its input tables and returns
// new ones.
package transform

import (
	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// Songs keeps one row per distinct (song_id, title, artist_id, year,
// duration) tuple with a song_id.
func Songs(records *frame.Table) *frame.Table {
	return records.
		Select(
			frame.Col("song_id"),
			frame.Col("title"),
			frame.Col("artist_id"),
			frame.Col("year"),
			frame.Col("duration"),
		).
		NotNull("song_id").
		Distinct()
}

// Artists keeps one row per distinct artist tuple with an artist_id.
func Artists(records *frame.Table) *frame.Table {
	return records.
		Select(
			frame.Col("artist_id"),
			frame.Col("artist_name").Alias("name"),
			frame.Col("artist_location").Alias("location"),
			frame.Col("artist_latitude").Alias("latitude"),
			frame.Col("artist_longitude").Alias("longitude"),
		).
		NotNull("artist_id").
		Distinct()
}
