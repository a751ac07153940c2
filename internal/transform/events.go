package transform

import (
	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// NextSongs keeps the song play events. Users, Time and Songplays are only
// ever derived from its output.
func NextSongs(events *frame.Table) *frame.Table {
	return events.Where("page", models.NextSongPage)
}

// Users returns one row per user_id. The level (and the rest of the row)
// comes from the user's play with the greatest ts; plays without a ts lose to
// any play with one, and ties go to the later play in scan order.
func Users(plays *frame.Table) *frame.Table {
	return plays.
		NotNull("userId").
		LatestBy("userId", "ts").
		Select(
			frame.Col("userId").Alias("user_id"),
			frame.Col("firstName").Alias("first_name"),
			frame.Col("lastName").Alias("last_name"),
			frame.Col("gender"),
			frame.Col("level"),
		)
}
