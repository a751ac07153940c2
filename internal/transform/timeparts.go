package transform

import (
	"time"

	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// StartTime converts an epoch-milliseconds ts cell into a UTC timestamp.
func StartTime(ts any) any {
	ms, ok := ts.(int64)
	if !ok {
		return nil
	}
	return time.UnixMilli(ms).UTC()
}

// Calendar parts of a start_time. Weekday and week follow ISO 8601: Monday is
// day 1 and week 1 holds the year's first Thursday.
func Hour(t time.Time) int64  { return int64(t.Hour()) }
func Day(t time.Time) int64   { return int64(t.Day()) }
func Month(t time.Time) int64 { return int64(t.Month()) }
func Year(t time.Time) int64  { return int64(t.Year()) }

func Week(t time.Time) int64 {
	_, week := t.ISOWeek()
	return int64(week)
}

func Weekday(t time.Time) int64 {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int64(t.Weekday())
}

// timePart lifts a calendar function to a row function over start_time.
func timePart(part func(time.Time) int64) func(frame.Row) any {
	return func(r frame.Row) any {
		t, ok := r["start_time"].(time.Time)
		if !ok {
			return nil
		}
		return part(t)
	}
}

func withStartTime(plays *frame.Table) *frame.Table {
	return plays.WithColumn(frame.Timestamp("start_time"), func(r frame.Row) any {
		return StartTime(r["ts"])
	})
}

// Time breaks every distinct play timestamp down into calendar units.
func Time(plays *frame.Table) *frame.Table {
	return withStartTime(plays.NotNull("ts")).
		NotNull("start_time").
		WithColumn(frame.Int("hour"), timePart(Hour)).
		WithColumn(frame.Int("day"), timePart(Day)).
		WithColumn(frame.Int("week"), timePart(Week)).
		WithColumn(frame.Int("month"), timePart(Month)).
		WithColumn(frame.Int("year"), timePart(Year)).
		WithColumn(frame.Int("weekday"), timePart(Weekday)).
		Select(
			frame.Col("start_time"),
			frame.Col("hour"),
			frame.Col("day"),
			frame.Col("week"),
			frame.Col("month"),
			frame.Col("year"),
			frame.Col("weekday"),
		).
		Distinct()
}
