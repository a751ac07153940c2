package pipeline

import (
	"context"

	"github.com/feichai0017/songplay-etl/internal/models"
)

// Pipeline runs the song play ETL.
type Pipeline interface {
	// Run processes the song data, then the log data, then writes the catalog.
	Run(ctx context.Context) (*models.RunReport, error)
	// ProcessSongData writes the songs and artists tables.
	ProcessSongData(ctx context.Context, report *models.RunReport) error
	// ProcessLogData writes the users, time and songplays tables.
	ProcessLogData(ctx context.Context, report *models.RunReport) error
}
