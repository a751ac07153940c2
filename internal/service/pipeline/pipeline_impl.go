package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/songplay-etl/config"
	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/internal/transform"
	"github.com/feichai0017/songplay-etl/pkg/frame"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/scan"
	"github.com/feichai0017/songplay-etl/pkg/sink"
	"github.com/feichai0017/songplay-etl/pkg/storage"
)

type PipelineService struct {
	scanner *scan.Scanner
	sink    *sink.Sink
	output  storage.Storage
	catalog *dbt.Generator
	ids     transform.IDGenerator
	metrics *metrics.Metrics
	logger  logger.Logger
	config  *ServiceConfig
}

type ServiceConfig struct {
	Input  config.Location
	Output config.Location
	// WriteCatalog controls the dbt sources.yml written after the tables.
	WriteCatalog bool
}

// NewService wires a pipeline reading from input and writing to output.
func NewService(
	input storage.Storage,
	output storage.Storage,
	ids transform.IDGenerator,
	m *metrics.Metrics,
	log logger.Logger,
	cfg *ServiceConfig,
) Pipeline {
	appCfg := config.GetAppConfig()
	return &PipelineService{
		scanner: scan.NewScanner(input, log, scan.WithConcurrency(appCfg.ScanConcurrency), scan.WithMetrics(m)),
		sink:    sink.NewSink(output, log, sink.WithConcurrency(appCfg.WriteConcurrency), sink.WithMetrics(m)),
		output:  output,
		catalog: dbt.NewGenerator("sparkify", "spark", log),
		ids:     ids,
		metrics: m,
		logger:  log.Named("pipeline"),
		config:  cfg,
	}
}

// GetService builds the production pipeline: credentials from dl.cfg, the
// fixed input and output roots, and the backend named by STORAGE_TYPE.
func GetService(ctx context.Context, log logger.Logger, m *metrics.Metrics) (Pipeline, error) {
	creds, err := config.LoadCredentials(config.CredentialsFile)
	if err != nil {
		return nil, err
	}
	input, err := config.ParseLocation(config.InputData)
	if err != nil {
		return nil, err
	}
	output, err := config.ParseLocation(config.OutputData)
	if err != nil {
		return nil, err
	}

	storageType := storage.StorageType(config.GetAppConfig().StorageType)
	inputStore, err := storage.NewStorage(ctx, storageType, input.Bucket, creds, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize input storage: %w", err)
	}
	outputStore := inputStore
	if output.Bucket != input.Bucket {
		outputStore, err = storage.NewStorage(ctx, storageType, output.Bucket, creds, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize output storage: %w", err)
		}
	}

	ids, err := transform.NewSnowflakeIDs(1)
	if err != nil {
		return nil, err
	}

	return NewService(inputStore, outputStore, ids, m, log, &ServiceConfig{
		Input:        input,
		Output:       output,
		WriteCatalog: true,
	}), nil
}

func (s *PipelineService) Run(ctx context.Context) (report *models.RunReport, err error) {
	runID, ok := logger.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.New().String()
		ctx = logger.ContextWithRunID(ctx, runID)
	}
	log := logger.FromContext(ctx, s.logger)

	done := s.metrics.RunStarted()
	defer func() { done(err) }()

	report = &models.RunReport{RunID: runID, StartedAt: time.Now().UTC()}
	log.Info("Starting pipeline run",
		logger.String("input", s.config.Input.String()),
		logger.String("output", s.config.Output.String()),
	)

	if err := s.ProcessSongData(ctx, report); err != nil {
		log.Error("Song data processing failed", logger.Error(err))
		return report, err
	}
	if err := s.ProcessLogData(ctx, report); err != nil {
		log.Error("Log data processing failed", logger.Error(err))
		return report, err
	}
	if s.config.WriteCatalog {
		sources := s.catalog.Sources(s.config.Output.String(), models.StarSchema)
		if err := s.catalog.Write(ctx, s.output, s.config.Output.Prefix+dbt.SourcesFile, sources); err != nil {
			log.Error("Catalog write failed", logger.Error(err))
			return report, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("Pipeline run completed",
		logger.Int("tables", len(report.Tables)),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *PipelineService) ProcessSongData(ctx context.Context, report *models.RunReport) error {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Processing song data")

	records, err := s.scanSongs(ctx)
	if err != nil {
		return err
	}

	if err := s.write(ctx, models.SongsTable, transform.Songs(records), report); err != nil {
		return err
	}
	return s.write(ctx, models.ArtistsTable, transform.Artists(records), report)
}

func (s *PipelineService) ProcessLogData(ctx context.Context, report *models.RunReport) error {
	log := logger.FromContext(ctx, s.logger)
	log.Info("Processing log data")

	events, err := s.scanner.Scan(ctx, s.config.Input.Prefix, models.LogDataPattern, models.LogRecordSchema)
	if err != nil {
		return fmt.Errorf("failed to scan log data: %w", err)
	}
	plays := transform.NextSongs(events)
	log.Debug("Filtered song plays",
		logger.Int("events", events.Len()),
		logger.Int("plays", plays.Len()),
	)

	if err := s.write(ctx, models.UsersTable, transform.Users(plays), report); err != nil {
		return err
	}
	if err := s.write(ctx, models.TimeTable, transform.Time(plays), report); err != nil {
		return err
	}
	return s.processSongplays(ctx, plays, report)
}

// processSongplays joins the plays against a fresh read of the song data.
func (s *PipelineService) processSongplays(ctx context.Context, plays *frame.Table, report *models.RunReport) error {
	records, err := s.scanSongs(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, models.SongplaysTable, transform.Songplays(plays, records, s.ids), report)
}

func (s *PipelineService) scanSongs(ctx context.Context) (*frame.Table, error) {
	records, err := s.scanner.Scan(ctx, s.config.Input.Prefix, models.SongDataPattern, models.SongRecordSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to scan song data: %w", err)
	}
	return records, nil
}

func (s *PipelineService) write(ctx context.Context, spec models.TableSpec, table *frame.Table, report *models.RunReport) error {
	if err := table.Err(); err != nil {
		return fmt.Errorf("failed to derive %s table: %w", spec.Name, err)
	}
	res, err := s.sink.Write(ctx, table, s.config.Output.Join(spec.Dir), spec.PartitionBy...)
	if err != nil {
		return fmt.Errorf("failed to write %s table: %w", spec.Name, err)
	}
	report.Tables = append(report.Tables, models.TableReport{
		Table:      spec.Name,
		Location:   config.Location{Bucket: s.config.Output.Bucket, Prefix: res.Destination}.String(),
		Rows:       res.Rows,
		Partitions: res.Partitions,
		Deleted:    res.Deleted,
	})
	return nil
}
