// Package sink persists a frame.Table as Snappy-compressed Parquet objects,
// optionally split into Hive style partition directories. Every write
// replaces what it targets: the whole destination when unpartitioned, each
// partition directory that receives rows otherwise.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/songplay-etl/pkg/frame"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/storage"
)

const (
	// PartFile is the single data file written per partition.
	PartFile = "part-00000.snappy.parquet"
	// SuccessMarker is written at the destination root once every partition is stored.
	SuccessMarker = "_SUCCESS"
)

type Sink struct {
	store       storage.Storage
	logger      logger.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Sink)

func WithConcurrency(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sink) { s.metrics = m }
}

func NewSink(store storage.Storage, log logger.Logger, opts ...Option) *Sink {
	s := &Sink{
		store:       store,
		logger:      log.Named("sink"),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes one Write.
type Result struct {
	Destination string
	Rows        int
	Partitions  int
	Deleted     int
}

// Write stores table under the destination prefix, partitioned by the given
// columns. There is no rollback: a failure leaves earlier partitions in place.
func (s *Sink) Write(ctx context.Context, table *frame.Table, destination string, partitionBy ...string) (Result, error) {
	start := time.Now()
	if err := table.Err(); err != nil {
		return Result{}, fmt.Errorf("cannot write %s: %w", destination, err)
	}
	destination = normalizeDir(destination)
	if destination == "" {
		return Result{}, fmt.Errorf("refusing to write to the bucket root")
	}
	log := logger.FromContext(ctx, s.logger).With(logger.String("destination", destination))

	dataSchema, err := bodySchema(table.Schema(), partitionBy)
	if err != nil {
		return Result{}, fmt.Errorf("cannot write %s: %w", destination, err)
	}
	schemaJSON, err := parquetSchema(dataSchema)
	if err != nil {
		return Result{}, err
	}

	parts := splitPartitions(table.Rows(), partitionBy)

	deleted, err := s.clear(ctx, destination, parts, partitionBy)
	if err != nil {
		return Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range parts {
		g.Go(func() error {
			data, err := s.encode(schemaJSON, dataSchema, p.rows)
			if err != nil {
				return fmt.Errorf("failed to encode %s%s: %w", destination, p.dir, err)
			}
			key := destination + p.dir + PartFile
			if err := s.store.Put(gctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("Write failed", logger.Error(err))
		return Result{}, err
	}

	if err := s.store.Put(ctx, destination+SuccessMarker, bytes.NewReader(nil), 0); err != nil {
		return Result{}, fmt.Errorf("failed to write %s%s: %w", destination, SuccessMarker, err)
	}

	res := Result{
		Destination: destination,
		Rows:        table.Len(),
		Partitions:  len(parts),
		Deleted:     deleted,
	}
	elapsed := time.Since(start)
	s.metrics.ObserveWrite(path.Base(destination), res.Rows, res.Partitions, res.Deleted, elapsed)
	log.Info("Wrote table",
		logger.Int("rows", res.Rows),
		logger.Int("partitions", res.Partitions),
		logger.Int("deleted", res.Deleted),
		logger.Strings("partition_by", partitionBy),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

// clear removes what the write is about to replace. A partitioned
// destination is listed once and the objects under touched partition
// directories go in batched deletes. The count excludes the marker.
func (s *Sink) clear(ctx context.Context, destination string, parts []*partition, partitionBy []string) (int, error) {
	if len(partitionBy) == 0 {
		n, err := s.store.DeletePrefix(ctx, destination)
		if err != nil {
			return n, fmt.Errorf("failed to clear %s: %w", destination, err)
		}
		return n, nil
	}

	objects, err := s.store.List(ctx, destination)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", destination, err)
	}

	touched := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		touched[p.dir] = struct{}{}
	}
	var keys []string
	marker := false
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, destination)
		if rel == SuccessMarker {
			keys = append(keys, obj.Key)
			marker = true
			continue
		}
		if _, ok := touched[leadingDirs(rel, len(partitionBy))]; ok {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.store.DeleteKeys(ctx, keys)
	if marker && n > 0 {
		n--
	}
	if err != nil {
		return n, fmt.Errorf("failed to clear %s: %w", destination, err)
	}
	return n, nil
}

// leadingDirs returns the first depth directory segments of rel with a
// trailing slash, or "" when rel is not that deep.
func leadingDirs(rel string, depth int) string {
	end := 0
	for i := 0; i < depth; i++ {
		j := strings.IndexByte(rel[end:], '/')
		if j < 0 {
			return ""
		}
		end += j + 1
	}
	return rel[:end]
}

func (s *Sink) encode(schemaJSON string, schema frame.Schema, rows []frame.Row) ([]byte, error) {
	var buf bytes.Buffer
	pf := writerfile.NewWriterFile(&buf)

	// A single marshaler keeps page layout, and so the file bytes, stable.
	pw, err := writer.NewJSONWriter(schemaJSON, pf, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range rows {
		rec, err := encodeRow(schema, r)
		if err != nil {
			return nil, err
		}
		if err := pw.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	if err := pf.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bodySchema is the schema stored inside each file: partition columns live
// in the directory names instead.
func bodySchema(schema frame.Schema, partitionBy []string) (frame.Schema, error) {
	skip := make(map[string]bool, len(partitionBy))
	for _, c := range partitionBy {
		if schema.Index(c) < 0 {
			return nil, fmt.Errorf("unknown partition column %q", c)
		}
		if skip[c] {
			return nil, fmt.Errorf("duplicate partition column %q", c)
		}
		skip[c] = true
	}
	out := make(frame.Schema, 0, len(schema))
	for _, f := range schema {
		if !skip[f.Name] {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("every column is a partition column")
	}
	return out, nil
}

func normalizeDir(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	if p == "" {
		return ""
	}
	if p[len(p)-1] != '/' {
		p += "/"
	}
	return p
}
