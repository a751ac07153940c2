// Package scan loads JSON-lines objects matching a glob into a frame.Table.
package scan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/songplay-etl/pkg/frame"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/storage"
)

// CorruptRecordColumn holds the raw text of a line that is not a JSON object.
const CorruptRecordColumn = "_corrupt_record"

const maxLineSize = 16 << 20

type Scanner struct {
	store       storage.Storage
	logger      logger.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Scanner)

func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

func NewScanner(store storage.Storage, log logger.Logger, opts ...Option) *Scanner {
	s := &Scanner{
		store:       store,
		logger:      log.Named("scan"),
		concurrency: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan reads every object under root whose relative key matches pattern and
// returns its lines as rows conformed to schema, plus CorruptRecordColumn.
// Objects are read in key order. A pattern that matches nothing yields an
// empty table.
func (s *Scanner) Scan(ctx context.Context, root, pattern string, schema frame.Schema) (*frame.Table, error) {
	start := time.Now()
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid scan pattern %q", pattern)
	}
	schema = withCorruptColumn(schema)
	log := logger.FromContext(ctx, s.logger).With(logger.String("pattern", pattern), logger.String("root", root))

	listPrefix := root + literalPrefix(pattern)
	objects, err := s.store.List(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", listPrefix, err)
	}

	var keys []string
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, root)
		if ok, _ := doublestar.Match(pattern, rel); ok {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		log.Warn("No objects matched scan pattern")
		s.metrics.ObserveScan(pattern, 0, 0, 0, 0, time.Since(start))
		return frame.Empty(schema), nil
	}

	results := make([]fileResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			res, err := s.readObject(gctx, key)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("Scan failed", logger.Error(err))
		return nil, err
	}

	var (
		rows    []frame.Row
		corrupt int
		size    int64
	)
	for _, res := range results {
		rows = append(rows, res.rows...)
		corrupt += res.corrupt
		size += res.size
	}

	table := frame.New(schema, rows)
	if err := table.Err(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.ObserveScan(pattern, len(keys), len(rows), corrupt, size, elapsed)
	fields := []logger.Field{
		logger.Int("files", len(keys)),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", elapsed),
	}
	if corrupt > 0 {
		log.Warn("Scanned objects with corrupt records", append(fields, logger.Int("corrupt", corrupt))...)
	} else {
		log.Info("Scanned objects", fields...)
	}
	return table, nil
}

type fileResult struct {
	rows    []frame.Row
	corrupt int
	size    int64
}

func (s *Scanner) readObject(ctx context.Context, key string) (fileResult, error) {
	data, err := storage.ReadAll(ctx, s.store, key)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	rows, corrupt, err := DecodeLines(data)
	if err != nil {
		return fileResult{}, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return fileResult{rows: rows, corrupt: corrupt, size: int64(len(data))}, nil
}

// DecodeLines parses one JSON object per line. Blank lines are skipped and a
// line that is not an object becomes a row holding only CorruptRecordColumn.
func DecodeLines(data []byte) ([]frame.Row, int, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		rows    []frame.Row
		corrupt int
	)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		row, ok := decodeObject(line)
		if !ok {
			corrupt++
			row = frame.Row{CorruptRecordColumn: string(line)}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}
	return rows, corrupt, nil
}

func decodeObject(line []byte) (frame.Row, bool) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	// Trailing content after the object means the line is not one record.
	if dec.More() {
		return nil, false
	}

	row := make(frame.Row, len(obj))
	for k, v := range obj {
		row[k] = normalizeNumber(v)
	}
	return row, true
}

type numberLiteral interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// normalizeNumber turns a json number literal into int64 when it is integral
// and float64 otherwise, so large integers keep full precision.
func normalizeNumber(v any) any {
	n, ok := v.(numberLiteral)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// literalPrefix is the part of pattern before its first path segment that
// holds a glob meta character.
func literalPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[{\\")
	if i < 0 {
		return pattern
	}
	j := strings.LastIndex(pattern[:i], "/")
	if j < 0 {
		return ""
	}
	return pattern[:j+1]
}

func withCorruptColumn(schema frame.Schema) frame.Schema {
	if schema.Index(CorruptRecordColumn) >= 0 {
		return schema
	}
	out := make(frame.Schema, 0, len(schema)+1)
	out = append(out, schema...)
	return append(out, frame.String(CorruptRecordColumn))
}

// IsCorrupt reports whether a scanned row came from an undecodable line.
func IsCorrupt(r frame.Row) bool {
	return r[CorruptRecordColumn] != nil
}
