package dbt

import (
	"bytes"
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/pkg/frame"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/storage"
)

// SourcesFile is the catalog key relative to the output root.
const SourcesFile = "_catalog/sources.yml"

// Generator describes the written star schema as a dbt sources.yml so
// downstream models can select from the Parquet tables.
type Generator struct {
	sourceName string
	targetDB   string
	logger     logger.Logger
}

// 创建新的生成器
func NewGenerator(sourceName, targetDB string, log logger.Logger) *Generator {
	if targetDB == "" {
		targetDB = "spark"
	}
	return &Generator{
		sourceName: sourceName,
		targetDB:   targetDB,
		logger:     log.Named("catalog"),
	}
}

// Sources builds the catalog of tables stored under outputRoot.
func (g *Generator) Sources(outputRoot string, tables []models.TableSpec) *models.DbtSources {
	src := models.DbtSource{
		Name:        g.sourceName,
		Description: "Star schema of song plays, stored as Parquet.",
		Meta:        map[string]interface{}{"location": outputRoot},
		Tables:      make([]models.SourceTable, 0, len(tables)),
	}
	for _, t := range tables {
		src.Tables = append(src.Tables, g.sourceTable(outputRoot, t))
	}
	return &models.DbtSources{Version: 2, Sources: []models.DbtSource{src}}
}

func (g *Generator) sourceTable(outputRoot string, t models.TableSpec) models.SourceTable {
	partitioned := make(map[string]bool, len(t.PartitionBy))
	ext := &models.ExternalTable{
		Location:   outputRoot + t.Dir + "/",
		FileFormat: "parquet",
	}
	for _, col := range t.PartitionBy {
		partitioned[col] = true
		f, _ := t.Schema.Field(col)
		ext.Partitions = append(ext.Partitions, models.ExternalPartition{
			Name:     col,
			DataType: g.mapDataType(f.Kind),
		})
	}

	table := models.SourceTable{
		Name:        t.Name,
		Description: t.Description,
		External:    ext,
		Columns:     make([]models.ModelColumn, 0, len(t.Schema)),
	}
	for _, f := range t.Schema {
		if partitioned[f.Name] {
			continue
		}
		col := models.ModelColumn{Name: f.Name, DataType: g.mapDataType(f.Kind)}
		if f.Name == t.Key {
			col.Tests = []string{"not_null"}
			if t.UniqueKey {
				col.Tests = append(col.Tests, "unique")
			}
		}
		table.Columns = append(table.Columns, col)
	}
	return table
}

// Marshal renders sources as YAML.
func Marshal(sources *models.DbtSources) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sources); err != nil {
		return nil, fmt.Errorf("failed to marshal sources YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the catalog at key.
func (g *Generator) Write(ctx context.Context, store storage.Storage, key string, sources *models.DbtSources) error {
	data, err := Marshal(sources)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	logger.FromContext(ctx, g.logger).Info("Wrote dbt sources",
		logger.String("key", key),
		logger.Int("tables", len(sources.Sources[0].Tables)),
	)
	return nil
}

// 数据类型映射
func (g *Generator) mapDataType(kind frame.Kind) string {
	typeMapping := map[string]map[frame.Kind]string{
		"spark": {
			frame.KindString:    "string",
			frame.KindInt:       "bigint",
			frame.KindFloat:     "double",
			frame.KindTimestamp: "timestamp",
		},
		"postgresql": {
			frame.KindString:    "TEXT",
			frame.KindInt:       "BIGINT",
			frame.KindFloat:     "DOUBLE PRECISION",
			frame.KindTimestamp: "TIMESTAMP",
		},
		"snowflake": {
			frame.KindString:    "VARCHAR",
			frame.KindInt:       "NUMBER(19,0)",
			frame.KindFloat:     "FLOAT",
			frame.KindTimestamp: "TIMESTAMP_NTZ",
		},
	}

	if mapping, ok := typeMapping[g.targetDB]; ok {
		if dbType, ok := mapping[kind]; ok {
			return dbType
		}
	}

	return "string" // 默认类型
}
