package sink

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/feichai0017/songplay-etl/pkg/frame"
)

type schemaField struct {
	Tag string `json:"Tag"`
}

type schemaRoot struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields"`
}

// parquetSchema renders the JSON schema understood by parquet-go's
// JSONWriter. Every column is OPTIONAL so nulls survive the round trip.
func parquetSchema(schema frame.Schema) (string, error) {
	root := schemaRoot{Tag: "name=parquet-go-root", Fields: make([]schemaField, 0, len(schema))}
	for _, f := range schema {
		tag, err := fieldTag(f)
		if err != nil {
			return "", err
		}
		root.Fields = append(root.Fields, schemaField{Tag: tag})
	}
	data, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to marshal parquet schema: %w", err)
	}
	return string(data), nil
}

func fieldTag(f frame.Field) (string, error) {
	if strings.ContainsAny(f.Name, ",=") {
		return "", fmt.Errorf("column name %q cannot be stored", f.Name)
	}
	var typ string
	switch f.Kind {
	case frame.KindString:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	case frame.KindInt:
		typ = "type=INT64"
	case frame.KindFloat:
		typ = "type=DOUBLE"
	case frame.KindTimestamp:
		typ = "type=INT64, convertedtype=TIMESTAMP_MILLIS"
	default:
		return "", fmt.Errorf("column %q has unsupported kind %s", f.Name, f.Kind)
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", f.Name, typ), nil
}

// encodeRow renders one row as the JSON record JSONWriter expects. Null
// cells are left out; the writer stores absent OPTIONAL fields as null.
func encodeRow(schema frame.Schema, r frame.Row) (string, error) {
	rec := make(map[string]any, len(schema))
	for _, f := range schema {
		v := r[f.Name]
		if v == nil {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UnixMilli()
		}
		rec[f.Name] = v
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
