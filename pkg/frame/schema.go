// Package frame holds an in-memory tabular dataset and the relational steps
// (project, filter, distinct, derive, join) the pipeline composes.
//
// A nil cell is a null. Every operation returns a new Table and leaves its
// receiver untouched; an error raised by any step is carried forward and
// reported by Err, in the manner of a query builder.
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Kind is the logical type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is a named, typed column.
type Field struct {
	Name string
	Kind Kind
}

func String(name string) Field    { return Field{Name: name, Kind: KindString} }
func Int(name string) Field       { return Field{Name: name, Kind: KindInt} }
func Float(name string) Field     { return Field{Name: name, Kind: KindFloat} }
func Timestamp(name string) Field { return Field{Name: name, Kind: KindTimestamp} }

// Schema is an ordered list of fields.
type Schema []Field

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of name, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field looks a column up by name.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Field{}, false
}

// Conform converts v to the Go representation of kind: string, int64,
// float64 or time.Time. Values that cannot be converted become nil.
func Conform(kind Kind, v any) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindString:
		switch v.(type) {
		case map[string]any, []any:
			return nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil
		}
		return s
	case KindInt:
		if s, ok := v.(string); ok {
			return parseIntString(s)
		}
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil
		}
		if _, ok := v.(bool); ok {
			return nil
		}
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil
		}
		return n
	case KindFloat:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil
			}
			return f
		}
		if _, ok := v.(bool); ok {
			return nil
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil
		}
		return f
	case KindTimestamp:
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
		t, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
		if err != nil {
			return nil
		}
		return t.UTC()
	default:
		return nil
	}
}

func parseIntString(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return int64(f)
}
