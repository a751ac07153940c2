package frame

import (
	"errors"
	"fmt"
)

// Row maps column names to cells.
type Row map[string]any

// Get returns the cell for col, nil when absent.
func (r Row) Get(col string) any {
	return r[col]
}

// Table is an immutable relation: a schema plus rows in a stable order.
type Table struct {
	schema Schema
	rows   []Row
	err    error
}

// New builds a table, conforming every cell to its column kind and dropping
// keys the schema does not declare.
func New(schema Schema, rows []Row) *Table {
	if err := validateSchema(schema); err != nil {
		return &Table{schema: schema, err: err}
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = conformRow(schema, r)
	}
	return &Table{schema: schema, rows: out}
}

// Empty returns a table with no rows.
func Empty(schema Schema) *Table {
	return New(schema, nil)
}

// Failed returns a table that carries err.
func Failed(err error) *Table {
	return &Table{err: err}
}

func validateSchema(schema Schema) error {
	seen := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		if f.Name == "" {
			return errors.New("frame: empty column name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("frame: duplicate column %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func conformRow(schema Schema, r Row) Row {
	out := make(Row, len(schema))
	for _, f := range schema {
		out[f.Name] = Conform(f.Kind, r[f.Name])
	}
	return out
}

// Err reports the first error raised while building t.
func (t *Table) Err() error { return t.err }

func (t *Table) Schema() Schema { return t.schema }

// Rows exposes the rows; callers must not modify them.
func (t *Table) Rows() []Row { return t.rows }

func (t *Table) Len() int { return len(t.rows) }

// Column returns every cell of col in row order.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out
}

func (t *Table) derive(schema Schema, rows []Row) *Table {
	return &Table{schema: schema, rows: rows}
}

func (t *Table) require(cols ...string) error {
	for _, c := range cols {
		if t.schema.Index(c) < 0 {
			return fmt.Errorf("frame: unknown column %q", c)
		}
	}
	return nil
}

// Projection names a source column and the name it takes in the output.
type Projection struct {
	From string
	As   string
}

// Col projects a column under its own name.
func Col(name string) Projection { return Projection{From: name, As: name} }

// Alias renames the projected column.
func (p Projection) Alias(as string) Projection {
	p.As = as
	return p
}

// Select projects (and optionally renames) columns.
func (t *Table) Select(cols ...Projection) *Table {
	if t.err != nil {
		return t
	}
	schema := make(Schema, 0, len(cols))
	for _, c := range cols {
		f, ok := t.schema.Field(c.From)
		if !ok {
			return Failed(fmt.Errorf("frame: select unknown column %q", c.From))
		}
		schema = append(schema, Field{Name: c.As, Kind: f.Kind})
	}
	if err := validateSchema(schema); err != nil {
		return Failed(err)
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out := make(Row, len(cols))
		for _, c := range cols {
			out[c.As] = r[c.From]
		}
		rows[i] = out
	}
	return t.derive(schema, rows)
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	if t.err != nil {
		return t
	}
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.derive(t.schema, rows)
}

// Where keeps rows whose col equals value. Null never matches.
func (t *Table) Where(col string, value any) *Table {
	if t.err != nil {
		return t
	}
	if err := t.require(col); err != nil {
		return Failed(err)
	}
	return t.Filter(func(r Row) bool {
		v := r[col]
		return v != nil && v == value
	})
}

// NotNull drops rows where col is null.
func (t *Table) NotNull(col string) *Table {
	if t.err != nil {
		return t
	}
	if err := t.require(col); err != nil {
		return Failed(err)
	}
	return t.Filter(func(r Row) bool { return r[col] != nil })
}

// Distinct removes rows equal across every column, keeping first occurrences.
func (t *Table) Distinct() *Table {
	if t.err != nil {
		return t
	}
	names := t.schema.Names()
	seen := make(map[string]struct{}, len(t.rows))
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		k := tupleKey(r, names)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, r)
	}
	return t.derive(t.schema, rows)
}

// WithColumn adds (or replaces) a column computed from each row.
func (t *Table) WithColumn(f Field, fn func(Row) any) *Table {
	if t.err != nil {
		return t
	}
	schema := make(Schema, 0, len(t.schema)+1)
	replaced := false
	for _, existing := range t.schema {
		if existing.Name == f.Name {
			schema = append(schema, f)
			replaced = true
			continue
		}
		schema = append(schema, existing)
	}
	if !replaced {
		schema = append(schema, f)
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out := make(Row, len(r)+1)
		for k, v := range r {
			out[k] = v
		}
		out[f.Name] = Conform(f.Kind, fn(r))
		rows[i] = out
	}
	return t.derive(schema, rows)
}

// LatestBy keeps one row per distinct key value: the row with the greatest
// order value. Null orders lose to any value; ties go to the later row.
// Groups are emitted in order of first appearance.
func (t *Table) LatestBy(key, order string) *Table {
	if t.err != nil {
		return t
	}
	if err := t.require(key, order); err != nil {
		return Failed(err)
	}
	index := make(map[string]int)
	rows := make([]Row, 0)
	for _, r := range t.rows {
		k := tupleKey(r, []string{key})
		i, ok := index[k]
		if !ok {
			index[k] = len(rows)
			rows = append(rows, r)
			continue
		}
		if compare(r[order], rows[i][order]) >= 0 {
			rows[i] = r
		}
	}
	return t.derive(t.schema, rows)
}
