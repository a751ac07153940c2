package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// On is one equality condition of a join: left.Left == right.Right.
type On struct {
	Left  string
	Right string
}

// InnerJoin pairs every left row with every right row whose key columns are
// equal under exact comparison. Rows with a null key column never match.
// The output schema is the left schema followed by the right columns whose
// names the left side does not already use. Output follows left row order,
// then right row order within a key.
func (t *Table) InnerJoin(right *Table, on ...On) *Table {
	if t.err != nil {
		return t
	}
	if right.err != nil {
		return right
	}
	if len(on) == 0 {
		return Failed(fmt.Errorf("frame: join without conditions"))
	}
	leftKeys := make([]string, len(on))
	rightKeys := make([]string, len(on))
	for i, c := range on {
		lf, ok := t.schema.Field(c.Left)
		if !ok {
			return Failed(fmt.Errorf("frame: join unknown left column %q", c.Left))
		}
		rf, ok := right.schema.Field(c.Right)
		if !ok {
			return Failed(fmt.Errorf("frame: join unknown right column %q", c.Right))
		}
		if lf.Kind != rf.Kind {
			return Failed(fmt.Errorf("frame: join %q (%s) with %q (%s)", c.Left, lf.Kind, c.Right, rf.Kind))
		}
		leftKeys[i] = c.Left
		rightKeys[i] = c.Right
	}

	schema := append(Schema{}, t.schema...)
	var extra []string
	for _, f := range right.schema {
		if t.schema.Index(f.Name) < 0 {
			schema = append(schema, f)
			extra = append(extra, f.Name)
		}
	}

	buckets := make(map[string][]Row)
	for _, r := range right.rows {
		if hasNull(r, rightKeys) {
			continue
		}
		k := tupleKey(r, rightKeys)
		buckets[k] = append(buckets[k], r)
	}

	rows := make([]Row, 0)
	for _, l := range t.rows {
		if hasNull(l, leftKeys) {
			continue
		}
		for _, r := range buckets[tupleKey(l, leftKeys)] {
			out := make(Row, len(schema))
			for k, v := range l {
				out[k] = v
			}
			for _, name := range extra {
				out[name] = r[name]
			}
			rows = append(rows, out)
		}
	}
	return t.derive(schema, rows)
}

func hasNull(r Row, cols []string) bool {
	for _, c := range cols {
		if r[c] == nil {
			return true
		}
	}
	return false
}

// tupleKey encodes the cells of cols into a string that is equal for two
// rows exactly when every cell is equal, type included.
func tupleKey(r Row, cols []string) string {
	var b strings.Builder
	for _, c := range cols {
		switch v := r[c].(type) {
		case nil:
			b.WriteString("n;")
		case string:
			b.WriteString("s")
			b.WriteString(strconv.Itoa(len(v)))
			b.WriteByte(':')
			b.WriteString(v)
			b.WriteByte(';')
		case int64:
			b.WriteString("i")
			b.WriteString(strconv.FormatInt(v, 10))
			b.WriteByte(';')
		case float64:
			b.WriteString("f")
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			b.WriteByte(';')
		case time.Time:
			b.WriteString("t")
			b.WriteString(strconv.FormatInt(v.UnixNano(), 10))
			b.WriteByte(';')
		default:
			s := fmt.Sprintf("%T=%v", v, v)
			b.WriteString("x")
			b.WriteString(strconv.Itoa(len(s)))
			b.WriteByte(':')
			b.WriteString(s)
			b.WriteByte(';')
		}
	}
	return b.String()
}

// compare orders two cells of the same kind; nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return cmp3(x < y, x > y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp3(x < y, x > y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return 0
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
