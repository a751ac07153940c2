package sink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/feichai0017/songplay-etl/pkg/frame"
)

// DefaultPartition names the directory of a null or empty partition value.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

type partition struct {
	dir  string
	rows []frame.Row
}

// splitPartitions groups rows by the values of cols into Hive style
// directories ("year=2018/month=11/"), in order of first appearance.
func splitPartitions(rows []frame.Row, cols []string) []*partition {
	if len(cols) == 0 {
		return []*partition{{dir: "", rows: rows}}
	}
	index := make(map[string]*partition)
	var out []*partition
	for _, r := range rows {
		dir := partitionDir(r, cols)
		p, ok := index[dir]
		if !ok {
			p = &partition{dir: dir}
			index[dir] = p
			out = append(out, p)
		}
		p.rows = append(p.rows, r)
	}
	return out
}

func partitionDir(r frame.Row, cols []string) string {
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(escapePathName(c))
		b.WriteByte('=')
		b.WriteString(partitionValue(r[c]))
		b.WriteByte('/')
	}
	return b.String()
}

func partitionValue(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = x
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		s = x.UTC().Format("2006-01-02 15:04:05.000")
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return DefaultPartition
	}
	return escapePathName(s)
}

// escapePathName percent-encodes characters that would break a directory
// name, the same set Hive escapes.
func escapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	return strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0
}
