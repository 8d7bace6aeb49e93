package storage

import (
	"fmt"
	"strconv"
)

// Record is a read-only, name-keyed view of one row.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Int64 returns the column as an integer, or 0 when it is absent or NULL.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// String returns the column as text, or "" when it is absent or NULL.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// normalize converts driver byte slices to strings so records compare and
// print the same way on every backend.
func normalize(row map[string]any) Record {
	rec := make(Record, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
			continue
		}
		rec[k] = v
	}
	return rec
}
