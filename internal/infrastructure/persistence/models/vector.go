package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Vector stores an embedding as a Postgres float8[] column. The sqlite
// driver used in tests has no array type, so Scan also accepts the
// bracketed JSON form sqlite stores the literal as.
type Vector []float32

// GormDataType returns the column type for GORM migrations
func (Vector) GormDataType() string {
	return "float8[]"
}

// Value implements driver.Valuer, encoding the vector as an array literal
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Scan implements sql.Scanner, decoding {..} and [..] array literals
func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}

	var raw string
	switch s := src.(type) {
	case string:
		raw = s
	case []byte:
		raw = string(s)
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "}")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		*v = Vector{}
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(Vector, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("invalid vector element %q: %w", p, err)
		}
		out = append(out, float32(f))
	}
	*v = out
	return nil
}
