package schema

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind is the family a column type belongs to.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindBytes
	KindTime
	KindJSON
)

// TypeMapper maps SQL column types to record values.
type TypeMapper struct{}

// NewTypeMapper creates a new type mapper.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{}
}

// KindOf classifies a column type such as "VARCHAR(255)" or "bigint unsigned".
func (tm *TypeMapper) KindOf(dbType string) Kind {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if t == "TINYINT(1)" {
		return KindBool
	}
	if idx := strings.IndexAny(t, "( "); idx > 0 {
		t = t[:idx]
	}

	switch t {
	case "INT", "INTEGER", "MEDIUMINT", "BIGINT", "SMALLINT", "TINYINT":
		return KindInt
	case "FLOAT", "DOUBLE", "REAL":
		return KindFloat
	case "DECIMAL", "NUMERIC":
		return KindDecimal
	case "BOOLEAN", "BOOL":
		return KindBool
	case "BINARY", "VARBINARY", "BLOB", "LONGBLOB", "MEDIUMBLOB", "TINYBLOB":
		return KindBytes
	case "DATE", "DATETIME", "TIMESTAMP", "TIME":
		return KindTime
	case "JSON", "JSONB":
		return KindJSON
	default:
		return KindString
	}
}

// Check reports whether value may be stored in a column of dbType without
// conversion. Numbers decoded from JSON arrive as float64 and are accepted by
// integer columns when integral.
func (tm *TypeMapper) Check(value interface{}, dbType string) error {
	switch tm.KindOf(dbType) {
	case KindString:
		if _, ok := value.(string); ok {
			return nil
		}
	case KindInt:
		if _, ok := asInt(value); ok {
			return nil
		}
	case KindFloat:
		if _, ok := asFloat(value); ok {
			return nil
		}
	case KindDecimal:
		switch value.(type) {
		case string:
			return nil
		}
		if _, ok := asFloat(value); ok {
			return nil
		}
	case KindBool:
		if _, ok := value.(bool); ok {
			return nil
		}
	case KindBytes:
		switch value.(type) {
		case []byte, string:
			return nil
		}
	case KindTime:
		switch v := value.(type) {
		case time.Time:
			return nil
		case string:
			if _, err := parseTime(v); err == nil {
				return nil
			}
		}
	case KindJSON:
		return nil
	}
	return errors.Errorf("expected %s, got %T", dbType, value)
}

// ConvertFromDBValue turns a value scanned from database/sql into the value a
// record should hold: strings instead of []byte, int64 for integers, parsed
// JSON for JSON columns.
func (tm *TypeMapper) ConvertFromDBValue(value interface{}, dbType string) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if valuer, ok := value.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		value = v
	}
	if b, ok := value.([]byte); ok && tm.KindOf(dbType) != KindBytes {
		value = string(b)
	}

	switch tm.KindOf(dbType) {
	case KindInt:
		if s, ok := value.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, "cannot convert string to int64")
			}
			return n, nil
		}
		if n, ok := asInt(value); ok {
			return n, nil
		}
	case KindFloat:
		if s, ok := value.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrap(err, "cannot convert string to float64")
			}
			return f, nil
		}
		if f, ok := asFloat(value); ok {
			return f, nil
		}
	case KindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errors.Wrap(err, "cannot convert string to bool")
			}
			return b, nil
		}
		if n, ok := asInt(value); ok {
			return n != 0, nil
		}
	case KindTime:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			return parseTime(v)
		}
	case KindJSON:
		if s, ok := value.(string); ok {
			var out interface{}
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, errors.Wrap(err, "cannot parse JSON column")
			}
			return out, nil
		}
		return value, nil
	default:
		return value, nil
	}
	return nil, errors.Errorf("cannot convert %T to %s", value, dbType)
}

func asInt(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return asInt(float64(v))
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if n, ok := asInt(value); ok {
		return float64(n), true
	}
	return 0, false
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse time string: %s", s)
}
