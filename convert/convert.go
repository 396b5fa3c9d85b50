package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sqlshift/sqlshift/config"
	"github.com/sqlshift/sqlshift/db"
)

// Issue records a field whose value could not be converted and was degraded
// to NULL. The row carrying it is still written.
type Issue struct {
	Column string
	Reason string
}

// Transform applies the table's conversion mapping to one row. The returned
// row has the same arity; positions without a conversion pass through
// unchanged, including NULLs. A row shorter than the column list is reported
// as an Issue so the mismatch is visible before the loader rejects it.
func Transform(spec *config.TableSpec, row db.Row) (db.Row, []Issue) {
	out := make(db.Row, len(row))
	copy(out, row)

	var issues []Issue
	for i, col := range spec.Columns {
		if i >= len(row) {
			issues = append(issues, Issue{
				Column: col,
				Reason: fmt.Sprintf("row has %d values, expected %d", len(row), len(spec.Columns)),
			})
			break
		}
		kind := spec.Conversions[col]
		if kind == config.ConvertNone {
			continue
		}

		var converted interface{}
		var err error
		switch kind {
		case config.ConvertJSON:
			converted, err = JSONText(row[i])
		case config.ConvertMillis:
			converted, err = MillisTime(row[i])
		case config.ConvertBool:
			converted, err = Bool(row[i])
		}
		out[i] = converted
		if err != nil {
			issues = append(issues, Issue{Column: col, Reason: err.Error()})
		}
	}
	return out, issues
}

// JSONText parses a JSON blob or text value and re-serializes it as JSON
// text. Empty input becomes NULL; unparseable input degrades to NULL with a
// non-nil error describing why. Never panics.
func JSONText(value interface{}) (interface{}, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil, fmt.Errorf("unexpected type %T for json value", value)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode json: %w", err)
	}
	return string(encoded), nil
}

// MillisTime converts a unix-millisecond integer to a UTC timestamp at
// whole-second precision. NULL stays NULL; zero, negative, non-numeric or
// out-of-range values degrade to NULL with a non-nil error.
func MillisTime(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	ms, ok := asInt64(value)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T for millisecond timestamp", value)
	}
	if ms <= 0 {
		return nil, fmt.Errorf("non-positive timestamp %d", ms)
	}
	t := time.Unix(ms/1000, 0).UTC()
	if t.Year() < 1 || t.Year() > 9999 {
		return nil, fmt.Errorf("timestamp %d out of range", ms)
	}
	return t, nil
}

// Bool maps integer and textual boolean encodings onto bool: NULL stays
// NULL, anything nonzero or truthy becomes true.
func Bool(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return truthy(string(v)), nil
	case string:
		return truthy(v), nil
	default:
		return nil, fmt.Errorf("unexpected type %T for boolean value", value)
	}
}

func truthy(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return true
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	}
	return 0, false
}

func parseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
