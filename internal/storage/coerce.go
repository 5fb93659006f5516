package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sotorrent/internal/ddl"
)

// DateTimeLayouts are the timestamp spellings found in the dump and the
// derived CSV files, tried in order.
var DateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseDateTime parses s using DateTimeLayouts. Zone-less values are UTC.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range DateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// CoerceValue converts a normalized value into the Go type drivers expect
// for t. nil passes through; integers become int64, booleans bool, doubles
// float64. Datetimes are validated but stay strings so each backend keeps
// its native text form. Text values are returned unchanged.
func CoerceValue(t ddl.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case int:
		return coerceInt(t, int64(x))
	case int64:
		return coerceInt(t, x)
	case bool, float64, time.Time:
		return x, nil
	case string:
		return coerceString(t, x)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func coerceInt(t ddl.Type, n int64) (any, error) {
	switch t.Kind {
	case ddl.Bool:
		return n != 0, nil
	case ddl.Double:
		return float64(n), nil
	case ddl.TinyInt, ddl.Int:
		return n, nil
	default:
		return strconv.FormatInt(n, 10), nil
	}
}

func coerceString(t ddl.Type, s string) (any, error) {
	switch t.Kind {
	case ddl.TinyInt, ddl.Int:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		if t.Kind == ddl.TinyInt && (n < -128 || n > 127) {
			return nil, fmt.Errorf("tinyint out of range: %d", n)
		}
		return n, nil
	case ddl.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", s)
		}
		return b, nil
	case ddl.Double:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double %q", s)
		}
		return f, nil
	case ddl.DateTime:
		if _, err := ParseDateTime(s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return s, nil
	}
}
