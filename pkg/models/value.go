package models

import (
	"fmt"
	"strconv"
	"time"
)

// Cell value coercion. Drivers hand back a mix of int64, float64,
// []byte and string depending on the backend; these helpers normalize
// without guessing beyond what the warehouse actually produces.

// AsFloat converts a cell to float64. nil (missing) is an error: fills
// must have run first.
func AsFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
}

// AsInt64 converts a cell to int64, truncating fractional parts.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case []byte:
		return parseInt64(string(x))
	case string:
		return parseInt64(x)
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}

func parseInt64(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// AsString renders a cell as an opaque identifier.
func AsString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		// identifiers read back as floats keep their integral form
		return strconv.FormatInt(int64(x), 10), nil
	case nil:
		return "", fmt.Errorf("missing value")
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// AsTime converts a cell to a canonical time. MySQL with parseTime
// already yields time.Time; sqlite and CSV-sourced batches yield text.
func AsTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return parseTime(string(x))
	case string:
		return parseTime(x)
	case nil:
		return time.Time{}, fmt.Errorf("missing value")
	default:
		return time.Time{}, fmt.Errorf("not a datetime: %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
}
