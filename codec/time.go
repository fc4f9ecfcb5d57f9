package codec

import "time"

// ParseTime parses an RFC3339 timestamp, accepting the Nano variant
// (trailing zeros optional).
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// FormatTime normalizes to UTC and formats using RFC3339Nano (Go trims
// trailing zeros).
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
